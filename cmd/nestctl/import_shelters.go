package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"nest-data/common/database"
	commonredis "nest-data/common/redis"
	"nest-data/internal/service"
	"nest-data/internal/store"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// 导入表头（不区分大小写）
const (
	colName          = "name"
	colAddress       = "address"
	colCapacity      = "capacity"
	colAvailableBeds = "available beds"
	colLatitude      = "latitude"
	colLongitude     = "longitude"
	colAmenities     = "amenities"
)

// rowError 单行解析错误，不中断整个导入
type rowError struct {
	Row int
	Err error
}

func (e rowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func importSheltersCmd(a *app) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "import-shelters <file.xlsx>",
		Short: "Import shelters from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, rowErrs, err := readShelterSheet(args[0], sheet)
			if err != nil {
				return err
			}
			for _, re := range rowErrs {
				a.log.Warn("Skipping row", zap.Int("row", re.Row), zap.Error(re.Err))
			}

			db, st, err := a.openStore()
			if err != nil {
				return err
			}
			defer database.Close(db)

			svc := service.NewProfileService(st, a.log)
			created := 0
			for _, req := range reqs {
				sh, err := svc.CreateShelter(cmd.Context(), req)
				if err != nil {
					a.log.Warn("Failed to import shelter", zap.String("name", req.Name), zap.Error(err))
					continue
				}
				created++
				a.log.Debug("Imported shelter", zap.Int64("shelter_id", sh.ShelterID), zap.String("name", sh.Name))
			}
			a.log.Info("Import complete", zap.Int("created", created), zap.Int("skipped", len(rowErrs)+len(reqs)-created))

			a.invalidateBedStats(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	return cmd
}

// invalidateBedStats 导入后清空床位统计缓存；Redis 不可用时跳过
func (a *app) invalidateBedStats(ctx context.Context) {
	rc := commonredis.NewRedisClient(&a.cfg.Redis)
	defer commonredis.Close(rc)
	if err := commonredis.Ping(ctx, rc); err != nil {
		a.log.Debug("Redis unavailable, bed-stats cache not invalidated", zap.Error(err))
		return
	}
	n, err := clearBedStats(ctx, store.NewRedisKV(rc))
	if err != nil {
		a.log.Warn("Failed to invalidate bed-stats cache", zap.Error(err))
		return
	}
	a.log.Info("Bed-stats cache invalidated", zap.Int("keys", n))
}

func clearBedStats(ctx context.Context, kv store.KV) (int, error) {
	keys, err := kv.ScanKeys(ctx, store.BedStatsPattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return len(keys), kv.Delete(ctx, keys...)
}

// readShelterSheet 第一行为表头，之后每行一个收容所
func readShelterSheet(path, sheet string) ([]service.CreateShelterRequest, []rowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colName, colCapacity} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var reqs []service.CreateShelterRequest
	var rowErrs []rowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if cell(colName) == "" && cell(colCapacity) == "" {
			continue
		}
		req, err := shelterFromRow(cell)
		if err != nil {
			rowErrs = append(rowErrs, rowError{Row: rowNum, Err: err})
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, rowErrs, nil
}

func shelterFromRow(cell func(string) string) (service.CreateShelterRequest, error) {
	req := service.CreateShelterRequest{
		Name:      cell(colName),
		Address:   cell(colAddress),
		Amenities: cell(colAmenities),
	}
	capacity, err := strconv.Atoi(cell(colCapacity))
	if err != nil {
		return req, fmt.Errorf("invalid capacity %q", cell(colCapacity))
	}
	req.Capacity = capacity

	if v := cell(colAvailableBeds); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid available beds %q", v)
		}
		req.AvailableBeds = &n
	}
	if req.GeoLat, err = parseCoord(cell(colLatitude)); err != nil {
		return req, err
	}
	if req.GeoLng, err = parseCoord(cell(colLongitude)); err != nil {
		return req, err
	}
	return req, nil
}

func parseCoord(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	return v, nil
}
