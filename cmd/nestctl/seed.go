package main

import (
	"context"
	"fmt"
	"strings"

	"nest-data/common/database"
	"nest-data/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedAmenities = []string{"meals", "showers", "laundry", "medical", "wifi", "lockers", "pets"}
	seedSkills    = []string{"cooking", "cleaning", "carpentry", "driving", "retail", "warehouse", "it"}
	seedHealth    = []string{"stable", "stable", "chronic asthma", "diabetes", "critical - needs follow up", ""}
	seedPriority  = []string{"Low", "Medium", "Medium", "High", "Critical"}
)

type seedSummary struct {
	Shelters int
	Profiles int
}

func seedCmd(a *app) *cobra.Command {
	var (
		shelters int
		profiles int
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake shelters and profiles for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, st, err := a.openStore()
			if err != nil {
				return err
			}
			defer database.Close(db)

			svc := service.NewProfileService(st, a.log)
			sum, err := seedData(cmd.Context(), svc, gofakeit.New(seed), shelters, profiles)
			if err != nil {
				return err
			}
			a.log.Info("Seed complete", zap.Int("shelters", sum.Shelters), zap.Int("profiles", sum.Profiles))
			return nil
		},
	}
	cmd.Flags().IntVar(&shelters, "shelters", 5, "Number of shelters")
	cmd.Flags().IntVar(&profiles, "profiles", 20, "Number of homeless profiles")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Faker seed (0 = random)")
	return cmd
}

// seedData 通过服务层写入，沿用同样的校验
func seedData(ctx context.Context, svc service.ProfileService, f *gofakeit.Faker, shelters, profiles int) (seedSummary, error) {
	var sum seedSummary
	for i := 0; i < shelters; i++ {
		capacity := f.Number(5, 60)
		available := f.Number(0, capacity)
		_, err := svc.CreateShelter(ctx, service.CreateShelterRequest{
			Name:          f.Company() + " Shelter",
			Address:       fmt.Sprintf("%s, %s", f.Street(), f.City()),
			Capacity:      capacity,
			AvailableBeds: &available,
			GeoLat:        f.Latitude(),
			GeoLng:        f.Longitude(),
			Amenities:     pick(f, seedAmenities, 3),
		})
		if err != nil {
			return sum, fmt.Errorf("seed shelter %d: %w", i, err)
		}
		sum.Shelters++
	}

	for i := 0; i < profiles; i++ {
		age := f.Number(16, 80)
		_, err := svc.CreateProfile(ctx, service.CreateProfileRequest{
			Name:         f.Name(),
			Age:          &age,
			Gender:       f.Gender(),
			HealthStatus: f.RandomString(seedHealth),
			Skills:       pick(f, seedSkills, 2),
			Needs:        "shelter",
			GeoLat:       f.Latitude(),
			GeoLng:       f.Longitude(),
			Priority:     f.RandomString(seedPriority),
		})
		if err != nil {
			return sum, fmt.Errorf("seed profile %d: %w", i, err)
		}
		sum.Profiles++
	}
	return sum, nil
}

// pick 随机取至多 n 个不重复元素，逗号分隔
func pick(f *gofakeit.Faker, from []string, n int) string {
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < n; i++ {
		v := f.RandomString(from)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}
