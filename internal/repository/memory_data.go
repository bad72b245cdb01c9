package repository

import (
	"maps"
	"slices"

	"nest-data/internal/domain"
)

// memoryData 所有表的内存副本；值类型存储，clone 即可得到独立快照
type memoryData struct {
	seq map[string]int64

	profiles       map[int64]domain.HomelessProfile
	shelters       map[int64]domain.Shelter
	requests       map[int64]domain.AssignmentRequest
	allocations    map[int64]domain.JobAllocation
	residents      map[int64]domain.ShelterResident
	shelterMedical map[int64]domain.ShelterMedicalRecord
	ngoMedical     map[int64]domain.MedicalRecord
	syncLogs       []domain.DataSyncLog
	choices        map[int64]domain.RecommendationChoice
}

func newMemoryData() *memoryData {
	return &memoryData{
		seq:            map[string]int64{},
		profiles:       map[int64]domain.HomelessProfile{},
		shelters:       map[int64]domain.Shelter{},
		requests:       map[int64]domain.AssignmentRequest{},
		allocations:    map[int64]domain.JobAllocation{},
		residents:      map[int64]domain.ShelterResident{},
		shelterMedical: map[int64]domain.ShelterMedicalRecord{},
		ngoMedical:     map[int64]domain.MedicalRecord{},
		choices:        map[int64]domain.RecommendationChoice{},
	}
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		seq:            maps.Clone(d.seq),
		profiles:       maps.Clone(d.profiles),
		shelters:       maps.Clone(d.shelters),
		requests:       maps.Clone(d.requests),
		allocations:    maps.Clone(d.allocations),
		residents:      maps.Clone(d.residents),
		shelterMedical: maps.Clone(d.shelterMedical),
		ngoMedical:     maps.Clone(d.ngoMedical),
		syncLogs:       slices.Clone(d.syncLogs),
		choices:        maps.Clone(d.choices),
	}
}

func (d *memoryData) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}
