package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"nest-data/internal/domain"
	"nest-data/internal/repository"
	"nest-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// failingNGOStore 事务内的 NGO 医疗记录写入总是失败
type failingNGOStore struct {
	*repository.MemoryStore
}

func (s failingNGOStore) WithinTx(ctx context.Context, fn func(repository.Repos) error) error {
	return s.MemoryStore.WithinTx(ctx, func(r repository.Repos) error {
		r.NGOMedical = failingNGOMedical{}
		return fn(r)
	})
}

type failingNGOMedical struct{}

func (failingNGOMedical) CreateMedicalRecord(context.Context, *domain.MedicalRecord) (int64, error) {
	return 0, errors.New("ngo database unavailable")
}

func (failingNGOMedical) ListByProfile(context.Context, int64) ([]*domain.MedicalRecord, error) {
	return nil, nil
}

// failingShelterStore 收容所查询总是超时
type failingShelterStore struct {
	*repository.MemoryStore
}

func (s failingShelterStore) Repos() repository.Repos {
	r := s.MemoryStore.Repos()
	r.Shelters = failingShelters{r.Shelters}
	return r
}

func (s failingShelterStore) WithinTx(ctx context.Context, fn func(repository.Repos) error) error {
	return s.MemoryStore.WithinTx(ctx, func(r repository.Repos) error {
		r.Shelters = failingShelters{r.Shelters}
		return fn(r)
	})
}

type failingShelters struct {
	repository.SheltersRepository
}

func (failingShelters) GetShelter(context.Context, int64) (*domain.Shelter, error) {
	return nil, errors.New("shelter lookup timed out")
}

type fixture struct {
	store       *repository.MemoryStore
	pub         *recordingPublisher
	profiles    ProfileService
	admission   AdmissionService
	assignments AssignmentService
	medical     MedicalSyncService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, store.NopKV{})
}

func newFixtureWithCache(t *testing.T, cache store.KV) *fixture {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	admission := NewAdmissionService(st, cache, pub, nil, logger)
	return &fixture{
		store:       st,
		pub:         pub,
		profiles:    NewProfileService(st, logger),
		admission:   admission,
		assignments: NewAssignmentService(st, admission, pub, nil, logger),
		medical:     NewMedicalSyncService(st, pub, nil, SyncOptions{MaxAttempts: 3}, logger),
	}
}

func (f *fixture) profile(t *testing.T, name string) *domain.HomelessProfile {
	t.Helper()
	p, err := f.profiles.CreateProfile(context.Background(), CreateProfileRequest{Name: name, HealthStatus: "stable"})
	require.NoError(t, err)
	return p
}

func (f *fixture) shelter(t *testing.T, name string, capacity int) *domain.Shelter {
	t.Helper()
	s, err := f.profiles.CreateShelter(context.Background(), CreateShelterRequest{Name: name, Capacity: capacity})
	require.NoError(t, err)
	return s
}

func (f *fixture) requestShelter(t *testing.T, p *domain.HomelessProfile, s *domain.Shelter) *domain.AssignmentRequest {
	t.Helper()
	resp, err := f.assignments.CreateAssignment(context.Background(), CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: s.ShelterID, ResourceType: ResourceShelter,
	})
	require.NoError(t, err)
	return resp.Request
}

// admitted 完成申请并接受，返回住户
func (f *fixture) admitted(t *testing.T, p *domain.HomelessProfile, s *domain.Shelter) *domain.ShelterResident {
	t.Helper()
	ar := f.requestShelter(t, p, s)
	res, err := f.assignments.AcceptRequest(context.Background(), AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
	require.NoError(t, err)
	return res.Resident
}

func (f *fixture) getProfile(t *testing.T, id int64) *domain.HomelessProfile {
	t.Helper()
	p, err := f.store.Repos().Profiles.GetProfile(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) getShelter(t *testing.T, id int64) *domain.Shelter {
	t.Helper()
	s, err := f.store.Repos().Shelters.GetShelter(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) syncLogs(t *testing.T, shelterID int64) []domain.DataSyncLog {
	t.Helper()
	logs, err := f.store.Repos().SyncLogs.ListRecentByShelter(context.Background(), shelterID, 100)
	require.NoError(t, err)
	return logs
}

func logsOfType(logs []domain.DataSyncLog, typ domain.SyncType) []domain.DataSyncLog {
	var out []domain.DataSyncLog
	for _, l := range logs {
		if l.SyncType == typ {
			out = append(out, l)
		}
	}
	return out
}
