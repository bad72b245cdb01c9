package service

import (
	"context"
	"testing"
	"time"

	"nest-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddMedicalRecord_AuditOnlyWhenSyncApplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	linked := f.admitted(t, p, s)
	walkIn, err := f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: "Cara"})
	require.NoError(t, err)

	off := false
	_, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: linked.ResidentID, Description: "private note", SyncToNGO: &off,
	})
	require.NoError(t, err)
	_, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: walkIn.ResidentID, RecordType: "checkup", Description: "ok",
	})
	require.NoError(t, err)
	assert.Empty(t, logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncMedical))

	out, err := f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: linked.ResidentID, RecordType: "medication",
		Description: "Antibiotics course", Medications: "amoxicillin",
	})
	require.NoError(t, err)
	assert.True(t, out.Synced)
	assert.Len(t, logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncMedical), 1)

	// medication 不覆盖 health_status
	assert.Equal(t, "stable", f.getProfile(t, p.ProfileID).HealthStatus)

	records, err := f.medical.ListMedicalRecords(ctx, s.ShelterID, linked.ResidentID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAddMedicalRecord_ShelterLookupFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	svc := NewMedicalSyncService(failingShelterStore{f.store}, f.pub, nil, SyncOptions{}, zap.NewNop())
	out, err := svc.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID,
		RecordType: "checkup", Description: "Fever",
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.False(t, out.Synced)
	assert.Contains(t, out.SyncError, "shelter lookup timed out")

	records, err := f.medical.ListMedicalRecords(ctx, s.ShelterID, resident.ResidentID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].SyncedAt)

	medical := logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncMedical)
	require.Len(t, medical, 1)
	assert.False(t, medical[0].Success)
	assert.Contains(t, medical[0].ErrorMessage, "shelter lookup timed out")
	assert.Equal(t, "stable", f.getProfile(t, p.ProfileID).HealthStatus)
}

func TestAddMedicalRecord_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shelter(t, "Harbor House", 3)
	res, err := f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: "Cara"})
	require.NoError(t, err)

	_, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{ShelterID: s.ShelterID, ResidentID: res.ResidentID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: res.ResidentID, RecordType: "xray", Description: "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{ShelterID: s.ShelterID, ResidentID: 999, Description: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.medical.ListMedicalRecords(ctx, s.ShelterID+1, res.ResidentID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{ShelterID: s.ShelterID, ResidentID: res.ResidentID, Description: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.RecordNote, out.Record.RecordType)
}

func TestSyncStatus_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	failing := NewMedicalSyncService(failingNGOStore{f.store}, f.pub, nil, SyncOptions{}, zap.NewNop())
	_, err := failing.AddMedicalRecord(ctx, AddMedicalRecordRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Description: "a"})
	require.NoError(t, err)
	_, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Description: "b"})
	require.NoError(t, err)

	rep, err := f.medical.SyncStatus(ctx, s.ShelterID)
	require.NoError(t, err)
	// initial + failed medical + successful medical
	assert.Equal(t, 3, rep.Stats.Total)
	assert.Equal(t, 2, rep.Stats.Successful)
	assert.Equal(t, 1, rep.Stats.Failed)
	assert.NotNil(t, rep.Stats.LastSync)
	require.Len(t, rep.RecentSyncs, 3)
	assert.True(t, rep.RecentSyncs[0].Success)

	empty, err := f.medical.SyncStatus(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Stats.Total)
	assert.NotNil(t, empty.RecentSyncs)
}

func TestRetryFailed_ResyncsOnceRecovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	failing := NewMedicalSyncService(failingNGOStore{f.store}, f.pub, nil, SyncOptions{}, zap.NewNop())
	out, err := failing.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID, RecordType: "incident", Description: "Sprained ankle",
	})
	require.NoError(t, err)
	require.False(t, out.Synced)

	svc := NewMedicalSyncService(f.store, f.pub, nil, SyncOptions{MaxAttempts: 3, Grace: time.Minute}, zap.NewNop()).(*medicalSyncService)

	// 仍在 grace 内
	rep, err := svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Attempted)

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	rep, err = svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Attempted: 1, Succeeded: 1}, *rep)

	assert.Equal(t, "Sprained ankle", f.getProfile(t, p.ProfileID).HealthStatus)
	rec, err := f.store.Repos().Medical.GetRecord(ctx, out.Record.RecordID)
	require.NoError(t, err)
	assert.NotNil(t, rec.SyncedAt)

	rep, err = svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Attempted)

	ngo, err := f.store.Repos().NGOMedical.ListByProfile(ctx, p.ProfileID)
	require.NoError(t, err)
	assert.Len(t, ngo, 1)
}

func TestRetryFailed_StaleRecordKeepsNewerHealthStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)
	older := time.Now().UTC().Add(-2 * time.Hour)
	newer := older.Add(time.Hour)

	failing := NewMedicalSyncService(failingNGOStore{f.store}, f.pub, nil, SyncOptions{}, zap.NewNop())
	out, err := failing.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID, RecordType: "incident",
		Description: "Sprained ankle", RecordDate: &older,
	})
	require.NoError(t, err)
	require.False(t, out.Synced)

	out, err = f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID, RecordType: "checkup",
		Description: "Recovered", RecordDate: &newer,
	})
	require.NoError(t, err)
	require.True(t, out.Synced)

	svc := NewMedicalSyncService(f.store, f.pub, nil, SyncOptions{MaxAttempts: 3}, zap.NewNop()).(*medicalSyncService)
	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	rep, err := svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Attempted: 1, Succeeded: 1}, *rep)

	// 旧记录仍镜像到 NGO，但不覆盖 health_status
	assert.Equal(t, "Recovered", f.getProfile(t, p.ProfileID).HealthStatus)
	ngo, err := f.store.Repos().NGOMedical.ListByProfile(ctx, p.ProfileID)
	require.NoError(t, err)
	assert.Len(t, ngo, 2)
}

func TestRetryFailed_StopsAtMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	svc := NewMedicalSyncService(failingNGOStore{f.store}, f.pub, nil, SyncOptions{MaxAttempts: 2}, zap.NewNop()).(*medicalSyncService)
	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	_, err := svc.AddMedicalRecord(ctx, AddMedicalRecordRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Description: "x"})
	require.NoError(t, err)

	rep, err := svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Attempted: 1, Failed: 1}, *rep)

	rep, err = svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Attempted)

	assert.Len(t, logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncMedical), 2)
}
