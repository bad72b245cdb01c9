package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"nest-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScenarioA_ShelterRequestIsPending(t *testing.T) {
	f := newFixture(t)
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)

	resp, err := f.assignments.CreateAssignment(context.Background(), CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: s.ShelterID, ResourceType: ResourceShelter,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RequestPending, resp.Request.Status)
	assert.Equal(t, domain.ProfileShelterRequested, resp.ProfileStatus)
	assert.Equal(t, "Request sent to Harbor House shelter on behalf of this person", resp.StatusMessage)

	got := f.getProfile(t, p.ProfileID)
	assert.Equal(t, domain.ProfileShelterRequested, got.Status)
	assert.Equal(t, "Harbor House", got.CurrentShelter)
	assert.Equal(t, 3, f.getShelter(t, s.ShelterID).AvailableBeds)
	assert.Equal(t, []string{EventRequestCreated}, f.pub.types())
}

func TestScenarioB_AcceptAdmitsResident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	ar := f.requestShelter(t, p, s)

	res, err := f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID, BedNumber: "B2"})
	require.NoError(t, err)

	require.NotNil(t, res.Resident.NGOProfileID)
	assert.Equal(t, p.ProfileID, *res.Resident.NGOProfileID)
	assert.Equal(t, domain.SourceNGO, res.Resident.Source)
	assert.Equal(t, "B2", res.Resident.BedNumber)
	assert.Equal(t, "stable", res.Resident.HealthStatus)
	assert.Equal(t, domain.RequestAccepted, res.Request.Status)
	assert.Equal(t, 2, res.AvailableBeds)

	assert.Equal(t, 2, f.getShelter(t, s.ShelterID).AvailableBeds)
	assert.Equal(t, domain.ProfileShelterAssigned, f.getProfile(t, p.ProfileID).Status)

	initial := logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncInitial)
	require.Len(t, initial, 1)
	assert.Equal(t, domain.NGOToShelter, initial[0].Direction)
	assert.True(t, initial[0].Success)

	assert.Equal(t, []string{EventRequestCreated, EventRequestAccepted, EventResidentAdmitted}, f.pub.types())
}

func TestScenarioC_CheckupSyncsToProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	out, err := f.medical.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID,
		RecordType: "checkup", Description: "Mild dehydration, recovering",
	})
	require.NoError(t, err)
	assert.True(t, out.Synced)
	assert.NotNil(t, out.Record.SyncedAt)

	assert.Equal(t, "Mild dehydration, recovering", f.getProfile(t, p.ProfileID).HealthStatus)

	medical := logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncMedical)
	require.Len(t, medical, 1)
	assert.True(t, medical[0].Success)
	assert.Equal(t, domain.ShelterToNGO, medical[0].Direction)
	require.NotNil(t, medical[0].RecordID)
	assert.Equal(t, out.Record.RecordID, *medical[0].RecordID)
	assert.JSONEq(t, `{"record_type":"checkup","description":"Mild dehydration, recovering","medications":""}`, string(medical[0].FieldsSynced))

	ngo, err := f.store.Repos().NGOMedical.ListByProfile(ctx, p.ProfileID)
	require.NoError(t, err)
	require.Len(t, ngo, 1)
	assert.Equal(t, "[From Harbor House] Mild dehydration, recovering", ngo[0].Description)
}

func TestScenarioD_NGOWriteFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	failing := NewMedicalSyncService(failingNGOStore{f.store}, f.pub, nil, SyncOptions{}, zap.NewNop())
	out, err := failing.AddMedicalRecord(ctx, AddMedicalRecordRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID,
		RecordType: "checkup", Description: "Fever",
	})
	require.NoError(t, err)
	assert.False(t, out.Synced)
	assert.Contains(t, out.SyncError, "ngo database unavailable")

	rec, err := f.store.Repos().Medical.GetRecord(ctx, out.Record.RecordID)
	require.NoError(t, err)
	assert.Nil(t, rec.SyncedAt)

	assert.Equal(t, "stable", f.getProfile(t, p.ProfileID).HealthStatus)

	medical := logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncMedical)
	require.Len(t, medical, 1)
	assert.False(t, medical[0].Success)
	assert.Contains(t, medical[0].ErrorMessage, "ngo database unavailable")
	assert.Contains(t, f.pub.types(), EventSyncFailed)
}

func TestScenarioE_ConcurrentAcceptSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 5)
	ar := f.requestShelter(t, p, s)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		conflict++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)

	residents, err := f.admission.ListResidents(ctx, s.ShelterID, "")
	require.NoError(t, err)
	assert.Len(t, residents, 1)
	assert.Equal(t, 4, f.getShelter(t, s.ShelterID).AvailableBeds)
}

func TestStatusMonotonicity_CompletedSurvivesDischarge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)

	ar := f.requestShelter(t, p, s)
	job, err := f.assignments.CreateAssignment(ctx, CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: 77, ResourceType: ResourceJob, ResourceName: "City Bakery",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileBothRequested, job.ProfileStatus)

	adm, err := f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileShelterAssigned, adm.ProfileStatus)

	confirmed, err := f.assignments.ConfirmJob(ctx, job.Allocation.AllocID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileCompleted, confirmed.ProfileStatus)

	_, err = f.admission.Discharge(ctx, DischargeRequest{ShelterID: s.ShelterID, ResidentID: adm.Resident.ResidentID})
	require.NoError(t, err)

	got := f.getProfile(t, p.ProfileID)
	assert.Equal(t, domain.ProfileCompleted, got.Status)
	assert.Equal(t, "Harbor House", got.CurrentShelter)

	_, err = f.assignments.CreateAssignment(ctx, CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: s.ShelterID, ResourceType: ResourceShelter,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestStatusMonotonicity_InactiveRejectsAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)

	_, err := f.profiles.DeactivateProfile(ctx, p.ProfileID)
	require.NoError(t, err)

	_, err = f.assignments.CreateAssignment(ctx, CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: s.ShelterID, ResourceType: ResourceShelter,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.profiles.DeactivateProfile(ctx, p.ProfileID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, domain.ProfileInactive, f.getProfile(t, p.ProfileID).Status)
}

func TestSingleResolution_AcceptThenReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	ar := f.requestShelter(t, p, s)

	_, err := f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
	require.NoError(t, err)

	_, err = f.assignments.RejectRequest(ctx, RejectRequestRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID, Reason: "full"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := f.assignments.GetRequest(ctx, s.ShelterID, ar.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestAccepted, got.Status)
	assert.Empty(t, got.RejectionReason)
}

func TestSingleResolution_RejectThenAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	ar := f.requestShelter(t, p, s)

	rejected, err := f.assignments.RejectRequest(ctx, RejectRequestRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID, Reason: "no female beds"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)
	assert.Equal(t, "no female beds", rejected.RejectionReason)

	// 拒绝不改变档案状态
	assert.Equal(t, domain.ProfileShelterRequested, f.getProfile(t, p.ProfileID).Status)

	_, err = f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 3, f.getShelter(t, s.ShelterID).AvailableBeds)
}

func TestReject_RequiresReasonAndFailsTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	ar := f.requestShelter(t, p, s)

	_, err := f.assignments.RejectRequest(ctx, RejectRequestRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID, Reason: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.assignments.RejectRequest(ctx, RejectRequestRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID, Reason: "full"})
	require.NoError(t, err)

	_, err = f.assignments.RejectRequest(ctx, RejectRequestRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID, Reason: "full"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRequest_OtherShelterIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	other := f.shelter(t, "Northside", 3)
	ar := f.requestShelter(t, p, s)

	_, err := f.assignments.GetRequest(ctx, other.ShelterID, ar.RequestID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: other.ShelterID, RequestID: ar.RequestID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := f.assignments.ListPending(ctx, other.ShelterID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOneShelter_AssignedProfileCannotRequestAnother(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	alpha := f.shelter(t, "Alpha", 3)
	beta := f.shelter(t, "Beta", 3)
	f.admitted(t, p, alpha)

	_, err := f.assignments.CreateAssignment(ctx, CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: beta.ShelterID, ResourceType: ResourceShelter,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got := f.getProfile(t, p.ProfileID)
	assert.Equal(t, domain.ProfileShelterAssigned, got.Status)
	assert.Equal(t, "Alpha", got.CurrentShelter)

	pending, err := f.assignments.ListPending(ctx, beta.ShelterID)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 3, f.getShelter(t, beta.ShelterID).AvailableBeds)
}

func TestOneShelter_SecondPendingRequestCannotBeAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	alpha := f.shelter(t, "Alpha", 3)
	beta := f.shelter(t, "Beta", 3)
	toAlpha := f.requestShelter(t, p, alpha)
	toBeta := f.requestShelter(t, p, beta)

	_, err := f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: alpha.ShelterID, RequestID: toAlpha.RequestID})
	require.NoError(t, err)

	_, err = f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: beta.ShelterID, RequestID: toBeta.RequestID})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// 事务回滚：Beta 床位与申请不变
	assert.Equal(t, 2, f.getShelter(t, alpha.ShelterID).AvailableBeds)
	assert.Equal(t, 3, f.getShelter(t, beta.ShelterID).AvailableBeds)
	got, err := f.assignments.GetRequest(ctx, beta.ShelterID, toBeta.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, got.Status)

	active, err := f.admission.ListResidents(ctx, beta.ShelterID, string(domain.ResidentActive))
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, "Alpha", f.getProfile(t, p.ProfileID).CurrentShelter)

	// Beta 仍可拒绝该申请
	_, err = f.assignments.RejectRequest(ctx, RejectRequestRequest{ShelterID: beta.ShelterID, RequestID: toBeta.RequestID, Reason: "already housed"})
	require.NoError(t, err)
}

func TestBedConservation_FullShelterRefusesAndDischargeFrees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shelter(t, "Harbor House", 1)
	first := f.profile(t, "Ana")
	second := f.profile(t, "Ben")

	resident := f.admitted(t, first, s)
	assert.Equal(t, 0, f.getShelter(t, s.ShelterID).AvailableBeds)

	ar := f.requestShelter(t, second, s)
	_, err := f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
	assert.ErrorIs(t, err, domain.ErrNoBedsAvailable)

	// 回滚后申请保持 pending，档案未变
	got, err := f.assignments.GetRequest(ctx, s.ShelterID, ar.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, got.Status)
	assert.Equal(t, domain.ProfileShelterRequested, f.getProfile(t, second.ProfileID).Status)

	_, err = f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: "Walk In"})
	assert.ErrorIs(t, err, domain.ErrNoBedsAvailable)

	discharged, err := f.admission.Discharge(ctx, DischargeRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Reason: "moved out"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResidentDischarged, discharged.Status)
	assert.Equal(t, "Discharged: moved out", discharged.Notes)
	assert.Equal(t, 1, f.getShelter(t, s.ShelterID).AvailableBeds)

	p := f.getProfile(t, first.ProfileID)
	assert.Equal(t, domain.ProfileActive, p.Status)
	assert.Empty(t, p.CurrentShelter)

	_, err = f.admission.Discharge(ctx, DischargeRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 1, f.getShelter(t, s.ShelterID).AvailableBeds)

	_, err = f.assignments.AcceptRequest(ctx, AdmitRequest{ShelterID: s.ShelterID, RequestID: ar.RequestID})
	require.NoError(t, err)
	assert.Equal(t, 0, f.getShelter(t, s.ShelterID).AvailableBeds)
}

func TestWalkIn_SourcesAndNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shelter(t, "Harbor House", 3)

	_, err := f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: "X", Source: "ngo"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: "Cara", Notes: "top bunk"})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceWalkIn, res.Source)
	assert.Nil(t, res.NGOProfileID)

	ref, err := f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: s.ShelterID, Name: "Dan", Source: "referral"})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceReferral, ref.Source)
	assert.Equal(t, 1, f.getShelter(t, s.ShelterID).AvailableBeds)

	out, err := f.admission.Discharge(ctx, DischargeRequest{ShelterID: s.ShelterID, ResidentID: res.ResidentID})
	require.NoError(t, err)
	assert.Equal(t, "top bunk\n\nDischarged: No reason provided", out.Notes)

	_, err = f.admission.AdmitWalkIn(ctx, WalkInRequest{ShelterID: 999, Name: "Eve"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateResident_MirrorsHealthStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	health := strings.Repeat("x", 300)
	room := "12"
	out, err := f.admission.UpdateResident(ctx, UpdateResidentRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID, HealthStatus: &health, RoomNumber: &room,
	})
	require.NoError(t, err)
	assert.Equal(t, "12", out.RoomNumber)

	assert.Len(t, f.getProfile(t, p.ProfileID).HealthStatus, domain.HealthStatusMaxLen)
	assert.Len(t, logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncUpdate), 1)

	// 相同值不再产生同步
	_, err = f.admission.UpdateResident(ctx, UpdateResidentRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, HealthStatus: &health})
	require.NoError(t, err)
	assert.Len(t, logsOfType(f.syncLogs(t, s.ShelterID), domain.SyncUpdate), 1)
}

func TestUpdateResident_StatusDelegatesToDischarge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	active := "active"
	_, err := f.admission.UpdateResident(ctx, UpdateResidentRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Status: &active})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	discharged, reason := "discharged", "found housing"
	out, err := f.admission.UpdateResident(ctx, UpdateResidentRequest{
		ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Status: &discharged, Notes: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResidentDischarged, out.Status)
	assert.Equal(t, "Discharged: found housing", out.Notes)
	assert.Equal(t, 3, f.getShelter(t, s.ShelterID).AvailableBeds)
	assert.Equal(t, domain.ProfileActive, f.getProfile(t, p.ProfileID).Status)

	_, err = f.admission.UpdateResident(ctx, UpdateResidentRequest{ShelterID: s.ShelterID, ResidentID: resident.ResidentID, Status: &discharged})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestGetResident_IncludesProfileSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	resident := f.admitted(t, p, s)

	detail, err := f.admission.GetResident(ctx, s.ShelterID, resident.ResidentID)
	require.NoError(t, err)
	require.NotNil(t, detail.Profile)
	assert.Equal(t, domain.ProfileShelterAssigned, detail.Profile.Status)
	assert.Equal(t, "Harbor House", detail.Profile.CurrentShelter)

	_, err = f.admission.GetResident(ctx, s.ShelterID+1, resident.ResidentID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.admission.ListResidents(ctx, s.ShelterID, "sleeping")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProfileAssignments_ListsRequestsAndJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "Ana")
	s := f.shelter(t, "Harbor House", 3)
	f.requestShelter(t, p, s)

	_, err := f.assignments.CreateAssignment(ctx, CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: 9, ResourceType: ResourceJob,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.assignments.CreateAssignment(ctx, CreateAssignmentRequest{
		ProfileID: p.ProfileID, ResourceID: 9, ResourceType: ResourceJob, ResourceName: "Depot",
	})
	require.NoError(t, err)

	got, err := f.assignments.ListProfileAssignments(ctx, p.ProfileID)
	require.NoError(t, err)
	assert.Len(t, got.Requests, 1)
	assert.Len(t, got.Allocations, 1)

	_, err = f.assignments.ListProfileAssignments(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	detail, err := f.profiles.GetProfile(ctx, p.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileBothRequested, detail.Profile.Status)
	assert.Equal(t, "Requests sent to both shelter and job organization", detail.StatusMessage)
}
