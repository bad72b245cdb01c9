package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"nest-data/internal/domain"
)

// ---- profiles ----

type memoryProfiles struct{ memoryRepo }

func (r *memoryProfiles) CreateProfile(_ context.Context, p *domain.HomelessProfile) (int64, error) {
	defer r.lock()()
	d := r.d()
	now := memNow()
	p.ProfileID = d.next("profiles")
	p.HealthStatus = domain.TruncateHealthStatus(p.HealthStatus)
	p.CreatedAt = now
	p.StatusUpdatedAt = now
	d.profiles[p.ProfileID] = *p
	return p.ProfileID, nil
}

func (r *memoryProfiles) GetProfile(_ context.Context, profileID int64) (*domain.HomelessProfile, error) {
	defer r.lock()()
	p, ok := r.d().profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %d: %w", profileID, domain.ErrNotFound)
	}
	return &p, nil
}

func (r *memoryProfiles) ListProfiles(_ context.Context, filters ProfileFilters) ([]*domain.HomelessProfile, error) {
	defer r.lock()()
	search := strings.ToLower(filters.Search)
	var out []*domain.HomelessProfile
	for _, p := range r.d().profiles {
		if filters.Status != "" && string(p.Status) != filters.Status {
			continue
		}
		if filters.Priority != "" && string(p.Priority) != filters.Priority {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Alias), search) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileID > out[j].ProfileID })
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryProfiles) UpdateStatus(_ context.Context, p *domain.HomelessProfile) error {
	defer r.lock()()
	d := r.d()
	cur, ok := d.profiles[p.ProfileID]
	if !ok {
		return fmt.Errorf("profile %d: %w", p.ProfileID, domain.ErrNotFound)
	}
	cur.Status = p.Status
	cur.CurrentShelter = p.CurrentShelter
	cur.CurrentJob = p.CurrentJob
	cur.StatusUpdatedAt = p.StatusUpdatedAt
	d.profiles[p.ProfileID] = cur
	return nil
}

func (r *memoryProfiles) UpdateHealthStatus(_ context.Context, profileID int64, healthStatus string) error {
	defer r.lock()()
	d := r.d()
	cur, ok := d.profiles[profileID]
	if !ok {
		return fmt.Errorf("profile %d: %w", profileID, domain.ErrNotFound)
	}
	cur.HealthStatus = domain.TruncateHealthStatus(healthStatus)
	d.profiles[profileID] = cur
	return nil
}

// ---- shelters ----

type memoryShelters struct{ memoryRepo }

func (r *memoryShelters) CreateShelter(_ context.Context, s *domain.Shelter) (int64, error) {
	defer r.lock()()
	d := r.d()
	s.ShelterID = d.next("shelters")
	d.shelters[s.ShelterID] = *s
	return s.ShelterID, nil
}

func (r *memoryShelters) GetShelter(_ context.Context, shelterID int64) (*domain.Shelter, error) {
	defer r.lock()()
	s, ok := r.d().shelters[shelterID]
	if !ok {
		return nil, fmt.Errorf("shelter %d: %w", shelterID, domain.ErrNotFound)
	}
	return &s, nil
}

func (r *memoryShelters) ListShelters(_ context.Context) ([]*domain.Shelter, error) {
	defer r.lock()()
	var out []*domain.Shelter
	for _, s := range r.d().shelters {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryShelters) TakeBed(_ context.Context, shelterID int64) (int, error) {
	defer r.lock()()
	d := r.d()
	s, ok := d.shelters[shelterID]
	if !ok || s.AvailableBeds <= 0 {
		return 0, fmt.Errorf("shelter %d: %w", shelterID, domain.ErrNoBedsAvailable)
	}
	s.AvailableBeds--
	d.shelters[shelterID] = s
	return s.AvailableBeds, nil
}

func (r *memoryShelters) ReleaseBed(_ context.Context, shelterID int64) (bool, error) {
	defer r.lock()()
	d := r.d()
	s, ok := d.shelters[shelterID]
	if !ok || s.AvailableBeds >= s.Capacity {
		return false, nil
	}
	s.AvailableBeds++
	d.shelters[shelterID] = s
	return true, nil
}

// ---- assignment requests ----

type memoryRequests struct{ memoryRepo }

func (r *memoryRequests) CreateRequest(_ context.Context, req *domain.AssignmentRequest) (int64, error) {
	defer r.lock()()
	d := r.d()
	req.RequestID = d.next("requests")
	d.requests[req.RequestID] = *req
	return req.RequestID, nil
}

func (r *memoryRequests) GetRequest(_ context.Context, requestID int64) (*domain.AssignmentRequest, error) {
	defer r.lock()()
	req, ok := r.d().requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %d: %w", requestID, domain.ErrNotFound)
	}
	return &req, nil
}

func (r *memoryRequests) ListPending(_ context.Context, shelterID int64) ([]domain.PendingRequestView, error) {
	defer r.lock()()
	d := r.d()
	var out []domain.PendingRequestView
	for _, req := range d.requests {
		if req.ShelterID != shelterID || req.Status != domain.RequestPending {
			continue
		}
		p := d.profiles[req.ProfileID]
		out = append(out, domain.PendingRequestView{
			AssignmentRequest: req,
			ProfileName:       p.Name,
			ProfileAge:        p.Age,
			Gender:            p.Gender,
			HealthStatus:      p.HealthStatus,
			Priority:          p.Priority,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].RequestDate, out[j].RequestDate, out[i].RequestID, out[j].RequestID)
	})
	return out, nil
}

func (r *memoryRequests) ListAccepted(_ context.Context) ([]domain.AcceptedRequestView, error) {
	defer r.lock()()
	d := r.d()
	var out []domain.AcceptedRequestView
	for _, req := range d.requests {
		if req.Status != domain.RequestAccepted {
			continue
		}
		p := d.profiles[req.ProfileID]
		s := d.shelters[req.ShelterID]
		out = append(out, domain.AcceptedRequestView{
			AssignmentRequest: req,
			ProfileName:       p.Name,
			ProfileStatus:     p.Status,
			ShelterName:       s.Name,
			ShelterAddress:    s.Address,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		var ti, tj time.Time
		if out[i].ResponseDate != nil {
			ti = *out[i].ResponseDate
		}
		if out[j].ResponseDate != nil {
			tj = *out[j].ResponseDate
		}
		return newerFirst(ti, tj, out[i].RequestID, out[j].RequestID)
	})
	return out, nil
}

func (r *memoryRequests) ListByProfile(_ context.Context, profileID int64) ([]*domain.AssignmentRequest, error) {
	defer r.lock()()
	var out []*domain.AssignmentRequest
	for _, req := range r.d().requests {
		if req.ProfileID == profileID {
			req := req
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].RequestDate, out[j].RequestDate, out[i].RequestID, out[j].RequestID)
	})
	return out, nil
}

func (r *memoryRequests) Resolve(_ context.Context, res Resolution) error {
	defer r.lock()()
	d := r.d()
	req, ok := d.requests[res.RequestID]
	if !ok || req.ShelterID != res.ShelterID || req.Status != domain.RequestPending {
		return fmt.Errorf("request %d is not pending: %w", res.RequestID, domain.ErrInvalidState)
	}
	at := res.At
	req.Status = res.Status
	req.ResponseDate = &at
	req.ResponseBy = res.ResponseBy
	req.RejectionReason = res.RejectionReason
	if res.Notes != "" {
		req.Notes = res.Notes
	}
	d.requests[res.RequestID] = req
	return nil
}

// ---- job allocations ----

type memoryJobs struct{ memoryRepo }

func (r *memoryJobs) CreateAllocation(_ context.Context, a *domain.JobAllocation) (int64, error) {
	defer r.lock()()
	d := r.d()
	a.AllocID = d.next("allocations")
	d.allocations[a.AllocID] = *a
	return a.AllocID, nil
}

func (r *memoryJobs) GetAllocation(_ context.Context, allocID int64) (*domain.JobAllocation, error) {
	defer r.lock()()
	a, ok := r.d().allocations[allocID]
	if !ok {
		return nil, fmt.Errorf("allocation %d: %w", allocID, domain.ErrNotFound)
	}
	return &a, nil
}

func (r *memoryJobs) ListByProfile(_ context.Context, profileID int64) ([]*domain.JobAllocation, error) {
	defer r.lock()()
	var out []*domain.JobAllocation
	for _, a := range r.d().allocations {
		if a.ProfileID == profileID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].AssignedAt, out[j].AssignedAt, out[i].AllocID, out[j].AllocID)
	})
	return out, nil
}

func (r *memoryJobs) Confirm(_ context.Context, allocID int64, at time.Time) error {
	defer r.lock()()
	d := r.d()
	a, ok := d.allocations[allocID]
	if !ok || a.Status != domain.AllocationRequested {
		return fmt.Errorf("allocation %d is not requested: %w", allocID, domain.ErrInvalidState)
	}
	a.Status = domain.AllocationConfirmed
	a.ConfirmedAt = &at
	d.allocations[allocID] = a
	return nil
}

// ---- residents ----

type memoryResidents struct{ memoryRepo }

func (r *memoryResidents) CreateResident(_ context.Context, res *domain.ShelterResident) (int64, error) {
	defer r.lock()()
	d := r.d()
	res.ResidentID = d.next("residents")
	d.residents[res.ResidentID] = *res
	return res.ResidentID, nil
}

func (r *memoryResidents) GetResident(_ context.Context, shelterID, residentID int64) (*domain.ShelterResident, error) {
	defer r.lock()()
	res, ok := r.d().residents[residentID]
	if !ok || res.ShelterID != shelterID {
		return nil, fmt.Errorf("resident %d: %w", residentID, domain.ErrNotFound)
	}
	return &res, nil
}

func (r *memoryResidents) ListResidents(_ context.Context, shelterID int64, status string) ([]*domain.ShelterResident, error) {
	defer r.lock()()
	var out []*domain.ShelterResident
	for _, res := range r.d().residents {
		if res.ShelterID != shelterID || (status != "" && string(res.Status) != status) {
			continue
		}
		res := res
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].AdmissionDate, out[j].AdmissionDate, out[i].ResidentID, out[j].ResidentID)
	})
	return out, nil
}

func (r *memoryResidents) UpdateResident(_ context.Context, res *domain.ShelterResident) error {
	defer r.lock()()
	d := r.d()
	cur, ok := d.residents[res.ResidentID]
	if !ok || cur.ShelterID != res.ShelterID {
		return fmt.Errorf("resident %d: %w", res.ResidentID, domain.ErrNotFound)
	}
	// 不可编辑字段保持原值
	updated := *res
	updated.NGOProfileID = cur.NGOProfileID
	updated.AdmissionDate = cur.AdmissionDate
	updated.Source = cur.Source
	d.residents[res.ResidentID] = updated
	return nil
}

func (r *memoryResidents) MarkDischarged(_ context.Context, shelterID, residentID int64, at time.Time, notes string) error {
	defer r.lock()()
	d := r.d()
	res, ok := d.residents[residentID]
	if !ok || res.ShelterID != shelterID || res.Status != domain.ResidentActive {
		return fmt.Errorf("resident %d is not active: %w", residentID, domain.ErrInvalidState)
	}
	res.Status = domain.ResidentDischarged
	res.DischargeDate = &at
	res.Notes = notes
	d.residents[residentID] = res
	return nil
}

func (r *memoryResidents) CountActive(_ context.Context, shelterID int64) (int, error) {
	defer r.lock()()
	n := 0
	for _, res := range r.d().residents {
		if res.ShelterID == shelterID && res.Status == domain.ResidentActive {
			n++
		}
	}
	return n, nil
}

func (r *memoryResidents) HasActiveByProfile(_ context.Context, profileID int64) (bool, error) {
	defer r.lock()()
	for _, res := range r.d().residents {
		if res.NGOProfileID != nil && *res.NGOProfileID == profileID && res.Status == domain.ResidentActive {
			return true, nil
		}
	}
	return false, nil
}

// ---- shelter medical records ----

type memoryMedical struct{ memoryRepo }

func (r *memoryMedical) CreateRecord(_ context.Context, rec *domain.ShelterMedicalRecord) (int64, error) {
	defer r.lock()()
	d := r.d()
	rec.RecordID = d.next("shelter_medical")
	rec.CreatedAt = memNow()
	d.shelterMedical[rec.RecordID] = *rec
	return rec.RecordID, nil
}

func (r *memoryMedical) GetRecord(_ context.Context, recordID int64) (*domain.ShelterMedicalRecord, error) {
	defer r.lock()()
	rec, ok := r.d().shelterMedical[recordID]
	if !ok {
		return nil, fmt.Errorf("medical record %d: %w", recordID, domain.ErrNotFound)
	}
	return &rec, nil
}

func (r *memoryMedical) ListRecords(_ context.Context, residentID int64) ([]*domain.ShelterMedicalRecord, error) {
	defer r.lock()()
	var out []*domain.ShelterMedicalRecord
	for _, rec := range r.d().shelterMedical {
		if rec.ResidentID == residentID {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].RecordDate, out[j].RecordDate, out[i].RecordID, out[j].RecordID)
	})
	return out, nil
}

func (r *memoryMedical) MarkSynced(_ context.Context, recordID int64, at time.Time) error {
	defer r.lock()()
	d := r.d()
	rec, ok := d.shelterMedical[recordID]
	if !ok {
		return fmt.Errorf("medical record %d: %w", recordID, domain.ErrNotFound)
	}
	if rec.SyncedAt != nil {
		return fmt.Errorf("medical record %d already synced: %w", recordID, domain.ErrInvalidState)
	}
	rec.SyncedAt = &at
	d.shelterMedical[recordID] = rec
	return nil
}

func (r *memoryMedical) ListPendingSync(_ context.Context, before time.Time, maxFailures, limit int) ([]domain.PendingSync, error) {
	defer r.lock()()
	d := r.d()

	failures := map[int64]int{}
	for _, l := range d.syncLogs {
		if l.RecordID != nil && !l.Success {
			failures[*l.RecordID]++
		}
	}

	var out []domain.PendingSync
	for _, rec := range d.shelterMedical {
		if !rec.SyncToNGO || rec.SyncedAt != nil || !rec.CreatedAt.Before(before) {
			continue
		}
		if failures[rec.RecordID] >= maxFailures {
			continue
		}
		res, ok := d.residents[rec.ResidentID]
		if !ok || res.NGOProfileID == nil {
			continue
		}
		out = append(out, domain.PendingSync{
			Record:       rec,
			ShelterID:    res.ShelterID,
			ShelterName:  d.shelters[res.ShelterID].Name,
			NGOProfileID: *res.NGOProfileID,
			Failures:     failures[rec.RecordID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.RecordID < out[j].Record.RecordID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryMedical) NewerStatusSynced(_ context.Context, profileID int64, recordDate time.Time) (bool, error) {
	defer r.lock()()
	d := r.d()
	for _, rec := range d.shelterMedical {
		if rec.SyncedAt == nil || !rec.RecordType.OverwritesHealthStatus() || !rec.RecordDate.After(recordDate) {
			continue
		}
		res, ok := d.residents[rec.ResidentID]
		if ok && res.NGOProfileID != nil && *res.NGOProfileID == profileID {
			return true, nil
		}
	}
	return false, nil
}

// ---- NGO medical records ----

type memoryNGOMedical struct{ memoryRepo }

func (r *memoryNGOMedical) CreateMedicalRecord(_ context.Context, rec *domain.MedicalRecord) (int64, error) {
	defer r.lock()()
	d := r.d()
	rec.RecordID = d.next("ngo_medical")
	d.ngoMedical[rec.RecordID] = *rec
	return rec.RecordID, nil
}

func (r *memoryNGOMedical) ListByProfile(_ context.Context, profileID int64) ([]*domain.MedicalRecord, error) {
	defer r.lock()()
	var out []*domain.MedicalRecord
	for _, rec := range r.d().ngoMedical {
		if rec.ProfileID == profileID {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].RecordID, out[j].RecordID)
	})
	return out, nil
}

// ---- data sync logs ----

type memorySyncLogs struct{ memoryRepo }

func (r *memorySyncLogs) Append(_ context.Context, l *domain.DataSyncLog) (int64, error) {
	defer r.lock()()
	d := r.d()
	l.SyncID = d.next("sync_logs")
	d.syncLogs = append(d.syncLogs, *l)
	return l.SyncID, nil
}

func (r *memorySyncLogs) ListRecentByShelter(_ context.Context, shelterID int64, limit int) ([]domain.DataSyncLog, error) {
	defer r.lock()()
	logs := r.d().syncLogs
	var out []domain.DataSyncLog
	// 追加顺序即时间顺序，倒序遍历
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].ShelterID != shelterID {
			continue
		}
		out = append(out, logs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- recommendation choices ----

type memoryChoices struct{ memoryRepo }

func (r *memoryChoices) CreateChoice(_ context.Context, c *domain.RecommendationChoice) (int64, error) {
	defer r.lock()()
	d := r.d()
	c.ChoiceID = d.next("choices")
	d.choices[c.ChoiceID] = *c
	return c.ChoiceID, nil
}

func (r *memoryChoices) ListByProfile(_ context.Context, profileID int64) ([]*domain.RecommendationChoice, error) {
	defer r.lock()()
	var out []*domain.RecommendationChoice
	for _, c := range r.d().choices {
		if c.ProfileID == profileID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChoiceID > out[j].ChoiceID })
	return out, nil
}

// newerFirst 时间倒序，时间相同按 id 倒序
func newerFirst(ti, tj time.Time, idi, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}
