package httpapi

import (
	"net/http"

	"nest-data/internal/domain"
	"nest-data/internal/service"

	"go.uber.org/zap"
)

// ShelterHandler 收容所侧：申请处理、住户、医疗记录、床位统计。
// shelter_id 一律取自 token。
type ShelterHandler struct {
	assignments service.AssignmentService
	admission   service.AdmissionService
	medical     service.MedicalSyncService
	logger      *zap.Logger
}

func NewShelterHandler(assignments service.AssignmentService, admission service.AdmissionService, medical service.MedicalSyncService, logger *zap.Logger) *ShelterHandler {
	return &ShelterHandler{assignments: assignments, admission: admission, medical: medical, logger: logger}
}

func shelterOf(r *http.Request) (int64, *int64) {
	c := ClaimsFromContext(r.Context())
	return c.ShelterID, c.Actor()
}

// ListRequests GET /shelter-requests
func (h *ShelterHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	shelterID, _ := shelterOf(r)
	out, err := h.assignments.ListPending(r.Context(), shelterID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRequest GET /shelter-requests/{id}
func (h *ShelterHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Request not found")
		return
	}
	shelterID, _ := shelterOf(r)
	out, err := h.assignments.GetRequest(r.Context(), shelterID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// AcceptRequest POST /shelter-requests/{id}/accept
func (h *ShelterHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Request not found")
		return
	}
	var req service.AdmitRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.ShelterID, req.ResponseBy = shelterOf(r)
	req.RequestID = id

	res, err := h.assignments.AcceptRequest(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"msg":      "Request accepted successfully",
		"resident": res.Resident,
		"request":  res.Request,
	})
}

// RejectRequest POST /shelter-requests/{id}/reject
func (h *ShelterHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Request not found")
		return
	}
	var body struct {
		RejectionReason string `json:"rejection_reason"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	shelterID, actor := shelterOf(r)
	ar, err := h.assignments.RejectRequest(r.Context(), service.RejectRequestRequest{
		ShelterID: shelterID, RequestID: id, Reason: body.RejectionReason, ResponseBy: actor,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Request rejected", "request": ar})
}

// ListResidents GET /shelter-residents?status=
func (h *ShelterHandler) ListResidents(w http.ResponseWriter, r *http.Request) {
	shelterID, _ := shelterOf(r)
	out, err := h.admission.ListResidents(r.Context(), shelterID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out == nil {
		out = []*domain.ShelterResident{}
	}
	writeJSON(w, http.StatusOK, out)
}

// AddResident POST /shelter-residents
func (h *ShelterHandler) AddResident(w http.ResponseWriter, r *http.Request) {
	var req service.WalkInRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.ShelterID, _ = shelterOf(r)
	res, err := h.admission.AdmitWalkIn(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"msg": "Resident added successfully", "resident": res})
}

// GetResident GET /shelter-residents/{id}
func (h *ShelterHandler) GetResident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Resident not found")
		return
	}
	shelterID, _ := shelterOf(r)
	out, err := h.admission.GetResident(r.Context(), shelterID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateResident PUT /shelter-residents/{id}
func (h *ShelterHandler) UpdateResident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Resident not found")
		return
	}
	var req service.UpdateResidentRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.ShelterID, req.By = shelterOf(r)
	req.ResidentID = id
	res, err := h.admission.UpdateResident(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Resident updated successfully", "resident": res})
}

// DischargeResident DELETE /shelter-residents/{id}
func (h *ShelterHandler) DischargeResident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Resident not found")
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	shelterID, actor := shelterOf(r)
	res, err := h.admission.Discharge(r.Context(), service.DischargeRequest{
		ShelterID: shelterID, ResidentID: id, Reason: body.Reason, By: actor,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Resident discharged successfully", "resident": res})
}

// SyncStatus GET /shelter-medical/sync/status
func (h *ShelterHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	shelterID, _ := shelterOf(r)
	out, err := h.medical.SyncStatus(r.Context(), shelterID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RetrySync POST /shelter-medical/sync/retry
func (h *ShelterHandler) RetrySync(w http.ResponseWriter, r *http.Request) {
	out, err := h.medical.RetryFailed(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListMedicalRecords GET /shelter-medical/residents/{resident_id}
func (h *ShelterHandler) ListMedicalRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "resident_id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Resident not found")
		return
	}
	shelterID, _ := shelterOf(r)
	out, err := h.medical.ListMedicalRecords(r.Context(), shelterID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// AddMedicalRecord POST /shelter-medical/residents/{resident_id}
// 同步失败仍返回 201
func (h *ShelterHandler) AddMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "resident_id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Resident not found")
		return
	}
	var req service.AddMedicalRecordRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.ShelterID, req.RecordedBy = shelterOf(r)
	req.ResidentID = id
	out, err := h.medical.AddMedicalRecord(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"msg": "Medical record added successfully", "record": out.Record})
}

// BedStats GET /shelter-dashboard/bed-stats
func (h *ShelterHandler) BedStats(w http.ResponseWriter, r *http.Request) {
	shelterID, _ := shelterOf(r)
	out, err := h.admission.BedStats(r.Context(), shelterID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
