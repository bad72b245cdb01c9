package httpapi

import (
	"net/http"

	"nest-data/internal/service"

	"go.uber.org/zap"
)

// NGOHandler NGO 侧：档案、收容所、分配、AI 推荐
type NGOHandler struct {
	profiles        service.ProfileService
	assignments     service.AssignmentService
	recommendations service.RecommendationService
	logger          *zap.Logger
}

func NewNGOHandler(profiles service.ProfileService, assignments service.AssignmentService, recommendations service.RecommendationService, logger *zap.Logger) *NGOHandler {
	return &NGOHandler{profiles: profiles, assignments: assignments, recommendations: recommendations, logger: logger}
}

// CreateAssignment POST /assignments
func (h *NGOHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAssignmentRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.RequestedBy = ClaimsFromContext(r.Context()).Actor()

	resp, err := h.assignments.CreateAssignment(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Msg string `json:"msg"`
		*service.CreateAssignmentResponse
	}{Msg: req.ResourceType + " assigned successfully", CreateAssignmentResponse: resp})
}

// ListAccepted GET /assignments/accepted-requests
func (h *NGOHandler) ListAccepted(w http.ResponseWriter, r *http.Request) {
	out, err := h.assignments.ListAccepted(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ProfileAssignments GET /assignments/profile/{profile_id}
func (h *NGOHandler) ProfileAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "profile_id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Profile not found")
		return
	}
	out, err := h.assignments.ListProfileAssignments(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ConfirmJob POST /assignments/jobs/{alloc_id}/confirm
func (h *NGOHandler) ConfirmJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "alloc_id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Job allocation not found")
		return
	}
	out, err := h.assignments.ConfirmJob(r.Context(), id, ClaimsFromContext(r.Context()).Actor())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateProfile POST /profiles
func (h *NGOHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProfileRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.RegisteredBy = ClaimsFromContext(r.Context()).Actor()
	p, err := h.profiles.CreateProfile(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProfiles GET /profiles?status=&priority=&search=&limit=
func (h *NGOHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.profiles.ListProfiles(r.Context(), service.ListProfilesRequest{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
		Limit:    parseInt(q.Get("limit"), 100),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProfile GET /profiles/{id}
func (h *NGOHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Profile not found")
		return
	}
	out, err := h.profiles.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DeactivateProfile POST /profiles/{id}/deactivate
func (h *NGOHandler) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Profile not found")
		return
	}
	p, err := h.profiles.DeactivateProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Profile deactivated", "profile": p})
}

// ListShelters GET /shelters
func (h *NGOHandler) ListShelters(w http.ResponseWriter, r *http.Request) {
	out, err := h.profiles.ListShelters(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetShelter GET /shelters/{id}
func (h *NGOHandler) GetShelter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Shelter not found")
		return
	}
	out, err := h.profiles.GetShelter(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RecommendShelters GET /ai/recommendations/shelters/{profile_id}?top_k=
func (h *NGOHandler) RecommendShelters(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "profile_id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Profile not found")
		return
	}
	topK := parseInt(r.URL.Query().Get("top_k"), service.DefaultTopK)
	out, err := h.recommendations.RecommendShelters(r.Context(), id, topK)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RecordChoice POST /ai/recommendations/{profile_id}/choice
func (h *NGOHandler) RecordChoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "profile_id")
	if !ok {
		writeMsg(w, http.StatusNotFound, "Profile not found")
		return
	}
	var req service.RecordChoiceRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.ProfileID = id
	req.ChosenBy = ClaimsFromContext(r.Context()).Actor()
	choice, err := h.recommendations.RecordChoice(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"msg": "Choice recorded", "choice": choice})
}
