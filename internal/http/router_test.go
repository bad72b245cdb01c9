package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nest-data/internal/domain"
	"nest-data/internal/repository"
	"nest-data/internal/service"
	"nest-data/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type stubRecommender struct{}

func (stubRecommender) RecommendShelters(_ context.Context, _ *domain.HomelessProfile, shelters []*domain.Shelter, _ int) ([]domain.ShelterRecommendation, error) {
	out := make([]domain.ShelterRecommendation, 0, len(shelters))
	for _, s := range shelters {
		out = append(out, domain.ShelterRecommendation{ShelterID: s.ShelterID, Name: s.Name, Score: 0.5, AvailableBeds: s.AvailableBeds})
	}
	return out, nil
}

type testServer struct {
	handler  http.Handler
	auth     *Authenticator
	profiles service.ProfileService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)

	profiles := service.NewProfileService(st, logger)
	admission := service.NewAdmissionService(st, store.NopKV{}, service.NopPublisher{}, metrics, logger)
	assignments := service.NewAssignmentService(st, admission, service.NopPublisher{}, metrics, logger)
	medical := service.NewMedicalSyncService(st, service.NopPublisher{}, metrics, service.SyncOptions{}, logger)
	recs := service.NewRecommendationService(st, stubRecommender{}, logger)

	auth := NewAuthenticator(testSecret, logger)
	router := NewRouter(auth, metrics.HTTPLatency, logger)
	router.RegisterInfraRoutes(NewHealthHandler(nil, nil, logger), reg)
	router.RegisterNGORoutes(NewNGOHandler(profiles, assignments, recs, logger))
	router.RegisterShelterRoutes(NewShelterHandler(assignments, admission, medical, logger))

	return &testServer{handler: router, auth: auth, profiles: profiles}
}

func (s *testServer) ngoToken(t *testing.T) string {
	t.Helper()
	tok, err := s.auth.SignToken(Claims{UserID: 1, Role: "caseworker"}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) shelterToken(t *testing.T, shelterID int64, role string) string {
	t.Helper()
	tok, err := s.auth.SignToken(Claims{Type: TokenTypeShelter, ShelterUserID: 7, ShelterID: shelterID, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) seed(t *testing.T, capacity int) (*domain.HomelessProfile, *domain.Shelter) {
	t.Helper()
	ctx := context.Background()
	p, err := s.profiles.CreateProfile(ctx, service.CreateProfileRequest{Name: "Ada"})
	require.NoError(t, err)
	sh, err := s.profiles.CreateShelter(ctx, service.CreateShelterRequest{Name: "Harbor House", Capacity: capacity})
	require.NoError(t, err)
	return p, sh
}

// requestShelter 通过 NGO 接口创建入住申请，返回 request_id
func (s *testServer) requestShelter(t *testing.T, p *domain.HomelessProfile, sh *domain.Shelter) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/assignments", s.ngoToken(t), map[string]any{
		"profile_id": p.ProfileID, "resource_id": sh.ShelterID, "resource_type": "shelter",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "shelter assigned successfully", out["msg"])
	assert.Equal(t, string(domain.ProfileShelterRequested), out["profile_status"])
	req := out["request"].(map[string]any)
	return int64(req["request_id"].(float64))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "healthy", out["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/healthz", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/profiles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodGet, "/shelter-requests", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rec)["msg"])

	other := NewAuthenticator("other-secret", zap.NewNop())
	tok, err := other.SignToken(Claims{UserID: 1}, time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/profiles", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_TokenTypeSeparation(t *testing.T) {
	s := newTestServer(t)
	_, sh := s.seed(t, 2)

	rec := s.do(t, http.MethodGet, "/shelter-requests", s.ngoToken(t), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid token type", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodGet, "/profiles", s.shelterToken(t, sh.ShelterID, RoleManager), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAcceptFlow(t *testing.T) {
	s := newTestServer(t)
	p, sh := s.seed(t, 2)
	reqID := s.requestShelter(t, p, sh)
	manager := s.shelterToken(t, sh.ShelterID, RoleManager)

	rec := s.do(t, http.MethodGet, "/shelter-requests", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Len(t, pending, 1)

	path := fmt.Sprintf("/shelter-requests/%d/accept", reqID)

	// staff 不能接受申请
	rec = s.do(t, http.MethodPost, path, s.shelterToken(t, sh.ShelterID, RoleStaff), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodPost, path, manager, map[string]string{"bed_number": "B-12"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "Request accepted successfully", out["msg"])
	resident := out["resident"].(map[string]any)
	assert.Equal(t, "B-12", resident["bed_number"])
	assert.Equal(t, "active", resident["status"])
	assert.Equal(t, "accepted", out["request"].(map[string]any)["status"])

	// 第二次处理同一申请
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/shelter-requests/%d/reject", reqID), manager, map[string]string{"rejection_reason": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/shelter-dashboard/bed-stats", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 1, stats["available"])
	assert.EqualValues(t, 1, stats["occupied"])

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/profiles/%d", p.ProfileID), s.ngoToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shelter_assigned"`)

	rec = s.do(t, http.MethodGet, "/assignments/accepted-requests", s.ngoToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var accepted []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Len(t, accepted, 1)
}

func TestRejectRequiresReason(t *testing.T) {
	s := newTestServer(t)
	p, sh := s.seed(t, 1)
	reqID := s.requestShelter(t, p, sh)
	manager := s.shelterToken(t, sh.ShelterID, RoleManager)
	path := fmt.Sprintf("/shelter-requests/%d/reject", reqID)

	rec := s.do(t, http.MethodPost, path, manager, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, path, manager, map[string]string{"rejection_reason": "full"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Request rejected", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodPost, path, manager, map[string]string{"rejection_reason": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequestsScopedToTokenShelter(t *testing.T) {
	s := newTestServer(t)
	p, sh := s.seed(t, 1)
	reqID := s.requestShelter(t, p, sh)

	other, err := s.profiles.CreateShelter(context.Background(), service.CreateShelterRequest{Name: "Elsewhere", Capacity: 3})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/shelter-requests/%d/accept", reqID), s.shelterToken(t, other.ShelterID, RoleManager), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptWhenFull(t *testing.T) {
	s := newTestServer(t)
	p, sh := s.seed(t, 1)
	manager := s.shelterToken(t, sh.ShelterID, RoleManager)

	rec := s.do(t, http.MethodPost, "/shelter-residents", manager, map[string]string{"name": "Walk In"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Resident added successfully", decode(t, rec)["msg"])

	reqID := s.requestShelter(t, p, sh)
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/shelter-requests/%d/accept", reqID), manager, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "No beds available", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/shelter-requests/%d", reqID), manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", decode(t, rec)["status"])
}

func TestResidentLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, sh := s.seed(t, 3)
	staff := s.shelterToken(t, sh.ShelterID, RoleStaff)
	manager := s.shelterToken(t, sh.ShelterID, RoleManager)

	rec := s.do(t, http.MethodPost, "/shelter-residents", staff, map[string]string{"name": "Lin", "room_number": "2"})
	require.Equal(t, http.StatusCreated, rec.Code)
	residentID := int64(decode(t, rec)["resident"].(map[string]any)["resident_id"].(float64))
	path := fmt.Sprintf("/shelter-residents/%d", residentID)

	rec = s.do(t, http.MethodPut, path, staff, map[string]string{"bed_number": "A-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Resident updated successfully", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodDelete, path, staff, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, path, manager, map[string]string{"reason": "moved out"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Resident discharged successfully", out["msg"])
	assert.Equal(t, "discharged", out["resident"].(map[string]any)["status"])

	rec = s.do(t, http.MethodGet, "/shelter-residents?status=active", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestMedicalRecordRoutes(t *testing.T) {
	s := newTestServer(t)
	_, sh := s.seed(t, 3)
	staff := s.shelterToken(t, sh.ShelterID, RoleStaff)
	medic := s.shelterToken(t, sh.ShelterID, RoleMedical)

	rec := s.do(t, http.MethodPost, "/shelter-residents", staff, map[string]string{"name": "Kai"})
	require.Equal(t, http.StatusCreated, rec.Code)
	residentID := int64(decode(t, rec)["resident"].(map[string]any)["resident_id"].(float64))
	path := fmt.Sprintf("/shelter-medical/residents/%d", residentID)

	rec = s.do(t, http.MethodPost, path, staff, map[string]string{"record_type": "checkup", "description": "ok"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, path, medic, map[string]string{"record_type": "x-ray", "description": "ok"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, path, medic, map[string]string{"record_type": "checkup", "description": "bp normal"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Medical record added successfully", decode(t, rec)["msg"])

	rec = s.do(t, http.MethodGet, path, staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 1)

	rec = s.do(t, http.MethodGet, "/shelter-medical/sync/status", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "stats")
}

func TestRecommendationsRoute(t *testing.T) {
	s := newTestServer(t)
	p, sh := s.seed(t, 2)

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/ai/recommendations/shelters/%d?top_k=3", p.ProfileID), s.ngoToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	recs := out["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.EqualValues(t, sh.ShelterID, recs[0].(map[string]any)["shelter_id"])

	rec = s.do(t, http.MethodGet, "/ai/recommendations/shelters/999", s.ngoToken(t), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
