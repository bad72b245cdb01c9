package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Shelter 角色
const (
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleMedical = "medical"
)

// Router gorilla/mux 路由：NGO 与收容所两组受保护路由 + 基础设施路由
type Router struct {
	mux    *mux.Router
	auth   *Authenticator
	logger *zap.Logger
}

// NewRouter latency 可为 nil
func NewRouter(auth *Authenticator, latency *prometheus.HistogramVec, logger *zap.Logger) *Router {
	m := mux.NewRouter()
	m.Use(RequestLogger(logger, latency))
	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusNotFound, "Route not found")
	})
	return &Router{mux: m, auth: auth, logger: logger}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterInfraRoutes /healthz 与 /metrics
func (r *Router) RegisterInfraRoutes(h *HealthHandler, gatherer prometheus.Gatherer) {
	r.mux.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	if gatherer != nil {
		r.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// RegisterNGORoutes 任何非收容所 token
func (r *Router) RegisterNGORoutes(h *NGOHandler) {
	ngo := r.mux.NewRoute().Subrouter()
	ngo.Use(r.auth.RequireNGO)

	ngo.HandleFunc("/assignments", h.CreateAssignment).Methods(http.MethodPost)
	ngo.HandleFunc("/assignments/accepted-requests", h.ListAccepted).Methods(http.MethodGet)
	ngo.HandleFunc("/assignments/profile/{profile_id}", h.ProfileAssignments).Methods(http.MethodGet)
	ngo.HandleFunc("/assignments/jobs/{alloc_id}/confirm", h.ConfirmJob).Methods(http.MethodPost)

	ngo.HandleFunc("/profiles", h.CreateProfile).Methods(http.MethodPost)
	ngo.HandleFunc("/profiles", h.ListProfiles).Methods(http.MethodGet)
	ngo.HandleFunc("/profiles/{id}", h.GetProfile).Methods(http.MethodGet)
	ngo.HandleFunc("/profiles/{id}/deactivate", h.DeactivateProfile).Methods(http.MethodPost)

	ngo.HandleFunc("/shelters", h.ListShelters).Methods(http.MethodGet)
	ngo.HandleFunc("/shelters/{id}", h.GetShelter).Methods(http.MethodGet)

	ngo.HandleFunc("/ai/recommendations/shelters/{profile_id}", h.RecommendShelters).Methods(http.MethodGet)
	ngo.HandleFunc("/ai/recommendations/{profile_id}/choice", h.RecordChoice).Methods(http.MethodPost)
}

// RegisterShelterRoutes type=shelter token，部分路由再按角色限制
func (r *Router) RegisterShelterRoutes(h *ShelterHandler) {
	sh := r.mux.NewRoute().Subrouter()
	sh.Use(r.auth.RequireShelter)

	managers := RequireRole(RoleManager)
	staff := RequireRole(RoleManager, RoleStaff)
	medical := RequireRole(RoleManager, RoleMedical)

	sh.HandleFunc("/shelter-requests", h.ListRequests).Methods(http.MethodGet)
	sh.HandleFunc("/shelter-requests/{id}", h.GetRequest).Methods(http.MethodGet)
	sh.HandleFunc("/shelter-requests/{id}/accept", managers(h.AcceptRequest)).Methods(http.MethodPost)
	sh.HandleFunc("/shelter-requests/{id}/reject", managers(h.RejectRequest)).Methods(http.MethodPost)

	sh.HandleFunc("/shelter-residents", h.ListResidents).Methods(http.MethodGet)
	sh.HandleFunc("/shelter-residents", staff(h.AddResident)).Methods(http.MethodPost)
	sh.HandleFunc("/shelter-residents/{id}", h.GetResident).Methods(http.MethodGet)
	sh.HandleFunc("/shelter-residents/{id}", staff(h.UpdateResident)).Methods(http.MethodPut)
	sh.HandleFunc("/shelter-residents/{id}", managers(h.DischargeResident)).Methods(http.MethodDelete)

	sh.HandleFunc("/shelter-medical/sync/status", h.SyncStatus).Methods(http.MethodGet)
	sh.HandleFunc("/shelter-medical/sync/retry", managers(h.RetrySync)).Methods(http.MethodPost)
	sh.HandleFunc("/shelter-medical/residents/{resident_id}", h.ListMedicalRecords).Methods(http.MethodGet)
	sh.HandleFunc("/shelter-medical/residents/{resident_id}", medical(h.AddMedicalRecord)).Methods(http.MethodPost)

	sh.HandleFunc("/shelter-dashboard/bed-stats", h.BedStats).Methods(http.MethodGet)
}
