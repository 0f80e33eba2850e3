package httpapi

import (
	"context"
	"net/http"
	"time"

	"plantita.org/internal/auth"
	"plantita.org/internal/catalog"
	"plantita.org/internal/garden"
	"plantita.org/internal/iot"
	"plantita.org/internal/obs"
)

// ReadyProbe reports whether the service's dependencies are reachable.
type ReadyProbe func(ctx context.Context) error

// API owns the HTTP surface: route table, authorization gate and the
// middleware chain around them.
type API struct {
	auth    *auth.Service
	catalog catalog.Service
	garden  garden.Service
	iot     iot.Service

	ready   ReadyProbe
	version string

	maxBodyBytes int64
	rateBurst    int
	ratePerSec   int
	corsOrigins  []string

	mux *http.ServeMux
}

// Option configures the API.
type Option func(*API)

// WithReadyProbe sets the readiness check used by /readyz.
func WithReadyProbe(probe ReadyProbe) Option {
	return func(a *API) { a.ready = probe }
}

// WithVersion sets the version string reported by /v1/info.
func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

// WithBodyLimit caps request body size in bytes.
func WithBodyLimit(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// WithRateLimit sets the per-IP token bucket.
func WithRateLimit(perSecond, burst int) Option {
	return func(a *API) {
		if perSecond > 0 {
			a.ratePerSec = perSecond
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// WithCORSOrigins sets the origins allowed to send credentialed requests.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

// New wires the route table.
func New(authSvc *auth.Service, cat catalog.Service, gdn garden.Service, devices iot.Service, opts ...Option) *API {
	a := &API{
		auth:         authSvc,
		catalog:      cat,
		garden:       gdn,
		iot:          devices,
		version:      "dev",
		maxBodyBytes: 1 << 20,
		rateBurst:    40,
		ratePerSec:   20,
	}
	for _, opt := range opts {
		opt(a)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.HandleFunc("GET /v1/info", a.handleInfo)
	mux.Handle("GET /metrics", obs.Handler())

	mux.HandleFunc("POST /v1/auth/sign-up", a.handleSignUp)
	mux.HandleFunc("POST /v1/auth/sign-in", a.handleSignIn)
	mux.HandleFunc("POST /v1/auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /v1/auth/sign-out", a.handleSignOut)

	mux.HandleFunc("GET /v1/plants", a.handleListPlants)
	mux.HandleFunc("GET /v1/plants/search", a.handleSearchPlants)
	mux.HandleFunc("GET /v1/plants/{id}", a.handleGetPlant)
	mux.HandleFunc("POST /v1/plants", a.requireRole(auth.RoleAdmin, a.handleCreatePlant))
	mux.HandleFunc("PUT /v1/plants/{id}", a.requireRole(auth.RoleAdmin, a.handleUpdatePlant))
	mux.HandleFunc("DELETE /v1/plants/{id}", a.requireRole(auth.RoleAdmin, a.handleDeletePlant))

	mux.HandleFunc("GET /v1/my-plants", a.handleListMyPlants)
	mux.HandleFunc("POST /v1/my-plants", a.handleAddMyPlant)
	mux.HandleFunc("GET /v1/my-plants/{id}", a.handleGetMyPlant)
	mux.HandleFunc("PUT /v1/my-plants/{id}", a.handleUpdateMyPlant)
	mux.HandleFunc("DELETE /v1/my-plants/{id}", a.handleRemoveMyPlant)
	mux.HandleFunc("GET /v1/my-plants/{id}/tasks", a.handleListTasks)
	mux.HandleFunc("POST /v1/my-plants/{id}/tasks", a.handleScheduleTask)
	mux.HandleFunc("POST /v1/tasks/{id}/complete", a.handleCompleteTask)
	mux.HandleFunc("GET /v1/my-plants/{id}/health-logs", a.handleListHealthLogs)
	mux.HandleFunc("POST /v1/my-plants/{id}/health-logs", a.handleAppendHealthLog)

	mux.HandleFunc("GET /v1/devices", a.handleListDevices)
	mux.HandleFunc("POST /v1/devices", a.handleRegisterDevice)
	mux.HandleFunc("GET /v1/devices/{id}", a.handleGetDevice)
	mux.HandleFunc("PATCH /v1/devices/{id}/status", a.handleUpdateDeviceStatus)
	mux.HandleFunc("DELETE /v1/devices/{id}", a.handleRemoveDevice)
	mux.HandleFunc("GET /v1/devices/{id}/sensors", a.handleListSensors)
	mux.HandleFunc("POST /v1/devices/{id}/sensors", a.handleAddSensor)
	mux.HandleFunc("POST /v1/sensors/{id}/readings", a.handleRecordReading)
	mux.HandleFunc("GET /v1/sensors/{id}/readings", a.handleListReadings)
	mux.HandleFunc("GET /v1/sensors/{id}/readings/latest", a.handleLatestReading)

	a.mux = mux
	return a
}

// Handler returns the full middleware chain around the route table. The gate
// sits inside the operational middleware so rejected requests are still
// logged, measured and rate limited.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(a.corsOrigins)(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_ready", "dependency unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "plantita",
		"version": a.version,
	})
}
