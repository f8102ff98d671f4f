package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docuvault/docuvault-server/internal/api/common"
	"github.com/docuvault/docuvault-server/internal/store"
)

// Version is the server version reported by the version endpoint. It is
// overridden at build time through ldflags.
var Version = "dev"

// versionResponse is the payload of the version endpoint.
type versionResponse struct {
	Version string `json:"version"`
}

// HealthRouter creates the liveness, readiness and version endpoints.
func HealthRouter(st store.Store) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/readiness", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			common.WriteErrorResponse(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, versionResponse{Version: Version}, http.StatusOK)
	})

	return r
}
