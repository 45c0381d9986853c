package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"repoassess/internal/jobs"
	"repoassess/internal/store"
)

// API holds the dependencies of the HTTP handlers.
type API struct {
	jobs  *jobs.Store
	store store.Store
}

// NewAPI builds the handler set. graphs may be nil, in which case the graph
// endpoints answer 404.
func NewAPI(js *jobs.Store, graphs store.Store) *API {
	return &API{jobs: js, store: graphs}
}

// Routes mounts every endpoint on a chi router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	r.Get("/healthz", a.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/assessments", a.createAssessment)
		r.Get("/assessments/{id}", a.getAssessment)
		r.Delete("/assessments/{id}", a.cancelAssessment)
		r.Get("/assessments/{id}/watch", a.watchAssessment)
		r.Get("/graphs", a.listGraphs)
		r.Get("/graphs/{hash}", a.getGraph)
	})
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
