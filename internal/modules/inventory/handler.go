package inventory

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/auth"
)

// Handler exposes inventory HTTP endpoints. Both reports are for administrators.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/levels", h.levels) // ?category=...&below=...
		r.Get("/totals", h.totals)
	})
}

func (h *Handler) levels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Category: q.Get("category")}
	if raw := q.Get("below"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, apperr.Invalid("below", "%q is not an integer", raw))
			return
		}
		f.Below = n
	}
	levels, err := h.service.Levels(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, levels)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, totals)
}

func respondError(w http.ResponseWriter, err error) {
	respond(w, apperr.HTTPStatus(err), apperr.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
