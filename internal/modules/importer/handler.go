package importer

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/auth"
)

const maxUploadBytes = 8 << 20

// Handler exposes the bulk import endpoint.
type Handler struct{ importer *Importer }

func NewHandler(importer *Importer) *Handler { return &Handler{importer: importer} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireAdmin).Post("/api/v1/catalog/import", h.importRows)
}

type importRequest struct {
	Rows []Row `json:"rows"`
}

// importRows accepts either text/csv or JSON {"rows": [...]}. CSV errors name
// the file line; JSON errors name the 1-based position in "rows".
func (h *Handler) importRows(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		res *Result
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		sheet, perr := ReadCSV(body)
		if perr != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": perr.Error()})
			return
		}
		res, err = h.importer.ImportSheet(r.Context(), sheet)
	} else {
		var req importRequest
		dec := json.NewDecoder(body)
		dec.UseNumber()
		if derr := dec.Decode(&req); derr != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": derr.Error()})
			return
		}
		res, err = h.importer.Import(r.Context(), req.Rows)
	}

	if err != nil {
		body := apperr.Body(err)
		if res != nil {
			body["result"] = res
		}
		respond(w, apperr.HTTPStatus(err), body)
		return
	}
	respond(w, http.StatusCreated, res)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
