package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/adapters/spreadsheet"
	"review_ingest/internal/app"
	"review_ingest/internal/domain"
)

type Handlers struct {
	Ingest  *app.IngestionService
	Extract *app.ExtractionService
	Q       *app.QueryService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/reviews/bulk", h.bulkUpload)
	s.mux.Post("/v1/extractions", h.extract)
	s.mux.Get("/v1/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// ownerID reads the identity the auth layer in front of us attaches to the
// request. No owner, no ingestion: every created record is attributed.
func ownerID(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Owner-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ---- bulk upload ----

type bulkResponse struct {
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
	Total            int         `json:"total"`
	Valid            int         `json:"valid"`
	Created          int         `json:"created"`
	Skipped          int         `json:"skipped"`
	ValidationErrors int         `json:"validationErrors"`
	ProcessingErrors int         `json:"processingErrors"`
	Errors           []string    `json:"errors"`
	Summary          bulkSummary `json:"summary"`
}

type bulkSummary struct {
	TotalProcessed      int `json:"totalProcessed"`
	ValidReviews        int `json:"validReviews"`
	SuccessfullyCreated int `json:"successfullyCreated"`
	DuplicatesSkipped   int `json:"duplicatesSkipped"`
	ValidationErrors    int `json:"validationErrors"`
	ProcessingErrors    int `json:"processingErrors"`
}

func (h *Handlers) bulkUpload(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "owner identity is required")
		return
	}

	// cap the multipart read slightly above the file limit
	r.Body = http.MaxBytesReader(w, r.Body, spreadsheet.MaxFileBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if !spreadsheet.SupportedExt(header.Filename) {
		writeProblem(w, http.StatusBadRequest, "Unsupported File Type", "only .csv, .xlsx and .xls files are supported")
		return
	}
	if header.Size > spreadsheet.MaxFileBytes {
		writeProblem(w, http.StatusBadRequest, "File Too Large", "file must be 10MB or smaller")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, spreadsheet.MaxFileBytes+1))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "could not read uploaded file")
		return
	}
	if len(data) > spreadsheet.MaxFileBytes {
		writeProblem(w, http.StatusBadRequest, "File Too Large", "file must be 10MB or smaller")
		return
	}

	out, err := h.Ingest.Ingest(r.Context(), data, header.Filename, owner)
	if err != nil {
		var nvr *app.NoValidRowsError
		switch {
		case errors.As(err, &nvr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":     false,
				"error":       "no valid reviews found in file",
				"details":     nvr.Samples,
				"totalErrors": nvr.TotalErrors,
			})
		case errors.Is(err, spreadsheet.ErrUnsupportedType),
			errors.Is(err, spreadsheet.ErrFileTooLarge),
			errors.Is(err, spreadsheet.ErrEmptyFile):
			writeProblem(w, http.StatusBadRequest, "Unreadable File", err.Error())
		default:
			log.Error().Err(err).Msg("bulk upload failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "bulk upload failed")
		}
		return
	}

	observability.ObserveIngest(out.Created, out.Skipped, out.ValidationErrors, out.ProcessingErrors)
	if h.Q != nil {
		h.Q.InvalidateReviews(r.Context(), owner)
	}

	writeJSON(w, http.StatusOK, bulkResponse{
		Success:          true,
		Message:          fmt.Sprintf("%d reviews imported", out.Created),
		Total:            out.TotalRows,
		Valid:            out.ValidRows,
		Created:          out.Created,
		Skipped:          out.Skipped,
		ValidationErrors: out.ValidationErrors,
		ProcessingErrors: out.ProcessingErrors,
		Errors:           out.ErrorSamples,
		Summary: bulkSummary{
			TotalProcessed:      out.TotalRows,
			ValidReviews:        out.ValidRows,
			SuccessfullyCreated: out.Created,
			DuplicatesSkipped:   out.Skipped,
			ValidationErrors:    out.ValidationErrors,
			ProcessingErrors:    out.ProcessingErrors,
		},
	})
}

// ---- text / image extraction ----

type extractResponse struct {
	Success bool              `json:"success"`
	Data    domain.Extraction `json:"data"`
	Cache   bool              `json:"cache,omitempty"`
}

const maxImageBytes = 10 * 1024 * 1024
const maxTextBytes = 1 << 20

// extract accepts either a JSON body {"text": "..."} or a multipart form with
// an `image` field routed through the OCR provider. The result is a guess for
// the confirmation screen; nothing is persisted here.
func (h *Handlers) extract(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		h.extractImage(w, r)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTextBytes)).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "expected JSON body with a 'text' field")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "'text' must not be empty")
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{Success: true, Data: h.Extract.FromText(body.Text)})
}

func (h *Handlers) extractImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "multipart field 'image' is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeProblem(w, http.StatusBadRequest, "File Too Large", "image must be 10MB or smaller")
		return
	}
	img, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil || len(img) == 0 {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "could not read image")
		return
	}

	out, cached, err := h.Extract.FromImage(r.Context(), img)
	if err != nil {
		log.Error().Err(err).Msg("image extraction failed")
		writeProblem(w, http.StatusBadGateway, "OCR Failed", "text recognition failed")
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Success: true, Data: out, Cache: cached})
}

// ---- review listing ----

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "owner identity is required")
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	// Newest first; aligns with DB index on (user_id, review_date, id)
	page := domain.PageQuery{Limit: limit, Cursor: nil, Sort: "-review_date"}
	out, err := h.Q.ListReviews(r.Context(), owner, page)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "reviews not found")
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}
