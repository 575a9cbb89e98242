// Package handler exposes import sessions and templates over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/result"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/service"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/template"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/validator"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
	"github.com/FACorreiaa/schedule-importer/pkg/logging"
)

// multipartOverhead is the slack allowed above the file limit for form framing
const multipartOverhead = 1 << 20

// ImportHandler handles import session and template requests
type ImportHandler struct {
	store       *service.SessionStore
	importSvc   *service.ImportService
	spreadsheet *capability.Gate
	maxBytes    int64
	logger      *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(store *service.SessionStore, importSvc *service.ImportService, maxBytes int64, logger *slog.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = validator.DefaultMaxBytes
	}
	return &ImportHandler{
		store:     store,
		importSvc: importSvc,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// WithSpreadsheetGate reports the spreadsheet capability in health checks
func (h *ImportHandler) WithSpreadsheetGate(gate *capability.Gate) *ImportHandler {
	h.spreadsheet = gate
	return h
}

// Register mounts the import routes on r
func (h *ImportHandler) Register(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/v1/import", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Put("/file", h.SelectFile)
			r.Delete("/file", h.ClearFile)
			r.Post("/import", h.Import)
			r.Get("/errors.csv", h.ExportErrors)
		})
		r.Get("/templates/{name}", h.DownloadTemplate)
	})
}

// Health reports liveness and the spreadsheet capability state
func (h *ImportHandler) Health(w http.ResponseWriter, r *http.Request) {
	state := "disabled"
	if h.spreadsheet != nil {
		state = h.spreadsheet.State().String()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"spreadsheet": state,
	})
}

type createSessionRequest struct {
	AssociationKey string `json:"associationKey"`
}

// CreateSession starts a session; an association key makes it scoped
func (h *ImportHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	s := h.store.Create(req.AssociationKey)
	writeJSON(w, http.StatusCreated, newSessionResponse(s.State()))
}

// GetSession returns the session state
func (h *ImportHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s.State()))
}

// DeleteSession discards the session
func (h *ImportHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.Delete(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectFile accepts a multipart upload in the "file" field. Metadata is
// validated before the content is read.
func (h *ImportHandler) SelectFile(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid multipart form", errBadRequest))
		return
	}
	part, err := filePart(mr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer part.Close()

	// extension and capability are checked before the body is read
	name := part.FileName()
	if _, err := h.importSvc.Validate(model.NewUploadedFile(name, 0)); err != nil {
		h.writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(part, h.maxBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, r, &validator.RejectionError{
				Reason:   validator.ReasonFileTooLarge,
				FileName: name,
				Size:     r.ContentLength,
				Limit:    h.maxBytes,
			})
			return
		}
		h.writeError(w, r, fmt.Errorf("%w: failed to read upload", errBadRequest))
		return
	}

	size := int64(len(data))
	if size > h.maxBytes {
		rest, _ := io.Copy(io.Discard, part)
		h.writeError(w, r, &validator.RejectionError{
			Reason:   validator.ReasonFileTooLarge,
			FileName: name,
			Size:     size + rest,
			Limit:    h.maxBytes,
		})
		return
	}

	meta := model.NewUploadedFile(name, size)
	if _, err := h.importSvc.Validate(meta); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := s.Select(r.Context(), meta, data); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s.State()))
}

// filePart advances to the "file" part of a multipart body
func filePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no file provided", errBadRequest)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid multipart form", errBadRequest)
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// ClearFile drops the selection and any outcome
func (h *ImportHandler) ClearFile(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	s.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Import submits the selected file and returns the outcome
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := s.Import(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeResponse(outcome))
}

type errorRow struct {
	Row     string `csv:"Row"`
	Message string `csv:"Message"`
	RowData string `csv:"Row Data"`
}

// ExportErrors downloads the errors of the last outcome as CSV
func (h *ImportHandler) ExportErrors(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome := s.State().Outcome
	if outcome == nil {
		h.writeError(w, r, fmt.Errorf("%w: no import result for this session", errNotFound))
		return
	}

	rows := make([]errorRow, 0, len(outcome.Errors))
	for _, e := range outcome.Errors {
		rows = append(rows, errorRow{Row: e.Row.String(), Message: e.Message, RowData: e.RowData})
	}

	content, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("failed to encode error report: %w", err))
		return
	}

	w.Header().Set("Content-Type", template.CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="import_errors_%s.csv"`, s.ID()))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// DownloadTemplate serves one of the two fixed templates
func (h *ImportHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	f, err := template.ByName(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Content)
}

func (h *ImportHandler) session(r *http.Request) (*service.Session, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	return h.store.Get(id)
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid session id", errNotFound)
	}
	return id, nil
}

type fileResponse struct {
	Name        string `json:"name"`
	Size        string `json:"size"`
	SizeBytes   int64  `json:"sizeBytes"`
	Format      string `json:"format"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type outcomeResponse struct {
	model.Outcome
	Variant           string `json:"variant"`
	ErrorSectionLabel string `json:"errorSectionLabel"`
	SuccessMessage    string `json:"successMessage,omitempty"`
}

type sessionResponse struct {
	ID             string           `json:"id"`
	Mode           model.Mode       `json:"mode"`
	AssociationKey string           `json:"associationKey,omitempty"`
	File           *fileResponse    `json:"file,omitempty"`
	Outcome        *outcomeResponse `json:"outcome,omitempty"`
	Busy           bool             `json:"busy"`
}

func newSessionResponse(st service.State) sessionResponse {
	resp := sessionResponse{
		ID:             st.ID.String(),
		Mode:           st.Mode,
		AssociationKey: st.AssociationKey,
		Busy:           st.Busy,
	}
	if p := st.File; p != nil {
		resp.File = &fileResponse{
			Name:        p.File.Name,
			Size:        validator.FormatSize(p.File.SizeBytes),
			SizeBytes:   p.File.SizeBytes,
			Format:      p.Format.String(),
			Rows:        p.Rows,
			Columns:     p.Columns,
			Fingerprint: p.Fingerprint,
		}
	}
	if st.Outcome != nil {
		resp.Outcome = newOutcomeResponse(st.Outcome)
	}
	return resp
}

func newOutcomeResponse(o *model.Outcome) *outcomeResponse {
	resp := &outcomeResponse{
		Outcome:           *o,
		Variant:           o.Category.Variant(),
		ErrorSectionLabel: o.ErrorSectionLabel(),
	}
	if o.Mode == model.ModeGlobal {
		resp.SuccessMessage = result.SuccessMessage(*o)
	}
	return resp
}

// loggerFor returns the handler logger enriched with the request id
func (h *ImportHandler) loggerFor(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), h.logger)
}
