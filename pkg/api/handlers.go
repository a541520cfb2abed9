package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Mindburn-Labs/curator/pkg/assets"
	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

const (
	maxDocumentBody = 1 << 20  // 1MB metadata documents
	maxContentBody  = 64 << 20 // 64MB attachment payloads
)

// Server exposes the asset service over HTTP. It is a thin adapter: parameter
// parsing happens in pkg/query, semantics in pkg/assets.
type Server struct {
	service *assets.Service
	logger  *slog.Logger
}

// NewServer wires the HTTP surface.
func NewServer(service *assets.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, logger: logger}
}

// Routes registers all handlers on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/assets", s.handleAssets)
	mux.HandleFunc("/v1/assets/count", s.handleCount)
	mux.HandleFunc("/v1/assets/summary", s.handleSummary)
	mux.HandleFunc("/v1/assets/", s.handleAssetSubtree)
	mux.HandleFunc("/v1/attachments/", s.handleAttachmentSubtree)
	return mux
}

// queryParams flattens the request's query string to the single-valued map
// the parameter parser consumes. Repeated keys keep their first value.
func queryParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAssets(w, r)
	case http.MethodPost:
		s.createAsset(w, r)
	default:
		WriteMethodNotAllowed(w)
	}
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(queryParams(r))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	docs, err := s.service.List(r.Context(), params)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"assets": docs})
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	stored, err := s.service.Create(r.Context(), doc, Principal(r))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	params, err := query.Parse(queryParams(r))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	n, err := s.service.Count(r.Context(), params.Filters, params.Search)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	params, err := query.Parse(queryParams(r))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	summaries, err := s.service.Summarize(r.Context(), params.Fields, params.Filters, params.Search)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"summary": summaries})
}

// handleAssetSubtree routes /v1/assets/{id}, /v1/assets/{id}/state and
// /v1/assets/{id}/attachments.
func (s *Server) handleAssetSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/assets/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteNotFound(w, "missing asset id")
		return
	}

	switch sub {
	case "":
		s.handleAsset(w, r, id)
	case "state":
		s.handleState(w, r, id)
	case "attachments":
		s.handleAssetAttachments(w, r, id)
	default:
		WriteNotFound(w, "unknown resource")
	}
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.service.Get(r.Context(), id)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		doc, ok := s.decodeDocument(w, r)
		if !ok {
			return
		}
		stored, err := s.service.Update(r.Context(), id, doc)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, stored)
	case http.MethodDelete:
		if err := s.service.Delete(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		WriteMethodNotAllowed(w)
	}
}

// handleState applies a lifecycle action. The action arrives as a single
// string in the "action" query parameter.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}
	action := r.URL.Query().Get("action")
	if action == "" {
		WriteBadRequest(w, "missing action parameter")
		return
	}
	doc, err := s.service.ApplyLifecycleAction(r.Context(), action, id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handleAssetAttachments lists or creates attachments under an asset.
// Creation modes: a JSON body is external-link metadata; any other content
// type is the inline payload, with the attachment name taken from the "name"
// query parameter.
func (s *Server) handleAssetAttachments(w http.ResponseWriter, r *http.Request, assetID string) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.service.ListAttachments(r.Context(), assetID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"attachments": docs})
	case http.MethodPost:
		s.createAttachment(w, r, assetID)
	default:
		WriteMethodNotAllowed(w)
	}
}

func (s *Server) createAttachment(w http.ResponseWriter, r *http.Request, assetID string) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/json") {
		meta, ok := s.decodeDocument(w, r)
		if !ok {
			return
		}
		stored, err := s.service.CreateAttachment(r.Context(), assetID, meta, nil)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, stored)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxContentBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		WriteBadRequest(w, "failed to read attachment content")
		return
	}
	meta := document.Document{}
	if name := r.URL.Query().Get("name"); name != "" {
		meta.Set("name", name)
	}
	stored, err := s.service.CreateAttachment(r.Context(), assetID, meta, payload)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

// handleAttachmentSubtree routes /v1/attachments/{id} and
// /v1/attachments/{id}/content.
func (s *Server) handleAttachmentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/attachments/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteNotFound(w, "missing attachment id")
		return
	}

	switch sub {
	case "":
		s.handleAttachment(w, r, id)
	case "content":
		s.handleAttachmentContent(w, r, id)
	default:
		WriteNotFound(w, "unknown resource")
	}
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.service.GetAttachment(r.Context(), id)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := s.service.DeleteAttachment(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		WriteMethodNotAllowed(w)
	}
}

func (s *Server) handleAttachmentContent(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	data, err := s.service.AttachmentContent(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// decodeDocument reads a JSON document body, with a size cap.
func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request) (document.Document, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBody)
	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		WriteBadRequest(w, "invalid request body")
		return nil, false
	}
	return doc, true
}
