// Package chi is the HTTP surface of the vault service.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/domain"
	domingest "github.com/papper-ai/vaultd/internal/domain/ingest"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
	healthuc "github.com/papper-ai/vaultd/internal/usecase/health"
	vaultuc "github.com/papper-ai/vaultd/internal/usecase/vault"
)

const multipartMemoryLimit = 32 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Limits bounds multipart uploads.
type Limits struct {
	MaxFileSizeBytes int64
	MaxFiles         int
}

// Server implements the HTTP API.
type Server struct {
	vaults        *vaultuc.Service
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(vaults *vaultuc.Service, health *healthuc.Service, limits Limits, logger *zap.Logger) *Server {
	s := &Server{
		vaults: vaults,
		health: health,
		limits: limits,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrVaultNotFound, http.StatusNotFound, codeVaultNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNoFiles, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusNotAcceptable, codeUnsupportedFileType),
		sentinelHandler(domain.ErrEmptyFile, http.StatusNotAcceptable, codeEmptyFile),
		sentinelHandler(domain.ErrNoUsableDocuments, http.StatusNotAcceptable, codeNoUsableDocuments),
		sentinelHandler(domain.ErrKnowledgeBase, http.StatusBadGateway, codeKnowledgeBaseError),
	}
	return s
}

// Register mounts all routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/vaults", func(r chi.Router) {
			r.Post("/", s.createVault)
			r.Route("/{vaultID}", func(r chi.Router) {
				r.Get("/", s.getVault)
				r.Patch("/", s.renameVault)
				r.Delete("/", s.deleteVault)
				r.Route("/documents", func(r chi.Router) {
					r.Get("/", s.getVaultDocuments)
					r.Post("/", s.addDocument)
					r.Delete("/{documentID}", s.deleteDocument)
				})
			})
		})
		r.Get("/documents/{documentID}", s.getDocument)
		r.Get("/documents/{documentID}/download", s.downloadDocument)
		r.Get("/users/{userID}/vaults", s.listUserVaults)
	})
}

// createVault handles POST /api/v1/vaults.
func (s *Server) createVault(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart body: "+err.Error())
		return
	}

	name := r.FormValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "vault name is required")
		return
	}
	vaultType, err := domvault.ParseType(r.FormValue("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "invalid user_id")
		return
	}

	files, err := s.readFiles(r.MultipartForm.File["files"])
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	view, err := s.vaults.CreateVault(r.Context(), userID, name, vaultType, files)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, viewToResponse(&view))
}

// addDocument handles POST /api/v1/vaults/{vaultID}/documents.
func (s *Server) addDocument(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := parseIDParam(w, r, "vaultID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) != 1 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "exactly one file part is required")
		return
	}
	files, err := s.readFiles(headers)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	view, err := s.vaults.AddDocument(r.Context(), vaultID, files[0])
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, viewToResponse(&view))
}

// getVault handles GET /api/v1/vaults/{vaultID}.
func (s *Server) getVault(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := parseIDParam(w, r, "vaultID")
	if !ok {
		return
	}

	view, err := s.vaults.GetVault(r.Context(), vaultID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, viewToResponse(&view))
}

// getVaultDocuments handles GET /api/v1/vaults/{vaultID}/documents.
func (s *Server) getVaultDocuments(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := parseIDParam(w, r, "vaultID")
	if !ok {
		return
	}

	docs, err := s.vaults.GetVaultDocuments(r.Context(), vaultID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// renameVault handles PATCH /api/v1/vaults/{vaultID}.
func (s *Server) renameVault(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := parseIDParam(w, r, "vaultID")
	if !ok {
		return
	}

	var req renameVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	v, err := s.vaults.RenameVault(r.Context(), vaultID, req.Name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vaultToSummary(&v))
}

// deleteVault handles DELETE /api/v1/vaults/{vaultID}.
func (s *Server) deleteVault(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := parseIDParam(w, r, "vaultID")
	if !ok {
		return
	}

	if err := s.vaults.DeleteVault(r.Context(), vaultID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deleteDocument handles DELETE /api/v1/vaults/{vaultID}/documents/{documentID}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := parseIDParam(w, r, "vaultID")
	if !ok {
		return
	}
	documentID, ok := parseIDParam(w, r, "documentID")
	if !ok {
		return
	}

	if err := s.vaults.DeleteDocument(r.Context(), vaultID, documentID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// getDocument handles GET /api/v1/documents/{documentID}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseIDParam(w, r, "documentID")
	if !ok {
		return
	}

	doc, err := s.vaults.GetDocument(r.Context(), documentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// downloadDocument handles GET /api/v1/documents/{documentID}/download.
// It streams the original uploaded bytes, decrypted from the blob archive.
func (s *Server) downloadDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseIDParam(w, r, "documentID")
	if !ok {
		return
	}

	name, raw, err := s.vaults.DownloadDocument(r.Context(), documentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// listUserVaults handles GET /api/v1/users/{userID}/vaults.
func (s *Server) listUserVaults(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userID")
	if !ok {
		return
	}

	vaults, err := s.vaults.ListUserVaults(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]VaultSummary, len(vaults))
	for i := range vaults {
		items[i] = vaultToSummary(&vaults[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Check(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readFiles materializes multipart file parts, enforcing count and size limits.
func (s *Server) readFiles(headers []*multipart.FileHeader) ([]domingest.File, error) {
	if s.limits.MaxFiles > 0 && len(headers) > s.limits.MaxFiles {
		return nil, fmt.Errorf("too many files: %d (max %d)", len(headers), s.limits.MaxFiles)
	}

	files := make([]domingest.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		content, err := readLimited(f, s.limits.MaxFileSizeBytes)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		files = append(files, domingest.File{Name: h.Filename, Content: content})
	}
	return files, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	return data, nil
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// clientSentinels classify caller mistakes. Their wrapped chains are built
// from the caller's own input (file names, validation text), so the full
// message goes back to the client; an unsupported-type error names the
// rejected file.
var clientSentinels = []error{
	domain.ErrVaultNotFound,
	domain.ErrDocumentNotFound,
	domain.ErrNoFiles,
	domain.ErrInvalidInput,
	domain.ErrUnsupportedFileType,
	domain.ErrEmptyFile,
	domain.ErrNoUsableDocuments,
}

// safeDomainMessage returns an error message for the client without exposing
// internals. Server-class errors collapse to the bare sentinel text.
func safeDomainMessage(err error) string {
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	if errors.Is(err, domain.ErrKnowledgeBase) {
		return domain.ErrKnowledgeBase.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
