package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/internal/server/storage"
	"github.com/iudanet/esps-console/internal/validation"
	"github.com/iudanet/esps-console/pkg/api"
)

// CertificateHandler отдает списки сертификатов и документы отдельных записей
type CertificateHandler struct {
	responder
	storage storage.CertificateStorage
}

// NewCertificateHandler создает handler сертификатов
func NewCertificateHandler(logger *slog.Logger, certStorage storage.CertificateStorage) *CertificateHandler {
	return &CertificateHandler{
		responder: responder{logger: logger},
		storage:   certStorage,
	}
}

// resolveSource проверяет пару {direction}/{source} из пути
func resolveSource(r *http.Request) (models.Source, bool) {
	src, err := models.ParseSource(r.PathValue("source"))
	if err != nil {
		return "", false
	}
	if string(src.Direction()) != r.PathValue("direction") {
		return "", false
	}
	return src, true
}

// List обрабатывает GET /{direction}/{source}.
// Устаревший ecertout отвечает голым массивом, остальные источники - конвертом {status, data}.
func (h *CertificateHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	src, ok := resolveSource(r)
	if !ok {
		h.sendError(w, "unknown certificate source", http.StatusNotFound)
		return
	}

	payloads, err := h.storage.ListPayloads(ctx, src)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list certificates",
			slog.String("source", string(src)),
			slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if src == models.SourceEcertOut {
		h.sendJSON(w, payloads, http.StatusOK)
		return
	}
	h.sendJSON(w, api.CollectionResponse{Status: true, Data: payloads}, http.StatusOK)
}

// Document обрабатывает GET /{direction}/{source}/{id}/{field} и отвечает {field: content}
func (h *CertificateHandler) Document(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	src, ok := resolveSource(r)
	if !ok {
		h.sendError(w, "unknown certificate source", http.StatusNotFound)
		return
	}

	field := r.PathValue("field")
	if !src.HasDocumentField(field) {
		h.sendError(w, "unknown document field", http.StatusNotFound)
		return
	}

	id := r.PathValue("id")
	if err := validation.ValidateRecordID(id); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cert, err := h.storage.GetCertificate(ctx, src, id)
	if err != nil {
		if errors.Is(err, storage.ErrCertificateNotFound) {
			h.sendError(w, "certificate not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get certificate",
			slog.String("source", string(src)),
			slog.String("id", id),
			slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	content, _ := cert.Document(field)

	h.logger.InfoContext(ctx, "document served",
		slog.String("source", string(src)),
		slog.String("id", id),
		slog.String("field", field))

	h.sendJSON(w, api.DocumentResponse{field: content}, http.StatusOK)
}
