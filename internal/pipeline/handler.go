package pipeline

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/httpx"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/posting"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.Ingest(r.Context(), IngestInput{
		Type:    documents.Type(req.Type),
		Subject: req.Subject,
		Sender:  req.Sender,
		Files:   toAttachments(req.Files),
	})
	if err != nil {
		h.respondError(w, r, "ingest document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := documents.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
		return
	}
	docs, err := h.service.List(r.Context(), status, 100)
	if err != nil {
		h.respondError(w, r, "list documents", err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) AttachFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req AttachmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.AttachFile(r.Context(), id, documents.Attachment{
		Filename:  req.Filename,
		Locator:   req.Locator,
		MediaType: req.MediaType,
		Size:      req.Size,
	})
	if err != nil {
		h.respondError(w, r, "attach file", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req NormalizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	doc, err := h.service.Normalize(r.Context(), id, req.Extraction)
	if err != nil {
		h.respondError(w, r, "normalize document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) BuildProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.BuildProposal(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "build proposal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req RouteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := RouteInput{Assignments: make(map[int]string, len(req.Assignments))}
	for _, a := range req.Assignments {
		input.Assignments[a.Index] = a.Warehouse
	}
	doc, err := h.service.Route(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "route document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	links, err := h.service.Post(r.Context(), id, 0)
	if err != nil {
		h.respondError(w, r, "post document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, LinksResponse{JournalID: links.JournalID, StockMoveIDs: links.StockMoveIDs})
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, documents.ErrNeedsReview),
		errors.Is(err, documents.ErrStatusRegression),
		errors.Is(err, posting.ErrNotRouted),
		errors.Is(err, ErrProposalLocked),
		errors.Is(err, shared.ErrIdempotencyConflict),
		errors.Is(err, shared.ErrLockNotAcquired):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, documents.ErrNotParsed),
		errors.Is(err, documents.ErrProposalIncomplete),
		errors.Is(err, stock.ErrUnknownWarehouse):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
