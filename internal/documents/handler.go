package documents

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/recipients"
	"esign-backend/internal/shared/server/middleware"
	"esign-backend/internal/shared/server/respond"
	"esign-backend/internal/shared/telemetry"
)

const maxBodySize = 2 << 20 // 2MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.create)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id", h.update)
	rg.POST("/documents/:id/send", h.send)
	rg.GET("/documents/:id/recipients", h.recipients)
	rg.GET("/documents/:id/recipients/:recipientId/signed.pdf", h.signedPDF)
}

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content,omitempty"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecipientResponse never includes the access token; owners see the signing
// state only.
type RecipientResponse struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name,omitempty"`
	Status   string     `json:"status"`
	SignedAt *time.Time `json:"signedAt,omitempty"`
}

func toResponse(doc Document, withContent bool) DocumentResponse {
	resp := DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if withContent {
		resp.Content = doc.Content
	}
	return resp
}

func toRecipientResponses(recs []recipients.Recipient) []RecipientResponse {
	out := make([]RecipientResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecipientResponse{
			ID:       r.ID,
			Email:    r.Email,
			Name:     r.Name,
			Status:   string(r.Status),
			SignedAt: r.SignedAt,
		})
	}
	return out
}

type createRequest struct {
	Title string `json:"title"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	doc, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.Title)
	if err != nil {
		h.fail(c, err, "failed to create document")
		return
	}
	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, toResponse(doc, true))
}

func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{
		Status: Status(c.Query("status")),
		Query:  c.Query("q"),
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Offset = parsed
		}
	}

	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), filter)
	if err != nil {
		h.fail(c, err, "failed to list documents")
		return
	}
	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc, false))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toResponse(doc, true))
}

type updateRequest struct {
	Title   *string         `json:"title"`
	Content json.RawMessage `json:"content"`
}

func (h *Handler) update(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.UpdateDraft(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), DraftPatch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.fail(c, err, "failed to update document")
		return
	}
	respond.OK(c, toResponse(doc, true))
}

type sendRequest struct {
	Recipients []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"recipients"`
}

func (h *Handler) send(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	inputs := make([]RecipientInput, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		inputs = append(inputs, RecipientInput{Name: r.Name, Email: r.Email})
	}
	doc, recs, err := h.Svc.Send(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), inputs)
	if err != nil {
		h.fail(c, err, "failed to send document")
		return
	}
	c.Set("statusTransition", "draft->sent")
	respond.OK(c, gin.H{
		"document":   toResponse(doc, false),
		"recipients": toRecipientResponses(recs),
	})
}

func (h *Handler) recipients(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	recs, err := h.Svc.ListRecipients(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list recipients")
		return
	}
	respond.OK(c, toRecipientResponses(recs))
}

func (h *Handler) signedPDF(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	c.Set("recipientId", c.Param("recipientId"))
	rc, filename, err := h.Svc.SignedPDF(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), c.Param("recipientId"))
	if err != nil {
		h.fail(c, err, "failed to load signed document")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Error("document.signed_pdf.stream_failed", map[string]any{
			"document_id":  c.Param("id"),
			"recipient_id": c.Param("recipientId"),
			"error":        err,
		})
	}
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrNotDraft):
		respond.Error(c, http.StatusConflict, "not_draft", "document is no longer a draft", nil)
	case errors.Is(err, ErrNotSigned):
		respond.Error(c, http.StatusConflict, "not_signed", "recipient has not signed yet", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
