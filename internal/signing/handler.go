package signing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/shared/server/respond"
)

const maxSubmitBody = 5 << 20 // 5MB

// Handler exposes the public signing routes.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches signing routes. They authenticate by token only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sign/:token", h.view)
	rg.POST("/sign/:token/view", h.markViewed)
	rg.POST("/sign/:token", h.submit)
}

type submitRequest struct {
	SignatureDataURL string `json:"signatureDataUrl"`
	SignerName       string `json:"signerName"`
}

type resultResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func (h *Handler) view(c *gin.Context) {
	v, err := h.Svc.View(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("documentId", v.DocumentID)
	respond.OK(c, gin.H{
		"document": gin.H{
			"id":    v.DocumentID,
			"title": v.DocumentTitle,
			"html":  v.ContentHTML,
		},
		"recipient": gin.H{
			"name":   v.RecipientName,
			"email":  v.RecipientEmail,
			"status": v.Status,
		},
	})
}

func (h *Handler) markViewed(c *gin.Context) {
	sess, err := h.Svc.MarkViewed(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("documentId", sess.Document.ID)
	c.Set("recipientId", sess.Recipient.ID)
	respond.OK(c, resultResponse{Success: true})
}

func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmitBody)
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, resultResponse{Message: "Invalid request."})
		return
	}
	res, err := h.Svc.Submit(c.Request.Context(), SubmitRequest{
		Token:            c.Param("token"),
		SignatureDataURL: req.SignatureDataURL,
		SignerName:       req.SignerName,
		ClientIP:         c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("documentId", res.DocumentID)
	c.Set("recipientId", res.RecipientID)
	respond.OK(c, resultResponse{Success: true, Redirect: "/thank-you"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), resultResponse{Message: UserMessage(err)})
}

// WriteFailure answers requests aborted by shared middleware (panics, rate
// limits) on signing routes with the signer-facing envelope.
func WriteFailure(c *gin.Context, status int, code, message string) {
	if message == "" {
		switch status {
		case http.StatusTooManyRequests:
			message = "Too many attempts. Please wait a moment and try again."
		default:
			message = msgGeneric
		}
	}
	c.AbortWithStatusJSON(status, resultResponse{Message: message})
}

func statusFor(err error) int {
	var (
		precondition *PreconditionError
		render       *RenderError
	)
	switch {
	case errors.Is(err, ErrInvalidToken):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadySigned):
		return http.StatusConflict
	case errors.Is(err, ErrEmptySignature):
		return http.StatusBadRequest
	case errors.As(err, &precondition):
		return http.StatusUnprocessableEntity
	case errors.As(err, &render):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
