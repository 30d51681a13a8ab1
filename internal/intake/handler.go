package intake

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/pkg/errors"
	"contactguard/pkg/models"
)

type Submitter interface {
	Submit(ctx context.Context, identity string, body io.Reader) (models.Verdict, error)
}

type Handler struct {
	service      Submitter
	path         string
	maxBodyBytes int64
	logger       logger.Logger
}

func NewHandler(service Submitter, path string, maxBodyBytes int64, log logger.Logger) *Handler {
	return &Handler{
		service:      service,
		path:         path,
		maxBodyBytes: maxBodyBytes,
		logger:       log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST(h.path, h.Submit)
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// Submit accepts a contact form post. Silent rejections are indistinguishable
// from a dispatched message.
func (h *Handler) Submit(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if h.maxBodyBytes > 0 && c.Request.Body != nil {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	identity := ClientIdentity(c.Request.Header)
	verdict, err := h.service.Submit(c.Request.Context(), identity, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	switch v := verdict.(type) {
	case models.RateLimited:
		c.Header(constants.HeaderRetryAfter, strconv.Itoa(v.RetryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, errors.ToErrorResponse(errors.ErrRateLimited))
	case models.RejectedVisible:
		rejection := errors.ErrValidation.WithMessage(v.Display).WithDetail("reason", string(v.Code))
		c.JSON(errors.ToHTTPStatus(rejection), errors.ToErrorResponse(rejection))
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
