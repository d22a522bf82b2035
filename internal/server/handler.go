package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"numtrack/internal/api"
	"numtrack/internal/record"
)

const (
	codeBadNumber = 10001
	codeBadBody   = 10002
	codeBadStatus = 10003
	codeInternal  = 50000
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Handler struct {
	repo    Repository
	log     *zap.Logger
	metrics *metrics
}

// ListNumbers handles GET /api/numbers.
func (h *Handler) ListNumbers(c *gin.Context) {
	entries, err := h.repo.FetchNumbers(c.Request.Context())
	if err != nil {
		h.internalError(c, "list numbers", err)
		return
	}
	if entries == nil {
		entries = []record.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetNumber handles GET /api/numbers/:number.
func (h *Handler) GetNumber(c *gin.Context) {
	n, ok := h.number(c)
	if !ok {
		return
	}
	r, err := h.repo.GetNumber(c.Request.Context(), n)
	if err != nil {
		h.internalError(c, "get number", err)
		return
	}
	c.JSON(http.StatusOK, record.Entry{Number: n, Record: r})
}

// PutNumber handles PUT /api/numbers/:number with a full record body.
func (h *Handler) PutNumber(c *gin.Context) {
	n, ok := h.number(c)
	if !ok {
		return
	}
	var r record.Record
	if err := c.ShouldBindJSON(&r); err != nil {
		status := codeBadBody
		if errors.Is(err, record.ErrInvalidStatus) || errors.Is(err, record.ErrInvalidSubStatus) {
			status = codeBadStatus
		}
		badRequest(c, status, err.Error())
		return
	}
	if err := h.repo.UpsertNumber(c.Request.Context(), n, r); err != nil {
		h.metrics.writes.WithLabelValues("put", "error").Inc()
		h.internalError(c, "upsert number", err, zap.Int("number", n))
		return
	}
	h.metrics.writes.WithLabelValues("put", "ok").Inc()
	c.JSON(http.StatusOK, record.Entry{Number: n, Record: r})
}

// BulkUpdate handles PUT /api/numbers/bulk-update.
func (h *Handler) BulkUpdate(c *gin.Context) {
	var req api.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeBadBody, err.Error())
		return
	}
	status, err := record.ParseStatus(req.Status)
	if err != nil {
		badRequest(c, codeBadStatus, err.Error())
		return
	}
	for _, n := range req.Numbers {
		if !record.InRange(n) {
			badRequest(c, codeBadNumber, "number out of range: "+strconv.Itoa(n))
			return
		}
	}
	if err := h.repo.BulkSetStatus(c.Request.Context(), req.Numbers, status); err != nil {
		h.metrics.writes.WithLabelValues("bulk", "error").Inc()
		h.internalError(c, "bulk update", err, zap.Int("count", len(req.Numbers)))
		return
	}
	h.metrics.writes.WithLabelValues("bulk", "ok").Inc()
	h.metrics.bulkNumbers.Add(float64(len(req.Numbers)))
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Numbers), "status": status})
}

func (h *Handler) number(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || !record.InRange(n) {
		badRequest(c, codeBadNumber, "number must be an integer between 1 and 1421")
		return 0, false
	}
	return n, true
}

func (h *Handler) internalError(c *gin.Context, what string, err error, fields ...zap.Field) {
	h.log.Error(what+" failed", append(fields, zap.Error(err))...)
	c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorBody{Code: codeInternal, Message: "internal error"})
}

func badRequest(c *gin.Context, code int, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Code: code, Message: message})
}
