package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/repository"
)

const defaultHistoryLimit = 50

// TransportLister reports the configured transport names in fallback order.
type TransportLister interface {
	Names() []string
}

// RecordSource exposes the in-memory delivery records.
type RecordSource interface {
	List() []entity.EmailRecord
	Stats() repository.RecordStats
}

// HistoryReader reads the durable email history.
type HistoryReader interface {
	ListRecent(ctx context.Context, limit int) ([]entity.EmailRecord, error)
}

type HealthResponse struct {
	Status     string                 `json:"status"`
	Transports []string               `json:"transports"`
	Records    repository.RecordStats `json:"records"`
}

type SystemController struct {
	transports TransportLister
	records    RecordSource
	history    HistoryReader
}

// NewSystemController constructs the health and records controller. history may be nil.
func NewSystemController(transports TransportLister, records RecordSource, history HistoryReader) *SystemController {
	return &SystemController{transports: transports, records: records, history: history}
}

// Health handles GET /health.
func (c *SystemController) Health(ctx echo.Context) error {
	transports := c.transports.Names()
	if transports == nil {
		transports = []string{}
	}
	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Transports: transports,
		Records:    c.records.Stats(),
	})
}

// Records handles GET /api/email/records, oldest first.
func (c *SystemController) Records(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"records": c.records.List(),
	})
}

// History handles GET /api/email/history, newest first.
func (c *SystemController) History(ctx echo.Context) error {
	if c.history == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "email history is not enabled"})
	}

	limit := defaultHistoryLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
		}
		limit = n
	}

	records, err := c.history.ListRecent(ctx.Request().Context(), limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load email history"})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"records": records})
}
