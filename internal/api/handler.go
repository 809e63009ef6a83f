// Package api serves the price filter over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"movora/internal/filter"
	"movora/internal/logger"
	"movora/internal/schema"
	"movora/internal/store"
	"movora/internal/table"
)

// Loader reads a whole table.
type Loader interface {
	LoadTable(ctx context.Context, name string) (*table.Dataset, error)
}

// Handler answers vehicle queries from one stored table.
type Handler struct {
	loader      Loader
	table       string
	priceColumn string
	log         *slog.Logger
}

// NewHandler returns a Handler reading tableName, filtering on priceColumn.
func NewHandler(loader Loader, tableName, priceColumn string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{loader: loader, table: tableName, priceColumn: priceColumn, log: log}
}

// VehicleList is the body of GET /api/v1/vehicles.
type VehicleList struct {
	Count int              `json:"count"`
	Min   *float64         `json:"min,omitempty"`
	Max   *float64         `json:"max,omitempty"`
	Items []map[string]any `json:"items"`
}

// NewRouter wires the routes onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.log))
	r.GET("/health", h.Health)
	v1 := r.Group("/api/v1")
	{
		v1.GET("/vehicles", h.ListVehicles)
		v1.GET("/vehicles/price-options", h.PriceOptions)
	}
	return r
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListVehicles handles GET /api/v1/vehicles?min=&max=&limit=. Bounds are in
// Lakhs, inclusive, and default to unbounded.
func (h *Handler) ListVehicles(c *gin.Context) {
	lo, loSet, ok := h.floatParam(c, "min", math.Inf(-1))
	if !ok {
		return
	}
	hi, hiSet, ok := h.floatParam(c, "max", math.Inf(1))
	if !ok {
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			RespondWithError(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid limit parameter: not a non-negative integer.", gin.H{"limit": s})
			return
		}
		limit = n
	}
	if lo > hi {
		RespondWithError(c, http.StatusBadRequest, ErrorCodeValueOutOfRange, "min must not be greater than max.", gin.H{"min": lo, "max": hi})
		return
	}

	ds, ok := h.load(c)
	if !ok {
		return
	}
	matched, err := filter.ByPrice(ds, h.priceColumn, lo, hi)
	if err != nil {
		logger.WithError(h.log, err).Error("filter failed", "table", h.table)
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Failed to filter vehicles.", nil)
		return
	}

	body := VehicleList{Count: matched.Len(), Items: make([]map[string]any, 0, matched.Len())}
	if loSet {
		body.Min = &lo
	}
	if hiSet {
		body.Max = &hi
	}
	listing := filter.Listing(matched)
	priceCol, _ := schema.Lookup(matched, h.priceColumn)
	for i := range listing.Rows {
		if limit > 0 && i >= limit {
			break
		}
		item := make(map[string]any, len(listing.Columns)+2)
		for _, col := range listing.Columns {
			item[col] = jsonValue(listing.Get(i, col))
		}
		if v, ok := filter.Value(matched.Get(i, priceCol)); ok {
			item[h.priceColumn] = v
			item["price_display"] = filter.Display(v)
		}
		body.Items = append(body.Items, item)
	}
	c.JSON(http.StatusOK, body)
}

// PriceOptions handles GET /api/v1/vehicles/price-options.
func (h *Handler) PriceOptions(c *gin.Context) {
	ds, ok := h.load(c)
	if !ok {
		return
	}
	opts, err := filter.Options(ds, h.priceColumn)
	if err != nil {
		logger.WithError(h.log, err).Error("price options failed", "table", h.table)
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Failed to list price options.", nil)
		return
	}
	if opts == nil {
		opts = []float64{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(opts), "options": opts})
}

func (h *Handler) load(c *gin.Context) (*table.Dataset, bool) {
	ds, err := h.loader.LoadTable(c.Request.Context(), h.table)
	if err != nil {
		if errors.Is(err, store.ErrTableNotFound) {
			RespondWithError(c, http.StatusNotFound, ErrorCodeNotFound, "Vehicle table not found. Run the pipeline first.", gin.H{"table": h.table})
			return nil, false
		}
		logger.WithError(h.log, err).Error("load table failed", "table", h.table)
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Failed to load vehicles.", nil)
		return nil, false
	}
	return ds, true
}

func (h *Handler) floatParam(c *gin.Context, name string, def float64) (float64, bool, bool) {
	s := c.Query(name)
	if s == "" {
		return def, false, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		RespondWithError(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid "+name+" parameter: not a number.", gin.H{name: s})
		return 0, false, false
	}
	return f, true, true
}

// RespondWithError sends a standardized JSON error response.
func RespondWithError(c *gin.Context, httpStatus int, appErrorCode string, message string, details interface{}) {
	c.JSON(httpStatus, APIError{Code: appErrorCode, Message: message, Details: details})
}

func jsonValue(v table.Value) any {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindText:
		return v.String()
	default:
		return nil
	}
}
