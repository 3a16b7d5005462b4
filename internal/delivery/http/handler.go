package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pricesheet/worker/internal/domain"
	"github.com/pricesheet/worker/internal/usecase"
)

// OfferService is the part of the price service the handlers need
type OfferService interface {
	SearchOffers(ctx context.Context, productName string) (*usecase.SearchResult, error)
	RefreshSheet(ctx context.Context) (*usecase.RunReport, error)
	LatestSnapshot(ctx context.Context, productName string) (*domain.Snapshot, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service OfferService
}

// NewHandler creates a new HTTP handler. service may be nil, in which case
// the offer endpoints answer 503.
func NewHandler(service OfferService) *Handler {
	return &Handler{service: service}
}

// SearchRequest is the body of POST /api/v1/offers/search
type SearchRequest struct {
	ProductName string `json:"productName"`
}

// SearchResponse is the body returned by the offer search
type SearchResponse struct {
	Query         string         `json:"query"`
	Offers        []domain.Offer `json:"offers"`
	TotalAccepted int            `json:"totalAccepted"`
	Total         int            `json:"total"`
	Rejected      map[string]int `json:"rejected"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricesheet-worker",
		"version": "1.0.0",
	})
}

// SearchOffers handles offer search requests for a single product name
func (h *Handler) SearchOffers(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "offer search not configured"})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.SearchOffers(c.Request.Context(), req.ProductName)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSearchResponse(result))
}

// RefreshSheet runs one refresh pass over the whole sheet
func (h *Handler) RefreshSheet(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sheet refresh not configured"})
		return
	}

	report, err := h.service.RefreshSheet(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	if report.Failures == nil {
		report.Failures = []usecase.ProductFailure{}
	}
	c.JSON(http.StatusOK, report)
}

// OfferHistory returns the last offers recorded for ?productName=
func (h *Handler) OfferHistory(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "offer history not configured"})
		return
	}

	snapshot, err := h.service.LatestSnapshot(c.Request.Context(), c.Query("productName"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if snapshot.Offers == nil {
		snapshot.Offers = []domain.Offer{}
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": message})
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "productName is required"
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound, "no offers recorded for this product"
	case errors.Is(err, domain.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable, "offer history not configured"
	case errors.Is(err, domain.ErrRefreshInProgress):
		return http.StatusConflict, "a refresh is already running"
	case errors.Is(err, domain.ErrProviderFailure):
		return http.StatusBadGateway, "shopping results temporarily unavailable"
	case errors.Is(err, domain.ErrSourceFailure),
		errors.Is(err, domain.ErrSinkFailure),
		errors.Is(err, domain.ErrSheetsAPIFailure):
		return http.StatusBadGateway, "spreadsheet temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func toSearchResponse(result *usecase.SearchResult) SearchResponse {
	offers := result.Offers
	if offers == nil {
		offers = []domain.Offer{}
	}

	rejected := make(map[string]int, len(result.Report.Rejected))
	for reason, count := range result.Report.Rejected {
		rejected[string(reason)] = count
	}

	return SearchResponse{
		Query:         result.Query,
		Offers:        offers,
		TotalAccepted: result.TotalAccepted,
		Total:         result.Report.Total,
		Rejected:      rejected,
	}
}
