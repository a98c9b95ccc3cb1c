package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
	"github.com/hypervisual/fincore/internal/money"
	"github.com/hypervisual/fincore/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	pipeline Pipeline
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(pipeline Pipeline, logger *zap.Logger) *Handlers {
	return &Handlers{pipeline: pipeline, logger: logger}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ClassifyRequest is the input of /classify and /extract.
type ClassifyRequest struct {
	Text             string  `json:"text" binding:"required"`
	SourceConfidence float64 `json:"source_confidence"`
	DeclaredType     string  `json:"declared_type"`
}

func (r *ClassifyRequest) document() models.RawDocument {
	return models.RawDocument{
		Text:             utils.SanitizeString(r.Text),
		SourceConfidence: r.SourceConfidence,
		DeclaredType:     models.DocType(r.DeclaredType),
	}
}

// Classify handles POST /api/v1/classify
func (h *Handlers) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ok(c, h.pipeline.Classifier.Classify(req.document()))
}

// ExtractResponse carries an extraction plus its review-queue position,
// if the document was parked.
type ExtractResponse struct {
	Invoice  models.ExtractedInvoice `json:"invoice"`
	QueuedID *int64                  `json:"queued_id,omitempty"`
}

// Extract handles POST /api/v1/extract: classify, extract, and park the
// result for review when confidence is too low.
func (h *Handlers) Extract(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	classified := h.pipeline.Classifier.Classify(req.document())
	invoice := h.pipeline.Extractor.Extract(classified)

	resp := ExtractResponse{Invoice: invoice}
	if h.pipeline.Store != nil && invoice.ExtractionConfidence < h.pipeline.MinConfidence {
		id, err := h.pipeline.Store.QueueExtraction(c.Request.Context(), invoice)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		resp.QueuedID = &id
	}
	ok(c, resp)
}

// MatchRequest is a stateless reconciliation request.
type MatchRequest struct {
	Transactions []models.BankTransaction `json:"transactions" binding:"required"`
	Invoices     []models.OpenInvoice     `json:"invoices" binding:"required"`
}

// Match handles POST /api/v1/match: score and allocate without touching
// the ledger.
func (h *Handlers) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	for _, inv := range req.Invoices {
		if err := utils.ValidateAmount(inv.Amount); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := utils.ValidateCurrency(inv.Currency); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	ok(c, h.pipeline.Matcher.Run(req.Transactions, req.Invoices))
}

// Reconcile handles POST /api/v1/reconcile: run the matcher over the
// ledger and apply the commits.
func (h *Handlers) Reconcile(c *gin.Context) {
	if h.pipeline.Store == nil {
		fail(c, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	ctx := c.Request.Context()

	txs, err := h.pipeline.Store.Transactions(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	invoices, err := h.pipeline.Store.OpenInvoices(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	result := h.pipeline.Matcher.Run(txs, invoices)
	applied, err := h.pipeline.Store.ApplyCommits(ctx, result.Commits)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, gin.H{"result": result, "applied": applied})
}

// SuggestRequest is the input of /suggest.
type SuggestRequest struct {
	Description string `json:"description" binding:"required"`
}

// Suggest handles POST /api/v1/suggest
func (h *Handlers) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ok(c, h.pipeline.Suggester.Suggest(req.Description))
}

// VATRequest computes a VAT breakdown from either a net or a gross
// amount. Exactly one of the two must be set.
type VATRequest struct {
	Net       float64 `json:"net"`
	Gross     float64 `json:"gross"`
	RateClass string  `json:"rate_class" binding:"required"`
}

// VAT handles POST /api/v1/vat
func (h *Handlers) VAT(c *gin.Context) {
	var req VATRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Net > 0) == (req.Gross > 0) {
		fail(c, http.StatusBadRequest, "exactly one of net or gross must be positive")
		return
	}

	var breakdown money.Breakdown
	var err error
	if req.Net > 0 {
		breakdown, err = money.VATFromNet(req.Net, money.RateClass(req.RateClass))
	} else {
		breakdown, err = money.VATFromGross(req.Gross, money.RateClass(req.RateClass))
	}
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ok(c, breakdown)
}

// ReferenceRequest is the input of /reference/validate.
type ReferenceRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// ValidateReference handles POST /api/v1/reference/validate
func (h *Handlers) ValidateReference(c *gin.Context) {
	var req ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ok(c, gin.H{
		"reference": req.Reference,
		"valid":     money.ValidateReference(req.Reference),
	})
}

// ListReviewQueue handles GET /api/v1/review
func (h *Handlers) ListReviewQueue(c *gin.Context) {
	if h.pipeline.Store == nil {
		fail(c, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	pending, err := h.pipeline.Store.PendingExtractions(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, pending)
}

// ReviewRequest is the reviewer's verdict.
type ReviewRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReviewExtraction handles POST /api/v1/review/:id
func (h *Handlers) ReviewExtraction(c *gin.Context) {
	if h.pipeline.Store == nil {
		fail(c, http.StatusServiceUnavailable, "ledger not configured")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid extraction id")
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.pipeline.Store.ReviewExtraction(c.Request.Context(), id, models.ReviewStatus(req.Status)); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ok(c, gin.H{"id": id, "status": req.Status})
}
