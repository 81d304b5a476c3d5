package api

import (
	"net/http"

	"github.com/Juan7731/bol.com/internal/ledger"
	"github.com/Juan7731/bol.com/internal/metrics"
	"github.com/Juan7731/bol.com/internal/tracing"

	"github.com/gin-gonic/gin"
)

type handler struct {
	ldg     *ledger.Ledger
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

func newHandler(ldg *ledger.Ledger, m *metrics.Metrics, tracer tracing.Tracer) *handler {
	return &handler{ldg: ldg, metrics: m, tracer: tracer}
}

// health returns the aggregated component health status.
func (h *handler) health(c *gin.Context) {
	checks := h.metrics.GetHealthChecks()

	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":  healthy,
		"details": checks,
	})
}

// getMetrics returns all collected metrics.
func (h *handler) getMetrics(c *gin.Context) {
	txn := h.tracer.StartTransaction("get-metrics")
	defer h.tracer.EndTransaction(txn)

	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// ledgerSummary returns processed-line counts grouped by batch type.
func (h *handler) ledgerSummary(c *gin.Context) {
	txn := h.tracer.StartTransaction("ledger-summary")
	defer h.tracer.EndTransaction(txn)

	summary, err := h.ldg.SummaryByCategory(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ledgerCount returns the total number of processed order lines.
func (h *handler) ledgerCount(c *gin.Context) {
	txn := h.tracer.StartTransaction("ledger-count")
	defer h.tracer.EndTransaction(txn)

	count, err := h.ldg.CountProcessed(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed_lines": count})
}
