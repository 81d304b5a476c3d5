// Package label turns order lines into printable shipping label
// artifacts via an asynchronous create / poll / download state machine,
// with a synthesized placeholder artifact when the real one cannot be
// obtained.
package label

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Juan7731/bol.com/internal/models"
)

// State is the phase of one label acquisition.
type State string

const (
	StateCreating       State = "CREATING"
	StateAwaitingStatus State = "AWAITING_STATUS"
	StateSucceeded      State = "SUCCEEDED"
	StateFailed         State = "FAILED"
)

var pdfSignature = []byte("%PDF")

// Config bounds the acquirer's retry behavior.
type Config struct {
	PollInterval     time.Duration
	MaxPolls         int
	DownloadRetries  int
	DownloadInterval time.Duration
	Format           string
}

// DefaultConfig returns the production retry budget.
func DefaultConfig() Config {
	return Config{
		PollInterval:     2 * time.Second,
		MaxPolls:         10,
		DownloadRetries:  3,
		DownloadInterval: 2 * time.Second,
		Format:           "PDF",
	}
}

// Result is the outcome of acquiring one line's label. LabelID is the
// artifact identifier, or empty when no artifact could be produced; the
// caller records the line as processed either way.
type Result struct {
	LabelID     string
	State       State
	TrackingRef string
	Mock        bool
	Skipped     bool
}

// Acquirer drives the label acquisition state machine for single order
// lines. It is safe for sequential use within one run.
type Acquirer struct {
	provider Provider
	store    *Store
	cfg      Config
}

// NewAcquirer creates an acquirer over the given capability provider
// and artifact store.
func NewAcquirer(provider Provider, store *Store, cfg Config) *Acquirer {
	if cfg.MaxPolls <= 0 {
		cfg = DefaultConfig()
	}
	return &Acquirer{provider: provider, store: store, cfg: cfg}
}

// Acquire runs the state machine for one order line. It never returns
// an error: every failure mode degrades to either a placeholder
// artifact or an empty label identifier.
func (a *Acquirer) Acquire(ctx context.Context, orderID string, line models.OrderLine) Result {
	if skipped := a.checkEligibility(ctx, line); skipped {
		return Result{Skipped: true}
	}

	log.Info().
		Str("order_item_id", line.OrderItemID).
		Str("ean", line.EAN).
		Int("quantity", line.Quantity).
		Msg("Creating shipping label")

	created, err := a.provider.CreateShippingLabel(ctx, line.OrderItemID, line.Quantity)
	if err != nil {
		log.Error().Err(err).
			Str("order_item_id", line.OrderItemID).
			Msg("Failed to create shipping label")
		return Result{State: StateFailed}
	}

	// Inline payload bypasses the poll/download phases entirely.
	if len(created.InlineData) > 0 {
		return a.persist("inline_"+uuid.New().String(), Decode(created.InlineData), false)
	}

	labelID := created.LabelID

	if labelID == "" && created.ProcessStatusID != "" {
		id, terminal := a.awaitProcess(ctx, created.ProcessStatusID)
		if terminal {
			return Result{State: StateFailed}
		}
		labelID = id
	}

	if labelID != "" {
		if res, ok := a.download(ctx, labelID); ok {
			return res
		}
		return a.fallback(orderID, line.OrderItemID, labelID)
	}

	// Legacy synchronous path: the label only exists on the shipment.
	if created.ShipmentID != "" {
		shipmentLabelID := "shipment_" + created.ShipmentID
		data, err := a.provider.DownloadShipmentLabel(ctx, created.ShipmentID, a.cfg.Format)
		if err == nil {
			if decoded := Decode(data); bytes.HasPrefix(decoded, pdfSignature) {
				return a.persist(shipmentLabelID, decoded, false)
			}
		}
		return a.fallback(orderID, line.OrderItemID, shipmentLabelID)
	}

	// Poll budget exhausted without a handle: synthesize so the pipeline
	// never blocks on label unavailability.
	if created.ProcessStatusID != "" {
		return a.fallback(orderID, line.OrderItemID, "")
	}

	log.Error().
		Str("order_item_id", line.OrderItemID).
		Msg("Label creation returned no process, shipment or label handle")
	return Result{State: StateFailed}
}

// checkEligibility reports whether the line must be skipped. Lines
// explicitly tagged with a non-retailer fulfilment method are skipped
// without network calls; untagged lines are probed for delivery options.
func (a *Acquirer) checkEligibility(ctx context.Context, line models.OrderLine) bool {
	if line.FulfilmentMethod != "" {
		if line.FulfilmentMethod == models.FulfilmentFBR {
			return false
		}
		log.Warn().
			Str("order_item_id", line.OrderItemID).
			Str("fulfilment_method", line.FulfilmentMethod).
			Msg("Order line is not fulfilled by retailer, skipping label acquisition")
		return true
	}

	options, err := a.provider.DeliveryOptions(ctx, line.OrderItemID, line.Quantity)
	if err != nil {
		if errors.Is(err, ErrNotEligible) {
			log.Warn().
				Str("order_item_id", line.OrderItemID).
				Msg("No delivery options for order line, skipping label acquisition")
			return true
		}
		// Probe was inconclusive; attempt the label fetch anyway.
		log.Warn().Err(err).
			Str("order_item_id", line.OrderItemID).
			Msg("Delivery options probe failed, attempting label fetch anyway")
		return false
	}
	if len(options) == 0 {
		log.Warn().
			Str("order_item_id", line.OrderItemID).
			Msg("Empty delivery options for order line, skipping label acquisition")
		return true
	}
	return false
}

// awaitProcess polls the asynchronous creation process until it reports
// a label handle, a terminal failure, or the attempt budget runs out.
// Transient poll errors consume attempts from the same budget. Returns
// terminal=true only for an explicit failure status.
func (a *Acquirer) awaitProcess(ctx context.Context, processStatusID string) (labelID string, terminal bool) {
	for attempt := 1; attempt <= a.cfg.MaxPolls; attempt++ {
		if !wait(ctx, a.cfg.PollInterval) {
			// Stop requested: degrade to the fallback path so the line
			// still completes instead of stalling mid-acquisition.
			return "", false
		}

		status, err := a.provider.GetProcessStatus(ctx, processStatusID)
		if err != nil {
			log.Warn().Err(err).
				Str("process_status_id", processStatusID).
				Int("attempt", attempt).
				Msg("Process status poll failed")
			continue
		}

		log.Info().
			Str("process_status_id", processStatusID).
			Str("status", status.Status).
			Int("attempt", attempt).
			Int("max", a.cfg.MaxPolls).
			Msg("Polled label creation process")

		switch status.Status {
		case ProcessSuccess:
			return status.EntityID, false
		case ProcessFailure, ProcessTimeout, ProcessCancelled:
			log.Error().
				Str("process_status_id", processStatusID).
				Str("status", status.Status).
				Str("error", status.ErrorMessage).
				Msg("Label creation process failed")
			return "", true
		}
	}
	return "", false
}

// download fetches and persists the artifact for a label handle. A
// payload without the binary signature counts as not ready yet and is
// retried; a format rejection short-circuits to the fallback.
func (a *Acquirer) download(ctx context.Context, labelID string) (Result, bool) {
	for attempt := 1; attempt <= a.cfg.DownloadRetries; attempt++ {
		if attempt > 1 {
			if !wait(ctx, a.cfg.DownloadInterval) {
				break
			}
		}

		data, err := a.provider.DownloadLabel(ctx, labelID, a.cfg.Format)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFormat) {
				log.Info().
					Str("label_id", labelID).
					Msg("Label format unsupported in this environment, using fallback artifact")
				break
			}
			log.Info().Err(err).
				Str("label_id", labelID).
				Int("attempt", attempt).
				Int("max", a.cfg.DownloadRetries).
				Msg("Label download attempt failed")
			continue
		}

		decoded := Decode(data)
		if bytes.HasPrefix(decoded, pdfSignature) {
			res := a.persist(labelID, decoded, false)
			return res, res.State == StateSucceeded
		}

		log.Info().
			Str("label_id", labelID).
			Int("attempt", attempt).
			Msg("Downloaded data is not a label artifact yet")
	}
	return Result{}, false
}

// fallback synthesizes a placeholder artifact so the line never blocks
// the pipeline. The tracking reference carries a marker distinguishing
// it from production labels.
func (a *Acquirer) fallback(orderID, orderItemID, labelID string) Result {
	if labelID == "" {
		labelID = "mock_" + uuid.New().String()
	}
	ref := MockTrackingReference()
	artifact := MockArtifact(orderID, orderItemID, ref)

	log.Info().
		Str("order_item_id", orderItemID).
		Str("label_id", CleanID(labelID)).
		Str("tracking_ref", ref).
		Msg("Generated placeholder label artifact")

	res := a.persist(labelID, artifact, true)
	res.TrackingRef = ref
	return res
}

// persist stores the artifact and returns the line's label identifier.
func (a *Acquirer) persist(labelID string, data []byte, mock bool) Result {
	id, err := a.store.Save(labelID, data)
	if err != nil {
		log.Error().Err(err).Str("label_id", labelID).Msg("Failed to store label artifact")
		return Result{State: StateFailed}
	}
	return Result{LabelID: id, State: StateSucceeded, Mock: mock}
}

// wait sleeps for d unless the context is cancelled first. Returns false
// on cancellation.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
