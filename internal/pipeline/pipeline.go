// Package pipeline orchestrates one processing run: fetch open orders,
// filter against the ledger, classify, generate batch files with shipping
// labels, publish the artifacts and send the summary notification.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Juan7731/bol.com/config"
	"github.com/Juan7731/bol.com/internal/batch"
	"github.com/Juan7731/bol.com/internal/bol"
	"github.com/Juan7731/bol.com/internal/cache"
	"github.com/Juan7731/bol.com/internal/classifier"
	"github.com/Juan7731/bol.com/internal/label"
	"github.com/Juan7731/bol.com/internal/ledger"
	"github.com/Juan7731/bol.com/internal/metrics"
	"github.com/Juan7731/bol.com/internal/models"
	"github.com/Juan7731/bol.com/internal/publish"
	"github.com/Juan7731/bol.com/internal/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OrderFetcher retrieves the open orders for one retailer account.
type OrderFetcher interface {
	GetAllOpenOrders(ctx context.Context) ([]models.Order, error)
}

// Pipeline wires the processing stages together. One Pipeline serves all
// configured accounts; per-account state lives in the bol.Client.
type Pipeline struct {
	cfg     config.Config
	ldg     *ledger.Ledger
	store   *label.Store
	pub     *publish.Publisher
	mailer  notifySender
	tracer  tracing.Tracer
	metrics *metrics.Metrics

	// newFetcher exists so tests can substitute fakes for the API client.
	newFetcher func(account config.AccountConfig) (OrderFetcher, label.Provider)
}

type notifySender interface {
	SendSummary(totalOrders int, filePaths []string) error
}

// RunSummary aggregates the outcome of one processing run across accounts.
type RunSummary struct {
	TotalOrders int
	Files       []string
	MockLabels  int
	EmptyLabels int
	Accounts    int
}

// New constructs a Pipeline from loaded configuration and shared
// infrastructure.
func New(cfg config.Config, ldg *ledger.Ledger, store *label.Store, tracer tracing.Tracer, m *metrics.Metrics, tokenCache *cache.RedisCache, mailer notifySender) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		ldg:     ldg,
		store:   store,
		pub:     publish.NewPublisher(cfg.SFTP),
		mailer:  mailer,
		tracer:  tracer,
		metrics: m,
	}
	p.newFetcher = func(account config.AccountConfig) (OrderFetcher, label.Provider) {
		client := bol.NewClient(account, tokenCache)
		return client, client
	}
	return p
}

// SelectAccount restricts the pipeline to the named account.
func (p *Pipeline) SelectAccount(name string) error {
	for _, a := range p.cfg.Accounts {
		if a.Name == name {
			p.cfg.Accounts = []config.AccountConfig{a}
			return nil
		}
	}
	return errors.Errorf("unknown account %q", name)
}

// Run executes one processing cycle for every configured account, then
// publishes the generated artifacts and sends the summary notification.
// Publish and notify failures are logged but do not fail the run.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	txn := p.tracer.StartTransaction("process-orders")
	defer p.tracer.EndTransaction(txn)

	start := time.Now()
	summary := &RunSummary{}

	for _, account := range p.cfg.Accounts {
		if account.ClientID == "" {
			log.Warn().Str("account", account.Name).Msg("Skipping account without credentials")
			continue
		}
		res, err := p.runAccount(ctx, account)
		if err != nil {
			p.tracer.RecordError(txn, err)
			p.metrics.IncrementCounter(metrics.CounterRunFailures)
			p.metrics.SetHealth("retailer_api", false)
			log.Error().Err(err).Str("account", account.Name).Msg("Account run failed")
			continue
		}
		p.metrics.SetHealth("retailer_api", true)
		summary.TotalOrders += res.TotalOrders
		summary.Files = append(summary.Files, res.Files...)
		summary.MockLabels += res.MockLabels
		summary.EmptyLabels += res.EmptyLabels
		summary.Accounts++
	}

	p.metrics.RecordTimer("pipeline_run", time.Since(start))
	p.metrics.IncrementCounterBy(metrics.CounterOrdersProcessed, int64(summary.TotalOrders))
	p.metrics.IncrementCounterBy(metrics.CounterFilesWritten, int64(len(summary.Files)))
	p.metrics.IncrementCounterBy(metrics.CounterLabelsMock, int64(summary.MockLabels))
	p.metrics.IncrementCounterBy(metrics.CounterLabelsEmpty, int64(summary.EmptyLabels))
	p.tracer.AddAttribute(txn, "orders.processed", summary.TotalOrders)
	p.tracer.AddAttribute(txn, "files.written", len(summary.Files))

	if len(summary.Files) > 0 {
		p.publishArtifacts(summary)
	}
	// The summary mail goes out whenever at least one account completed,
	// including runs that produced no files.
	if summary.Accounts > 0 {
		p.notify(summary)
	}

	log.Info().
		Int("accounts", summary.Accounts).
		Int("orders", summary.TotalOrders).
		Int("files", len(summary.Files)).
		Int("mock_labels", summary.MockLabels).
		Int("empty_labels", summary.EmptyLabels).
		Dur("duration", time.Since(start)).
		Msg("Processing run finished")

	return summary, nil
}

// runAccount fetches, filters and writes batch files for one account.
// Ledger marks and file writes commit together: the batch writer runs
// inside a ledger transaction so a failed write leaves no marks behind.
func (p *Pipeline) runAccount(ctx context.Context, account config.AccountConfig) (*batch.Result, error) {
	txn := p.tracer.StartTransaction(fmt.Sprintf("process-account-%s", account.Name))
	defer p.tracer.EndTransaction(txn)

	fetcher, provider := p.newFetcher(account)

	fetchSpan := p.tracer.StartSpan("fetch-open-orders", txn)
	orders, err := fetcher.GetAllOpenOrders(ctx)
	fetchSpan.End()
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch open orders")
	}
	log.Info().Str("account", account.Name).Int("orders", len(orders)).Msg("Fetched open orders")

	orders, err = p.filterProcessed(ctx, orders)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		log.Info().Str("account", account.Name).Msg("No new orders to process")
		return &batch.Result{}, nil
	}

	groups := classifier.Classify(orders)

	acquirer := label.NewAcquirer(provider, p.store, label.Config{
		PollInterval:     p.cfg.Label.PollInterval,
		MaxPolls:         p.cfg.Label.MaxPolls,
		DownloadRetries:  p.cfg.Label.DownloadRetries,
		DownloadInterval: p.cfg.Label.DownloadInterval,
		Format:           p.cfg.Label.Format,
	})

	dayDir, err := batch.DayDir(p.cfg.Batch.Dir, time.Now())
	if err != nil {
		return nil, err
	}

	writeSpan := p.tracer.StartSpan("write-batches", txn)
	defer writeSpan.End()

	var res *batch.Result
	err = p.ldg.Transaction(func(tx *ledger.Ledger) error {
		w := batch.NewWriter(tx, acquirer, dayDir, p.cfg.Batch.Format, account.Shop)
		var werr error
		res, werr = w.WriteBatches(ctx, groups)
		return werr
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to write batch files")
	}

	realLabels := res.TotalRows - res.MockLabels - res.EmptyLabels
	if realLabels > 0 {
		p.metrics.IncrementCounterBy(metrics.CounterLabelsReal, int64(realLabels))
	}
	return res, nil
}

// filterProcessed drops every order with at least one line already in
// the ledger. A partially-processed order is treated as handled by the
// earlier run and is not re-emitted.
func (p *Pipeline) filterProcessed(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	unprocessed, err := p.ldg.UnprocessedOf(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check processed orders")
	}
	keep := make(map[string]struct{}, len(unprocessed))
	for _, id := range unprocessed {
		keep[id] = struct{}{}
	}
	filtered := orders[:0]
	for _, o := range orders {
		if _, ok := keep[o.OrderID]; ok {
			filtered = append(filtered, o)
		}
	}
	log.Debug().Int("kept", len(filtered)).Int("seen", len(orders)-len(filtered)).Msg("Filtered against ledger")
	return filtered, nil
}

func (p *Pipeline) publishArtifacts(summary *RunSummary) {
	if !p.cfg.SFTP.Enabled {
		return
	}

	if _, err := p.pub.PublishBatches(summary.Files); err != nil {
		p.metrics.IncrementCounter(metrics.CounterPublishFailures)
		log.Error().Err(err).Msg("Batch file upload failed, files remain available locally")
	}

	labels, err := p.store.List()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list label files for upload")
		return
	}
	if _, err := p.pub.PublishLabels(labels); err != nil {
		p.metrics.IncrementCounter(metrics.CounterPublishFailures)
		log.Error().Err(err).Msg("Label upload failed, files remain available locally")
	}
}

func (p *Pipeline) notify(summary *RunSummary) {
	if p.mailer == nil {
		return
	}
	if err := p.mailer.SendSummary(summary.TotalOrders, summary.Files); err != nil {
		p.metrics.IncrementCounter(metrics.CounterNotifyFailures)
		log.Error().Err(err).Msg("Summary notification failed")
	}
}
