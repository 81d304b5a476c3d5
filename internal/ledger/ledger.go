package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Juan7731/bol.com/internal/models"
)

// Ledger is the durable store of processed (order, line) pairs and the
// sole source of idempotency truth for the pipeline. It assumes a single
// writer process; concurrent runs must be serialized externally.
type Ledger struct {
	db *gorm.DB
}

// Open opens (and migrates) the ledger database at the given path.
func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ledger database")
	}

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run ledger migrations")
	}

	return &Ledger{db: db}, nil
}

// New wraps an existing gorm connection. Used by tests and transactions.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Transaction runs fn against a transactional view of the ledger. All
// marks made through the view commit together when fn returns nil and
// roll back otherwise, keeping ledger state consistent with the batch
// files emitted inside fn.
func (l *Ledger) Transaction(fn func(tx *Ledger) error) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Ledger{db: tx})
	})
}

// IsProcessed reports whether an order line has been processed. With an
// empty orderItemID it reports order-level state: true if any line of
// the order was recorded.
func (l *Ledger) IsProcessed(ctx context.Context, orderID, orderItemID string) (bool, error) {
	var count int64
	q := l.db.WithContext(ctx).Model(&models.ProcessedOrder{}).Where("order_id = ?", orderID)
	if orderItemID != "" {
		q = q.Where("order_item_id = ?", orderItemID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check processed state")
	}
	return count > 0, nil
}

// MarkProcessed records an order line as placed into a batch. The upsert
// is idempotent: an existing (order id, line id) pair keeps its processed
// state and only has its batch metadata overwritten.
func (l *Ledger) MarkProcessed(ctx context.Context, orderID, orderItemID, batchNumber string, category models.Category) error {
	record := models.ProcessedOrder{
		OrderID:     orderID,
		OrderItemID: orderItemID,
		BatchNumber: batchNumber,
		BatchType:   string(category),
		ProcessedAt: time.Now(),
	}

	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "order_item_id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	if err != nil {
		return errors.Wrap(err, "failed to mark order line processed")
	}
	return nil
}

// UnprocessedOf returns the subset of order ids that have no processed
// lines recorded, preserving input order. Orders with any recorded line
// are filtered out so partially handled orders are never re-emitted.
func (l *Ledger) UnprocessedOf(ctx context.Context, orderIDs []string) ([]string, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	var processed []string
	err := l.db.WithContext(ctx).
		Model(&models.ProcessedOrder{}).
		Distinct("order_id").
		Where("order_id IN ?", orderIDs).
		Pluck("order_id", &processed).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query processed orders")
	}

	seen := make(map[string]struct{}, len(processed))
	for _, id := range processed {
		seen[id] = struct{}{}
	}

	unprocessed := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		if _, ok := seen[id]; !ok {
			unprocessed = append(unprocessed, id)
		}
	}
	return unprocessed, nil
}

// CountProcessed returns the total number of processed order lines.
func (l *Ledger) CountProcessed(ctx context.Context) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.ProcessedOrder{}).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count processed orders")
	}
	return count, nil
}

// SummaryByCategory returns processed line counts grouped by batch type.
func (l *Ledger) SummaryByCategory(ctx context.Context) (map[models.Category]int64, error) {
	var rows []struct {
		BatchType string
		Count     int64
	}
	err := l.db.WithContext(ctx).
		Model(&models.ProcessedOrder{}).
		Select("batch_type, COUNT(*) as count").
		Group("batch_type").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize processed orders")
	}

	summary := make(map[models.Category]int64, len(rows))
	for _, row := range rows {
		summary[models.Category(row.BatchType)] = row.Count
	}
	return summary, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
