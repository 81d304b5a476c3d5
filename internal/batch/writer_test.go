package batch

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Juan7731/bol.com/internal/label"
	"github.com/Juan7731/bol.com/internal/ledger"
	"github.com/Juan7731/bol.com/internal/models"

	"github.com/stretchr/testify/require"
)

// fakeAcquirer returns a deterministic label handle per line.
type fakeAcquirer struct {
	calls int
}

func (f *fakeAcquirer) Acquire(ctx context.Context, orderID string, line models.OrderLine) label.Result {
	f.calls++
	return label.Result{LabelID: "label-" + line.OrderItemID, State: label.StateSucceeded}
}

func testOrders() map[models.Category][]models.Order {
	placed := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return map[models.Category][]models.Order{
		models.CategorySingle: {{
			OrderID:             "1043946570",
			OrderPlacedDateTime: &placed,
			Status:              "OPEN",
			Lines:               []models.OrderLine{{OrderItemID: "A-1", EAN: "8718526069334", Quantity: 1, FulfilmentMethod: models.FulfilmentFBR}},
		}},
		models.CategorySingleLine: {{
			OrderID: "1043946571",
			Lines:   []models.OrderLine{{OrderItemID: "B-1", EAN: "8718526069341", Quantity: 3, FulfilmentMethod: models.FulfilmentFBR}},
		}},
		models.CategoryMulti: {{
			OrderID: "1043946572",
			Lines: []models.OrderLine{
				{OrderItemID: "C-1", EAN: "8718526069334", Quantity: 1, FulfilmentMethod: models.FulfilmentFBR},
				{OrderItemID: "C-2", EAN: "8718526069341", Quantity: 2, FulfilmentMethod: models.FulfilmentFBR},
			},
		}},
	}
}

func openTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	ldg, err := ledger.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ldg.Close() })
	return ldg
}

func TestWriteBatchesOneFilePerCategory(t *testing.T) {
	dir := t.TempDir()
	ldg := openTestLedger(t)
	w := NewWriter(ldg, &fakeAcquirer{}, dir, "csv", "Trivium")

	res, err := w.WriteBatches(context.Background(), testOrders())
	require.NoError(t, err)

	require.Equal(t, "001", res.BatchNumber)
	require.Equal(t, 3, res.TotalOrders)
	require.Len(t, res.Files, 3)
	require.Equal(t, filepath.Join(dir, "S-001.csv"), res.Files[0])
	require.Equal(t, filepath.Join(dir, "SL-001.csv"), res.Files[1])
	require.Equal(t, filepath.Join(dir, "M-001.csv"), res.Files[2])

	count, err := ldg.CountProcessed(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), count)
}

func TestWriteBatchesRowContent(t *testing.T) {
	dir := t.TempDir()
	ldg := openTestLedger(t)
	w := NewWriter(ldg, &fakeAcquirer{}, dir, "csv", "Trivium")

	_, err := w.WriteBatches(context.Background(), testOrders())
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "S-001.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, []string{
		"Order ID", "Shop", "MP EAN", "Quantity", "Shipping Label",
		"Order Time", "Batch Type", "Batch Number", "Order Status",
	}, records[0])
	require.Equal(t, []string{
		"1043946570", "Trivium", "8718526069334", "1", "label-A-1",
		"2025-03-14 09:30:00", "Single", "S-001", "open",
	}, records[1])
}

func TestWriteBatchesSharedNumberIncrementsNextRun(t *testing.T) {
	dir := t.TempDir()
	ldg := openTestLedger(t)

	w := NewWriter(ldg, &fakeAcquirer{}, dir, "csv", "Trivium")
	_, err := w.WriteBatches(context.Background(), testOrders())
	require.NoError(t, err)

	// A later run the same day continues the sequence.
	later := map[models.Category][]models.Order{
		models.CategorySingle: {{
			OrderID: "1043946580",
			Lines:   []models.OrderLine{{OrderItemID: "D-1", EAN: "8718526069358", Quantity: 1}},
		}},
	}
	res, err := w.WriteBatches(context.Background(), later)
	require.NoError(t, err)
	require.Equal(t, "002", res.BatchNumber)
	require.Equal(t, filepath.Join(dir, "S-002.csv"), res.Files[0])
}

func TestWriteBatchesSkipsEmptyCategories(t *testing.T) {
	dir := t.TempDir()
	ldg := openTestLedger(t)
	w := NewWriter(ldg, &fakeAcquirer{}, dir, "csv", "Trivium")

	groups := map[models.Category][]models.Order{
		models.CategorySingle: {{
			OrderID: "1043946570",
			Lines:   []models.OrderLine{{OrderItemID: "A-1", EAN: "8718526069334", Quantity: 1}},
		}},
	}
	res, err := w.WriteBatches(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	_, err = os.Stat(filepath.Join(dir, "SL-001.csv"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "M-001.csv"))
	require.True(t, os.IsNotExist(err))
}

func TestWriteBatchesStopFinishesCurrentFile(t *testing.T) {
	dir := t.TempDir()
	ldg := openTestLedger(t)

	ctx, cancel := context.WithCancel(context.Background())
	acq := &cancelingAcquirer{cancel: cancel, after: 1}
	w := NewWriter(ldg, acq, dir, "csv", "Trivium")

	res, err := w.WriteBatches(ctx, testOrders())
	require.NoError(t, err)
	require.True(t, res.Stopped)

	// The first category file holds the row acquired before the stop.
	require.Len(t, res.Files, 1)
	require.Equal(t, filepath.Join(dir, "S-001.csv"), res.Files[0])

	// The ledger mark for the in-flight row lands despite the cancelled
	// context, keeping the file and the ledger consistent.
	processed, err := ldg.IsProcessed(context.Background(), "1043946570", "A-1")
	require.NoError(t, err)
	require.True(t, processed)

	count, err := ldg.CountProcessed(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

// cancelingAcquirer cancels the run after a fixed number of acquisitions.
type cancelingAcquirer struct {
	cancel context.CancelFunc
	after  int
	calls  int
}

func (c *cancelingAcquirer) Acquire(ctx context.Context, orderID string, line models.OrderLine) label.Result {
	c.calls++
	if c.calls >= c.after {
		c.cancel()
	}
	return label.Result{LabelID: "label-" + line.OrderItemID, State: label.StateSucceeded}
}
