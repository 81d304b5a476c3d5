package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Juan7731/bol.com/internal/models"

	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ldg, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ldg.Close() })
	return ldg
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	ldg := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ldg.MarkProcessed(ctx, "1043946570", "6042823871", "001", models.CategorySingle))
	require.NoError(t, ldg.MarkProcessed(ctx, "1043946570", "6042823871", "002", models.CategorySingle))

	count, err := ldg.CountProcessed(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestIsProcessedLineAndOrderLevel(t *testing.T) {
	ldg := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ldg.MarkProcessed(ctx, "1043946570", "6042823871", "001", models.CategoryMulti))

	done, err := ldg.IsProcessed(ctx, "1043946570", "6042823871")
	require.NoError(t, err)
	require.True(t, done)

	done, err = ldg.IsProcessed(ctx, "1043946570", "6042823872")
	require.NoError(t, err)
	require.False(t, done)

	// Empty line id asks about the order as a whole.
	done, err = ldg.IsProcessed(ctx, "1043946570", "")
	require.NoError(t, err)
	require.True(t, done)

	done, err = ldg.IsProcessed(ctx, "9999999999", "")
	require.NoError(t, err)
	require.False(t, done)
}

func TestUnprocessedOfPreservesOrder(t *testing.T) {
	ldg := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ldg.MarkProcessed(ctx, "B", "B-1", "001", models.CategorySingle))

	got, err := ldg.UnprocessedOf(ctx, []string{"C", "B", "A"})
	require.NoError(t, err)
	require.Equal(t, []string{"C", "A"}, got)
}

func TestUnprocessedOfEmptyInput(t *testing.T) {
	ldg := openTestLedger(t)

	got, err := ldg.UnprocessedOf(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ldg := openTestLedger(t)
	ctx := context.Background()

	err := ldg.Transaction(func(tx *Ledger) error {
		if err := tx.MarkProcessed(ctx, "1043946570", "6042823871", "001", models.CategorySingle); err != nil {
			return err
		}
		return context.Canceled
	})
	require.Error(t, err)

	count, err := ldg.CountProcessed(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSummaryByCategory(t *testing.T) {
	ldg := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ldg.MarkProcessed(ctx, "A", "A-1", "001", models.CategorySingle))
	require.NoError(t, ldg.MarkProcessed(ctx, "B", "B-1", "001", models.CategorySingle))
	require.NoError(t, ldg.MarkProcessed(ctx, "C", "C-1", "001", models.CategoryMulti))

	summary, err := ldg.SummaryByCategory(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), summary[models.CategorySingle])
	require.Equal(t, int64(1), summary[models.CategoryMulti])
}
