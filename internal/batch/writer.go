// Package batch assembles classified orders into category-scoped batch
// files with a per-day shared sequence number.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"

	"github.com/Juan7731/bol.com/internal/label"
	"github.com/Juan7731/bol.com/internal/ledger"
	"github.com/Juan7731/bol.com/internal/models"
)

// orderTimeLayout is the Order Time column format.
const orderTimeLayout = "2006-01-02 15:04:05"

// Row is one output line of a batch file. The header names and column
// order are a fixed contract with the downstream consumer; do not
// change them.
type Row struct {
	OrderID       string `csv:"Order ID"`
	Shop          string `csv:"Shop"`
	EAN           string `csv:"MP EAN"`
	Quantity      int    `csv:"Quantity"`
	ShippingLabel string `csv:"Shipping Label"`
	OrderTime     string `csv:"Order Time"`
	BatchType     string `csv:"Batch Type"`
	BatchNumber   string `csv:"Batch Number"`
	OrderStatus   string `csv:"Order Status"`
}

// Acquirer obtains a label artifact identifier for one order line.
type Acquirer interface {
	Acquire(ctx context.Context, orderID string, line models.OrderLine) label.Result
}

// Writer emits batch files for classified orders and records each
// written line in the ledger. The ledger view is expected to be
// transactional so marks only commit once every file is durably
// written.
type Writer struct {
	ledger   *ledger.Ledger
	acquirer Acquirer
	dir      string
	format   string
	shop     string
}

// NewWriter creates a batch writer emitting into the day directory dir.
// Format is "csv" or "xlsx"; shop is the shop name stamped on every row.
func NewWriter(ldg *ledger.Ledger, acquirer Acquirer, dir, format, shop string) *Writer {
	if format != "xlsx" {
		format = "csv"
	}
	return &Writer{ledger: ldg, acquirer: acquirer, dir: dir, format: format, shop: shop}
}

// Result summarizes one writer run.
type Result struct {
	Files       []string
	BatchNumber string
	TotalOrders int
	TotalRows   int
	MockLabels  int
	EmptyLabels int
	Stopped     bool
}

// WriteBatches writes one file per non-empty category in the fixed
// order Single, SingleLine, Multi. The sequence number is computed once
// and shared by every file of the run. On a stop request the rows
// already in memory for the current category are still written and
// marked, and remaining categories are skipped.
func (w *Writer) WriteBatches(ctx context.Context, groups map[models.Category][]models.Order) (*Result, error) {
	batchNumber, err := NextNumber(w.dir)
	if err != nil {
		return nil, err
	}
	log.Info().Str("batch_number", batchNumber).Msg("Using batch number for this processing run")

	res := &Result{BatchNumber: batchNumber}

	for _, category := range models.Categories {
		orders := groups[category]
		if len(orders) == 0 {
			continue
		}
		if res.Stopped {
			break
		}

		count, err := w.writeCategory(ctx, category, batchNumber, orders, res)
		if err != nil {
			return nil, err
		}
		res.TotalOrders += count
	}

	return res, nil
}

// writeCategory builds the rows for one category file, acquiring a
// label per eligible line and marking each line processed as its row is
// added, then writes the file. Returns the number of orders that
// contributed rows.
func (w *Writer) writeCategory(ctx context.Context, category models.Category, batchNumber string, orders []models.Order, res *Result) (int, error) {
	prefix := category.Prefix()
	stem := prefix + "-" + batchNumber
	path := filepath.Join(w.dir, stem+"."+w.format)

	rows := make([]*Row, 0, len(orders))
	ordersWritten := 0

lines:
	for _, order := range orders {
		orderTime := ""
		if order.OrderPlacedDateTime != nil {
			orderTime = order.OrderPlacedDateTime.Format(orderTimeLayout)
		}
		status := "open"
		if order.Status != "" {
			status = strings.ToLower(order.Status)
		}

		contributed := false
		for _, line := range order.Lines {
			if ctx.Err() != nil {
				// Stop requested: keep what is already in memory, do not
				// start another line.
				log.Warn().
					Str("category", string(category)).
					Int("rows", len(rows)).
					Msg("Stop requested, finishing current batch file")
				res.Stopped = true
				break lines
			}

			acq := w.acquirer.Acquire(ctx, order.OrderID, line)
			if acq.Mock {
				res.MockLabels++
			}
			if acq.LabelID == "" {
				res.EmptyLabels++
			}

			rows = append(rows, &Row{
				OrderID:       order.OrderID,
				Shop:          w.shop,
				EAN:           line.EAN,
				Quantity:      line.Quantity,
				ShippingLabel: acq.LabelID,
				OrderTime:     orderTime,
				BatchType:     string(category),
				BatchNumber:   stem,
				OrderStatus:   status,
			})
			contributed = true
			res.TotalRows++

			// The mark must survive a stop requested during Acquire: the row
			// is in memory and will be written, so the ledger entry has to
			// land with it.
			if err := w.ledger.MarkProcessed(context.WithoutCancel(ctx), order.OrderID, line.OrderItemID, batchNumber, category); err != nil {
				return 0, err
			}
		}
		if contributed {
			ordersWritten++
		}
	}

	if len(rows) == 0 {
		return 0, nil
	}

	if err := w.writeFile(path, rows); err != nil {
		return 0, err
	}

	res.Files = append(res.Files, path)
	log.Info().
		Str("file", filepath.Base(path)).
		Int("orders", ordersWritten).
		Int("rows", len(rows)).
		Str("batch_number", stem).
		Msg("Generated batch file")
	return ordersWritten, nil
}

func (w *Writer) writeFile(path string, rows []*Row) error {
	if w.format == "xlsx" {
		return writeXLSX(path, rows)
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows []*Row) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create batch file")
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return errors.Wrap(err, "failed to write batch file")
	}
	return nil
}

func writeXLSX(path string, rows []*Row) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return errors.Wrap(err, "failed to create batch sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{
		"Order ID", "Shop", "MP EAN", "Quantity", "Shipping Label",
		"Order Time", "Batch Type", "Batch Number", "Order Status",
	} {
		header.AddCell().SetString(name)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.OrderID)
		r.AddCell().SetString(row.Shop)
		r.AddCell().SetString(row.EAN)
		r.AddCell().SetString(strconv.Itoa(row.Quantity))
		r.AddCell().SetString(row.ShippingLabel)
		r.AddCell().SetString(row.OrderTime)
		r.AddCell().SetString(row.BatchType)
		r.AddCell().SetString(row.BatchNumber)
		r.AddCell().SetString(row.OrderStatus)
	}

	if err := file.Save(path); err != nil {
		return errors.Wrap(err, "failed to write batch workbook")
	}
	return nil
}

