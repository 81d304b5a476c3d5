package classifier

import (
	"testing"

	"github.com/Juan7731/bol.com/internal/models"

	"github.com/stretchr/testify/require"
)

func single(orderID string) models.Order {
	return models.Order{
		OrderID: orderID,
		Lines:   []models.OrderLine{{OrderItemID: orderID + "-1", EAN: "8718526069334", Quantity: 1}},
	}
}

func TestClassifyGroupsAreExclusive(t *testing.T) {
	orders := []models.Order{
		single("A"),
		{
			OrderID: "B",
			Lines:   []models.OrderLine{{OrderItemID: "B-1", EAN: "8718526069341", Quantity: 4}},
		},
		{
			OrderID: "C",
			Lines: []models.OrderLine{
				{OrderItemID: "C-1", EAN: "8718526069334", Quantity: 1},
				{OrderItemID: "C-2", EAN: "8718526069341", Quantity: 1},
			},
		},
	}

	groups := Classify(orders)

	require.Len(t, groups[models.CategorySingle], 1)
	require.Len(t, groups[models.CategorySingleLine], 1)
	require.Len(t, groups[models.CategoryMulti], 1)
	require.Equal(t, "A", groups[models.CategorySingle][0].OrderID)
	require.Equal(t, "B", groups[models.CategorySingleLine][0].OrderID)
	require.Equal(t, "C", groups[models.CategoryMulti][0].OrderID)
}

func TestClassifyPreservesInputOrder(t *testing.T) {
	orders := []models.Order{single("first"), single("second"), single("third")}

	groups := Classify(orders)

	got := make([]string, 0, 3)
	for _, o := range groups[models.CategorySingle] {
		got = append(got, o.OrderID)
	}
	require.Equal(t, []string{"first", "second", "third"}, got)
}

func TestClassifyDropsUnknown(t *testing.T) {
	orders := []models.Order{
		{OrderID: "empty"},
		single("kept"),
	}

	groups := Classify(orders)

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	require.Equal(t, 1, total)
	require.Equal(t, "kept", groups[models.CategorySingle][0].OrderID)
}
