package bol

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Juan7731/bol.com/internal/models"
)

// pageLimit is the API maximum orders per page.
const pageLimit = 250

type orderItemPayload struct {
	OrderItemID      string  `json:"orderItemId"`
	EAN              string  `json:"ean"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unitPrice"`
	FulfilmentMethod string  `json:"fulfilmentMethod"`
	Fulfilment       struct {
		Method string `json:"method"`
	} `json:"fulfilment"`
	Product struct {
		EAN string `json:"ean"`
	} `json:"product"`
}

type orderPayload struct {
	OrderID             string             `json:"orderId"`
	OrderPlacedDateTime string             `json:"orderPlacedDateTime"`
	Status              string             `json:"status"`
	OrderItems          []orderItemPayload `json:"orderItems"`
}

type ordersPage struct {
	Orders     []orderPayload `json:"orders"`
	Pagination struct {
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

// GetAllOpenOrders retrieves every open order, following pagination.
func (c *Client) GetAllOpenOrders(ctx context.Context) ([]models.Order, error) {
	var all []models.Order
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/orders?status=OPEN&page=%d&limit=%d", c.apiBase, page, pageLimit)
		log.Info().Int("page", page).Msg("Fetching open orders")

		var resp ordersPage
		if err := c.doJSON(ctx, "GET", url, nil, acceptJSON, &resp); err != nil {
			return nil, err
		}
		if len(resp.Orders) == 0 {
			break
		}

		for _, payload := range resp.Orders {
			all = append(all, payload.toOrder())
		}

		if resp.Pagination.TotalPages != 0 && page >= resp.Pagination.TotalPages {
			break
		}
	}

	log.Info().Int("count", len(all)).Msg("Retrieved open orders")
	return all, nil
}

func (p orderPayload) toOrder() models.Order {
	order := models.Order{
		OrderID: p.OrderID,
		Status:  p.Status,
	}
	if order.Status == "" {
		order.Status = "OPEN"
	}

	if p.OrderPlacedDateTime != "" {
		if placed, err := time.Parse(time.RFC3339, p.OrderPlacedDateTime); err == nil {
			order.OrderPlacedDateTime = &placed
		}
	}

	for _, item := range p.OrderItems {
		line := models.OrderLine{
			OrderItemID: item.OrderItemID,
			EAN:         item.EAN,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
		if line.EAN == "" {
			line.EAN = item.Product.EAN
		}
		if line.Quantity == 0 {
			line.Quantity = 1
		}
		// fulfilmentMethod sits directly on the item in v10; older
		// payloads nest it under fulfilment.
		line.FulfilmentMethod = item.FulfilmentMethod
		if line.FulfilmentMethod == "" {
			line.FulfilmentMethod = item.Fulfilment.Method
		}
		order.Lines = append(order.Lines, line)
	}
	return order
}
