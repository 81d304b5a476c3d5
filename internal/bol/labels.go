package bol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Juan7731/bol.com/internal/label"
)

// preferredOfferName selects the marketplace's own transport offer when
// creating labels.
const preferredOfferName = "verzenden via bol"

type orderItemRef struct {
	OrderItemID string `json:"orderItemId"`
	Quantity    int    `json:"quantity"`
}

type deliveryOptionsRequest struct {
	OrderItems []orderItemRef `json:"orderItems"`
}

type deliveryOptionsResponse struct {
	DeliveryOptions []label.DeliveryOption `json:"deliveryOptions"`
}

// DeliveryOptions lists shipping label offers for an order line. A "not
// found" response means the line is not fulfilled by the retailer.
func (c *Client) DeliveryOptions(ctx context.Context, orderItemID string, quantity int) ([]label.DeliveryOption, error) {
	body, err := json.Marshal(deliveryOptionsRequest{
		OrderItems: []orderItemRef{{OrderItemID: orderItemID, Quantity: quantity}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode delivery options request")
	}

	var resp deliveryOptionsResponse
	url := c.apiBase + "/shipping-labels/delivery-options"
	if err := c.doJSON(ctx, "POST", url, body, acceptJSON, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, label.ErrNotEligible
		}
		return nil, err
	}
	return resp.DeliveryOptions, nil
}

type createLabelRequest struct {
	OrderItems           []orderItemRef `json:"orderItems"`
	ShippingLabelOfferID string         `json:"shippingLabelOfferId,omitempty"`
}

type createLabelResponse struct {
	ProcessStatusID string `json:"processStatusId"`
	ProcessStatus   struct {
		ProcessStatusID string `json:"processStatusId"`
		EntityID        string `json:"entityId"`
		ShipmentID      string `json:"shipmentId"`
	} `json:"processStatus"`
	ShipmentID string `json:"shipmentId"`
	Shipments  []struct {
		ShipmentID string `json:"shipmentId"`
	} `json:"shipments"`
	Label struct {
		Data      string `json:"data"`
		LabelData string `json:"labelData"`
	} `json:"label"`
	LabelData    string `json:"labelData"`
	ErrorMessage string `json:"errorMessage"`
	Errors       []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateShippingLabel requests label creation for an order line, picking
// the marketplace's own transport offer when available.
func (c *Client) CreateShippingLabel(ctx context.Context, orderItemID string, quantity int) (*label.CreateResult, error) {
	req := createLabelRequest{
		OrderItems: []orderItemRef{{OrderItemID: orderItemID, Quantity: quantity}},
	}

	if offerID, err := c.pickOffer(ctx, orderItemID, quantity); err == nil {
		req.ShippingLabelOfferID = offerID
	} else {
		log.Warn().Err(err).
			Str("order_item_id", orderItemID).
			Msg("Could not select shipping label offer, creating label without one")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode label request")
	}

	var resp createLabelResponse
	if err := c.doJSON(ctx, "POST", c.apiBase+"/shipping-labels", body, acceptJSON, &resp); err != nil {
		return nil, err
	}

	// Some error payloads arrive with a success status code.
	if resp.ErrorMessage != "" {
		return nil, errors.Errorf("label creation rejected: %s", resp.ErrorMessage)
	}
	if len(resp.Errors) > 0 {
		return nil, errors.Errorf("label creation rejected: %s: %s", resp.Errors[0].Code, resp.Errors[0].Message)
	}

	result := &label.CreateResult{
		ProcessStatusID: resp.ProcessStatusID,
		LabelID:         resp.ProcessStatus.EntityID,
		ShipmentID:      resp.ShipmentID,
	}
	if result.ProcessStatusID == "" {
		result.ProcessStatusID = resp.ProcessStatus.ProcessStatusID
	}
	if result.ShipmentID == "" {
		result.ShipmentID = resp.ProcessStatus.ShipmentID
	}
	if result.ShipmentID == "" && len(resp.Shipments) > 0 {
		result.ShipmentID = resp.Shipments[0].ShipmentID
	}

	inline := resp.Label.Data
	if inline == "" {
		inline = resp.Label.LabelData
	}
	if inline == "" {
		inline = resp.LabelData
	}
	if inline != "" {
		result.InlineData = []byte(inline)
	}

	return result, nil
}

// pickOffer chooses the shipping label offer for an order line.
func (c *Client) pickOffer(ctx context.Context, orderItemID string, quantity int) (string, error) {
	options, err := c.DeliveryOptions(ctx, orderItemID, quantity)
	if err != nil {
		return "", err
	}
	if len(options) == 0 {
		return "", errors.New("no delivery options available")
	}
	for _, option := range options {
		if strings.Contains(strings.ToLower(option.LabelDisplayName), preferredOfferName) {
			return option.ShippingLabelOfferID, nil
		}
	}
	log.Warn().
		Str("order_item_id", orderItemID).
		Str("offer", options[0].LabelDisplayName).
		Msg("Preferred transport offer not found, using first available")
	return options[0].ShippingLabelOfferID, nil
}

type processStatusResponse struct {
	Status       string `json:"status"`
	EntityID     string `json:"entityId"`
	ErrorMessage string `json:"errorMessage"`
}

// GetProcessStatus polls an asynchronous label creation process. The
// process status endpoint lives on the shared API path.
func (c *Client) GetProcessStatus(ctx context.Context, processStatusID string) (*label.ProcessStatus, error) {
	var resp processStatusResponse
	url := fmt.Sprintf("%s/process-status/%s", c.sharedBase, processStatusID)
	if err := c.doJSON(ctx, "GET", url, nil, acceptJSON, &resp); err != nil {
		return nil, err
	}
	return &label.ProcessStatus{
		Status:       strings.ToUpper(resp.Status),
		EntityID:     resp.EntityID,
		ErrorMessage: resp.ErrorMessage,
	}, nil
}

// DownloadLabel fetches the label artifact in the requested format. A
// client rejection means the environment does not serve that format.
func (c *Client) DownloadLabel(ctx context.Context, labelID, format string) ([]byte, error) {
	url := fmt.Sprintf("%s/shipping-labels/%s", c.apiBase, labelID)
	return c.downloadArtifact(ctx, url, format)
}

// DownloadShipmentLabel fetches the artifact over the legacy shipment
// endpoint.
func (c *Client) DownloadShipmentLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	url := fmt.Sprintf("%s/shipments/%s/label", c.apiBase, shipmentID)
	return c.downloadArtifact(ctx, url, format)
}

func (c *Client) downloadArtifact(ctx context.Context, url, format string) ([]byte, error) {
	accept := "application/vnd.retailer.v10+" + strings.ToLower(format)
	data, status, err := c.doRaw(ctx, "GET", url, accept)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusNotAcceptable:
		return nil, label.ErrUnsupportedFormat
	case status < 200 || status >= 300:
		return nil, parseAPIError(status, data)
	}
	return data, nil
}
