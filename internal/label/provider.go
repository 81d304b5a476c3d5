package label

import (
	"context"

	"github.com/pkg/errors"
)

// Sentinel outcomes of the label capability provider. The acquirer maps
// these onto state-machine transitions; neither is raised to the caller.
var (
	// ErrNotEligible means the order line cannot receive a shipping label
	// (not fulfilled by the retailer). A normal skip outcome.
	ErrNotEligible = errors.New("order line is not eligible for a shipping label")

	// ErrUnsupportedFormat means the remote rejected the requested label
	// format (test environments reject binary downloads). Short-circuits
	// to the fallback artifact without further retries.
	ErrUnsupportedFormat = errors.New("label format not supported in this environment")
)

// DeliveryOption is one shipping label offer for an order line.
type DeliveryOption struct {
	ShippingLabelOfferID string `json:"shippingLabelOfferId"`
	LabelDisplayName     string `json:"labelDisplayName"`
	TransporterCode      string `json:"transporterCode"`
}

// CreateResult is the outcome of a label creation request. Exactly one
// of the fields is normally set: an asynchronous process handle, a label
// handle for an already-finished label, a legacy shipment handle, or an
// inline payload.
type CreateResult struct {
	ProcessStatusID string
	LabelID         string
	ShipmentID      string
	InlineData      []byte
}

// Process status values reported for an asynchronous label creation.
const (
	ProcessSuccess   = "SUCCESS"
	ProcessFailure   = "FAILURE"
	ProcessTimeout   = "TIMEOUT"
	ProcessCancelled = "CANCELLED"
)

// ProcessStatus is the polled state of an asynchronous label creation.
// EntityID carries the label handle once Status is SUCCESS.
type ProcessStatus struct {
	Status       string
	EntityID     string
	ErrorMessage string
}

// Provider is the capability surface the acquirer needs from the remote
// shipment API.
type Provider interface {
	// DeliveryOptions lists shipping label offers for an order line. An
	// empty list or ErrNotEligible marks the line ineligible.
	DeliveryOptions(ctx context.Context, orderItemID string, quantity int) ([]DeliveryOption, error)

	// CreateShippingLabel requests label creation for an order line.
	CreateShippingLabel(ctx context.Context, orderItemID string, quantity int) (*CreateResult, error)

	// GetProcessStatus polls an asynchronous label creation process.
	GetProcessStatus(ctx context.Context, processStatusID string) (*ProcessStatus, error)

	// DownloadLabel fetches the label artifact for a label handle.
	DownloadLabel(ctx context.Context, labelID, format string) ([]byte, error)

	// DownloadShipmentLabel fetches the artifact over the legacy
	// shipment endpoint.
	DownloadShipmentLabel(ctx context.Context, shipmentID, format string) ([]byte, error)
}
