package label

import (
	"context"
	"testing"
	"time"

	"github.com/Juan7731/bol.com/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) DeliveryOptions(ctx context.Context, orderItemID string, quantity int) ([]DeliveryOption, error) {
	args := m.Called(ctx, orderItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DeliveryOption), args.Error(1)
}

func (m *MockProvider) CreateShippingLabel(ctx context.Context, orderItemID string, quantity int) (*CreateResult, error) {
	args := m.Called(ctx, orderItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreateResult), args.Error(1)
}

func (m *MockProvider) GetProcessStatus(ctx context.Context, processStatusID string) (*ProcessStatus, error) {
	args := m.Called(ctx, processStatusID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProcessStatus), args.Error(1)
}

func (m *MockProvider) DownloadLabel(ctx context.Context, labelID, format string) ([]byte, error) {
	args := m.Called(ctx, labelID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockProvider) DownloadShipmentLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	args := m.Called(ctx, shipmentID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func testConfig() Config {
	return Config{
		PollInterval:     time.Millisecond,
		MaxPolls:         3,
		DownloadRetries:  2,
		DownloadInterval: time.Millisecond,
		Format:           "PDF",
	}
}

func newTestAcquirer(t *testing.T, provider Provider) *Acquirer {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return NewAcquirer(provider, store, testConfig())
}

func fbrLine() models.OrderLine {
	return models.OrderLine{OrderItemID: "6042823871", EAN: "8718526069334", Quantity: 1, FulfilmentMethod: models.FulfilmentFBR}
}

func TestAcquireSkipsNonRetailerLine(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	line := fbrLine()
	line.FulfilmentMethod = "FBB"

	res := a.Acquire(context.Background(), "1043946570", line)
	require.True(t, res.Skipped)
	provider.AssertNotCalled(t, "CreateShippingLabel", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireSucceedsAfterPolling(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	provider.On("CreateShippingLabel", mock.Anything, "6042823871", 1).
		Return(&CreateResult{ProcessStatusID: "ps-1"}, nil)
	provider.On("GetProcessStatus", mock.Anything, "ps-1").
		Return(&ProcessStatus{Status: "PENDING"}, nil).Twice()
	provider.On("GetProcessStatus", mock.Anything, "ps-1").
		Return(&ProcessStatus{Status: ProcessSuccess, EntityID: "label-1"}, nil).Once()
	provider.On("DownloadLabel", mock.Anything, "label-1", "PDF").
		Return([]byte("%PDF-1.4 real label"), nil)

	res := a.Acquire(context.Background(), "1043946570", fbrLine())

	require.Equal(t, StateSucceeded, res.State)
	require.False(t, res.Mock)
	require.Equal(t, "label-1", res.LabelID)
	provider.AssertExpectations(t)
}

func TestAcquireFallsBackWhenPollBudgetExhausted(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	provider.On("CreateShippingLabel", mock.Anything, "6042823871", 1).
		Return(&CreateResult{ProcessStatusID: "ps-1"}, nil)
	provider.On("GetProcessStatus", mock.Anything, "ps-1").
		Return(&ProcessStatus{Status: "PENDING"}, nil)

	res := a.Acquire(context.Background(), "1043946570", fbrLine())

	require.Equal(t, StateSucceeded, res.State)
	require.True(t, res.Mock)
	require.NotEmpty(t, res.LabelID)
	require.True(t, IsMockReference(res.TrackingRef))
}

func TestAcquireTerminalFailureYieldsEmptyLabel(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	provider.On("CreateShippingLabel", mock.Anything, "6042823871", 1).
		Return(&CreateResult{ProcessStatusID: "ps-1"}, nil)
	provider.On("GetProcessStatus", mock.Anything, "ps-1").
		Return(&ProcessStatus{Status: ProcessFailure, ErrorMessage: "no offer"}, nil)

	res := a.Acquire(context.Background(), "1043946570", fbrLine())

	require.Equal(t, StateFailed, res.State)
	require.Empty(t, res.LabelID)
	require.False(t, res.Mock)
}

func TestAcquireUnsupportedFormatFallsBack(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	provider.On("CreateShippingLabel", mock.Anything, "6042823871", 1).
		Return(&CreateResult{LabelID: "label-1"}, nil)
	provider.On("DownloadLabel", mock.Anything, "label-1", "PDF").
		Return(nil, ErrUnsupportedFormat)

	res := a.Acquire(context.Background(), "1043946570", fbrLine())

	require.Equal(t, StateSucceeded, res.State)
	require.True(t, res.Mock)
	require.True(t, IsMockReference(res.TrackingRef))
}

func TestAcquireInlinePayloadSkipsPolling(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	provider.On("CreateShippingLabel", mock.Anything, "6042823871", 1).
		Return(&CreateResult{InlineData: []byte("%PDF-1.4 inline")}, nil)

	res := a.Acquire(context.Background(), "1043946570", fbrLine())

	require.Equal(t, StateSucceeded, res.State)
	require.False(t, res.Mock)
	provider.AssertNotCalled(t, "GetProcessStatus", mock.Anything, mock.Anything)
}

func TestAcquireRetriesDownloadUntilReady(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	provider.On("CreateShippingLabel", mock.Anything, "6042823871", 1).
		Return(&CreateResult{LabelID: "label-1"}, nil)
	provider.On("DownloadLabel", mock.Anything, "label-1", "PDF").
		Return([]byte("not ready"), nil).Once()
	provider.On("DownloadLabel", mock.Anything, "label-1", "PDF").
		Return([]byte("%PDF-1.4 ready"), nil).Once()

	res := a.Acquire(context.Background(), "1043946570", fbrLine())

	require.Equal(t, StateSucceeded, res.State)
	require.False(t, res.Mock)
	require.Equal(t, "label-1", res.LabelID)
}

func TestAcquireProbesDeliveryOptionsForUntaggedLine(t *testing.T) {
	provider := new(MockProvider)
	a := newTestAcquirer(t, provider)

	line := fbrLine()
	line.FulfilmentMethod = ""

	provider.On("DeliveryOptions", mock.Anything, "6042823871", 1).
		Return(nil, ErrNotEligible)

	res := a.Acquire(context.Background(), "1043946570", line)
	require.True(t, res.Skipped)
	provider.AssertNotCalled(t, "CreateShippingLabel", mock.Anything, mock.Anything, mock.Anything)
}
