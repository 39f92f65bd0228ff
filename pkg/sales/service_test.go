package sales

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/motortrade/salesd/pkg/model"
)

const validCPF = "52998224725"

type memoryRepo struct {
	mu    sync.Mutex
	sales map[uuid.UUID]*model.Sale
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (m *memoryRepo) Create(_ context.Context, sale *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	copied := *sale
	m.sales[sale.ID] = &copied
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return nil, ErrSaleNotFound
	}
	copied := *sale
	return &copied, nil
}

func (m *memoryRepo) GetByPaymentCode(_ context.Context, code string) (*model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sale := range m.sales {
		if sale.PaymentCode == code {
			copied := *sale
			return &copied, nil
		}
	}
	return nil, ErrSaleNotFound
}

func (m *memoryRepo) ListByVehicle(_ context.Context, vehicleID string) ([]model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Sale
	for _, sale := range m.sales {
		if sale.VehicleID == vehicleID {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListByTaxID(_ context.Context, taxID string) ([]model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Sale
	for _, sale := range m.sales {
		if sale.BuyerTaxID == taxID {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListAll(_ context.Context, limit, offset int) ([]model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Sale, 0, len(m.sales))
	for _, sale := range m.sales {
		out = append(out, *sale)
	}
	return out, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.SaleStatus, approvedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return ErrSaleNotFound
	}
	sale.Status = status
	if approvedAt != nil {
		sale.ApprovedAt = approvedAt
	}
	sale.UpdatedAt = time.Now()
	return nil
}

type stubLookup struct {
	vehicles map[string]*Vehicle
}

func (s *stubLookup) GetByID(_ context.Context, id string) (*Vehicle, error) {
	vehicle, ok := s.vehicles[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

func newTestService(t *testing.T, repo *memoryRepo, vehicles map[string]*Vehicle) *Service {
	t.Helper()
	return NewService(repo, &stubLookup{vehicles: vehicles}, zaptest.NewLogger(t))
}

func availableVehicle(id, price string) map[string]*Vehicle {
	return map[string]*Vehicle{
		id: {ID: id, Price: json.Number(price), Available: true},
	}
}

func TestCreateSaleHappyPath(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, availableVehicle("veh-1", "85000.00"))

	sale, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000.00,
		PaymentMethod: model.PaymentPix,
	})

	require.NoError(t, err)
	assert.Equal(t, model.SalePending, sale.Status)
	assert.NotEmpty(t, sale.PaymentCode)
	assert.Equal(t, validCPF, sale.BuyerTaxID)
	assert.False(t, sale.WebhookNotified)
	assert.Zero(t, sale.WebhookAttempts)
	assert.Nil(t, sale.ApprovedAt)
}

func TestCreateSaleValidation(t *testing.T) {
	cases := []struct {
		name    string
		req     CreateSaleRequest
		wantErr error
	}{
		{
			name: "invalid tax id",
			req: CreateSaleRequest{
				VehicleID:     "veh-1",
				BuyerTaxID:    "12345678901",
				AmountPaid:    85000,
				PaymentMethod: model.PaymentPix,
			},
			wantErr: ErrInvalidTaxID,
		},
		{
			name: "non-positive amount",
			req: CreateSaleRequest{
				VehicleID:     "veh-1",
				BuyerTaxID:    validCPF,
				AmountPaid:    0,
				PaymentMethod: model.PaymentPix,
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "vehicle not found",
			req: CreateSaleRequest{
				VehicleID:     "missing",
				BuyerTaxID:    validCPF,
				AmountPaid:    85000,
				PaymentMethod: model.PaymentPix,
			},
			wantErr: ErrVehicleNotFound,
		},
		{
			name: "amount mismatch",
			req: CreateSaleRequest{
				VehicleID:     "veh-1",
				BuyerTaxID:    validCPF,
				AmountPaid:    84000,
				PaymentMethod: model.PaymentPix,
			},
			wantErr: ErrAmountMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, newMemoryRepo(), availableVehicle("veh-1", "85000.00"))
			sale, err := svc.CreateSale(context.Background(), tc.req)
			assert.Nil(t, sale)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateSaleVehicleUnavailable(t *testing.T) {
	vehicles := map[string]*Vehicle{
		"veh-1": {ID: "veh-1", Price: json.Number("85000.00"), Available: false},
	}
	svc := newTestService(t, newMemoryRepo(), vehicles)

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	assert.ErrorIs(t, err, ErrVehicleUnavailable)
}

func TestCreateSalePriceConversionError(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), availableVehicle("veh-1", "not-a-number"))

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	assert.ErrorIs(t, err, ErrPriceConversion)
}

func TestCreateSaleAmountWithinTolerance(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), availableVehicle("veh-1", "85000.00"))

	sale, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000.005,
		PaymentMethod: model.PaymentBoleto,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SalePending, sale.Status)
}

func TestCreateSaleVehicleAlreadySold(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, availableVehicle("veh-1", "85000.00"))
	ctx := context.Background()

	first, err := svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	require.NoError(t, err)

	_, err = svc.ResolvePayment(ctx, first.PaymentCode, OutcomeApproved)
	require.NoError(t, err)

	_, err = svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	assert.ErrorIs(t, err, ErrVehicleAlreadySold)
}

func TestCreateSaleRejectedSaleDoesNotBlock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, availableVehicle("veh-1", "85000.00"))
	ctx := context.Background()

	first, err := svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	require.NoError(t, err)

	_, err = svc.ResolvePayment(ctx, first.PaymentCode, OutcomeRejected)
	require.NoError(t, err)

	_, err = svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentCreditCard,
	})
	assert.NoError(t, err)
}

func TestResolvePaymentRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, availableVehicle("veh-1", "85000.00"))
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	require.NoError(t, err)

	resolved, err := svc.ResolvePayment(ctx, sale.PaymentCode, OutcomeRejected)
	require.NoError(t, err)
	assert.Equal(t, model.SaleRejected, resolved.Status)
	assert.Nil(t, resolved.ApprovedAt)
}

func TestResolvePaymentApprovedSetsApprovedAt(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, availableVehicle("veh-1", "85000.00"))
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	require.NoError(t, err)

	resolved, err := svc.ResolvePayment(ctx, sale.PaymentCode, OutcomeApproved)
	require.NoError(t, err)
	assert.Equal(t, model.SaleApproved, resolved.Status)
	require.NotNil(t, resolved.ApprovedAt)
}

func TestResolvePaymentIdempotencyGuard(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, availableVehicle("veh-1", "85000.00"))
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, CreateSaleRequest{
		VehicleID:     "veh-1",
		BuyerTaxID:    validCPF,
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
	})
	require.NoError(t, err)

	_, err = svc.ResolvePayment(ctx, sale.PaymentCode, OutcomeApproved)
	require.NoError(t, err)

	_, err = svc.ResolvePayment(ctx, sale.PaymentCode, OutcomeApproved)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	_, err = svc.ResolvePayment(ctx, sale.PaymentCode, OutcomeRejected)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestResolvePaymentUnknownCode(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), availableVehicle("veh-1", "85000.00"))

	_, err := svc.ResolvePayment(context.Background(), "PAG-0-DEADBEEF", OutcomeApproved)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestResolvePaymentInvalidOutcome(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), availableVehicle("veh-1", "85000.00"))

	_, err := svc.ResolvePayment(context.Background(), "PAG-0-DEADBEEF", "maybe")
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestListByTaxIDRejectsInvalid(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), nil)

	_, err := svc.ListByTaxID(context.Background(), "123")
	assert.ErrorIs(t, err, ErrInvalidTaxID)
}
