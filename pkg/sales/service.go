package sales

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motortrade/salesd/pkg/metrics"
	"github.com/motortrade/salesd/pkg/model"
)

// amountTolerance absorbs floating-point noise when comparing the amount paid
// against the vehicle's listed price.
const amountTolerance = 0.01

const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// Service implements the sale payment lifecycle on top of a Repository and a
// VehicleLookup.
type Service struct {
	repo     Repository
	vehicles VehicleLookup
	logger   *zap.Logger
}

func NewService(repo Repository, vehicles VehicleLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		vehicles: vehicles,
		logger:   logger,
	}
}

type CreateSaleRequest struct {
	VehicleID     string
	BuyerTaxID    string
	AmountPaid    float64
	PaymentMethod model.PaymentMethod
}

// CreateSale validates the request against the vehicle record and existing
// sales, then persists a new pending sale with a fresh payment code.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*model.Sale, error) {
	if !ValidTaxID(req.BuyerTaxID) {
		return nil, ErrInvalidTaxID
	}

	if req.AmountPaid <= 0 {
		return nil, ErrInvalidAmount
	}

	vehicle, err := s.vehicles.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	if !vehicle.Available {
		return nil, ErrVehicleUnavailable
	}

	price, err := vehicle.Price.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrPriceConversion, vehicle.Price.String())
	}

	if math.Abs(req.AmountPaid-price) > amountTolerance {
		return nil, fmt.Errorf("%w: paid %.2f, listed %.2f", ErrAmountMismatch, req.AmountPaid, price)
	}

	existing, err := s.repo.ListByVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing sales: %w", err)
	}
	for i := range existing {
		if existing[i].Status == model.SaleApproved {
			return nil, ErrVehicleAlreadySold
		}
	}

	sale := &model.Sale{
		ID:              uuid.New(),
		VehicleID:       req.VehicleID,
		BuyerTaxID:      NormalizeTaxID(req.BuyerTaxID),
		AmountPaid:      req.AmountPaid,
		PaymentMethod:   req.PaymentMethod,
		Status:          model.SalePending,
		PaymentCode:     NewPaymentCode(),
		WebhookNotified: false,
		WebhookAttempts: 0,
	}

	if err := s.repo.Create(ctx, sale); err != nil {
		s.logger.Error("failed to create sale",
			zap.String("vehicle_id", req.VehicleID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	metrics.SalesCreated.Inc()
	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("vehicle_id", sale.VehicleID),
		zap.String("payment_code", sale.PaymentCode),
	)

	return sale, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByVehicle(ctx context.Context, vehicleID string) ([]model.Sale, error) {
	return s.repo.ListByVehicle(ctx, vehicleID)
}

func (s *Service) ListByTaxID(ctx context.Context, taxID string) ([]model.Sale, error) {
	if !ValidTaxID(taxID) {
		return nil, ErrInvalidTaxID
	}
	return s.repo.ListByTaxID(ctx, NormalizeTaxID(taxID))
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]model.Sale, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

// ResolvePayment applies a payment-provider outcome to the sale identified by
// paymentCode. Sales already resolved return ErrAlreadyProcessed, which makes
// duplicate provider callbacks safe.
func (s *Service) ResolvePayment(ctx context.Context, paymentCode, outcome string) (*model.Sale, error) {
	if outcome != OutcomeApproved && outcome != OutcomeRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	sale, err := s.repo.GetByPaymentCode(ctx, paymentCode)
	if err != nil {
		return nil, err
	}

	if sale.Status != model.SalePending && sale.Status != model.SaleProcessing {
		return nil, ErrAlreadyProcessed
	}

	var approvedAt *time.Time
	status := model.SaleRejected
	if outcome == OutcomeApproved {
		status = model.SaleApproved
		now := time.Now()
		approvedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, sale.ID, status, approvedAt); err != nil {
		return nil, fmt.Errorf("failed to update sale status: %w", err)
	}

	metrics.PaymentResolutions.WithLabelValues(outcome).Inc()
	s.logger.Info("payment resolved",
		zap.String("sale_id", sale.ID.String()),
		zap.String("outcome", outcome),
	)

	return s.repo.GetByID(ctx, sale.ID)
}
