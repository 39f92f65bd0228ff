package sales

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/motortrade/salesd/pkg/model"
)

// Repository is the slice of the sale store the service depends on.
// Implementations must return ErrSaleNotFound when a key does not resolve.
type Repository interface {
	Create(ctx context.Context, sale *model.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	GetByPaymentCode(ctx context.Context, code string) (*model.Sale, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]model.Sale, error)
	ListByTaxID(ctx context.Context, taxID string) ([]model.Sale, error)
	ListAll(ctx context.Context, limit, offset int) ([]model.Sale, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SaleStatus, approvedAt *time.Time) error
}

// Vehicle is the subset of the principal service's vehicle record the sale
// flow cares about. Price stays a json.Number until creation-time validation
// so a numeric-as-string price parses and a non-numeric one is detectable.
type Vehicle struct {
	ID        string
	Price     json.Number
	Available bool
}

// VehicleLookup resolves vehicles on the principal service. Implementations
// must return ErrVehicleNotFound when the id does not exist.
type VehicleLookup interface {
	GetByID(ctx context.Context, id string) (*Vehicle, error)
}
