package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/motortrade/salesd/pkg/config"
	"github.com/motortrade/salesd/pkg/sales"
)

// statusForSale is the principal service's marker for a vehicle that can
// still be sold.
const statusForSale = "A_VENDA"

// Client looks vehicles up on the principal service. It implements
// sales.VehicleLookup.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(cfg *config.VehicleConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: http, logger: logger}
}

func (c *Client) Close() error {
	return c.http.Close()
}

type envelope struct {
	Success bool        `json:"success"`
	Data    *vehicleDTO `json:"data"`
	Message string      `json:"message"`
}

type vehicleDTO struct {
	ID     string    `json:"id"`
	Price  flexPrice `json:"preco"`
	Status string    `json:"status"`
}

// flexPrice accepts the price as either a JSON number or a quoted numeric
// string; anything else is kept verbatim so the conversion failure surfaces
// during sale validation instead of being swallowed here.
type flexPrice json.Number

func (p *flexPrice) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = flexPrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*p = flexPrice(n)
		return nil
	}
	*p = flexPrice(string(b))
	return nil
}

func (c *Client) GetByID(ctx context.Context, id string) (*sales.Vehicle, error) {
	var body envelope
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/veiculos/" + id)
	if err != nil {
		c.logger.Warn("vehicle lookup failed", zap.String("vehicle_id", id), zap.Error(err))
		return nil, fmt.Errorf("vehicle lookup failed: %w", err)
	}

	if res.StatusCode() == http.StatusNotFound {
		return nil, sales.ErrVehicleNotFound
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("vehicle service returned status %d", res.StatusCode())
	}
	if !body.Success || body.Data == nil {
		return nil, sales.ErrVehicleNotFound
	}

	return &sales.Vehicle{
		ID:        body.Data.ID,
		Price:     json.Number(body.Data.Price),
		Available: body.Data.Status == statusForSale,
	}, nil
}
