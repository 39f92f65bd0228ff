package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/motortrade/salesd/pkg/config"
	"github.com/motortrade/salesd/pkg/metrics"
	"github.com/motortrade/salesd/pkg/model"
)

// LogRepository persists delivery attempts. Rows are append-only.
type LogRepository interface {
	Append(ctx context.Context, log *model.WebhookLog) error
}

// Payload is the fixed notification shape the downstream system expects.
// Field names are part of its contract and must not change.
type Payload struct {
	CodigoPagamento string  `json:"codigoPagamento"`
	Status          string  `json:"status"`
	VeiculoID       string  `json:"veiculoId"`
	CpfComprador    string  `json:"cpfComprador"`
	ValorPago       float64 `json:"valorPago"`
	MetodoPagamento string  `json:"metodoPagamento"`
	DataTransacao   string  `json:"dataTransacao"`
}

// Notifier delivers approved-sale notifications to the configured webhook
// endpoint. It performs exactly one attempt per call and never mutates the
// sale; retry budgeting belongs to the caller.
type Notifier struct {
	http   *resty.Client
	logs   LogRepository
	url    string
	logger *zap.Logger
}

func NewNotifier(cfg *config.WebhookConfig, logs LogRepository, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	http := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)

	return &Notifier{
		http:   http,
		logs:   logs,
		url:    cfg.URL,
		logger: logger,
	}
}

func (n *Notifier) Close() error {
	return n.http.Close()
}

// NotifyApprovedSale POSTs the notification payload and records one attempt
// row regardless of the outcome. Success means an HTTP status in [200,300).
// A zero status code in the log marks attempts where no response arrived.
func (n *Notifier) NotifyApprovedSale(ctx context.Context, sale *model.Sale) bool {
	payload := BuildPayload(sale)

	raw, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal webhook payload",
			zap.String("sale_id", sale.ID.String()), zap.Error(err))
		return false
	}

	statusCode := 0
	response := ""

	res, err := n.http.R().
		SetContext(ctx).
		SetBody(raw).
		Post(n.url)
	if err != nil {
		response = fmt.Sprintf("timeout or network failure: %v", err)
	} else {
		statusCode = res.StatusCode()
		response = res.String()
	}

	success := statusCode >= 200 && statusCode < 300

	attempt := &model.WebhookLog{
		SaleID:     sale.ID,
		URL:        n.url,
		Payload:    string(raw),
		StatusCode: statusCode,
		Response:   response,
		Success:    success,
	}
	if err := n.logs.Append(ctx, attempt); err != nil {
		n.logger.Warn("failed to record webhook attempt",
			zap.String("sale_id", sale.ID.String()), zap.Error(err))
	}

	result := "failure"
	if success {
		result = "success"
	}
	metrics.WebhookDeliveries.WithLabelValues(result).Inc()

	n.logger.Info("webhook delivery attempted",
		zap.String("sale_id", sale.ID.String()),
		zap.Int("status_code", statusCode),
		zap.Bool("success", success),
	)

	return success
}

// BuildPayload maps a sale onto the outbound notification shape. The
// transaction date falls back to the current time when the approval timestamp
// is missing.
func BuildPayload(sale *model.Sale) Payload {
	transactionDate := time.Now()
	if sale.ApprovedAt != nil {
		transactionDate = *sale.ApprovedAt
	}

	return Payload{
		CodigoPagamento: sale.PaymentCode,
		Status:          "aprovado",
		VeiculoID:       sale.VehicleID,
		CpfComprador:    sale.BuyerTaxID,
		ValorPago:       sale.AmountPaid,
		MetodoPagamento: string(sale.PaymentMethod),
		DataTransacao:   transactionDate.UTC().Format(time.RFC3339),
	}
}
