package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/motortrade/salesd/pkg/config"
	"github.com/motortrade/salesd/pkg/model"
)

type memoryLogRepo struct {
	mu   sync.Mutex
	logs []model.WebhookLog
}

func (m *memoryLogRepo) Append(_ context.Context, log *model.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memoryLogRepo) all() []model.WebhookLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WebhookLog(nil), m.logs...)
}

func approvedSale() *model.Sale {
	approvedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.Sale{
		ID:            uuid.New(),
		VehicleID:     "veh-1",
		BuyerTaxID:    "52998224725",
		AmountPaid:    85000,
		PaymentMethod: model.PaymentPix,
		Status:        model.SaleApproved,
		PaymentCode:   "PAG-1748779200000-AB12CD34",
		ApprovedAt:    &approvedAt,
	}
}

func newTestNotifier(t *testing.T, url string, timeout time.Duration, logs LogRepository) *Notifier {
	t.Helper()
	notifier := NewNotifier(&config.WebhookConfig{
		URL:       url,
		Timeout:   timeout,
		UserAgent: "Servico-Vendas-Webhook/1.0",
	}, logs, zaptest.NewLogger(t))
	t.Cleanup(func() { notifier.Close() })
	return notifier
}

func TestNotifyApprovedSaleSuccess(t *testing.T) {
	var (
		gotBody      []byte
		gotUserAgent string
		gotContent   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotUserAgent = r.Header.Get("User-Agent")
		gotContent = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logs := &memoryLogRepo{}
	notifier := newTestNotifier(t, server.URL, 5*time.Second, logs)

	sale := approvedSale()
	ok := notifier.NotifyApprovedSale(context.Background(), sale)
	require.True(t, ok)

	assert.Equal(t, "Servico-Vendas-Webhook/1.0", gotUserAgent)
	assert.Equal(t, "application/json", gotContent)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, sale.PaymentCode, payload["codigoPagamento"])
	assert.Equal(t, "aprovado", payload["status"])
	assert.Equal(t, "veh-1", payload["veiculoId"])
	assert.Equal(t, "52998224725", payload["cpfComprador"])
	assert.Equal(t, float64(85000), payload["valorPago"])
	assert.Equal(t, "pix", payload["metodoPagamento"])
	assert.Equal(t, "2025-06-01T12:00:00Z", payload["dataTransacao"])

	rows := logs.all()
	require.Len(t, rows, 1)
	assert.Equal(t, sale.ID, rows[0].SaleID)
	assert.Equal(t, server.URL, rows[0].URL)
	assert.Equal(t, http.StatusOK, rows[0].StatusCode)
	assert.True(t, rows[0].Success)
	assert.JSONEq(t, string(gotBody), rows[0].Payload)
}

func TestNotifyApprovedSaleRemoteRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	logs := &memoryLogRepo{}
	notifier := newTestNotifier(t, server.URL, 5*time.Second, logs)

	ok := notifier.NotifyApprovedSale(context.Background(), approvedSale())
	require.False(t, ok)

	rows := logs.all()
	require.Len(t, rows, 1)
	assert.Equal(t, http.StatusInternalServerError, rows[0].StatusCode)
	assert.False(t, rows[0].Success)
	assert.Contains(t, rows[0].Response, "boom")
}

func TestNotifyApprovedSaleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logs := &memoryLogRepo{}
	notifier := newTestNotifier(t, server.URL, 50*time.Millisecond, logs)

	ok := notifier.NotifyApprovedSale(context.Background(), approvedSale())
	require.False(t, ok)

	rows := logs.all()
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].StatusCode)
	assert.False(t, rows[0].Success)
	assert.Contains(t, rows[0].Response, "timeout or network failure")
}

func TestNotifyApprovedSaleUnreachableEndpoint(t *testing.T) {
	logs := &memoryLogRepo{}
	notifier := newTestNotifier(t, "http://127.0.0.1:1/webhook", 1*time.Second, logs)

	ok := notifier.NotifyApprovedSale(context.Background(), approvedSale())
	require.False(t, ok)

	rows := logs.all()
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].StatusCode)
	assert.False(t, rows[0].Success)
}

func TestBuildPayloadFallsBackToNow(t *testing.T) {
	sale := approvedSale()
	sale.ApprovedAt = nil

	before := time.Now().UTC().Add(-time.Second)
	payload := BuildPayload(sale)
	after := time.Now().UTC().Add(time.Second)

	parsed, err := time.Parse(time.RFC3339, payload.DataTransacao)
	require.NoError(t, err)
	assert.True(t, parsed.After(before) && parsed.Before(after),
		"dataTransacao %s not within [%s, %s]", payload.DataTransacao, before, after)
}
