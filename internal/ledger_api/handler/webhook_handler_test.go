package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Ingest(ctx context.Context, payload []byte) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func TestWebhookHandler_Receive(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Accepted", func(t *testing.T) {
		mockService := new(MockWebhookService)
		handler := NewWebhookHandler(logger, mockService)

		payload := []byte(`{"id":"evt_1","type":"checkout.completed","data":{"account_id":"7b7e6f7e-52a8-4b2c-94a3-1f17a0d2a111","credits":500}}`)
		mockService.On("Ingest", mock.Anything, payload).Return("evt_1", nil).Once()

		router := setupTestRouter()
		router.POST("/webhooks/billing", handler.Receive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "evt_1", data["event_id"])
		assert.Equal(t, "received", data["status"])
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidEnvelope", func(t *testing.T) {
		mockService := new(MockWebhookService)
		handler := NewWebhookHandler(logger, mockService)

		payload := []byte(`{"type":"checkout.completed"}`)
		mockService.On("Ingest", mock.Anything, payload).
			Return("", billing.ErrInvalidEvent{Reason: "event id is required"}).Once()

		router := setupTestRouter()
		router.POST("/webhooks/billing", handler.Receive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("PublishFailure", func(t *testing.T) {
		mockService := new(MockWebhookService)
		handler := NewWebhookHandler(logger, mockService)

		payload := []byte(`{"id":"evt_1","type":"checkout.completed","data":{}}`)
		mockService.On("Ingest", mock.Anything, payload).
			Return("", errors.New("kafka unavailable")).Once()

		router := setupTestRouter()
		router.POST("/webhooks/billing", handler.Receive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "provider must retry when the queue is down")
	})
}
