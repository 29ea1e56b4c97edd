package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pesaflow/backend/internal/application/ports"
	"github.com/pesaflow/backend/internal/application/settlement"
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/partner"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/pesaflow/backend/internal/infrastructure/persistence"
	"github.com/pesaflow/backend/internal/interfaces/http/dto"
)

type settlementFixture struct {
	repos   ports.Repos
	handler *SettlementHandler
	router  *gin.Engine
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	repos := persistence.NewRepos(db)
	service := settlement.NewService(settlement.Config{
		UnitOfWork: persistence.NewGormUnitOfWork(db),
		Repos:      repos,
		Rules: finance.SettlementRules{
			MaxTransactionAmount: decimal.NewFromInt(250000),
			Location:             loc,
		},
	})

	h := NewSettlementHandler(service,
		finance.NewTargetResolver(repos.Invoices, repos.Customers), loc)

	router := gin.New()
	router.POST("/mpesa/c2b/validation", h.HandleValidation)
	router.POST("/mpesa/c2b/confirmation", h.HandleConfirmation)

	return &settlementFixture{repos: repos, handler: h, router: router}
}

func (f *settlementFixture) seedCustomerWithInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	ctx := context.Background()

	customer, err := partner.NewCustomer("ACME-01", "Acme Traders", "+254700000001")
	require.NoError(t, err)
	require.NoError(t, f.repos.Customers.Create(ctx, customer))

	invoice, err := billing.NewInvoice("INV-001", customer.ID,
		valueobject.NewMoneyKESFromFloat(500), time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repos.Invoices.Create(ctx, invoice))
	return invoice
}

func (f *settlementFixture) post(t *testing.T, path string, payload any) (*httptest.ResponseRecorder, dto.C2BResponse) {
	t.Helper()

	var body []byte
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	default:
		var err error
		body, err = json.Marshal(p)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp dto.C2BResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func c2bPayload(transID, reference, amount string) dto.C2BNotification {
	return dto.C2BNotification{
		TransactionType: "Pay Bill",
		TransID:         transID,
		TransTime:       "20260615103000",
		TransAmount:     amount,
		BillRefNumber:   reference,
		MSISDN:          "+254700000001",
	}
}

func TestHandleValidation(t *testing.T) {
	t.Run("known reference is accepted", func(t *testing.T) {
		f := newSettlementFixture(t)
		f.seedCustomerWithInvoice(t)

		w, resp := f.post(t, "/mpesa/c2b/validation", c2bPayload("RCP001", "INV-001", "500"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dto.C2BResultAccepted, resp.ResultCode)
	})

	t.Run("unknown reference is rejected", func(t *testing.T) {
		f := newSettlementFixture(t)

		w, resp := f.post(t, "/mpesa/c2b/validation", c2bPayload("RCP002", "NO-SUCH-REF", "500"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dto.C2BResultInvalidAccount, resp.ResultCode)
	})

	t.Run("malformed payload is rejected", func(t *testing.T) {
		f := newSettlementFixture(t)

		w, resp := f.post(t, "/mpesa/c2b/validation", `{"TransID":""}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dto.C2BResultInvalidAccount, resp.ResultCode)
	})
}

func TestHandleConfirmation(t *testing.T) {
	t.Run("settles and acks", func(t *testing.T) {
		f := newSettlementFixture(t)
		invoice := f.seedCustomerWithInvoice(t)

		w, resp := f.post(t, "/mpesa/c2b/confirmation", c2bPayload("RCP010", "INV-001", "500"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dto.C2BResultAccepted, resp.ResultCode)

		ctx := context.Background()
		payment, err := f.repos.Payments.FindByReceiptNumber(ctx, "RCP010")
		require.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, finance.PaymentStatusCompleted, payment.Status)

		stored, err := f.repos.Invoices.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPaid, stored.Status)
	})

	t.Run("acks even when the reference resolves to nothing", func(t *testing.T) {
		f := newSettlementFixture(t)

		_, resp := f.post(t, "/mpesa/c2b/confirmation", c2bPayload("RCP011", "NO-SUCH-REF", "500"))
		assert.Equal(t, dto.C2BResultAccepted, resp.ResultCode)

		logs, err := f.repos.Notifications.FindByReceiptNumber(context.Background(), "RCP011")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.False(t, logs[0].Processed)
	})

	t.Run("acks a duplicate delivery without settling twice", func(t *testing.T) {
		f := newSettlementFixture(t)
		f.seedCustomerWithInvoice(t)

		_, first := f.post(t, "/mpesa/c2b/confirmation", c2bPayload("RCP012", "INV-001", "500"))
		assert.Equal(t, dto.C2BResultAccepted, first.ResultCode)

		_, second := f.post(t, "/mpesa/c2b/confirmation", c2bPayload("RCP012", "INV-001", "500"))
		assert.Equal(t, dto.C2BResultAccepted, second.ResultCode)

		logs, err := f.repos.Notifications.FindByReceiptNumber(context.Background(), "RCP012")
		require.NoError(t, err)
		require.Len(t, logs, 2)
	})

	t.Run("acks malformed payloads and keeps an audit row for each", func(t *testing.T) {
		f := newSettlementFixture(t)

		for _, payload := range []string{"not json at all", `{"TransID":""}`, `{}`} {
			_, resp := f.post(t, "/mpesa/c2b/confirmation", payload)
			assert.Equal(t, dto.C2BResultAccepted, resp.ResultCode)
		}

		logs, err := f.repos.Notifications.ListUnprocessed(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		for _, entry := range logs {
			assert.Equal(t, "UNPARSEABLE", entry.ReceiptNumber)
			assert.NotEmpty(t, entry.ErrorText)
			assert.False(t, entry.Processed)
		}
	})

	t.Run("acks unparseable amounts without recording a payment", func(t *testing.T) {
		f := newSettlementFixture(t)
		f.seedCustomerWithInvoice(t)

		_, resp := f.post(t, "/mpesa/c2b/confirmation", c2bPayload("RCP013", "INV-001", "banana"))
		assert.Equal(t, dto.C2BResultAccepted, resp.ResultCode)

		ctx := context.Background()
		payment, err := f.repos.Payments.FindByReceiptNumber(ctx, "RCP013")
		require.NoError(t, err)
		assert.Nil(t, payment)

		logs, err := f.repos.Notifications.FindByReceiptNumber(ctx, "RCP013")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.False(t, logs[0].Processed)
		assert.NotEmpty(t, logs[0].ErrorText)
		assert.Contains(t, logs[0].RawPayload, `"RCP013"`)
	})

	t.Run("timestamp parses in the business timezone", func(t *testing.T) {
		f := newSettlementFixture(t)
		f.seedCustomerWithInvoice(t)

		payload := c2bPayload("RCP014", "INV-001", "500")
		payload.TransTime = "20260615235959"
		_, resp := f.post(t, "/mpesa/c2b/confirmation", payload)
		assert.Equal(t, dto.C2BResultAccepted, resp.ResultCode)

		payment, err := f.repos.Payments.FindByReceiptNumber(context.Background(), "RCP014")
		require.NoError(t, err)
		require.NotNil(t, payment)

		loc, err := time.LoadLocation("Africa/Nairobi")
		require.NoError(t, err)
		assert.Equal(t, 23, payment.TransactionAt.In(loc).Hour())
	})
}
