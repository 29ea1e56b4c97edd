package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	financeapp "github.com/pesaflow/backend/internal/application/finance"
	"github.com/pesaflow/backend/internal/application/ports"
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/interfaces/http/dto"
)

// FinanceHandler exposes invoice management and the read-side finance
// endpoints: ledger balances, integrity checks and customer reconciliation.
type FinanceHandler struct {
	BaseHandler
	invoices  *financeapp.InvoiceService
	integrity *financeapp.IntegrityService
	repos     ports.Repos
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(invoices *financeapp.InvoiceService, integrity *financeapp.IntegrityService, repos ports.Repos) *FinanceHandler {
	return &FinanceHandler{
		invoices:  invoices,
		integrity: integrity,
		repos:     repos,
	}
}

// IssueInvoiceRequest is the payload for creating an invoice
type IssueInvoiceRequest struct {
	Number     string          `json:"number" binding:"required,max=50"`
	CustomerID string          `json:"customer_id" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	IssuedAt   *time.Time      `json:"issued_at"`
	SaleID     *string         `json:"sale_id" binding:"omitempty,uuid"`
	SaleNumber string          `json:"sale_number" binding:"max=50"`
}

// InvoiceResponse is the transport shape of an invoice
type InvoiceResponse struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
	IssuedAt   time.Time       `json:"issued_at"`
}

func toInvoiceResponse(invoice *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:         invoice.ID.String(),
		Number:     invoice.Number,
		CustomerID: invoice.CustomerID.String(),
		Amount:     invoice.Amount,
		AmountPaid: invoice.AmountPaid,
		Balance:    invoice.Balance,
		Status:     string(invoice.Status),
		IssuedAt:   invoice.IssuedAt,
	}
}

// IssueInvoice creates an invoice and posts its issuance transaction
func (h *FinanceHandler) IssueInvoice(c *gin.Context) {
	var req IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer_id")
		return
	}

	issueReq := financeapp.IssueInvoiceRequest{
		Number:     req.Number,
		CustomerID: customerID,
		Amount:     req.Amount,
		SaleNumber: req.SaleNumber,
	}
	if req.IssuedAt != nil {
		issueReq.IssuedAt = *req.IssuedAt
	}
	if req.SaleID != nil {
		saleID, err := uuid.Parse(*req.SaleID)
		if err != nil {
			h.BadRequest(c, "Invalid sale_id")
			return
		}
		issueReq.SaleID = &saleID
	}

	invoice, err := h.invoices.IssueInvoice(c.Request.Context(), issueReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// CancelInvoiceRequest carries the cancellation reason
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CancelInvoice cancels an unpaid invoice and reverses its issuance posting
func (h *FinanceHandler) CancelInvoice(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoiceID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	if err := h.invoices.CancelInvoice(c.Request.Context(), invoiceID, req.Reason); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetInvoice returns one invoice by ID
func (h *FinanceHandler) GetInvoice(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	invoiceID, _ := uuid.Parse(idReq.ID)

	invoice, err := h.repos.Invoices.FindByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if invoice == nil {
		h.NotFound(c, "Invoice not found")
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// GetPaymentByReceipt returns the payment recorded for a receipt number
func (h *FinanceHandler) GetPaymentByReceipt(c *gin.Context) {
	receipt := c.Param("receipt")
	if receipt == "" {
		h.BadRequest(c, "Receipt number is required")
		return
	}

	payment, err := h.repos.Payments.FindByReceiptNumber(c.Request.Context(), receipt)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if payment == nil {
		h.NotFound(c, "Payment not found")
		return
	}

	h.Success(c, payment)
}

// AccountBalance derives one ledger account's balance, optionally as of a
// date supplied as ?as_of=RFC3339
func (h *FinanceHandler) AccountBalance(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Account code is required")
		return
	}

	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "as_of must be RFC3339")
			return
		}
		asOf = &t
	}

	balance, err := h.integrity.AccountBalance(c.Request.Context(), code, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"account_code": code, "balance": balance})
}

// TrialBalance totals every account in the chart, optionally as of a date
// supplied as ?as_of=RFC3339
func (h *FinanceHandler) TrialBalance(c *gin.Context) {
	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "as_of must be RFC3339")
			return
		}
		asOf = &t
	}

	tb, err := h.integrity.ComputeTrialBalance(c.Request.Context(), asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, tb)
}

// VerifyLedger reports transaction references whose sides disagree
func (h *FinanceHandler) VerifyLedger(c *gin.Context) {
	report, err := h.integrity.VerifyLedger(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// ReconcileCustomer compares a customer's stored balance against invoices
// and held credit
func (h *FinanceHandler) ReconcileCustomer(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}
	customerID, _ := uuid.Parse(idReq.ID)

	reconciliation, err := h.integrity.ReconcileCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, reconciliation)
}

// ListUnprocessedNotifications lists failed notifications awaiting manual
// reprocessing
func (h *FinanceHandler) ListUnprocessedNotifications(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			limit = parsed
		}
	}

	logs, err := h.repos.Notifications.ListUnprocessed(c.Request.Context(), limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, logs)
}
