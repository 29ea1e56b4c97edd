package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/backend/internal/application/ports"
	"github.com/pesaflow/backend/internal/domain/partner"
	"github.com/pesaflow/backend/internal/interfaces/http/dto"
)

// CustomerHandler exposes customer account management
type CustomerHandler struct {
	BaseHandler
	repos ports.Repos
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(repos ports.Repos) *CustomerHandler {
	return &CustomerHandler{repos: repos}
}

// CreateCustomerRequest is the payload for registering a customer account
type CreateCustomerRequest struct {
	Code  string `json:"code" binding:"required,max=50,customer_code"`
	Name  string `json:"name" binding:"required,max=200"`
	Phone string `json:"phone" binding:"max=50"`
}

// CustomerResponse is the transport shape of a customer account
type CustomerResponse struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Status    string          `json:"status"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

func toCustomerResponse(customer *partner.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        customer.ID.String(),
		Code:      customer.Code,
		Name:      customer.Name,
		Phone:     customer.Phone,
		Status:    string(customer.Status),
		Balance:   customer.Balance,
		CreatedAt: customer.CreatedAt,
	}
}

// CreateCustomer registers a new customer account
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customer, err := partner.NewCustomer(req.Code, req.Name, req.Phone)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if err := h.repos.Customers.Create(c.Request.Context(), customer); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toCustomerResponse(customer))
}

// GetCustomer returns one customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}
	customerID, _ := uuid.Parse(idReq.ID)

	customer, err := h.repos.Customers.FindByID(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if customer == nil {
		h.NotFound(c, "Customer not found")
		return
	}

	h.Success(c, toCustomerResponse(customer))
}

// GetCustomerByCode returns one customer by account code
func (h *CustomerHandler) GetCustomerByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Customer code is required")
		return
	}

	customer, err := h.repos.Customers.FindByCode(c.Request.Context(), code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if customer == nil {
		h.NotFound(c, "Customer not found")
		return
	}

	h.Success(c, toCustomerResponse(customer))
}
