package router

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pesaflow/backend/internal/domain/partner"
	"github.com/pesaflow/backend/internal/infrastructure/config"
	"github.com/pesaflow/backend/internal/infrastructure/logger"
	"github.com/pesaflow/backend/internal/interfaces/http/handler"
	"github.com/pesaflow/backend/internal/interfaces/http/middleware"
)

var registerValidationsOnce sync.Once

// registerValidations hooks domain value formats into gin's binding
// validator so malformed requests fail before reaching the handlers.
func registerValidations() {
	registerValidationsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("customer_code", func(fl validator.FieldLevel) bool {
				return partner.ValidCustomerCode(fl.Field().String())
			})
		}
	})
}

// Handlers bundles the handlers the router mounts
type Handlers struct {
	System     *handler.SystemHandler
	Settlement *handler.SettlementHandler
	Finance    *handler.FinanceHandler
	Customer   *handler.CustomerHandler
}

// New builds the gin engine with middleware and all routes mounted.
// Gateway callback endpoints live outside the versioned API group: their
// paths are registered with Daraja and must stay stable.
func New(cfg *config.HTTPConfig, appEnv string, log *zap.Logger, h Handlers) *gin.Engine {
	if appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidations()

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if len(cfg.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.TrustedProxies)
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/ping", h.System.Ping)

	// Daraja C2B callbacks, restricted to the gateway's source addresses
	mpesa := engine.Group("/mpesa/c2b", middleware.SourceAllowlist(cfg.AllowedPeers))
	{
		mpesa.POST("/validation", h.Settlement.HandleValidation)
		mpesa.POST("/confirmation", h.Settlement.HandleConfirmation)
	}

	api := engine.Group("/api/v1")
	{
		api.GET("/system/info", h.System.GetSystemInfo)

		customers := api.Group("/customers")
		{
			customers.POST("", h.Customer.CreateCustomer)
			customers.GET("/:id", h.Customer.GetCustomer)
			customers.GET("/code/:code", h.Customer.GetCustomerByCode)
			customers.GET("/:id/reconciliation", h.Finance.ReconcileCustomer)
		}

		invoices := api.Group("/invoices")
		{
			invoices.POST("", h.Finance.IssueInvoice)
			invoices.GET("/:id", h.Finance.GetInvoice)
			invoices.POST("/:id/cancel", h.Finance.CancelInvoice)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/receipt/:receipt", h.Finance.GetPaymentByReceipt)
		}

		ledger := api.Group("/ledger")
		{
			ledger.GET("/accounts/:code/balance", h.Finance.AccountBalance)
			ledger.GET("/trial-balance", h.Finance.TrialBalance)
			ledger.GET("/integrity", h.Finance.VerifyLedger)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("/unprocessed", h.Finance.ListUnprocessedNotifications)
		}
	}

	return engine
}
