package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pesaflow/backend/internal/application/settlement"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/infrastructure/logger"
	"github.com/pesaflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// SettlementHandler receives Daraja C2B callbacks. These endpoints are
// called by the gateway, not by users, and follow its acknowledgement
// contract: the confirmation endpoint always acks, whatever happened
// inside. The notification log records the real outcome.
type SettlementHandler struct {
	BaseHandler
	service  *settlement.Service
	resolver *finance.TargetResolver
	location *time.Location
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service *settlement.Service, resolver *finance.TargetResolver, location *time.Location) *SettlementHandler {
	if location == nil {
		location = time.UTC
	}
	return &SettlementHandler{
		service:  service,
		resolver: resolver,
		location: location,
	}
}

// HandleValidation is the Daraja C2B validation callback. The gateway asks
// whether it should accept the payment; rejecting here is the one chance
// to stop money that targets nothing we know.
func (h *SettlementHandler) HandleValidation(c *gin.Context) {
	log := logger.GetGinLogger(c)

	var notification dto.C2BNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		log.Warn("malformed validation payload", zap.Error(err))
		c.JSON(http.StatusOK, dto.NewC2BRejected(dto.C2BResultInvalidAccount, "Invalid payload"))
		return
	}

	if _, err := h.resolver.Resolve(c.Request.Context(), notification.Reference()); err != nil {
		log.Info("validation rejected",
			zap.String("receipt", notification.TransID),
			zap.String("reference", notification.Reference()),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, dto.NewC2BRejected(dto.C2BResultInvalidAccount, "Account reference not found"))
		return
	}

	c.JSON(http.StatusOK, dto.NewC2BAccepted())
}

// HandleConfirmation is the Daraja C2B confirmation callback. The money has
// already moved, so this always acks: a non-zero response would make the
// gateway retry a payment we may have recorded, and a crash here changes
// nothing about the funds.
func (h *SettlementHandler) HandleConfirmation(c *gin.Context) {
	log := logger.GetGinLogger(c)

	raw, err := c.GetRawData()
	if err != nil {
		log.Error("failed to read confirmation body", zap.Error(err))
		h.service.RecordMalformed(c.Request.Context(), "", "",
			"failed to read request body: "+err.Error())
		c.JSON(http.StatusOK, dto.NewC2BAccepted())
		return
	}

	var notification dto.C2BNotification
	if err := json.Unmarshal(raw, &notification); err != nil || notification.TransID == "" {
		log.Error("malformed confirmation payload",
			zap.ByteString("payload", raw),
			zap.Error(err),
		)
		errText := "missing receipt number"
		if err != nil {
			errText = err.Error()
		}
		h.service.RecordMalformed(c.Request.Context(), notification.TransID, string(raw), errText)
		c.JSON(http.StatusOK, dto.NewC2BAccepted())
		return
	}

	req, err := h.toRequest(&notification, string(raw))
	if err != nil {
		log.Error("unusable confirmation payload",
			zap.String("receipt", notification.TransID),
			zap.Error(err),
		)
		h.service.RecordMalformed(c.Request.Context(), notification.TransID, string(raw), err.Error())
		c.JSON(http.StatusOK, dto.NewC2BAccepted())
		return
	}

	outcome, err := h.service.Settle(c.Request.Context(), req)
	switch {
	case err != nil:
		log.Error("settlement failed, queued for reprocessing",
			zap.String("receipt", req.ReceiptNumber),
			zap.Error(err),
		)
	case outcome != nil:
		log.Info("settlement acknowledged",
			zap.String("receipt", req.ReceiptNumber),
			zap.String("outcome", string(outcome.Kind)),
		)
	}

	c.JSON(http.StatusOK, dto.NewC2BAccepted())
}

// toRequest maps the gateway payload onto a settlement request
func (h *SettlementHandler) toRequest(n *dto.C2BNotification, raw string) (settlement.Request, error) {
	amount, err := n.Amount()
	if err != nil {
		return settlement.Request{}, err
	}
	transactionAt, err := n.Time(h.location)
	if err != nil {
		return settlement.Request{}, err
	}
	return settlement.Request{
		ReceiptNumber:    n.TransID,
		CorrelationID:    n.ThirdPartyTransID,
		AccountReference: n.Reference(),
		Amount:           amount,
		Phone:            n.MSISDN,
		TransactionAt:    transactionAt,
		RawPayload:       raw,
	}, nil
}
