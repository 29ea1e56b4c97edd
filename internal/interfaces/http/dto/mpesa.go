package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// transTimeLayout is the Daraja C2B timestamp format (YYYYMMDDHHmmss)
const transTimeLayout = "20060102150405"

// C2BNotification is the payload Daraja posts to the validation and
// confirmation URLs for a customer-to-business payment.
type C2BNotification struct {
	TransactionType   string `json:"TransactionType"`
	TransID           string `json:"TransID" binding:"required"`
	TransTime         string `json:"TransTime" binding:"required"`
	TransAmount       string `json:"TransAmount" binding:"required"`
	BusinessShortCode string `json:"BusinessShortCode"`
	BillRefNumber     string `json:"BillRefNumber"`
	InvoiceNumber     string `json:"InvoiceNumber"`
	OrgAccountBalance string `json:"OrgAccountBalance"`
	ThirdPartyTransID string `json:"ThirdPartyTransID"`
	MSISDN            string `json:"MSISDN"`
	FirstName         string `json:"FirstName"`
	MiddleName        string `json:"MiddleName"`
	LastName          string `json:"LastName"`
}

// Amount parses the transaction amount
func (n *C2BNotification) Amount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(n.TransAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid TransAmount %q: %w", n.TransAmount, err)
	}
	return amount, nil
}

// Time parses the TransTime timestamp in the given business location
func (n *C2BNotification) Time(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(transTimeLayout, strings.TrimSpace(n.TransTime), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid TransTime %q: %w", n.TransTime, err)
	}
	return t, nil
}

// Reference returns the account reference the payer keyed in. Daraja
// populates BillRefNumber for paybill payments; InvoiceNumber is a
// fallback some integrations use.
func (n *C2BNotification) Reference() string {
	if ref := strings.TrimSpace(n.BillRefNumber); ref != "" {
		return ref
	}
	return strings.TrimSpace(n.InvoiceNumber)
}

// Daraja C2B result codes
const (
	C2BResultAccepted       = "0"
	C2BResultInvalidAccount = "C2B00012"
)

// C2BResponse is the acknowledgement Daraja expects from both callback URLs
type C2BResponse struct {
	ResultCode string `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// NewC2BAccepted builds the success acknowledgement
func NewC2BAccepted() C2BResponse {
	return C2BResponse{ResultCode: C2BResultAccepted, ResultDesc: "Accepted"}
}

// NewC2BRejected builds a rejection with a Daraja result code
func NewC2BRejected(code, desc string) C2BResponse {
	return C2BResponse{ResultCode: code, ResultDesc: desc}
}
