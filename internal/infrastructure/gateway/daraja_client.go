package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	darajaOAuthPath       = "/oauth/v1/generate?grant_type=client_credentials"
	darajaC2BRegisterPath = "/mpesa/c2b/v1/registerurl"
	darajaTxnStatusPath   = "/mpesa/transactionstatus/v1/query"
)

// Credential is an OAuth token with its expiry instant. Callers receive a
// value, never a shared handle, so a credential in hand stays consistent
// even while the client refreshes.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// stale reports whether the credential should be replaced before use
func (c Credential) stale(now time.Time, window time.Duration) bool {
	return c.Token == "" || !now.Before(c.ExpiresAt.Add(-window))
}

// Config holds Daraja API client configuration
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string

	// TokenStaleWindow refreshes the credential this long before its
	// actual expiry so in-flight calls do not race token death.
	TokenStaleWindow time.Duration
}

// Validate checks required configuration fields
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("daraja: base URL is required")
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("daraja: consumer key and secret are required")
	}
	if c.ShortCode == "" {
		return fmt.Errorf("daraja: short code is required")
	}
	return nil
}

// DarajaClient talks to the Safaricom Daraja API: OAuth credentials, C2B
// callback URL registration and transaction status queries.
type DarajaClient struct {
	config     *Config
	httpClient *http.Client

	mu      sync.Mutex
	current Credential
	now     func() time.Time
}

// NewDarajaClient creates a new Daraja API client
func NewDarajaClient(config *Config) (*DarajaClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.TokenStaleWindow <= 0 {
		config.TokenStaleWindow = 2 * time.Minute
	}

	return &DarajaClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}, nil
}

// Credential returns a usable credential, refreshing first when the cached
// one is stale. The returned value is a copy.
func (c *DarajaClient) Credential(ctx context.Context) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.current.stale(c.now(), c.config.TokenStaleWindow) {
		return c.current, nil
	}

	cred, err := c.fetchCredential(ctx)
	if err != nil {
		return Credential{}, err
	}
	c.current = cred
	return cred, nil
}

// fetchCredential requests a fresh OAuth token. Caller holds the mutex.
func (c *DarajaClient) fetchCredential(ctx context.Context) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+darajaOAuthPath, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("daraja: failed to build oauth request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.config.ConsumerKey + ":" + c.config.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("daraja: oauth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("daraja: failed to read oauth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("daraja: oauth returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Credential{}, fmt.Errorf("daraja: failed to parse oauth response: %w", err)
	}
	if payload.AccessToken == "" {
		return Credential{}, fmt.Errorf("daraja: oauth response carried no token")
	}

	expiresIn, err := strconv.Atoi(payload.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3600
	}

	return Credential{
		Token:     payload.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// RegisterC2BURLs registers the validation and confirmation callback URLs
// for the configured short code
func (c *DarajaClient) RegisterC2BURLs(ctx context.Context, validationURL, confirmationURL string) error {
	body := map[string]string{
		"ShortCode":       c.config.ShortCode,
		"ResponseType":    "Completed",
		"ConfirmationURL": confirmationURL,
		"ValidationURL":   validationURL,
	}

	respBody, err := c.doAuthorized(ctx, http.MethodPost, darajaC2BRegisterPath, body)
	if err != nil {
		return err
	}

	var result struct {
		ResponseDescription string `json:"ResponseDescription"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("daraja: failed to parse register response: %w", err)
	}
	return nil
}

// TransactionStatusRequest identifies a transaction to query
type TransactionStatusRequest struct {
	TransactionID   string
	ResultURL       string
	TimeoutURL      string
	Remarks         string
	SecurityCred    string
	InitiatorName   string
	IdentifierType  string
	PartyIdentifier string
}

// QueryTransactionStatus asks Daraja for the status of a transaction.
// Results arrive asynchronously at the configured result URL.
func (c *DarajaClient) QueryTransactionStatus(ctx context.Context, req TransactionStatusRequest) error {
	identifierType := req.IdentifierType
	if identifierType == "" {
		identifierType = "4" // organization short code
	}
	party := req.PartyIdentifier
	if party == "" {
		party = c.config.ShortCode
	}

	body := map[string]string{
		"Initiator":          req.InitiatorName,
		"SecurityCredential": req.SecurityCred,
		"CommandID":          "TransactionStatusQuery",
		"TransactionID":      req.TransactionID,
		"PartyA":             party,
		"IdentifierType":     identifierType,
		"ResultURL":          req.ResultURL,
		"QueueTimeOutURL":    req.TimeoutURL,
		"Remarks":            req.Remarks,
	}

	_, err := c.doAuthorized(ctx, http.MethodPost, darajaTxnStatusPath, body)
	return err
}

// doAuthorized performs a JSON request with a bearer credential attached
func (c *DarajaClient) doAuthorized(ctx context.Context, method, path string, body any) ([]byte, error) {
	cred, err := c.Credential(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("daraja: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("daraja: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daraja: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("daraja: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("daraja: %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
