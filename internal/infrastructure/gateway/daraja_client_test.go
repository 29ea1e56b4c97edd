package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOAuthServer(t *testing.T, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-1",
			"expires_in":   "3600",
		})
	})
	mux.HandleFunc("/mpesa/c2b/v1/registerurl", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "600000", body["ShortCode"])
		assert.Equal(t, "Completed", body["ResponseType"])
		assert.NotEmpty(t, body["ConfirmationURL"])
		assert.NotEmpty(t, body["ValidationURL"])

		_ = json.NewEncoder(w).Encode(map[string]string{"ResponseDescription": "success"})
	})
	mux.HandleFunc("/mpesa/transactionstatus/v1/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "TransactionStatusQuery", body["CommandID"])
		assert.Equal(t, "4", body["IdentifierType"])
		assert.Equal(t, "600000", body["PartyA"])

		_ = json.NewEncoder(w).Encode(map[string]string{"ResponseDescription": "accepted"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string) *DarajaClient {
	t.Helper()
	client, err := NewDarajaClient(&Config{
		BaseURL:        baseURL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "600000",
	})
	require.NoError(t, err)
	return client
}

func TestDarajaClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "https://sandbox", ConsumerKey: "k", ConsumerSecret: "s", ShortCode: "600000"}, false},
		{"missing base url", Config{ConsumerKey: "k", ConsumerSecret: "s", ShortCode: "600000"}, true},
		{"missing credentials", Config{BaseURL: "https://sandbox", ShortCode: "600000"}, true},
		{"missing short code", Config{BaseURL: "https://sandbox", ConsumerKey: "k", ConsumerSecret: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDarajaClientCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("caches the credential until stale", func(t *testing.T) {
		var calls atomic.Int32
		server := newOAuthServer(t, &calls)
		client := newTestClient(t, server.URL)

		first, err := client.Credential(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-1", first.Token)
		assert.True(t, first.ExpiresAt.After(time.Now()))

		second, err := client.Credential(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("refreshes inside the stale window", func(t *testing.T) {
		var calls atomic.Int32
		server := newOAuthServer(t, &calls)
		client := newTestClient(t, server.URL)

		_, err := client.Credential(ctx)
		require.NoError(t, err)

		// Jump to one minute before expiry, inside the 2m stale window.
		client.now = func() time.Time { return time.Now().Add(3600*time.Second - time.Minute) }

		_, err = client.Credential(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("oauth failure surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Credential(ctx)
		assert.Error(t, err)
	})
}

func TestDarajaClientRegisterC2BURLs(t *testing.T) {
	var calls atomic.Int32
	server := newOAuthServer(t, &calls)
	client := newTestClient(t, server.URL)

	err := client.RegisterC2BURLs(context.Background(),
		"https://api.pesaflow.example/mpesa/c2b/validation",
		"https://api.pesaflow.example/mpesa/c2b/confirmation")
	require.NoError(t, err)
}

func TestDarajaClientQueryTransactionStatus(t *testing.T) {
	var calls atomic.Int32
	server := newOAuthServer(t, &calls)
	client := newTestClient(t, server.URL)

	err := client.QueryTransactionStatus(context.Background(), TransactionStatusRequest{
		TransactionID: "ABC123XYZ",
		ResultURL:     "https://api.pesaflow.example/mpesa/status/result",
		TimeoutURL:    "https://api.pesaflow.example/mpesa/status/timeout",
		InitiatorName: "pesaflow",
		SecurityCred:  "cred",
	})
	require.NoError(t, err)
}

func TestCredentialStale(t *testing.T) {
	now := time.Now()
	window := 2 * time.Minute

	assert.True(t, Credential{}.stale(now, window))
	assert.True(t, Credential{Token: "t", ExpiresAt: now.Add(time.Minute)}.stale(now, window))
	assert.False(t, Credential{Token: "t", ExpiresAt: now.Add(time.Hour)}.stale(now, window))
}
