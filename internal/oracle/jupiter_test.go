package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var (
	testMintSOL  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testMintUSDC = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func priceBody(mint solana.PublicKey, price string) string {
	return fmt.Sprintf(`{"data":{"%s":{"id":"%s","type":"derivedPrice","price":"%s"}},"timeTaken":0.003}`, mint, mint, price)
}

func TestJupiterClient_FetchPrice(t *testing.T) {
	var gotIDs, gotVs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		gotVs = r.URL.Query().Get("vsToken")
		fmt.Fprint(w, priceBody(testMintSOL, "178.42"))
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL)

	px, err := client.FetchPrice(context.Background(), testMintSOL, testMintUSDC)
	if err != nil {
		t.Fatalf("FetchPrice() error = %v", err)
	}

	if want := decimal.RequireFromString("178.42"); !px.Equal(want) {
		t.Errorf("FetchPrice() = %s, want %s", px, want)
	}
	if gotIDs != testMintSOL.String() {
		t.Errorf("ids = %q, want %q", gotIDs, testMintSOL)
	}
	if gotVs != testMintUSDC.String() {
		t.Errorf("vsToken = %q, want %q", gotVs, testMintUSDC)
	}
}

func TestJupiterClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, priceBody(testMintSOL, "178.42"))
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, WithRetries(3, time.Millisecond))

	px, err := client.FetchPrice(context.Background(), testMintSOL, testMintUSDC)
	if err != nil {
		t.Fatalf("FetchPrice() error = %v", err)
	}
	if !px.Equal(decimal.RequireFromString("178.42")) {
		t.Errorf("FetchPrice() = %s, want 178.42", px)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestJupiterClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, WithRetries(3, time.Millisecond))

	_, err := client.FetchPrice(context.Background(), testMintSOL, testMintUSDC)
	if err == nil {
		t.Fatal("FetchPrice() error = nil, want APIError")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FetchPrice() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusNotFound)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retries)", got)
	}
}

func TestJupiterClient_MissingMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{},"timeTaken":0.001}`)
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL)

	if _, err := client.FetchPrice(context.Background(), testMintSOL, testMintUSDC); err == nil {
		t.Fatal("FetchPrice() error = nil, want missing-mint error")
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{500, true},
		{502, true},
		{429, true},
		{404, false},
		{400, false},
	}

	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status}
		if got := err.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
