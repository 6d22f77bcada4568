package pix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javascriptando/vips.lat-sub001/providers"
)

func testRequest() providers.TransferRequest {
	return providers.TransferRequest{
		Amount:            decimal.New(3500, -2),
		PixKey:            "creator@pix.local",
		PixKeyType:        "email",
		Description:       "creator payout abc",
		ExternalReference: "abc",
	}
}

func TestTransferPostsAuthorizedRequest(t *testing.T) {
	var seen struct {
		method, path, auth string
		body               map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.method = r.Method
		seen.path = r.URL.Path
		seen.auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&seen.body)
		json.NewEncoder(w).Encode(map[string]string{"id": "tr-1", "status": "DONE"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second)
	result, err := client.Transfer(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if seen.method != http.MethodPost || seen.path != "/v1/transfers" {
		t.Fatalf("request = %s %s, want POST /v1/transfers", seen.method, seen.path)
	}
	if seen.auth != "Bearer test-token" {
		t.Fatalf("authorization = %q", seen.auth)
	}
	if seen.body["pix_key"] != "creator@pix.local" {
		t.Fatalf("pix_key = %v", seen.body["pix_key"])
	}
	if seen.body["amount"] != "35" {
		t.Fatalf("amount = %v, want reais string \"35\"", seen.body["amount"])
	}

	if result.ID != "tr-1" {
		t.Fatalf("transfer id = %q, want tr-1", result.ID)
	}
	if result.Status != providers.TransferDone {
		t.Fatalf("status = %q, want done", result.Status)
	}
}

func TestTransferGatewayRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "pix key rejected"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second)
	_, err := client.Transfer(context.Background(), testRequest())
	if err == nil {
		t.Fatal("refused transfer returned no error")
	}
	if !strings.Contains(err.Error(), "pix key rejected") {
		t.Fatalf("error %q does not carry the gateway message", err)
	}
}

func TestTransferRejectsUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr-1", "status": "queued"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second)
	if _, err := client.Transfer(context.Background(), testRequest()); err == nil {
		t.Fatal("unknown status accepted")
	}
}

func TestTransferRejectsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "done"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second)
	if _, err := client.Transfer(context.Background(), testRequest()); err == nil {
		t.Fatal("response without id accepted")
	}
}

func TestGetTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/transfers/tr-9" {
			t.Errorf("request = %s %s, want GET /v1/transfers/tr-9", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "tr-9", "status": "processing"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second)
	result, err := client.GetTransfer(context.Background(), "tr-9")
	if err != nil {
		t.Fatalf("get transfer: %v", err)
	}
	if result.Status != providers.TransferProcessing {
		t.Fatalf("status = %q, want processing", result.Status)
	}

	if _, err := client.GetTransfer(context.Background(), ""); err == nil {
		t.Fatal("empty id accepted")
	}
}
