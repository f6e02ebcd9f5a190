package debito

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mango/internal/config"
)

func TestCharge(t *testing.T) {
	t.Run("successful charge", func(t *testing.T) {
		var gotAuth, gotPath string
		var gotReq C2BRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			fmt.Fprint(w, `{"id":"gw-123","status":"success"}`)
		}))
		defer server.Close()

		client := NewClient(&config.BillingConfig{BaseURL: server.URL, APIKey: "secret"})
		resp, err := client.Charge(context.Background(), &C2BRequest{
			Number:    "841234567",
			Amount:    199,
			Method:    MethodMpesa,
			Reference: "sub-abc",
		})
		if err != nil {
			t.Fatalf("Charge() error = %v", err)
		}

		if gotAuth != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
		}
		if gotPath != "/c2b" {
			t.Errorf("path = %q, want /c2b", gotPath)
		}
		if gotReq.Number != "841234567" || gotReq.Amount != 199 || gotReq.Method != MethodMpesa {
			t.Errorf("unexpected request payload: %+v", gotReq)
		}
		if resp.ID != "gw-123" {
			t.Errorf("resp.ID = %q, want gw-123", resp.ID)
		}
	})

	t.Run("gateway error with message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message":"insufficient funds"}`)
		}))
		defer server.Close()

		client := NewClient(&config.BillingConfig{BaseURL: server.URL})
		_, err := client.Charge(context.Background(), &C2BRequest{})
		if err == nil {
			t.Fatal("Charge() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "insufficient funds") {
			t.Errorf("error = %v, want to contain gateway message", err)
		}
	})

	t.Run("gateway error without body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(&config.BillingConfig{BaseURL: server.URL})
		_, err := client.Charge(context.Background(), &C2BRequest{})
		if err == nil {
			t.Fatal("Charge() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "502") {
			t.Errorf("error = %v, want to contain status code", err)
		}
	})
}
