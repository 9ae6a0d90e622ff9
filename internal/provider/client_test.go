package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

func TestFetchOffers_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/v1/emi/offers" {
			t.Fatalf("path = %s, want /api/v1/emi/offers", r.URL.Path)
		}

		var req offersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 5000 || req.CreditLimit != 20000 {
			t.Fatalf("unexpected request: %+v", req)
		}

		resp := offersResponse{Offers: []model.EMIOffer{
			{TenureMonths: 3, MonthlyAmount: 1666.67, TotalAmount: 5000},
			{TenureMonths: 6, MonthlyAmount: 838.76, InterestRate: 2.5, TotalAmount: 5032.56, ProcessingFee: 50},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	offers, err := client.FetchOffers(ctx, 5000, 20000)
	if err != nil {
		t.Fatalf("FetchOffers error: %v", err)
	}
	if len(offers) != 2 || offers[0].TenureMonths != 3 || offers[1].TenureMonths != 6 {
		t.Fatalf("unexpected offers: %+v", offers)
	}
}

func TestFetchOffers_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := client.FetchOffers(ctx, 5000, 20000); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestFetchOffers_NotConfigured(t *testing.T) {
	var client *Client

	if _, err := client.FetchOffers(context.Background(), 100, 200); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
