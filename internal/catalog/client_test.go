package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetProduct_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/products/p1" {
			t.Fatalf("path = %s, want /api/products/p1", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","name":"Phone","image":"/img/p1.jpg","price":599.99,"countInStock":3}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := client.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProduct error: %v", err)
	}
	if p.Name != "Phone" || p.CountInStock != 3 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if got := p.Price.String(); got != "599.99" {
		t.Fatalf("price = %s, want 599.99", got)
	}

	item := p.CartItem(2)
	if item.ID != "p1" || item.Qty != 2 || item.CountInStock != 3 {
		t.Fatalf("unexpected cart item: %+v", item)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.GetProduct(context.Background(), "missing")
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestGetProduct_BreakerOpensOnFailures(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	for i := 0; i < 8; i++ {
		if _, err := client.GetProduct(context.Background(), "p1"); err == nil {
			t.Fatalf("expected error on attempt %d", i)
		}
	}

	if calls != 5 {
		t.Fatalf("catalog calls = %d, want 5 before breaker opens", calls)
	}
}

func TestNewClient_AddsScheme(t *testing.T) {
	client := NewClient("catalog:8080/")
	if !strings.HasPrefix(client.baseURL, "http://") || strings.HasSuffix(client.baseURL, "/") {
		t.Fatalf("baseURL = %q", client.baseURL)
	}
}

func TestGetProduct_NotConfigured(t *testing.T) {
	var client *Client
	if _, err := client.GetProduct(context.Background(), "p1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
