package eventret

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/backtest" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Catalog != "wwdc" || req.Entry != -1 || req.Exit != 5 {
			t.Errorf("unexpected request body %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"runId":"r1","symbol":"AAPL","observations":[{"event":"2019","return":2}],"summary":{"mean":2,"stdev":0,"winRate":100,"count":1}}}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Run(context.Background(), RunRequest{Catalog: "wwdc", Entry: -1, Exit: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Result.RunID != "r1" || resp.Result.Summary.WinRate != 100 {
		t.Errorf("unexpected response %+v", resp.Result)
	}
	if resp.Stale {
		t.Error("expected Stale=false")
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"event 2019 (2019-06-01): date not in series","kind":"date_not_in_series"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Run(context.Background(), RunRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Kind != "date_not_in_series" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Offsets(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "gateway down" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCatalogsAndLatest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalogs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"catalogs":[{"name":"wwdc","symbol":"AAPL","events":[{"id":"2019","date":"2019-06-03"}]}]}`))
	})
	mux.HandleFunc("GET /api/backtest/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"loading","generation":3}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(srv.URL)

	cats, err := c.Catalogs(context.Background())
	if err != nil {
		t.Fatalf("Catalogs: %v", err)
	}
	if len(cats) != 1 || cats[0].Events[0].Date != "2019-06-03" {
		t.Errorf("unexpected catalogs %+v", cats)
	}

	snap, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap.State != "loading" || snap.Generation != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
