package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-agent/models"
)

type fetchRunCapture struct {
	runs []models.FetchRun
}

func (c *fetchRunCapture) AppendFetchRun(_ context.Context, run models.FetchRun) {
	c.runs = append(c.runs, run)
}

func newTestIPOAlertsClient(serverURL string, pages int, provenance ProvenanceRecorder) *IPOAlertsClient {
	return NewIPOAlertsClient(&IPOAlertsConfig{
		BaseURL:            serverURL,
		APIKey:             "test-key",
		Status:             "open",
		PageLimit:          5,
		Pages:              pages,
		HTTPRequestTimeout: 5 * time.Second,
		RequestRateLimit:   0,
		MaxRetryAttempts:   0,
	}, NewUtilityService(), provenance)
}

func TestFetchOpenIPOsNormalizesPayload(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)

		if r.URL.Path != "/ipos" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key header = %q, want test-key", got)
		}
		if got := r.URL.Query().Get("status"); got != "open" {
			t.Errorf("status query = %q, want open", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit query = %q, want 5", got)
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`{"data": [
				{"company_name": "Acme Industries", "symbol": "ACME",
				 "price_low": 100, "price_high": 110,
				 "open_date": "2026-09-01", "close_date": "2026-09-03",
				 "status": "open", "lot_size": 13,
				 "issue_size": "500 Cr", "prospectus_url": "https://example.com/acme.pdf"},
				"not-an-object",
				{"name": "Beta Pharma", "min_price": 50, "max_price": 55, "status": "upcoming"}
			]}`))
		case "2":
			w.Write([]byte(`{"data": [
				{"company": "Gamma Ltd", "price_band_low": "₹80", "price_band_high": "₹88"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	capture := &fetchRunCapture{}
	client := newTestIPOAlertsClient(server.URL, 2, capture)
	defer client.Cleanup()

	records, fundamentals, err := client.FetchOpenIPOs(context.Background())
	if err != nil {
		t.Fatalf("FetchOpenIPOs failed: %v", err)
	}
	if atomic.LoadInt64(&requests) != 2 {
		t.Errorf("server saw %d requests, want 2", requests)
	}

	// The malformed array element is skipped, the rest survive.
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(records), records)
	}

	acme := records[0]
	if acme.Key != "acme" {
		t.Errorf("key = %q, want acme (symbol has priority)", acme.Key)
	}
	if acme.Symbol == nil || *acme.Symbol != "ACME" {
		t.Errorf("symbol = %v, want ACME", acme.Symbol)
	}
	if acme.PriceBandLow == nil || *acme.PriceBandLow != 100 {
		t.Errorf("price band low = %v, want 100", acme.PriceBandLow)
	}
	if acme.IssueOpenDate != "2026-09-01" || acme.IssueCloseDate != "2026-09-03" {
		t.Errorf("issue window = %q / %q", acme.IssueOpenDate, acme.IssueCloseDate)
	}
	if acme.Exchange != "NSE/BSE" {
		t.Errorf("exchange = %q, want the NSE/BSE default", acme.Exchange)
	}

	beta := records[1]
	if beta.Key != "beta-pharma" {
		t.Errorf("key = %q, want beta-pharma (name fallback)", beta.Key)
	}
	if beta.PriceBandLow == nil || *beta.PriceBandLow != 50 {
		t.Errorf("min_price fallback = %v, want 50", beta.PriceBandLow)
	}
	if beta.Status != "upcoming" {
		t.Errorf("status = %q, want upcoming", beta.Status)
	}

	gamma := records[2]
	if gamma.Key != "gamma-ltd" {
		t.Errorf("key = %q, want gamma-ltd (company fallback)", gamma.Key)
	}
	if gamma.Status != "open" {
		t.Errorf("status = %q, want the open default", gamma.Status)
	}
	if gamma.PriceBandLow == nil || *gamma.PriceBandLow != 80 {
		t.Errorf("currency-text band low = %v, want 80", gamma.PriceBandLow)
	}

	// Only acme carried fundamentals fields.
	if len(fundamentals) != 1 {
		t.Fatalf("got %d fundamentals, want 1", len(fundamentals))
	}
	if fundamentals[0].Key != "acme" || fundamentals[0].LotSize == nil || *fundamentals[0].LotSize != 13 {
		t.Errorf("fundamentals = %+v", fundamentals[0])
	}
	if fundamentals[0].ProspectusURL == nil || *fundamentals[0].ProspectusURL != "https://example.com/acme.pdf" {
		t.Errorf("prospectus url = %v", fundamentals[0].ProspectusURL)
	}

	// Provenance: one run covering both pages.
	if len(capture.runs) != 1 {
		t.Fatalf("recorded %d fetch runs, want 1", len(capture.runs))
	}
	run := capture.runs[0]
	if run.ID == "" || run.Source != "ipoalerts" {
		t.Errorf("run identity = %q / %q", run.ID, run.Source)
	}
	if len(run.PagesCalled) != 2 || run.PagesCalled[0].StatusCode != 200 || run.PagesCalled[1].StatusCode != 200 {
		t.Errorf("pages called = %+v", run.PagesCalled)
	}
	if run.Collected != 3 {
		t.Errorf("run collected = %d, want 3", run.Collected)
	}
}

func TestFetchOpenIPOsSkipsWithoutAPIKey(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
	}))
	defer server.Close()

	capture := &fetchRunCapture{}
	client := newTestIPOAlertsClient(server.URL, 1, capture)
	client.config.APIKey = ""

	records, fundamentals, err := client.FetchOpenIPOs(context.Background())
	if err != nil || records != nil || fundamentals != nil {
		t.Errorf("unconfigured fetch = (%v, %v, %v), want all nil", records, fundamentals, err)
	}
	if atomic.LoadInt64(&requests) != 0 {
		t.Errorf("server saw %d requests without an API key, want 0", requests)
	}
	if len(capture.runs) != 0 {
		t.Errorf("recorded %d runs without fetching, want 0", len(capture.runs))
	}
}

func TestFetchOpenIPOsDegradesOnPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	capture := &fetchRunCapture{}
	client := newTestIPOAlertsClient(server.URL, 1, capture)
	defer client.Cleanup()

	records, _, err := client.FetchOpenIPOs(context.Background())
	if err != nil {
		t.Fatalf("page failure surfaced as an error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from a failing source, want 0", len(records))
	}

	// The failed page is still part of the provenance trail.
	if len(capture.runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(capture.runs))
	}
	run := capture.runs[0]
	if len(run.PagesCalled) != 1 || run.PagesCalled[0].StatusCode != http.StatusNotFound {
		t.Errorf("pages called = %+v, want one 404", run.PagesCalled)
	}
	if run.Collected != 0 {
		t.Errorf("run collected = %d, want 0", run.Collected)
	}
}
