package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuoteCache(t *testing.T) {
	p := NewProvider()

	if _, ok := p.GetQuote("AAPL"); ok {
		t.Fatal("expected empty cache")
	}

	p.SetQuote(" aapl ", decimal.NewFromInt(130))
	quote, ok := p.GetQuote("AAPL")
	if !ok {
		t.Fatal("expected cached quote")
	}
	if !quote.Equal(decimal.NewFromInt(130)) {
		t.Errorf("quote = %s, want 130", quote)
	}

	// Lookup normalizes the same way as storage.
	if _, ok := p.GetQuote("aapl"); !ok {
		t.Error("expected case-insensitive lookup")
	}

	snap := p.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot size = %d, want 1", len(snap))
	}
	snap["AAPL"] = decimal.Zero
	if quote, _ := p.GetQuote("AAPL"); !quote.Equal(decimal.NewFromInt(130)) {
		t.Error("snapshot must be a copy, cache was mutated")
	}
}

func TestRefreshMergesFetchedQuotes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		switch symbol {
		case "AAPL":
			fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":231.59}}]}}`)
		case "MSFT":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		default:
			fmt.Fprintf(w, `{"chart":{"result":[]}}`)
		}
	}))
	defer ts.Close()

	p := NewProvider()
	p.baseURL = ts.URL
	p.SetQuote("MSFT", decimal.NewFromInt(400))

	if err := p.Refresh(context.Background(), []string{"AAPL", "aapl", "MSFT", "GOOGL", ""}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	quote, ok := p.GetQuote("AAPL")
	if !ok {
		t.Fatal("expected AAPL quote after refresh")
	}
	if !quote.Equal(decimal.RequireFromString("231.59")) {
		t.Errorf("AAPL = %s, want 231.59", quote)
	}

	// A failed fetch keeps the previous quote instead of dropping it.
	quote, ok = p.GetQuote("MSFT")
	if !ok || !quote.Equal(decimal.NewFromInt(400)) {
		t.Errorf("MSFT = %s (ok=%v), want stale 400", quote, ok)
	}

	if _, ok := p.GetQuote("GOOGL"); ok {
		t.Error("expected no quote for symbol with empty result")
	}
}
