// Package market adapts the external price feed. The ledger only ever sees
// already-resolved quotes from the cache; network fetches happen out-of-band
// on the refresh loop.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://query2.finance.yahoo.com"

type Provider struct {
	httpClient *http.Client
	baseURL    string
	mu         sync.RWMutex
	quotes     map[string]decimal.Decimal
}

func NewProvider() *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		quotes:     make(map[string]decimal.Decimal),
	}
}

func key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetQuote returns the latest cached price for a symbol.
func (p *Provider) GetQuote(symbol string) (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	quote, ok := p.quotes[key(symbol)]
	return quote, ok
}

// SetQuote seeds or overrides a quote. Used by demo wiring and tests.
func (p *Provider) SetQuote(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	p.quotes[key(symbol)] = price
	p.mu.Unlock()
}

// Snapshot copies the current quote cache.
func (p *Provider) Snapshot() map[string]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(p.quotes))
	for k, v := range p.quotes {
		out[k] = v
	}
	return out
}

// Refresh fetches fresh quotes for the given symbols and merges them into
// the cache. Symbols that fail to resolve keep their previous quote.
func (p *Provider) Refresh(ctx context.Context, symbols []string) error {
	seen := map[string]bool{}
	updates := make(map[string]decimal.Decimal)

	for _, symbol := range symbols {
		k := key(symbol)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true

		price, err := p.fetchQuote(ctx, k)
		if err != nil {
			continue
		}
		if price.IsPositive() {
			updates[k] = price
		}
	}

	p.mu.Lock()
	for k, v := range updates {
		p.quotes[k] = v
	}
	p.mu.Unlock()
	return nil
}

func (p *Provider) fetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", p.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create quote request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("quote status %d for %s", resp.StatusCode, symbol)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string      `json:"symbol"`
					RegularMarketPrice json.Number `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode quote: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}

	price, err := decimal.NewFromString(payload.Chart.Result[0].Meta.RegularMarketPrice.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse quote for %s: %w", symbol, err)
	}
	return price, nil
}
