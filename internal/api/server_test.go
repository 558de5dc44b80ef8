package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/identity"
	"tradeledger/internal/ledger"
	"tradeledger/internal/realtime"
	"tradeledger/internal/repository"
	"tradeledger/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemory()
	book := ledger.New(store, nil, ledger.DefaultConfig())
	server := NewServer(book, identity.NewResolver(store), realtime.NewHub(), []string{"*"})

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-User-Email", "trader@example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMissingUserHeader(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/portfolio")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileProvisionedFromHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile types.Profile
	decodeJSON(t, resp, &profile)
	assert.Equal(t, "user-1", profile.ExternalID)
	assert.Equal(t, "trader@example.com", profile.Email)

	update := map[string]string{"full_name": "Pat Trader"}
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/profile", update)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated types.Profile
	decodeJSON(t, resp, &updated)
	assert.Equal(t, profile.ID, updated.ID)
	assert.Equal(t, "Pat Trader", updated.FullName)
	assert.Equal(t, "trader@example.com", updated.Email)
}

func TestTradeFlow(t *testing.T) {
	ts := newTestServer(t)

	trade := map[string]any{
		"symbol":   "AAPL",
		"side":     "buy",
		"quantity": "10",
		"price":    "100",
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/trades", trade)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result ledger.FillResult
	decodeJSON(t, resp, &result)
	require.NotNil(t, result.Trade)
	require.NotNil(t, result.Position)
	assert.Equal(t, types.TradeStatusFilled, result.Trade.Status)
	assert.True(t, result.Position.Quantity.Equal(decimal.NewFromInt(10)))

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap types.PortfolioSnapshot
	decodeJSON(t, resp, &snap)
	assert.True(t, snap.CashBalance.Equal(decimal.NewFromInt(9000)), "cash = %s", snap.CashBalance)
	assert.True(t, snap.MarketValue.Equal(decimal.NewFromInt(1000)), "market value = %s", snap.MarketValue)
	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(10000)), "total value = %s", snap.TotalValue)
	require.Len(t, snap.Positions, 1)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/trades", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trades []types.Trade
	decodeJSON(t, resp, &trades)
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
}

func TestTradeErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "zero quantity",
			body:       map[string]any{"symbol": "AAPL", "side": "buy", "quantity": "0", "price": "100"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown side",
			body:       map[string]any{"symbol": "AAPL", "side": "hold", "quantity": "1", "price": "100"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "insufficient funds",
			body:       map[string]any{"symbol": "AAPL", "side": "buy", "quantity": "1000", "price": "100"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "insufficient shares",
			body:       map[string]any{"symbol": "AAPL", "side": "sell", "quantity": "1", "price": "100"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/trades", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]string
			decodeJSON(t, resp, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/watchlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var watchlist types.Watchlist
	decodeJSON(t, resp, &watchlist)
	assert.Equal(t, "My Watchlist", watchlist.Name)
	assert.Len(t, watchlist.Symbols, 5)

	update := map[string]any{"symbols": []string{"amd", "INTC"}}
	resp = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/v1/watchlists/%s", ts.URL, watchlist.ID), update)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/watchlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &watchlist)
	assert.Equal(t, []string{"AMD", "INTC"}, watchlist.Symbols)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/watchlists/does-not-exist", update)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAlertEndpoints(t *testing.T) {
	ts := newTestServer(t)

	create := map[string]any{"symbol": "AAPL", "condition": "above", "target_price": "200"}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/alerts", create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var alert types.Alert
	decodeJSON(t, resp, &alert)
	assert.True(t, alert.Active)
	assert.Equal(t, "AAPL", alert.Symbol)

	bad := map[string]any{"symbol": "AAPL", "condition": "sideways", "target_price": "200"}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/alerts", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var alerts []types.Alert
	decodeJSON(t, resp, &alerts)
	require.Len(t, alerts, 1)

	deactivate := map[string]any{"is_active": false}
	resp = doJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/v1/alerts/%s", ts.URL, alert.ID), deactivate)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alerts = nil
	decodeJSON(t, resp, &alerts)
	assert.Empty(t, alerts)
}

func TestListPortfoliosProvisionsDefault(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var portfolios []types.Portfolio
	decodeJSON(t, resp, &portfolios)
	require.Len(t, portfolios, 1)
	assert.Equal(t, "Main Portfolio", portfolios[0].Name)
	assert.True(t, portfolios[0].CashBalance.Equal(decimal.NewFromInt(10000)))
}

func TestListTradesRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/trades?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/trades?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
