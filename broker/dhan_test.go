package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewheel/swingbot/trade"
)

func testClient(serverURL string) *Client {
	return &Client{
		baseURL:    serverURL,
		clientID:   "client-1",
		token:      "token-1",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func orderRequest() OrderRequest {
	return OrderRequest{
		Symbol:    "RELIANCE",
		Direction: trade.Buy,
		Quantity:  71,
		Price:     decimal.NewFromInt(1400),
	}
}

func TestPlaceOrderAccepted(t *testing.T) {
	t.Parallel()

	var gotPayload orderPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "token-1", r.Header.Get("access-token"))
		assert.Equal(t, "client-1", r.Header.Get("client-id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		json.NewEncoder(w).Encode(orderResponse{OrderID: "112111182045", OrderStatus: StatusTransit})
	}))
	t.Cleanup(server.Close)

	c := testClient(server.URL)
	res, err := c.PlaceOrder(context.Background(), orderRequest())
	require.NoError(t, err)
	assert.Equal(t, "112111182045", res.OrderID)
	assert.Equal(t, StatusTransit, res.Status)

	assert.Equal(t, "BUY", gotPayload.TransactionType)
	assert.Equal(t, "NSE_EQ", gotPayload.ExchangeSegment)
	assert.Equal(t, "CNC", gotPayload.ProductType)
	assert.Equal(t, "LIMIT", gotPayload.OrderType)
	assert.Equal(t, int64(71), gotPayload.Quantity)
	assert.Equal(t, "1400", gotPayload.Price)
	assert.NotEmpty(t, gotPayload.CorrelationID)
}

func TestPlaceOrderRejectedByBroker(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(orderResponse{
			OrderID:     "112111182046",
			OrderStatus: StatusRejected,
			Remarks:     "insufficient funds",
		})
	}))
	t.Cleanup(server.Close)

	c := testClient(server.URL)
	_, err := c.PlaceOrder(context.Background(), orderRequest())
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestPlaceOrderUnknownSymbol(t *testing.T) {
	t.Parallel()

	c := testClient("http://unused.invalid")
	req := orderRequest()
	req.Symbol = "NOSUCH"

	_, err := c.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			t.Cleanup(server.Close)

			c := testClient(server.URL)
			_, err := c.PlaceOrder(context.Background(), orderRequest())
			require.Error(t, err)
			assert.Equal(t, tc.retryable, IsRetryable(err))
		})
	}
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := testClient(server.URL)
	_, err := c.PlaceOrder(context.Background(), orderRequest())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestClosePositionFlipsDirection(t *testing.T) {
	t.Parallel()

	var gotPayload orderPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(orderResponse{OrderID: "112111182047", OrderStatus: StatusTraded})
	}))
	t.Cleanup(server.Close)

	pos := trade.Position{
		Symbol:    "RELIANCE",
		Direction: trade.Buy,
		Quantity:  71,
	}

	c := testClient(server.URL)
	res, err := c.ClosePosition(context.Background(), pos, decimal.NewFromInt(1450))
	require.NoError(t, err)
	assert.Equal(t, StatusTraded, res.Status)
	assert.Equal(t, "SELL", gotPayload.TransactionType)
	assert.Equal(t, "1450", gotPayload.Price)
}

func TestOrderStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/orders/112111182045", r.URL.Path)
		json.NewEncoder(w).Encode(orderResponse{OrderID: "112111182045", OrderStatus: StatusTraded})
	}))
	t.Cleanup(server.Close)

	c := testClient(server.URL)
	status, err := c.OrderStatus(context.Background(), "112111182045")
	require.NoError(t, err)
	assert.Equal(t, StatusTraded, status)
}

func TestLatestPrice(t *testing.T) {
	t.Parallel()

	secID, ok := SecurityID("RELIANCE")
	require.True(t, ok)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/marketfeed/ltp", r.URL.Path)

		var req map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{secID}, req["NSE_EQ"])

		resp := ltpResponse{}
		resp.Data = map[string]map[string]struct {
			LastPrice float64 `json:"last_price"`
		}{
			"NSE_EQ": {secID: {LastPrice: 1402.35}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	c := testClient(server.URL)
	price, err := c.LatestPrice(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, "1402.35", price.String())
}

func TestLatestPriceMissingQuote(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ltpResponse{})
	}))
	t.Cleanup(server.Close)

	c := testClient(server.URL)
	_, err := c.LatestPrice(context.Background(), "RELIANCE")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}
