package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/trade"
)

const (
	// LiveURL is the production DhanHQ v2 endpoint.
	LiveURL = "https://api.dhan.co/v2"
	// SandboxURL is the broker-provided paper-trading endpoint with the
	// same API shape as production.
	SandboxURL = "https://sandbox.dhan.co/v2"
)

// Client talks to a DhanHQ-compatible brokerage over REST. The same client
// serves LIVE and SANDBOX modes; only the base URL differs.
type Client struct {
	baseURL    string
	clientID   string
	token      string
	httpClient *http.Client
}

// NewClient builds a broker client. sandbox selects the paper-trading
// endpoint.
func NewClient(clientID, accessToken string, sandbox bool) *Client {
	baseURL := LiveURL
	if sandbox {
		baseURL = SandboxURL
	}
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		token:    accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type orderPayload struct {
	DhanClientID    string `json:"dhanClientId"`
	CorrelationID   string `json:"correlationId"`
	TransactionType string `json:"transactionType"`
	ExchangeSegment string `json:"exchangeSegment"`
	ProductType     string `json:"productType"`
	OrderType       string `json:"orderType"`
	Validity        string `json:"validity"`
	SecurityID      string `json:"securityId"`
	Quantity        int64  `json:"quantity"`
	Price           string `json:"price"`
}

type orderResponse struct {
	OrderID     string `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
	Remarks     string `json:"remarks"`
}

// PlaceOrder submits a CNC (delivery) limit order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	return c.submit(ctx, req.Symbol, req.Direction, req.Quantity, req.Price)
}

// ClosePosition flattens a position with a limit order on the opposite side
// at the supplied price.
func (c *Client) ClosePosition(ctx context.Context, pos trade.Position, price decimal.Decimal) (OrderResult, error) {
	return c.submit(ctx, pos.Symbol, exitDirection(pos.Direction), pos.Quantity, price)
}

func (c *Client) submit(ctx context.Context, symbol string, dir trade.Direction, qty int64, price decimal.Decimal) (OrderResult, error) {
	securityID, ok := SecurityID(symbol)
	if !ok {
		return OrderResult{}, rejectedErr("UNKNOWN_SYMBOL", "no security id mapped for %s", symbol)
	}

	payload := orderPayload{
		DhanClientID:    c.clientID,
		CorrelationID:   uuid.New().String(),
		TransactionType: string(dir),
		ExchangeSegment: "NSE_EQ",
		ProductType:     "CNC",
		OrderType:       "LIMIT",
		Validity:        "DAY",
		SecurityID:      securityID,
		Quantity:        qty,
		Price:           price.String(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return OrderResult{}, fmt.Errorf("marshal order: %w", err)
	}

	// Full request body so a live submission can be reconstructed from logs.
	log.Printf("broker: POST /orders %s", body)

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return OrderResult{}, err
	}

	if resp.OrderStatus == StatusRejected {
		return OrderResult{}, rejectedErr("ORDER_REJECTED", "%s", resp.Remarks)
	}

	log.Printf("broker: order %s accepted, status %s", resp.OrderID, resp.OrderStatus)
	return OrderResult{OrderID: resp.OrderID, Status: resp.OrderStatus, Price: price}, nil
}

// OrderStatus queries the broker for the current status of an order.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (string, error) {
	log.Printf("broker: GET /orders/%s", orderID)

	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &resp); err != nil {
		return "", err
	}
	return resp.OrderStatus, nil
}

type ltpResponse struct {
	Data map[string]map[string]struct {
		LastPrice float64 `json:"last_price"`
	} `json:"data"`
}

// LatestPrice fetches the last traded price for a symbol.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	securityID, ok := SecurityID(symbol)
	if !ok {
		return decimal.Zero, rejectedErr("UNKNOWN_SYMBOL", "no security id mapped for %s", symbol)
	}

	body, err := json.Marshal(map[string][]string{"NSE_EQ": {securityID}})
	if err != nil {
		return decimal.Zero, fmt.Errorf("marshal ltp request: %w", err)
	}

	log.Printf("broker: POST /marketfeed/ltp %s", body)

	var resp ltpResponse
	if err := c.do(ctx, http.MethodPost, "/marketfeed/ltp", body, &resp); err != nil {
		return decimal.Zero, err
	}

	quote, ok := resp.Data["NSE_EQ"][securityID]
	if !ok || quote.LastPrice <= 0 {
		return decimal.Zero, retryableErr("NO_QUOTE", "no last price for %s", symbol)
	}
	return decimal.NewFromFloat(quote.LastPrice), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access-token", c.token)
	req.Header.Set("client-id", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection faults are worth retrying on a later
		// invocation.
		return retryableErr("NETWORK", "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return retryableErr("NETWORK", "read response: %v", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retryableErr("HTTP_"+fmt.Sprint(resp.StatusCode), "%s %s: %s", method, path, data)
	default:
		return rejectedErr("HTTP_"+fmt.Sprint(resp.StatusCode), "%s %s: %s", method, path, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return rejectedErr("BAD_RESPONSE", "decode %s %s: %v", method, path, err)
	}
	return nil
}
