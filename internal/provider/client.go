package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

// SettlementStatus is the normalized view of a provider-side payment state.
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "pending"
	SettlementStatusProcessing SettlementStatus = "processing"
	SettlementStatusSuccess    SettlementStatus = "success"
	SettlementStatusFailed     SettlementStatus = "failed"
)

type QuoteRequest struct {
	OriginSymbol       string
	OriginNetwork      string
	DestinationSymbol  string
	DestinationNetwork string
	// ExactAmountOut is the destination amount the recipient must receive;
	// quoting is exact-output.
	ExactAmountOut   decimal.Decimal
	RecipientAddress string
	RefundAddress    string
	Deadline         time.Time
}

type Quote struct {
	DepositAddress string
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	Fee            decimal.Decimal
	Deadline       time.Time
}

type ExecuteRequest struct {
	DepositAddress string
	SignedPayload  string
}

type ExecuteResult struct {
	Status SettlementStatus
	Refs   []SettlementRef
}

type SettlementRef struct {
	ChainID string
	TxHash  string
}

// Client is the typed swap-provider port. The HTTP implementation treats
// the provider's wire format as opaque outside this package.
type Client interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
	Status(ctx context.Context, depositAddress string) (SettlementStatus, error)
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient builds the provider client. The timeout bounds every call so
// a slow provider cannot pin gateway workers.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type wireQuoteRequest struct {
	OriginAsset      string `json:"originAsset"`
	DestinationAsset string `json:"destinationAsset"`
	SwapType         string `json:"swapType"`
	Amount           string `json:"amount"`
	Recipient        string `json:"recipient"`
	RefundTo         string `json:"refundTo,omitempty"`
	Deadline         string `json:"deadline"`
}

type wireQuoteResponse struct {
	Quote struct {
		DepositAddress string `json:"depositAddress"`
		AmountIn       string `json:"amountIn"`
		AmountOut      string `json:"amountOut"`
		Deadline       string `json:"deadline"`
	} `json:"quote"`

	// Legacy shape: the same fields at the top level. Decoded as an explicit
	// fallback when the nested quote object is absent.
	DepositAddress string `json:"depositAddress"`
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	Deadline       string `json:"deadline"`
}

func (c *HTTPClient) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	body := wireQuoteRequest{
		OriginAsset:      assetID(req.OriginSymbol, req.OriginNetwork),
		DestinationAsset: assetID(req.DestinationSymbol, req.DestinationNetwork),
		SwapType:         "EXACT_OUTPUT",
		Amount:           req.ExactAmountOut.String(),
		Recipient:        req.RecipientAddress,
		RefundTo:         req.RefundAddress,
		Deadline:         req.Deadline.UTC().Format(time.RFC3339),
	}
	var wire wireQuoteResponse
	if err := c.do(ctx, http.MethodPost, "/v0/quote", body, &wire); err != nil {
		observability.RecordProviderCall(ctx, "quote", "error")
		return nil, err
	}
	observability.RecordProviderCall(ctx, "quote", "success")

	depositAddress := wire.Quote.DepositAddress
	amountIn, amountOut, deadline := wire.Quote.AmountIn, wire.Quote.AmountOut, wire.Quote.Deadline
	if depositAddress == "" {
		depositAddress = wire.DepositAddress
		amountIn, amountOut, deadline = wire.AmountIn, wire.AmountOut, wire.Deadline
	}
	if depositAddress == "" {
		return nil, &Error{Kind: ErrorKindUnavailable, Message: "quote response missing deposit address"}
	}
	quote := &Quote{DepositAddress: depositAddress}
	quote.AmountIn, _ = decimal.NewFromString(amountIn)
	quote.AmountOut, _ = decimal.NewFromString(amountOut)
	if quote.AmountIn.IsPositive() && quote.AmountOut.IsPositive() {
		quote.Fee = quote.AmountIn.Sub(quote.AmountOut)
	}
	if t, err := time.Parse(time.RFC3339, deadline); err == nil {
		quote.Deadline = t
	}
	return quote, nil
}

type wireExecuteRequest struct {
	DepositAddress string `json:"depositAddress"`
	SignedData     string `json:"signedData"`
}

type wireExecuteResponse struct {
	Status      string `json:"status"`
	SwapDetails *struct {
		DestinationChainTxHashes []wireTxRef `json:"destinationChainTxHashes"`
	} `json:"swapDetails"`
	TxHashes []wireTxRef `json:"txHashes"`
}

type wireTxRef struct {
	ChainID string `json:"chainId"`
	Hash    string `json:"hash"`
}

func (c *HTTPClient) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	body := wireExecuteRequest{DepositAddress: req.DepositAddress, SignedData: req.SignedPayload}
	var wire wireExecuteResponse
	if err := c.do(ctx, http.MethodPost, "/v0/deposit/submit", body, &wire); err != nil {
		observability.RecordProviderCall(ctx, "execute", "error")
		return nil, err
	}
	observability.RecordProviderCall(ctx, "execute", "success")

	refs := wire.TxHashes
	if wire.SwapDetails != nil && len(wire.SwapDetails.DestinationChainTxHashes) > 0 {
		refs = wire.SwapDetails.DestinationChainTxHashes
	}
	result := &ExecuteResult{Status: normalizeStatus(wire.Status)}
	for _, ref := range refs {
		result.Refs = append(result.Refs, SettlementRef{ChainID: ref.ChainID, TxHash: ref.Hash})
	}
	return result, nil
}

func (c *HTTPClient) Status(ctx context.Context, depositAddress string) (SettlementStatus, error) {
	path := "/v0/status?" + url.Values{"depositAddress": {depositAddress}}.Encode()
	var wire struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		observability.RecordProviderCall(ctx, "status", "error")
		return SettlementStatusPending, err
	}
	observability.RecordProviderCall(ctx, "status", "success")
	return normalizeStatus(wire.Status), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return transportError(err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return transportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := classifyResponse(resp.StatusCode, extractMessage(raw))
		c.logger.WarnContext(ctx, "swap provider call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"kind", string(perr.Kind),
		)
		return perr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: ErrorKindUnavailable, Message: fmt.Sprintf("decode response: %v", err), HTTPStatus: resp.StatusCode}
	}
	return nil
}

func extractMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// normalizeStatus maps the provider's status vocabulary into the closed set.
// Unknown codes degrade to pending so a transient oddity is never read as a
// failed payment.
func normalizeStatus(status string) SettlementStatus {
	switch status {
	case "SUCCESS", "COMPLETED", "SETTLED":
		return SettlementStatusSuccess
	case "FAILED", "REFUNDED", "EXPIRED":
		return SettlementStatusFailed
	case "PROCESSING", "DEPOSIT_RECEIVED", "EXECUTING":
		return SettlementStatusProcessing
	default:
		return SettlementStatusPending
	}
}

func assetID(symbol, network string) string {
	return fmt.Sprintf("%s:%s", network, symbol)
}
