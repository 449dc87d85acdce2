package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"trade-copier-go/internal/config"
	"trade-copier-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxRetries = 3

// ClientInterface defines the calls a master or slave terminal makes to the relay.
type ClientInterface interface {
	SubmitTrade(ctx context.Context, trade models.Trade) (*SubmitResponse, error)
	PollNewTrades(ctx context.Context, slaveAccountID, masterAccountID int64) ([]models.Trade, error)
	CloseTrade(ctx context.Context, closure Closure) (*AckResponse, error)
	UpdateTPSL(ctx context.Context, update TPSLUpdate) (*AckResponse, error)
}

// Closure is a close notification for a master trade.
type Closure struct {
	MasterAccountID int64            `json:"master_account_id"`
	Ticket          *int64           `json:"ticket,omitempty"`
	ServerID        int64            `json:"server_id"`
	Symbol          string           `json:"symbol,omitempty"`
	ClosePrice      float64          `json:"close_price"`
	CloseTime       models.Timestamp `json:"close_time"`
	Profit          float64          `json:"profit"`
}

// TPSLUpdate carries new take-profit and stop-loss levels.
type TPSLUpdate struct {
	MasterAccountID int64    `json:"master_account_id"`
	ServerID        int64    `json:"server_id"`
	TakeProfit      *float64 `json:"take_profit"`
	StopLoss        *float64 `json:"stop_loss"`
}

// SubmitResponse is the relay's answer to a submitted trade.
type SubmitResponse struct {
	ID      int64  `json:"id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// AckResponse is the relay's answer to a closure or TP/SL update.
type AckResponse struct {
	ID       int64  `json:"id"`
	Revision int64  `json:"revision"`
	Message  string `json:"message"`
}

// APIError is a non-2xx answer from the relay.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("relay returned %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the relay.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// RestClient is a client for the relay HTTP API.
// It implements the ClientInterface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff func(attempt int) time.Duration
}

// ensure RestClient implements the interface
var _ ClientInterface = (*RestClient)(nil)

// NewRestClient creates a new relay client.
func NewRestClient(cfg *config.Client, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")

	// rate.Limit is requests per second.
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &RestClient{
		client:  client,
		logger:  logger.Named("client"),
		limiter: rate.NewLimiter(limit, burst),
		backoff: exponentialBackoff,
	}
}

// Exponential backoff: 1s, 2s, 4s
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// SubmitTrade records a trade on the relay, or updates the one with the same ticket.
func (c *RestClient) SubmitTrade(ctx context.Context, trade models.Trade) (*SubmitResponse, error) {
	req := c.client.R().
		SetBody(trade).
		SetResult(&SubmitResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/trade", req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit trade: %w", err)
	}
	return resp.Result().(*SubmitResponse), nil
}

// PollNewTrades fetches the trades due for a slave. The relay marks them
// delivered, so the result must be applied by the caller.
func (c *RestClient) PollNewTrades(ctx context.Context, slaveAccountID, masterAccountID int64) ([]models.Trade, error) {
	var trades []models.Trade
	req := c.client.R().
		SetBody(map[string]int64{
			"slave_account_id":  slaveAccountID,
			"master_account_id": masterAccountID,
		}).
		SetResult(&trades)

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/new-trades", req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll new trades: %w", err)
	}
	return *resp.Result().(*[]models.Trade), nil
}

// CloseTrade reports a closure to the relay.
func (c *RestClient) CloseTrade(ctx context.Context, closure Closure) (*AckResponse, error) {
	req := c.client.R().
		SetBody(closure).
		SetResult(&AckResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/trade/close", req)
	if err != nil {
		return nil, fmt.Errorf("failed to close trade: %w", err)
	}
	return resp.Result().(*AckResponse), nil
}

// UpdateTPSL sets take-profit and stop-loss on a relay trade.
func (c *RestClient) UpdateTPSL(ctx context.Context, update TPSLUpdate) (*AckResponse, error) {
	req := c.client.R().
		SetBody(update).
		SetResult(&AckResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/trade/update-tpsl", req)
	if err != nil {
		return nil, fmt.Errorf("failed to update tp/sl: %w", err)
	}
	return resp.Result().(*AckResponse), nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
// Only throttling, unavailability and transport failures are retried; a 500
// may follow a committed write and is returned as is.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx).SetError(&APIError{})

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			switch statusCode {
			case http.StatusTooManyRequests, http.StatusServiceUnavailable:
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			}
			err = apiError(resp)
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}

		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

func apiError(resp *resty.Response) *APIError {
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr.Message == "" {
		apiErr = &APIError{Message: resp.String()}
	}
	apiErr.StatusCode = resp.StatusCode()
	return apiErr
}
