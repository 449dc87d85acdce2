package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trade-copier-go/internal/copier"
	"trade-copier-go/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Copier is the part of copier.Service the HTTP layer depends on.
type Copier interface {
	RecordOrUpdate(ctx context.Context, trade models.Trade) (*copier.SubmitResult, error)
	Sync(ctx context.Context, slaveAccountID, masterAccountID int64) ([]models.Trade, error)
	Close(ctx context.Context, c copier.Closure) (*models.Trade, error)
	UpdateTakeProfitStopLoss(ctx context.Context, u copier.RiskUpdate) (*models.Trade, error)
	ListTrades(ctx context.Context, f copier.TradeFilter) ([]models.Trade, error)
	ListClosures(ctx context.Context, tradeID int64) ([]models.TradeClosure, error)
	Statistics(ctx context.Context, masterAccountID int64) (*copier.Statistics, error)
}

var _ Copier = (*copier.Service)(nil)

// SlaveInfo identifies the slave polling for trades and the master it follows.
type SlaveInfo struct {
	SlaveAccountID  int64 `json:"slave_account_id"`
	MasterAccountID int64 `json:"master_account_id"`
}

// TradeClosure is the close notification sent by a master client.
type TradeClosure struct {
	MasterAccountID int64            `json:"master_account_id"`
	Ticket          *int64           `json:"ticket"`
	ServerID        int64            `json:"server_id"`
	Symbol          string           `json:"symbol"`
	ClosePrice      float64          `json:"close_price"`
	CloseTime       models.Timestamp `json:"close_time"`
	Profit          float64          `json:"profit"`
}

// TPSLUpdate carries new take-profit and stop-loss levels for a trade.
type TPSLUpdate struct {
	MasterAccountID int64    `json:"master_account_id"`
	ServerID        int64    `json:"server_id"`
	TakeProfit      *float64 `json:"take_profit"`
	StopLoss        *float64 `json:"stop_loss"`
}

// SubmitResponse is returned for a submitted trade.
type SubmitResponse struct {
	ID      int64  `json:"id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// AckResponse acknowledges a closure or TP/SL update.
type AckResponse struct {
	ID       int64  `json:"id"`
	Revision int64  `json:"revision"`
	Message  string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	svc     Copier
	started time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc Copier) *APIHandler {
	return &APIHandler{log: log, svc: svc, started: time.Now()}
}

// Register mounts the relay routes.
func (h *APIHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthHandler)

	api := r.Group("/api")
	api.GET("/status", h.StatusHandler)
	api.POST("/trade", h.SubmitTradeHandler)
	api.POST("/new-trades", h.NewTradesHandler)
	api.POST("/trade/close", h.CloseTradeHandler)
	api.POST("/trade/update-tpsl", h.UpdateTPSLHandler)
	api.GET("/trades", h.TradesHandler)
	api.GET("/trades/:id/closures", h.ClosuresHandler)
	api.GET("/statistics", h.StatisticsHandler)
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// StatusHandler reports start time and uptime.
func (h *APIHandler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"start_time": h.started.UTC().Format(time.RFC3339),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
	})
}

// SubmitTradeHandler records a new master trade or updates the one with the same ticket.
func (h *APIHandler) SubmitTradeHandler(c *gin.Context) {
	var trade models.Trade
	if !h.bind(c, &trade) {
		return
	}

	res, err := h.svc.RecordOrUpdate(c.Request.Context(), trade)
	if err != nil {
		h.fail(c, err)
		return
	}

	msg := "Trade updated successfully"
	if res.Created {
		msg = "Trade recorded successfully"
	}
	c.JSON(http.StatusOK, SubmitResponse{ID: res.Trade.ID, Created: res.Created, Message: msg})
}

// NewTradesHandler returns the trades due for a slave and marks them delivered.
func (h *APIHandler) NewTradesHandler(c *gin.Context) {
	var info SlaveInfo
	if !h.bind(c, &info) {
		return
	}

	trades, err := h.svc.Sync(c.Request.Context(), info.SlaveAccountID, info.MasterAccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// CloseTradeHandler applies a closure reported by a master.
func (h *APIHandler) CloseTradeHandler(c *gin.Context) {
	var req TradeClosure
	if !h.bind(c, &req) {
		return
	}

	trade, err := h.svc.Close(c.Request.Context(), copier.Closure{
		MasterAccountID: req.MasterAccountID,
		ServerID:        req.ServerID,
		Ticket:          req.Ticket,
		Symbol:          req.Symbol,
		ClosePrice:      req.ClosePrice,
		CloseTime:       req.CloseTime,
		Profit:          req.Profit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AckResponse{ID: trade.ID, Revision: trade.Revision, Message: "Trade closed successfully"})
}

// UpdateTPSLHandler sets take-profit and stop-loss on a trade.
func (h *APIHandler) UpdateTPSLHandler(c *gin.Context) {
	var req TPSLUpdate
	if !h.bind(c, &req) {
		return
	}

	trade, err := h.svc.UpdateTakeProfitStopLoss(c.Request.Context(), copier.RiskUpdate{
		MasterAccountID: req.MasterAccountID,
		ServerID:        req.ServerID,
		TakeProfit:      req.TakeProfit,
		StopLoss:        req.StopLoss,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AckResponse{ID: trade.ID, Revision: trade.Revision, Message: "TP/SL updated successfully"})
}

// TradesHandler lists a master's trades, most recently updated first.
func (h *APIHandler) TradesHandler(c *gin.Context) {
	masterID, ok := h.int64Query(c, "master_account_id")
	if !ok {
		return
	}
	var limit int64
	if c.Query("limit") != "" {
		if limit, ok = h.int64Query(c, "limit"); !ok {
			return
		}
	}

	trades, err := h.svc.ListTrades(c.Request.Context(), copier.TradeFilter{
		MasterAccountID: masterID,
		Status:          models.TradeStatus(c.Query("status")),
		Limit:           int(limit),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// ClosuresHandler returns the closure audit log of one trade.
func (h *APIHandler) ClosuresHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.abort(c, http.StatusBadRequest, "invalid trade id")
		return
	}

	closures, err := h.svc.ListClosures(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, closures)
}

// StatisticsHandler calculates and returns trading statistics for a master.
func (h *APIHandler) StatisticsHandler(c *gin.Context) {
	masterID, ok := h.int64Query(c, "master_account_id")
	if !ok {
		return
	}

	stats, err := h.svc.Statistics(c.Request.Context(), masterID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *APIHandler) int64Query(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		h.abort(c, http.StatusBadRequest, key+" must be an integer")
		return 0, false
	}
	return v, true
}

// fail maps copier errors onto status codes. Only faults are logged with
// their cause; clients get a generic message for them.
func (h *APIHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, copier.ErrInvalidRequest):
		h.abort(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, copier.ErrTradeNotFound):
		h.abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, copier.ErrStorageUnavailable):
		h.log.Error("Storage unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		h.abort(c, http.StatusServiceUnavailable, "Database connection pool error")
	default:
		h.log.Error("Storage fault", zap.String("path", c.FullPath()), zap.Error(err))
		h.abort(c, http.StatusInternalServerError, "Database error occurred")
	}
}

func (h *APIHandler) abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, RequestID: c.GetString(requestIDHeader)})
}
