package livehttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tradesim/internal/chart"
	"tradesim/internal/desk"
	"tradesim/internal/ledger"
	"tradesim/internal/logger"
	"tradesim/internal/market"
	"tradesim/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultTradesLimit = 10
	maxTradesLimit     = 50
	maxImportBytes     = 4 << 20
)

// Desk is the trading surface served under /api/live. *desk.Desk implements it.
type Desk interface {
	Snapshot() session.Snapshot
	Series() []market.Point
	Trades(limit int) []ledger.Trade
	ManualTrade(ctx context.Context, side ledger.Side, qty decimal.Decimal) (ledger.Trade, error)
	SizeOrder(ctx context.Context, side ledger.Side, pct decimal.Decimal) (decimal.Decimal, error)
	UpdateBot(ctx context.Context, u session.BotUpdate) (session.BotView, error)
	Export(ctx context.Context) (session.State, error)
	Import(ctx context.Context, st session.State) error
}

// ChartSource serves the last rendered chart. *chart.Renderer implements it.
type ChartSource interface {
	HTML() []byte
	PNG(ctx context.Context) ([]byte, error)
}

type Router struct {
	Desk    Desk
	limiter *rate.Limiter
}

// NewRouter builds the /api/live router. limit <= 0 disables rate limiting.
func NewRouter(d Desk, limit float64, burst int) *Router {
	r := &Router{Desk: d}
	if limit > 0 {
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
	return r
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/snapshot", r.handleSnapshot)
	group.GET("/series", r.handleSeries)
	group.GET("/trades", r.handleTrades)
	group.GET("/session/export", r.handleExport)

	mutating := group.Group("", rateLimit(r.limiter))
	mutating.POST("/trades", r.handleManualTrade)
	mutating.POST("/trades/size", r.handleSize)
	mutating.PUT("/bot", r.handleBot)
	mutating.POST("/session/import", r.handleImport)
}

func (r *Router) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, r.Desk.Snapshot())
}

func (r *Router) handleSeries(c *gin.Context) {
	snap := r.Desk.Snapshot()
	c.JSON(http.StatusOK, gin.H{"symbol": snap.Symbol, "points": r.Desk.Series()})
}

func (r *Router) handleTrades(c *gin.Context) {
	limit := defaultTradesLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTradesLimit {
			c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: "limit must be an integer in [1, 50]"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"trades": r.Desk.Trades(limit)})
}

func (r *Router) handleManualTrade(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: err.Error()})
		return
	}
	side, err := ledger.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidSide, Message: err.Error()})
		return
	}
	qty, err := parseNumber(req.Amount)
	if err != nil || !qty.IsPositive() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidAmount, Message: "amount must be a positive number"})
		return
	}
	trade, err := r.Desk.ManualTrade(c.Request.Context(), side, qty)
	if err != nil {
		logger.Warnf("[api] manual %s %s rejected ip=%s err=%v", side, qty, c.ClientIP(), err)
		writeError(c, err)
		return
	}
	logger.Infof("[api] manual %s %s ip=%s id=%s", side, qty, c.ClientIP(), trade.ID)
	c.JSON(http.StatusOK, gin.H{"trade": trade, "snapshot": r.Desk.Snapshot()})
}

func (r *Router) handleSize(c *gin.Context) {
	var req SizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: err.Error()})
		return
	}
	side, err := ledger.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidSide, Message: err.Error()})
		return
	}
	pct, err := parseNumber(req.Percent)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidAmount, Message: "percent must be a number in (0, 1]"})
		return
	}
	qty, err := r.Desk.SizeOrder(c.Request.Context(), side, pct)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"side": side, "percent": pct, "quantity": qty})
}

func (r *Router) handleBot(c *gin.Context) {
	var req BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: err.Error()})
		return
	}
	tp, err := parseOptionalNumber(req.TakeProfitPct)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidThreshold, Message: "take_profit_pct: " + err.Error()})
		return
	}
	sl, err := parseOptionalNumber(req.StopLossPct)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidThreshold, Message: "stop_loss_pct: " + err.Error()})
		return
	}
	view, err := r.Desk.UpdateBot(c.Request.Context(), session.BotUpdate{Active: req.Active, TakeProfitPct: tp, StopLossPct: sl})
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Infof("[api] bot update ip=%s active=%v tp=%s sl=%s", c.ClientIP(), view.Active, view.TakeProfitPct, view.StopLossPct)
	c.JSON(http.StatusOK, gin.H{"bot": view})
}

func (r *Router) handleExport(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	if format != "json" && format != "yaml" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: "format must be json or yaml"})
		return
	}
	st, err := r.Desk.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=tradesim-session."+format)
	if format == "json" {
		c.JSON(http.StatusOK, st)
		return
	}
	out, err := session.EncodeYAML(st)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", out)
}

func (r *Router) handleImport(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: err.Error()})
		return
	}
	st, err := session.DecodeState(raw)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := r.Desk.Import(c.Request.Context(), st); err != nil {
		writeError(c, err)
		return
	}
	logger.Infof("[api] session %s imported at tick %d ip=%s", st.SessionID, st.Tick, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"snapshot": r.Desk.Snapshot()})
}

func registerChartRoutes(router *gin.Engine, src ChartSource) {
	router.GET("/chart", func(c *gin.Context) {
		html := src.HTML()
		if html == nil {
			c.JSON(http.StatusNotFound, errorResponse{Error: codeUnavailable, Message: "chart not rendered yet"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
	})
	router.GET("/chart.png", func(c *gin.Context) {
		png, err := src.PNG(c.Request.Context())
		switch {
		case errors.Is(err, chart.ErrPNGDisabled), errors.Is(err, chart.ErrNoData):
			c.JSON(http.StatusNotFound, errorResponse{Error: codeUnavailable, Message: err.Error()})
		case err != nil:
			logger.Errorf("[api] chart png failed: %v", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: codeInternal, Message: err.Error()})
		default:
			c.Data(http.StatusOK, "image/png", png)
		}
	})
}

// writeError maps domain errors onto status codes.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, codeInternal
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		status, code = http.StatusBadRequest, codeInvalidAmount
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code = http.StatusUnprocessableEntity, codeInsufficientFunds
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		status, code = http.StatusUnprocessableEntity, codeInsufficientHoldings
	case errors.Is(err, ledger.ErrInvalidPrice):
		status, code = http.StatusUnprocessableEntity, codeInvalidPrice
	case errors.Is(err, session.ErrInvalidThreshold):
		status, code = http.StatusBadRequest, codeInvalidThreshold
	case errors.Is(err, session.ErrSnapshotInvalid):
		status, code = http.StatusBadRequest, codeInvalidSnapshot
	case errors.Is(err, desk.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, codeUnavailable
	default:
		logger.Errorf("[api] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, errorResponse{Error: code, Message: err.Error()})
}
