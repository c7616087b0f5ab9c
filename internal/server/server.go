// internal/server/server.go
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"paybot/internal/ledger"
	"paybot/internal/models"
	"paybot/internal/workflow"
	"paybot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Operations is the read-only view of the engine the ops API exposes.
type Operations interface {
	Income(p workflow.Period) workflow.IncomeReport
	PendingPayments(actor models.BuyerID) ([]models.PaymentRequest, error)
	ReviewerID() models.BuyerID
	Ledger() *ledger.Ledger
}

var _ Operations = (*workflow.Engine)(nil)

type Server struct {
	server *http.Server
	logger *logger.Logger
}

func NewServer(port string, ops Operations, adminToken string, log *logger.Logger) *Server {
	log = log.Named("http")

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(ops, adminToken, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: log,
	}
}

// NewRouter builds the gin engine. The /v1 routes are only registered when adminToken
// is set.
func NewRouter(ops Operations, adminToken string, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorw("Recovered from panic", "path", c.Request.URL.Path, "error", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))

	h := &handler{ops: ops}
	router.GET("/health", h.health)

	if adminToken != "" {
		v1 := router.Group("/v1", bearerAuth(adminToken))
		{
			v1.GET("/income", h.income)
			v1.GET("/pending", h.pending)
		}
	}
	return router
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

type handler struct {
	ops Operations
}

type healthResponse struct {
	Status              string `json:"status"`
	PendingPayments     int    `json:"pending_payments"`
	PendingNegotiations int    `json:"pending_negotiations"`
	Purchases           int    `json:"purchases"`
	Buyers              int    `json:"buyers"`
}

func (h *handler) health(c *gin.Context) {
	counts := h.ops.Ledger().Counts()
	c.JSON(http.StatusOK, healthResponse{
		Status:              "ok",
		PendingPayments:     counts.PendingPayments,
		PendingNegotiations: counts.PendingNegotiations,
		Purchases:           counts.Purchases,
		Buyers:              counts.Buyers,
	})
}

type incomeResponse struct {
	Period string                     `json:"period"`
	Label  string                     `json:"label"`
	From   time.Time                  `json:"from"`
	To     time.Time                  `json:"to"`
	Count  int                        `json:"count"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

func (h *handler) income(c *gin.Context) {
	report := h.ops.Income(workflow.ParsePeriod(c.Query("period")))
	totals := make(map[string]decimal.Decimal, len(report.Summary.Totals))
	for currency, amount := range report.Summary.Totals {
		totals[string(currency)] = amount
	}
	c.JSON(http.StatusOK, incomeResponse{
		Period: string(report.Period),
		Label:  report.Period.Label(),
		From:   report.Summary.From,
		To:     report.Summary.To,
		Count:  report.Summary.Count,
		Totals: totals,
	})
}

type pendingResponse struct {
	ID          string          `json:"id"`
	BuyerID     int64           `json:"buyer_id"`
	Username    string          `json:"username,omitempty"`
	Plan        string          `json:"plan"`
	Method      string          `json:"method"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Deadline    time.Time       `json:"deadline"`
	Late        bool            `json:"late"`
}

// pending lists the queue as the reviewer would see it with /pending.
func (h *handler) pending(c *gin.Context) {
	reqs, err := h.ops.PendingPayments(h.ops.ReviewerID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]pendingResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, pendingResponse{
			ID:          r.ID,
			BuyerID:     int64(r.Buyer.ID),
			Username:    r.Buyer.Username,
			Plan:        string(r.Plan),
			Method:      string(r.Method),
			Amount:      r.Amount,
			Currency:    string(r.Currency),
			SubmittedAt: r.SubmittedAt,
			Deadline:    r.Deadline,
			Late:        r.Late(),
		})
	}
	c.JSON(http.StatusOK, out)
}
