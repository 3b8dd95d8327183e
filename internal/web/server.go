// Package web serves the HTTP API and the websocket stream the
// dashboard consumes.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/adapters/exchange"
	"github.com/mkraev/binance-assistant/internal/nlp"
	"github.com/mkraev/binance-assistant/internal/sentiment"
	"github.com/mkraev/binance-assistant/internal/strategy"
	"github.com/mkraev/binance-assistant/pkg/logger"
	"github.com/mkraev/binance-assistant/pkg/models"
)

// Server wires HTTP endpoints around the strategy engine.
type Server struct {
	router    *gin.Engine
	engine    *strategy.Engine
	exchange  exchange.Exchange
	parser    *nlp.Parser
	sentiment *sentiment.Aggregator
	hub       *Hub
	srv       *http.Server
}

// NewServer builds the router and subscribes the hub to run updates.
// parser and sentiment may be nil; their endpoints then return 503.
func NewServer(cfg config.WebConfig, eng *strategy.Engine, ex exchange.Exchange, parser *nlp.Parser, agg *sentiment.Aggregator) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	s := &Server{
		router:    r,
		engine:    eng,
		exchange:  ex,
		parser:    parser,
		sentiment: agg,
		hub:       NewHub(),
		srv: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	eng.Subscribe(s.hub.BroadcastRun)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.Serve(c.Writer, c.Request)
	})

	api := s.router.Group("/api")
	{
		api.GET("/account", s.getAccount)
		api.POST("/orders", s.placeOrder)

		api.POST("/strategies", s.submitStrategy)
		api.GET("/strategies", s.listStrategies)
		api.GET("/strategies/:id", s.getStrategy)
		api.POST("/strategies/:id/cancel", s.cancelStrategy)
		api.DELETE("/strategies", s.purgeStrategies)

		api.POST("/parse", s.parseCommand)
		api.GET("/parse/examples", s.parseExamples)
		api.GET("/sentiment/:symbol", s.getSentiment)
	}
}

// Run blocks serving HTTP until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Web server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) getAccount(c *gin.Context) {
	account, err := s.exchange.FetchAccount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) placeOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.exchange.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) submitStrategy(c *gin.Context) {
	var spec strategy.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.engine.Submit(c.Request.Context(), &spec)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, strategy.ErrInvalidSpec) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *Server) listStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.engine.List()})
}

func (s *Server) getStrategy(c *gin.Context) {
	snap, err := s.engine.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) cancelStrategy(c *gin.Context) {
	if err := s.engine.Cancel(c.Param("id")); err != nil {
		status := http.StatusConflict
		if errors.Is(err, strategy.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": c.Param("id"), "status": "cancelling"})
}

func (s *Server) purgeStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"purged": s.engine.Purge()})
}

type parseRequest struct {
	Command string `json:"command" binding:"required,min=1"`
	Execute bool   `json:"execute"`
}

// parseCommand parses a free-text command. With execute=true a
// confident twap/grid result is submitted and a market result placed
// directly; below the confidence threshold nothing is acted on.
func (s *Server) parseCommand(c *gin.Context) {
	if s.parser == nil || !s.parser.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "nlp parser disabled"})
		return
	}
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.parser.Parse(c.Request.Context(), req.Command)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !req.Execute {
		c.JSON(http.StatusOK, result)
		return
	}
	if result.Error != "" || result.Confidence < s.parser.MinConfidence() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "low confidence, not executed",
			"parsed": result,
		})
		return
	}

	if result.Intent == "market" {
		order, err := result.ToOrder()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "parsed": result})
			return
		}
		placed, err := s.exchange.PlaceOrder(c.Request.Context(), *order)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "parsed": result})
			return
		}
		c.JSON(http.StatusOK, gin.H{"parsed": result, "order": placed})
		return
	}

	spec, err := result.ToSpec()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "parsed": result})
		return
	}
	id, err := s.engine.Submit(c.Request.Context(), spec)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, strategy.ErrInvalidSpec) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "parsed": result})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"parsed": result, "run_id": id})
}

func (s *Server) parseExamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": nlp.ExampleCommands})
}

func (s *Server) getSentiment(c *gin.Context) {
	if s.sentiment == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sentiment tracking disabled"})
		return
	}
	snap, err := s.sentiment.Snapshot(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
