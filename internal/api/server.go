package api

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/contract-radar/internal/aggregate"
	"github.com/david/contract-radar/internal/ai"
)

// Server exposes the aggregator's read interface over HTTP. The display
// layer polls GET /api/v1/opportunities and drives refresh/load-more through
// the POST endpoints; it never sees source errors, only the advisory string.
type Server struct {
	Echo *echo.Echo
	Agg  *aggregate.Orchestrator
	AI   *ai.OllamaClient // nil unless the cosmetic rewriter is enabled
}

func NewServer(agg *aggregate.Orchestrator, aiClient *ai.OllamaClient, corsOrigins []string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	allowedOrigins = append(allowedOrigins, corsOrigins...)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Echo: e,
		Agg:  agg,
		AI:   aiClient,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleGetOpportunities)
	api.POST("/opportunities/refresh", s.handleRefresh)
	api.POST("/opportunities/more", s.handleLoadMore)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetOpportunities returns the current session snapshot. With
// ?rewrite=true and a configured AI client, titles are rewritten for
// display; rewrite failures fall back to the original title.
func (s *Server) handleGetOpportunities(c echo.Context) error {
	snap := s.Agg.Snapshot()

	if c.QueryParam("rewrite") == "true" && s.AI != nil {
		ctx := c.Request().Context()
		for i := range snap.Records {
			title, err := s.AI.RewriteTitle(ctx, snap.Records[i].Title)
			if err != nil {
				log.Printf("[API] Title rewrite failed for %s: %v", snap.Records[i].ID, err)
				continue
			}
			snap.Records[i].Title = title
		}
	}

	return c.JSON(http.StatusOK, snap)
}

// handleRefresh triggers a full reload. 202 when started, 409 when a fetch
// is already in flight (the request is dropped, not queued).
func (s *Server) handleRefresh(c echo.Context) error {
	if !s.Agg.Refresh(c.Request().Context()) {
		return c.JSON(http.StatusConflict, map[string]string{"status": "fetch already in flight"})
	}
	return c.JSON(http.StatusAccepted, s.Agg.Snapshot())
}

func (s *Server) handleLoadMore(c echo.Context) error {
	if !s.Agg.LoadMore(c.Request().Context()) {
		return c.JSON(http.StatusConflict, map[string]string{"status": "busy or no more records"})
	}
	return c.JSON(http.StatusAccepted, s.Agg.Snapshot())
}
