package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
)

// Server hosts the Gin-powered analytics API over the trip store. When the
// API is disabled in configuration NewServer returns nil and Run becomes a
// no-op.
type Server struct {
	cfg        appconfig.APIConfig
	db         *sql.DB
	log        *logger.Log
	httpServer *http.Server
}

func NewServer(cfg appconfig.APIConfig, db *sql.DB) *Server {
	if !cfg.Enabled {
		return nil
	}
	return &Server{
		cfg: cfg,
		db:  db,
		log: logger.GetLogger(),
	}
}

// Run starts the API server and blocks until the context is cancelled or the
// underlying HTTP server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	log := s.log.WithComponent("api_server").WithFields(logger.Fields{"address": s.cfg.Address})

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.buildRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info("analytics api started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("analytics api stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("analytics api exited with error")
		}
		return err
	}
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	{
		api.GET("/trips", s.handleTrips)
		api.GET("/trips/stats", s.handleTripStats)
		api.GET("/trips/hourly", s.handleHourlyPatterns)
		api.GET("/trips/payment-types", s.handlePaymentTypes)
	}

	return router
}
