package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/flightapp/api"
	"github.com/Domenick1991/flightapp/config"
	"github.com/Domenick1991/flightapp/internal/service/booking"
	"github.com/Domenick1991/flightapp/internal/service/inventory"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run starts the HTTP server and blocks until the context is canceled
// or the server fails.
func Run(ctx context.Context, cfg *config.Config, inventorySvc inventory.InventoryUseCase, bookingSvc booking.BookingUseCase) error {
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, inventorySvc, bookingSvc),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, inventorySvc inventory.InventoryUseCase, bookingSvc booking.BookingUseCase) *gin.Engine {
	router := gin.New()
	router.Use(api.RequestLogger(), gin.Recovery())

	flight := router.Group("/api/v1.0/flight")
	api.NewInventoryHandler(inventorySvc).Register(flight)
	api.NewBookingHandler(bookingSvc).Register(flight)

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger-spec", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger-spec/flightapp.swagger.json"),
		)))
	}

	return router
}
