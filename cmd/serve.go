package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/vibast-solutions/ms-go-website/app/controller"
	grpcserver "github.com/vibast-solutions/ms-go-website/app/grpc"
	"github.com/vibast-solutions/ms-go-website/app/service"
	"github.com/vibast-solutions/ms-go-website/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the HTTP server (static site, form endpoints, health) and the gRPC health server.",
	Run:   runServe,
}

// init registers the serve command.
func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires dependencies and starts HTTP and gRPC servers.
func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg)

	svc, err := buildServices(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	dispatcher, err := svc.dispatcher()
	if err != nil {
		log.Fatalf("Failed to configure delivery: %v", err)
	}
	composer, err := service.NewComposer(cfg.CompanyName, cfg.NotificationRecipient(), cfg.BrochurePath)
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}

	forms := service.NewFormService(composer, dispatcher, svc.formStore(), cfg.DeliveryDeadline)
	formController := controller.NewFormController(forms, cfg.StrictDelivery)
	var history controller.HistoryReader
	if svc.history != nil {
		history = svc.history
	}
	systemController := controller.NewSystemController(svc.registry, svc.records, history)
	healthServer := grpcserver.NewServer(svc.registry)

	e := setupHTTPServer(cfg, formController, systemController)
	grpcServer, lis, err := setupGRPCServer(cfg, healthServer)
	if err != nil {
		log.Fatalf("Failed to listen on gRPC port: %v", err)
	}

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
		log.WithField("addr", httpAddr).Info("starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	go func() {
		log.WithField("addr", lis.Addr().String()).Info("starting gRPC server")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	healthServer.Shutdown()

	// Direct-mode requests may still be walking the transport list.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DeliveryDeadline+10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown error: %v", err)
	}
	grpcServer.GracefulStop()

	log.Info("server stopped")
}

// setupHTTPServer configures the Echo HTTP server and routes.
func setupHTTPServer(cfg *config.Config, forms *controller.FormController, system *controller.SystemController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			entry := log.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.Warnf("request failed: %v", v.Error)
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", system.Health)

	api := e.Group("/api")
	api.GET("/email/records", system.Records)
	api.GET("/email/history", system.History)

	limiter := formRateLimiter(cfg.RateLimit)
	api.POST("/contact", forms.Contact, limiter)
	api.POST("/brochure", forms.Brochure, limiter)

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			e.Use(echomiddleware.StaticWithConfig(echomiddleware.StaticConfig{
				Root:  cfg.StaticDir,
				HTML5: true,
				Skipper: func(c echo.Context) bool {
					path := c.Request().URL.Path
					return strings.HasPrefix(path, "/api/") || path == "/health"
				},
			}))
		} else {
			log.WithField("dir", cfg.StaticDir).Warn("static directory not found, serving API only")
		}
	}

	return e
}

// formRateLimiter limits form posts to perMinute requests per client IP.
func formRateLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, controller.FormResponse{Error: "too many requests, please try again later"})
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, controller.FormResponse{Error: "request rejected"})
		},
	})
}

// setupGRPCServer builds the gRPC server and listener.
func setupGRPCServer(cfg *config.Config, health *grpcserver.Server) (*grpc.Server, net.Listener, error) {
	grpcAddr := net.JoinHostPort(cfg.GRPCHost, cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, nil, err
	}

	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	return grpcServer, lis, nil
}
