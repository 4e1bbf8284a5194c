package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/config"
	httptransport "github.com/example/roombooker/internal/http"
	"github.com/example/roombooker/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	bookingRepo := sqlite.NewBookingRepository(pool)
	roomRepo := sqlite.NewRoomRepository(pool)
	attendeeRepo := sqlite.NewAttendeeRepository(pool)
	userRepo := sqlite.NewUserRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	bookingService := application.NewBookingService(application.BookingServiceConfig{
		Bookings:       bookingRepo,
		Rooms:          roomRepo,
		Attendees:      attendeeRepo,
		Notifier:       application.NewLoggingNotifier(logger),
		IDGenerator:    idGenerator,
		Now:            now,
		MaxOccurrences: cfg.MaxOccurrences,
		Logger:         logger,
	})
	roomService := application.NewRoomServiceWithLogger(roomRepo, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	// Rebuild the in-memory availability index from the active rows before
	// accepting traffic so conflict checks see pre-existing bookings.
	if err := bookingService.LoadIndex(ctx); err != nil {
		logger.Error("failed to load availability index", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(authService, logger),
		Users:    httptransport.NewUserHandler(userService, logger),
		Rooms:    httptransport.NewRoomHandler(roomService, logger),
		Bookings: httptransport.NewBookingHandler(bookingService, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Session creation is the only unauthenticated endpoint.
		if r.Method == http.MethodPost && strings.EqualFold(r.URL.Path, "/sessions") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	go runCompletionSweep(ctx, bookingService, cfg.SweepInterval, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("roombooker API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// runCompletionSweep periodically marks confirmed bookings whose end time has
// passed as completed, until the context is cancelled.
func runCompletionSweep(ctx context.Context, service *application.BookingService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			completed, err := service.SweepCompletions(ctx)
			if err != nil {
				logger.Error("completion sweep failed", "error", err)
				continue
			}
			if completed > 0 {
				logger.Info("completion sweep finished", "completed", completed)
			}
		}
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
