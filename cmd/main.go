package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FiveEightyEight/scripturequest/config"
	"github.com/FiveEightyEight/scripturequest/coordinator"
	"github.com/FiveEightyEight/scripturequest/db"
	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/handlers"
	"github.com/FiveEightyEight/scripturequest/realtime"
	"github.com/FiveEightyEight/scripturequest/registry"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := db.NewRedisClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Game.SummaryTTL)
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to redis at %s: %v", cfg.Redis.Addr, err)
	}

	gdb, err := db.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	questions := db.NewQuestionStore(gdb)
	if err := questions.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate questions: %v", err)
	}
	if cfg.QuestionsSeedFile != "" {
		seedQuestions(ctx, questions, cfg.QuestionsSeedFile)
	}

	hub := realtime.NewHub()
	co := coordinator.New(
		registry.New(),
		game.NewQuestionSupply(questions, 0),
		hub,
		rdb,
		rdb,
		coordinator.Options{
			QuestionsPerSession: cfg.Game.QuestionsPerSession,
			DefaultTimeLimit:    cfg.Game.DefaultTimeLimit,
			ChatLimit:           cfg.Game.ChatHistoryLimit,
			TickInterval:        cfg.Game.TickInterval,
			GracePeriod:         cfg.Game.GracePeriod,
			IdleTimeout:         cfg.Game.PlayerIdleTimeout,
		},
	)
	go co.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	handlers.Register(e, co, hub, cfg.AccessTokenSecret, handlers.NewUpgrader(cfg.CORSOrigins))

	go func() {
		log.Printf("Server is running on port %s\n", cfg.Port)
		if err := e.Start("0.0.0.0:" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	co.Wait()
	log.Println("Server stopped")
}

func seedQuestions(ctx context.Context, store *db.QuestionStore, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open question seed file: %v", err)
	}
	defer f.Close()

	n, err := store.Seed(ctx, f)
	if err != nil {
		log.Fatalf("Failed to seed questions: %v", err)
	}
	log.Printf("Seeded %d questions from %s", n, path)
}
