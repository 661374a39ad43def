package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	CORSOrigins       []string
	AccessTokenSecret []byte
	Redis             RedisConfig
	DatabaseURL       string
	QuestionsSeedFile string
	Game              GameConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GameConfig struct {
	TickInterval        time.Duration
	GracePeriod         time.Duration
	SummaryTTL          time.Duration
	PlayerIdleTimeout   time.Duration
	ChatHistoryLimit    int
	QuestionsPerSession int
	DefaultTimeLimit    int
}

// Load reads .env (when present) and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	redisCfg, err := redisFromEnv()
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8088"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:8081")),
		AccessTokenSecret: []byte(getEnv("ACCESS_TOKEN_SECRET", "")),
		Redis:             redisCfg,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		QuestionsSeedFile: getEnv("QUESTIONS_SEED_FILE", ""),
		Game: GameConfig{
			TickInterval:        durationVar("TICK_INTERVAL", time.Second),
			GracePeriod:         durationVar("SESSION_GRACE_PERIOD", 5*time.Minute),
			SummaryTTL:          durationVar("FINISHED_SUMMARY_TTL", 24*time.Hour),
			PlayerIdleTimeout:   durationVar("PLAYER_IDLE_TIMEOUT", 0),
			ChatHistoryLimit:    intVar("CHAT_HISTORY_LIMIT", 50),
			QuestionsPerSession: intVar("QUESTIONS_PER_SESSION", 10),
			DefaultTimeLimit:    intVar("DEFAULT_TIME_LIMIT", 600),
		},
	}

	if len(cfg.AccessTokenSecret) == 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.Game.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	if cfg.Game.PlayerIdleTimeout < 0 {
		errs = append(errs, errors.New("PLAYER_IDLE_TIMEOUT must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRedis reads only the REDIS_* settings, for tools that need nothing else.
func LoadRedis(envFiles ...string) (RedisConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return RedisConfig{}, err
	}
	return redisFromEnv()
}

func redisFromEnv() (RedisConfig, error) {
	cfg := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return cfg, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.DB = db
	return cfg, nil
}

func loadEnvFiles(envFiles []string) error {
	err := godotenv.Load(envFiles...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	if err != nil {
		log.Println("No .env file found, using process environment")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
