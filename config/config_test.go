package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/quest")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8088" || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	g := cfg.Game
	if g.TickInterval != time.Second || g.GracePeriod != 5*time.Minute || g.PlayerIdleTimeout != 0 {
		t.Errorf("unexpected game timing defaults: %+v", g)
	}
	if g.QuestionsPerSession != 10 || g.DefaultTimeLimit != 600 || g.ChatHistoryLimit != 50 {
		t.Errorf("unexpected game defaults: %+v", g)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("PLAYER_IDLE_TIMEOUT", "2m")
	t.Setenv("QUESTIONS_PER_SESSION", "15")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %q", cfg.CORSOrigins)
	}
	if cfg.Game.TickInterval != 250*time.Millisecond || cfg.Game.PlayerIdleTimeout != 2*time.Minute {
		t.Errorf("unexpected durations: %+v", cfg.Game)
	}
	if cfg.Game.QuestionsPerSession != 15 || cfg.Redis.DB != 3 {
		t.Errorf("unexpected ints: %+v", cfg)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TICK_INTERVAL", "soon")
	t.Setenv("CHAT_HISTORY_LIMIT", "many")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"ACCESS_TOKEN_SECRET", "DATABASE_URL", "TICK_INTERVAL", "CHAT_HISTORY_LIMIT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestLoadRejectsNegativeIdleTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("PLAYER_IDLE_TIMEOUT", "-1s")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PLAYER_IDLE_TIMEOUT") {
		t.Fatalf("expected idle timeout error, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	// register cleanup for keys the env file will set
	for _, key := range []string{"ACCESS_TOKEN_SECRET", "DATABASE_URL", "PORT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	contents := "ACCESS_TOKEN_SECRET=from-file\nDATABASE_URL=postgres://file/db\nPORT=9999\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.AccessTokenSecret) != "from-file" || cfg.Port != "9999" {
		t.Errorf("env file not applied: %+v", cfg)
	}
}

func TestLoadRedisRejectsBadDB(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "two")

	if _, err := LoadRedis(); err == nil || !strings.Contains(err.Error(), "REDIS_DB") {
		t.Fatalf("expected REDIS_DB error, got %v", err)
	}

	t.Setenv("REDIS_DB", "2")
	rc, err := LoadRedis()
	if err != nil {
		t.Fatalf("LoadRedis: %v", err)
	}
	if rc.Addr != "cache:6380" || rc.DB != 2 {
		t.Errorf("unexpected redis config: %+v", rc)
	}
}
