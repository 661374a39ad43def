// Command progresstail prints the progress reports published when sessions
// finish. It reads the same REDIS_* settings as the server.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/FiveEightyEight/scripturequest/config"
	"github.com/FiveEightyEight/scripturequest/db"
	"github.com/redis/go-redis/v9"
)

func main() {
	rc, err := config.LoadRedis()
	if err != nil {
		log.Fatalf("Failed to load Redis config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := db.NewRedisClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	}, 0)
	defer rdb.Close()

	reports, err := rdb.SubscribeProgress(ctx)
	if err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", db.ProgressChannel, err)
	}
	log.Printf("Listening on %s at %s", db.ProgressChannel, rc.Addr)

	enc := json.NewEncoder(os.Stdout)
	for report := range reports {
		if err := enc.Encode(report); err != nil {
			log.Printf("Failed to write report: %v", err)
		}
	}
}
