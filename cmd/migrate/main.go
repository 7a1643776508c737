// Command migrate applies or inspects the relational schema.
//
//	migrate [up|down|status|version]
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/config"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/logger"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/postgres"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "up":
		err = postgres.Migrate(ctx, db)
	case "down":
		err = postgres.Rollback(ctx, db)
	case "status":
		err = postgres.Status(ctx, db)
	case "version":
		var v int64
		if v, err = postgres.Version(ctx, db); err == nil {
			fmt.Println(v)
		}
	default:
		err = fmt.Errorf("unknown command %q (want up, down, status or version)", cmd)
	}
	if err != nil {
		log.Error("migration command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}
