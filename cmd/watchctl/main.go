// Command watchctl registers or stops the Gmail watch subscription out of
// band. Useful for first-time setup and for tearing the watch down before
// decommissioning an environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cotador/internal/config"
	"cotador/internal/database"
	"cotador/internal/gmailapi"
	"cotador/internal/store"
)

func main() {
	action := flag.String("action", "register", "register or stop the Gmail watch")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.SetupLogger()
	ctx := context.Background()

	client, err := gmailapi.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gmail client setup failed: %v\n", err)
		os.Exit(1)
	}

	switch *action {
	case "register":
		historyID, expiration, err := client.Watch(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch registration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Watch registered: historyId=%d expiration=%s\n", historyID, expiration)

		// Persist the watch state when a database is reachable so the
		// listener starts from this position
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: watch state not persisted (no database): %v\n", err)
			return
		}
		defer func() { _ = db.Close() }()

		st := store.New(db)
		if err := st.EnsureTables(); err != nil {
			fmt.Fprintf(os.Stderr, "schema setup failed: %v\n", err)
			os.Exit(1)
		}
		if err := st.SaveWatch(ctx, historyID, expiration); err != nil {
			fmt.Fprintf(os.Stderr, "failed to persist watch state: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Watch state persisted")

	case "stop":
		if err := client.Stop(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "watch stop failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Watch stopped")

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q (want register or stop)\n", *action)
		os.Exit(1)
	}
}
