package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"auctioneer/cmd"
	"auctioneer/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.Fatal("Migration error: ", err)
			}
			return
		case "deposit":
			if len(os.Args) < 4 {
				log.Fatal("usage: auctioneer deposit <user-id> <amount-minor-units>")
			}
			if err := cmd.Deposit(ctx, os.Args[2], os.Args[3]); err != nil {
				log.Fatal("Deposit error: ", err)
			}
			return
		}
	}

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: auctioneer migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}
