package cmd

import (
	"context"
	"fmt"
	"strconv"

	"auctioneer/application"
	"auctioneer/config"
	"auctioneer/database"
	"auctioneer/repository"

	log "github.com/sirupsen/logrus"
)

// Deposit credits a user's available funds; amount is in minor units
func Deposit(ctx context.Context, userID, amountStr string) error {
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	cfg := config.Get()
	ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	balances := application.NewBalanceService(repository.NewUnitOfWorkFactory(db, nil))
	balance, err := balances.Deposit(ctx, userID, amount)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userID":    balance.UserID,
		"available": balance.Available,
		"blocked":   balance.Blocked,
	}).Info("Deposit applied")
	return nil
}
