package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openStore(cmd.Context(), &cfg.Database, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.Info("Migration complete")
			return nil
		},
	}
}

// withServices runs fn against services backed by the configured database.
func withServices(ctx context.Context, fn func(*service.Services, *zap.Logger) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStore(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(service.New(service.Deps{Store: store, Cache: repository.NopCache{}, Logger: logger}), logger)
}

func createUserCmd() *cobra.Command {
	var email, displayName string
	cmd := &cobra.Command{
		Use:   "create-user <username> <password>",
		Short: "Register a user with a profile and an empty cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(svc *service.Services, logger *zap.Logger) error {
				user, err := svc.Accounts.Register(cmd.Context(), service.RegisterInput{
					Username:    args[0],
					Password:    args[1],
					Email:       email,
					DisplayName: displayName,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&displayName, "display-name", "", "name shown on the seller page")
	return cmd
}

func createCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-category <name>",
		Short: "Add a product category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(svc *service.Services, logger *zap.Logger) error {
				category, err := svc.Catalog.CreateCategory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created category %s (slug %s)\n", category.Name, category.Slug)
				return nil
			})
		},
	}
}

func orderStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order-status <order-id> <Pending|Processing|Delivered>",
		Short: "Move an order to its next status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			return withServices(cmd.Context(), func(svc *service.Services, logger *zap.Logger) error {
				order, err := svc.Orders.UpdateStatus(cmd.Context(), uint(id), args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), order.String())
				return nil
			})
		},
	}
}
