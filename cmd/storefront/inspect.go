package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/repository"
	"github.com/spf13/cobra"
)

type auditReader interface {
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

type instanceFinder interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

func auditCmd() *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:     "audit <entity-id>",
		Short:   "Show the newest audit entries for an entity",
		Example: "  storefront audit order:42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.MongoDB.Enabled {
				return fmt.Errorf("mongodb is disabled in %s", configPath)
			}
			mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
			if err != nil {
				return fmt.Errorf("failed to connect to mongodb: %w", err)
			}
			defer mongoRepo.Close(context.Background())

			return printAuditLogs(cmd.Context(), mongoRepo, cmd.OutOrStdout(), args[0], limit)
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 20, "maximum number of entries")
	return cmd
}

func printAuditLogs(ctx context.Context, r auditReader, w io.Writer, entityID string, limit int64) error {
	logs, err := r.GetAuditLogs(ctx, entityID, limit)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	if len(logs) == 0 {
		fmt.Fprintf(w, "no audit entries for %s\n", entityID)
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(w, "%s  %-22s actor=%d", l.CreatedAt.UTC().Format(time.RFC3339), l.Action, l.ActorID)
		for k, v := range l.Data {
			fmt.Fprintf(w, " %s=%v", k, v)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func instancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances [service]",
		Short: "List instances registered in etcd",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
			if err != nil {
				return err
			}
			defer sd.Close()

			name := cfg.Server.Name
			if len(args) == 1 {
				name = args[0]
			}
			return printInstances(cmd.Context(), sd, cmd.OutOrStdout(), name)
		},
	}
}

func printInstances(ctx context.Context, f instanceFinder, w io.Writer, name string) error {
	instances, err := f.Discover(ctx, name)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Fprintf(w, "no instances of %s registered\n", name)
		return nil
	}
	for _, inst := range instances {
		fmt.Fprintln(w, inst.Addr())
	}
	return nil
}
