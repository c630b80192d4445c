package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roost-io/roost/pkg/agent"
	"github.com/roost-io/roost/pkg/api"
	"github.com/roost-io/roost/pkg/cache"
	"github.com/roost-io/roost/pkg/client"
	"github.com/roost-io/roost/pkg/controller"
	"github.com/roost-io/roost/pkg/events"
	"github.com/roost-io/roost/pkg/log"
	"github.com/roost-io/roost/pkg/metrics"
	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/storage"
	"github.com/roost-io/roost/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "roost",
	Short: "Roost - Fleet controller and host agent",
	Long: `Roost manages a fleet of hosts: agents report resource telemetry
over authenticated heartbeats, and the controller derives liveness,
caches metrics with automatic failover, and rotates agent credentials
with zero downtime.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Roost version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(controllerCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(nodeCmd)
}

func initLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

// Controller commands
var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run the fleet controller",
}

var controllerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the controller",
	Long: `Start the fleet controller: the HTTP API, the metrics cache, and
the background collector.

The cluster secret seals agent credentials before they reach disk. It
can be passed via --cluster-secret or the ROOST_CLUSTER_SECRET
environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)

		listenAddr, _ := cmd.Flags().GetString("listen")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		redisAddr, _ := cmd.Flags().GetString("redis-addr")
		secret, _ := cmd.Flags().GetString("cluster-secret")
		offlineThreshold, _ := cmd.Flags().GetDuration("offline-threshold")
		graceWindow, _ := cmd.Flags().GetDuration("grace-window")

		if secret == "" {
			secret = os.Getenv("ROOST_CLUSTER_SECRET")
		}
		if secret == "" {
			return fmt.Errorf("a cluster secret is required (--cluster-secret or ROOST_CLUSTER_SECRET)")
		}

		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}

		sealer, err := security.NewTokenSealerFromSecret(secret)
		if err != nil {
			return fmt.Errorf("failed to create token sealer: %v", err)
		}

		store, err := storage.NewBoltStore(dataDir, sealer)
		if err != nil {
			return fmt.Errorf("failed to open store: %v", err)
		}
		defer store.Close()

		cacheCfg := cache.Config{Fallback: cache.NewMemoryTier(0)}
		if redisAddr != "" {
			redisTier := cache.NewRedisTier(redisAddr)
			defer redisTier.Close()
			cacheCfg.Fast = redisTier
			fmt.Printf("✓ Redis cache tier at %s\n", redisAddr)
		} else {
			fmt.Println("✓ Memory-only cache (no --redis-addr)")
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		broker.StartLogConsumer(ctx)

		ctrl, err := controller.New(controller.Config{
			Store:            store,
			Cache:            cache.New(cacheCfg),
			Broker:           broker,
			Pusher:           client.NewAgentClient(),
			OfflineThreshold: offlineThreshold,
			GraceWindow:      graceWindow,
		})
		if err != nil {
			return fmt.Errorf("failed to create controller: %v", err)
		}
		fmt.Println("✓ Controller initialized")

		collector := metrics.NewCollector(ctrl, broker, 0)
		go collector.Run(ctx)
		fmt.Println("✓ Metrics collector started")

		apiServer := api.NewServer(ctrl, listenAddr)
		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(); err != nil {
				errCh <- err
			}
		}()
		fmt.Printf("✓ API server listening on %s\n", listenAddr)

		fmt.Println()
		fmt.Println("Controller is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown: %v", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	controllerCmd.AddCommand(controllerStartCmd)

	controllerStartCmd.Flags().String("listen", "127.0.0.1:8420", "Address for the HTTP API")
	controllerStartCmd.Flags().String("data-dir", "./roost-data", "Data directory for fleet state")
	controllerStartCmd.Flags().String("redis-addr", "", "Redis address for the fast cache tier (optional)")
	controllerStartCmd.Flags().String("cluster-secret", "", "Secret used to seal credentials at rest")
	controllerStartCmd.Flags().Duration("offline-threshold", controller.DefaultOfflineThreshold, "Silence after which a node is offline")
	controllerStartCmd.Flags().Duration("grace-window", controller.DefaultGraceWindow, "How long the old credential stays valid after rotation")
	controllerStartCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	controllerStartCmd.Flags().Bool("log-json", false, "Log in JSON format")
}

// Agent commands
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the host agent",
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)

		cfgPath, _ := cmd.Flags().GetString("config")

		a, err := agent.New(cfgPath, Version)
		if err != nil {
			return fmt.Errorf("failed to create agent: %v", err)
		}
		fmt.Println("✓ Agent initialized")
		fmt.Println("Agent is running. Press Ctrl+C to stop.")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := a.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		fmt.Println("\n✓ Shutdown complete")
		return nil
	},
}

func init() {
	agentCmd.AddCommand(agentStartCmd)

	agentStartCmd.Flags().String("config", "/etc/roost/agent.yml", "Path to the agent configuration file")
	agentStartCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	agentStartCmd.Flags().Bool("log-json", false, "Log in JSON format")
}

// Node commands
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage fleet nodes",
}

func controllerClient(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("controller")
	return client.NewClient(addr)
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a new node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, _ := cmd.Flags().GetString("address")

		reg, err := controllerClient(cmd).RegisterNode(cmd.Context(), &types.RegisterNodeRequest{
			Name:    args[0],
			Address: address,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Node '%s' registered\n", reg.Node.Name)
		fmt.Printf("  ID:    %s\n", reg.Node.ID)
		fmt.Printf("  Token: %s\n", reg.Token)
		fmt.Println()
		fmt.Println("Copy the token into the agent's config file. It is shown only once.")
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := controllerClient(cmd).ListNodes(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tVERSION")
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Name, n.Address, n.Version)
		}
		return w.Flush()
	},
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show derived liveness of every node",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := controllerClient(cmd).Status(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NODE\tSTATE\tLATENCY\tLAST SEEN\tVERSION")
		for _, s := range statuses {
			state := "offline"
			latency := "-"
			lastSeen := "never"
			if s.Online {
				state = "online"
				latency = fmt.Sprintf("%dms", s.LatencyMs)
			}
			if !s.LastSeenAt.IsZero() {
				lastSeen = s.LastSeenAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.NodeID, state, latency, lastSeen, s.AgentVersion)
		}
		return w.Flush()
	},
}

var nodeRotateCmd = &cobra.Command{
	Use:   "rotate-token NODE_ID",
	Short: "Rotate a node's bearer credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controllerClient(cmd).RotateToken(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Credential rotated")
		return nil
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "rm NODE_ID",
	Short: "Remove a node from the fleet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controllerClient(cmd).RemoveNode(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Node removed")
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeStatusCmd)
	nodeCmd.AddCommand(nodeRotateCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)

	nodeCmd.PersistentFlags().String("controller", "127.0.0.1:8420", "Controller API address")
	nodeCreateCmd.Flags().String("address", "", "Agent address (host:port)")
	nodeCreateCmd.MarkFlagRequired("address")
}
