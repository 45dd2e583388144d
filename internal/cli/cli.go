// Package cli provides the command-line interface for the runtime,
// grounded on the teacher's Cobra-based CLI: a persistent --config flag,
// a YAML config file, and subcommands for running, stepping, and
// inspecting a runtime instance.
//
// Command structure:
//
//	lava                      # root command
//	├── run                   # run the demo network to completion or forever
//	│   └── --steps, --continuous
//	├── step                  # run exactly N steps against a running admin server
//	│   └── --addr, --steps
//	└── status                # query an admin server's lifecycle flags
//	    └── --addr
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/ysingh7/lava/internal/adminrpc"
	"github.com/ysingh7/lava/internal/demo"
	"github.com/ysingh7/lava/internal/executable"
	"github.com/ysingh7/lava/internal/runtime"
	"github.com/ysingh7/lava/internal/runtimemetrics"
)

// Config is the complete YAML-configurable surface of the CLI.
type Config struct {
	Network struct {
		Workers  int    `yaml:"workers"`
		Protocol string `yaml:"protocol"`
		VarSize  int    `yaml:"var_size"`
	} `yaml:"network"`

	Admin struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"admin"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func defaultConfig() Config {
	var c Config
	c.Network.Workers = 2
	c.Network.Protocol = "phased"
	c.Network.VarSize = 4
	c.Admin.Addr = ":7070"
	c.Metrics.Port = 9090
	return c
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

var configFile string

// BuildCLI assembles the root Cobra command.
func BuildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:     "lava",
		Short:   "Neuromorphic dataflow runtime",
		Long:    "lava drives a compiled process network through its phased or asynchronous synchronization protocol.",
		Version: "1.0.0",
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	root.AddCommand(buildRunCommand())
	root.AddCommand(buildStepCommand())
	root.AddCommand(buildStatusCommand())
	return root
}

func buildRunCommand() *cobra.Command {
	var steps int64
	var continuous bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the demo network and run it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem(steps, continuous)
		},
	}
	cmd.Flags().Int64Var(&steps, "steps", 10, "number of steps to run")
	cmd.Flags().BoolVar(&continuous, "continuous", false, "run until stopped instead of a fixed step count")
	return cmd
}

func runSystem(steps int64, continuous bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	logger := slog.Default().With("component", "cli")
	logger.Info("starting runtime", "workers", cfg.Network.Workers, "protocol", cfg.Network.Protocol)

	protocol := executable.ProtocolPhased
	if cfg.Network.Protocol == "async" {
		protocol = executable.ProtocolAsync
	}
	exe := demo.Build(demo.Config{
		Workers:  cfg.Network.Workers,
		Protocol: protocol,
		VarSize:  cfg.Network.VarSize,
	}, logger)

	var collector *runtimemetrics.Collector
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector = runtimemetrics.NewCollector(reg)
		srv := runtimemetrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Error("metrics server exited", "err", err)
			}
		}()
	}

	ctrl := runtime.NewController(exe, runtime.WithLogger(logger), runtime.WithMetrics(collector))
	if err := ctrl.Initialize(); err != nil {
		return fmt.Errorf("initializing runtime: %w", err)
	}

	var grpcServer *grpc.Server
	if cfg.Admin.Enabled {
		lis, err := net.Listen("tcp", cfg.Admin.Addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.Admin.Addr, err)
		}
		grpcServer = grpc.NewServer()
		adminrpc.RegisterAdminServiceServer(grpcServer, adminrpc.NewServer(ctrl, logger))
		logger.Info("admin rpc listening", "addr", cfg.Admin.Addr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("admin rpc server exited", "err", err)
			}
		}()
	}

	rc := runtime.Stepped(steps, false)
	if continuous {
		rc = runtime.Continuous()
	}
	if err := ctrl.Start(rc); err != nil {
		return fmt.Errorf("starting runtime: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if !continuous {
		done := make(chan error, 1)
		go func() { done <- ctrl.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				logger.Error("run completed with error", "err", err)
			}
		case <-sigCh:
			logger.Info("signal received, stopping early")
		}
	} else {
		<-sigCh
		logger.Info("signal received, stopping")
	}

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return ctrl.Stop()
}

func buildStepCommand() *cobra.Command {
	var addr string
	var steps int64

	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run N more steps against a runtime exposing the admin RPC surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(addr, func(c *adminrpc.Client) error {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				resp, err := c.Start(ctx, &adminrpc.StartRequest{Steps: steps, Blocking: true})
				if err != nil {
					return err
				}
				if resp.Err != "" {
					return fmt.Errorf("remote error: %s", resp.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":7070", "admin RPC address")
	cmd.Flags().Int64Var(&steps, "steps", 1, "number of steps to run")
	return cmd
}

func buildStatusCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running instance's lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(addr, func(c *adminrpc.Client) error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				resp, err := c.Status(ctx, &adminrpc.StatusRequest{})
				if err != nil {
					return err
				}
				fmt.Printf("initialized=%v started=%v running=%v\n", resp.Initialized, resp.Started, resp.Running)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":7070", "admin RPC address")
	return cmd
}

func withClient(addr string, fn func(*adminrpc.Client) error) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()
	return fn(adminrpc.NewClient(conn))
}
