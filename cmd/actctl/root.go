package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Harshitk-cp/actgraph/internal/client"
	"github.com/Harshitk-cp/actgraph/internal/config"
	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/extract"
	"github.com/Harshitk-cp/actgraph/internal/registry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "actctl",
		Short: "Build, submit and query facts on an ACT platform",
		Long: `actctl builds typed facts, validates them against the platform's type
definitions and submits them.

Without a base URL (or with --dry-run) facts are validated and printed as
submit payloads instead of being sent.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.actctl.yaml)")
	pf.String("baseurl", "", "platform API root (ACT_BASEURL)")
	pf.String("user-id", "", "platform user id (ACT_USER_ID)")
	pf.String("origin-name", "", "default origin name (ACT_ORIGIN_NAME)")
	pf.String("origin-id", "", "default origin id (ACT_ORIGIN_ID)")
	pf.String("organization", "", "default organization (ACT_ORGANIZATION)")
	pf.String("access-mode", "", "default access mode: Public, RoleBased or Explicit (ACT_ACCESS_MODE)")
	pf.String("types", "", "YAML type snapshot used instead of the platform registry")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("dry-run", false, "print submit payloads instead of sending them")

	for _, name := range []string{"baseurl", "user-id", "origin-name", "origin-id", "organization", "access-mode", "types", "log-level", "dry-run"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".actctl")
	}

	viper.SetEnvPrefix("ACTCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() (*zap.Logger, error) {
	level := viper.GetString("log-level")
	if level == "" {
		level = config.LogLevel()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// app is the per command state shared by the subcommands.
type app struct {
	client *client.Client
	logger *zap.Logger
	dryRun bool
	out    io.Writer
	close  func()
}

func overlay(dst *string, key string) {
	if v := viper.GetString(key); v != "" {
		*dst = v
	}
}

// options merges flags and actctl config over the ACT_* environment.
func options() (client.Options, error) {
	opts, err := client.OptionsFromConfig()
	if err != nil {
		return opts, err
	}
	overlay(&opts.Transport.BaseURL, "baseurl")
	overlay(&opts.Transport.UserID, "user-id")
	overlay(&opts.Session.OriginName, "origin-name")
	overlay(&opts.Session.Organization, "organization")
	if v := viper.GetString("origin-id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return opts, fmt.Errorf("origin-id: %w", err)
		}
		opts.Session.OriginID = id
	}
	if v := viper.GetString("access-mode"); v != "" {
		if !domain.ValidAccessMode(v) {
			return opts, fmt.Errorf("access-mode: unknown access mode %q", v)
		}
		opts.Session.AccessMode = domain.AccessMode(v)
	}
	return opts, nil
}

func loadSnapshot(path string) (*registry.Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return registry.LoadSnapshot(f)
}

func newApp(cmd *cobra.Command) (*app, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	opts, err := options()
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger, out: cmd.OutOrStdout(), close: func() {}}
	a.dryRun = viper.GetBool("dry-run") || opts.Transport.BaseURL == ""

	if a.dryRun {
		reg := registry.NewStatic(nil, nil)
		if path := viper.GetString("types"); path != "" {
			if reg, err = loadSnapshot(path); err != nil {
				return nil, fmt.Errorf("load types: %w", err)
			}
		}
		logger.Debug("dry run, nothing is sent")
		a.client = client.New(nil, reg, opts.Session, logger)
		return a, nil
	}

	c, closeFn, err := client.Open(cmd.Context(), opts, logger)
	if err != nil {
		return nil, err
	}
	a.client, a.close = c, closeFn
	return a, nil
}

func (a *app) Close() {
	a.close()
	_ = a.logger.Sync()
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	return enc.Encode(v)
}

// factory returns the fact constructor for the current mode. Dry runs without
// a type snapshot build drafts that carry only the type name.
func (a *app) factory() extract.FactFactory {
	if a.dryRun && viper.GetString("types") == "" {
		return extract.FactoryFunc(func(_ context.Context, typeName, value string) (*domain.Fact, error) {
			return a.client.Draft(typeName, value), nil
		})
	}
	return a.client
}

func requireLive(a *app, what string) error {
	if a.dryRun {
		return fmt.Errorf("%s needs a platform connection", what)
	}
	return nil
}
