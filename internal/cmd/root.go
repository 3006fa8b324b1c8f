// Package cmd defines the pocketpaw CLI. Each subcommand builds the
// application wiring (store, gateway, reconciler) on demand, talks to
// the Mission Control service, and prints the result; the watch command
// additionally attaches the event stream and the live dashboard.
package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shabbark/pocketpaw/internal/config"
	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/gateway"
	"github.com/shabbark/pocketpaw/internal/logging"
	"github.com/shabbark/pocketpaw/internal/mission"
	"github.com/shabbark/pocketpaw/internal/reconcile"
)

var rootCmd = &cobra.Command{
	Use:   "pocketpaw",
	Short: "Mission Control client for AI agent teams",
	Long: `Pocketpaw is a terminal client for the Mission Control service.
It manages agents, tasks and deep-work projects, runs tasks on agents,
and mirrors the service's event stream into a live dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/pocketpaw/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "service base URL (overrides service.base_url)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("service.base_url", rootCmd.PersistentFlags().Lookup("server"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/pocketpaw")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("POCKETPAW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., POCKETPAW_SERVICE_BASE_URL for service.base_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// app bundles the wiring every subcommand needs.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	store   *mission.Store
	handles *mission.HandleRegistry
	bus     *event.Bus
	rec     *reconcile.Reconciler
	gw      *gateway.Gateway
}

// newApp loads configuration and builds the full client wiring. The
// gateway is registered as the reconciler's refresher so event-driven
// plan pulls go through the same merge path as commands.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	store := mission.NewStore()
	handles := mission.NewHandleRegistry()
	bus := event.NewBus()
	rec := reconcile.New(store, handles, bus, log, cfg.Feed.Limit)

	client := gateway.NewClient(cfg.Service.BaseURL)
	client.Timeout = cfg.Service.Timeout()
	gw := gateway.New(client, store, handles, bus, log, cfg.Execution.MaxConcurrentTasks)
	rec.SetRefresher(gw)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		handles: handles,
		bus:     bus,
		rec:     rec,
		gw:      gw,
	}, nil
}

func (a *app) close() {
	_ = a.log.Close()
}

// cmdContext is the timeout context for one-shot commands.
func cmdContext(a *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.Service.Timeout())
}
