package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/orgs"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/sessions"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/users"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/config"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Gatehouse API server and request authorization pipeline",
	Long: `Gatehouse serves the marketplace API behind a fixed request pipeline:
correlation ids, identity resolution, rate limiting and declarative route policies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfigFile(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger = newLogger(cfg.Debug)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./gatehouse.yaml or /etc/gatehouse/gatehouse.yaml)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: GATEHOUSE_DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: GATEHOUSE_SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: GATEHOUSE_DEBUG)")

	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", rootCmd.PersistentFlags().Lookup("server-addr"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(sessions.SessionsCmd)
	rootCmd.AddCommand(orgs.OrgsCmd)
}

// readConfigFile loads the YAML config file when one is given or found. A
// missing default file is not an error.
func readConfigFile() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gatehouse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/gatehouse")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// newLogger returns the process-wide JSON logger.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
