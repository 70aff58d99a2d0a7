// Package cmd provides the command-line interface for sitesearch.
// It handles command parsing, configuration loading and wiring of the
// crawler, the search engine and the HTTP API.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/sitesearch/internal/config"
)

const envPrefix = "SS"

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sitesearch",
	Short: "A site crawler and full-text search engine",
	Long: `sitesearch crawls the configured sites, builds a per-site lemma index
and answers ranked search queries over it, from the command line or over HTTP.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		showConfig, _ := cmd.Flags().GetBool("show-config")
		if !showConfig {
			return cmd.Help()
		}
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sitesearch.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringP("database", "d", "./sitesearch.db", "Path to SQLite database file")
	rootCmd.PersistentFlags().String("database-driver", config.DriverSQLite, "Database driver: sqlite or postgres")

	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"logging.level", "log-level"},
		{"database.path", "database"},
		{"database.driver", "database-driver"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.PersistentFlags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	rootCmd.AddCommand(serveCmd, crawlCmd, indexPageCmd, searchCmd, statsCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("sitesearch")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	registerDefaults(config.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes scalar keys known to viper so that environment
// variables can override them without a config file entry
func registerDefaults(cfg *config.Config) {
	defaults := map[string]any{
		"user_agent":                cfg.UserAgent,
		"referrer":                  cfg.Referrer,
		"request_timeout":           cfg.RequestTimeout,
		"request_delay":             cfg.RequestDelay,
		"rate_limit":                cfg.RateLimit,
		"respect_robots":            cfg.RespectRobots,
		"max_body_size":             cfg.MaxBodySize,
		"crawl_workers":             cfg.CrawlWorkers,
		"search.too_frequent_ratio": cfg.Search.TooFrequentRatio,
		"search.default_limit":      cfg.Search.DefaultLimit,
		"search.max_limit":          cfg.Search.MaxLimit,
		"search.cache_ttl":          cfg.Search.CacheTTL,
		"search.cache_size":         cfg.Search.CacheSize,
		"database.dsn":              cfg.Database.DSN,
		"server.addr":               cfg.Server.Addr,
		"redis.addr":                cfg.Redis.Addr,
		"redis.password":            cfg.Redis.Password,
		"redis.db":                  cfg.Redis.DB,
		"kafka.brokers":             cfg.Kafka.Brokers,
		"kafka.topic":               cfg.Kafka.Topic,
		"logging.format":            cfg.Logging.Format,
		"logging.file":              cfg.Logging.File,
		"metrics.enabled":           cfg.Metrics.Enabled,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// loadConfig builds the configuration from defaults, the config file,
// environment variables and flags, in increasing priority
func loadConfig(validate bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current sitesearch configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./sitesearch.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(w, "# 3. Configuration file (sitesearch.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}
