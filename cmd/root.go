// Package cmd holds the bidgap command tree.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/helmling/bidgap/internal/cache"
	"github.com/helmling/bidgap/internal/config"
	"github.com/helmling/bidgap/internal/extract"
	"github.com/helmling/bidgap/internal/logging"
	"github.com/helmling/bidgap/internal/pipeline"
	"github.com/helmling/bidgap/internal/scrape"
	"github.com/helmling/bidgap/internal/store"
	"github.com/helmling/bidgap/internal/webref"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bidgap",
	Short: "Find underpriced auction listings by comparing live bids against resale estimates.",
	Long: `bidgap scans marketplace search results, normalizes listings onto canonical
product identities and resolves a resale estimate per listing through a
waterfall of price sources. Each listing ends up with one strategy:
buy_now, bid_now, watch or skip.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute runs the command tree. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bidgap.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default is $HOME/.bidgap)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".bidgap")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BIDGAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// buildConfig layers defaults, .env/environment and the viper config file,
// then applies command-line overrides.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	level, _ := cmd.Flags().GetString("loglevel")
	logging.SetLevel(level)

	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		os.Setenv("BIDGAP_DATA_DIR", dir)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// config-file values fill anything the environment left at default
	if v := viper.GetString("market_url"); v != "" {
		cfg.MarketBaseURL = v
	}
	if v := viper.GetString("openai_key"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := viper.GetString("search_url"); v != "" {
		cfg.SearchBaseURL = v
	}
	if v := viper.GetStringSlice("trusted_domains"); len(v) > 0 {
		cfg.TrustedDomains = v
	}
	if v := viper.GetInt("max_calls"); v > 0 {
		cfg.MaxOracleCalls = v
	}
	if v := viper.GetFloat64("max_cost"); v > 0 {
		cfg.MaxOracleCost = v
	}

	return cfg, nil
}

// buildDeps wires the adapters: live clients where configured, deterministic
// mocks otherwise, so the pipeline always runs.
func buildDeps(cfg *config.Config) (pipeline.Deps, *store.Store, error) {
	st, err := store.Open(cfg.DatabaseFile)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	extractCache, err := cache.New(filepath.Join(cfg.CacheDir, "extractions.json"))
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	deps := pipeline.Deps{Store: st, Cache: extractCache}

	if cfg.MarketBaseURL != "" {
		sc := scrape.NewConfig()
		sc.Platform = cfg.Platform
		sc.BaseURL = cfg.MarketBaseURL
		sc.UserAgent = cfg.UserAgent
		deps.Provider = scrape.NewClient(sc)
	} else {
		logging.Log.Info("no marketplace endpoint configured, using the mock provider")
		deps.Provider = scrape.NewMockProvider()
	}

	if cfg.HasExtractor() {
		oc := extract.NewOpenAIConfig(cfg.OpenAIKey)
		oc.Model = cfg.OpenAIModel
		oc.BaseURL = cfg.OpenAIBaseURL
		deps.Extractor = extract.NewOpenAIExtractor(oc)
	} else {
		logging.Log.Info("no extraction oracle configured, using the mock extractor")
		deps.Extractor = extract.NewMockExtractor()
	}

	if cfg.HasWebSearch() {
		refCache, err := cache.New(filepath.Join(cfg.CacheDir, "webref.json"))
		if err != nil {
			_ = st.Close()
			return pipeline.Deps{}, nil, err
		}
		wc := webref.NewConfig()
		wc.BaseURL = cfg.SearchBaseURL
		wc.TrustedDomains = cfg.TrustedDomains
		wc.UserAgent = cfg.UserAgent
		deps.Searcher = webref.NewWebSearcher(wc, refCache)
	} else {
		logging.Log.Info("no web search configured, using the mock searcher")
		deps.Searcher = webref.NewMockSearcher()
	}

	return deps, st, nil
}
