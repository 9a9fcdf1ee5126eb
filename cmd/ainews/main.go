package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvoss/ainews/internal/classify"
	"github.com/nvoss/ainews/internal/config"
	"github.com/nvoss/ainews/internal/feed"
	"github.com/nvoss/ainews/internal/fetch"
	"github.com/nvoss/ainews/internal/llm"
	"github.com/nvoss/ainews/internal/pipeline"
	"github.com/nvoss/ainews/internal/schedule"
	"github.com/nvoss/ainews/internal/server"
	"github.com/nvoss/ainews/internal/store"
	"github.com/nvoss/ainews/internal/summarize"
	"github.com/nvoss/ainews/internal/telegram"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ainews",
	Short:   "AI news agent for Telegram",
	Long:    "ainews watches AI news feeds, filters them with an LLM, and notifies Telegram subscribers about verified stories.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(subscribersCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ainews", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/ainews/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, API keys, and the Telegram bot token.")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one cycle: fetch -> classify -> summarize -> notify",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, _ := buildPipeline(db)
		result, err := pipe.RunCycle(signalContext())
		if err != nil {
			return err
		}

		fmt.Println("Cycle complete:")
		fmt.Printf("  Fetched: %d\n", result.Fetched)
		fmt.Printf("  Duplicates: %d\n", result.Duplicates)
		fmt.Printf("  Rejected: %d\n", result.Rejected)
		fmt.Printf("  Accepted: %d\n", result.Accepted)
		fmt.Printf("  Notified: %d\n", result.Notified)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build and send the daily digest to subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, _ := buildPipeline(db)
		result, err := pipe.RunDigest(signalContext())
		if err != nil {
			return err
		}

		if result.Articles == 0 {
			fmt.Println("No verified relevant articles in the digest window.")
			return nil
		}
		fmt.Printf("Digest of %d articles delivered to %d subscribers.\n", result.Articles, result.Sent)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent: scheduler, Telegram bot, and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := signalContext()
		pipe, bot := buildPipeline(db)

		if bot != nil {
			go bot.Run(ctx)
		} else {
			log.Printf("Telegram token %s not set, running without bot", cfg.Telegram.TokenEnv)
		}

		cycles := schedule.New("cycle", schedule.RunnerFunc(func(ctx context.Context) error {
			_, err := pipe.RunCycle(ctx)
			if errors.Is(err, pipeline.ErrCycleRunning) {
				return schedule.ErrBusy
			}
			return err
		}), cfg.Pipeline.PollInterval())
		go cycles.Start(ctx)

		srv, err := server.New(db, pipe)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
		httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Printf("Dashboard listening on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Articles:")
		fmt.Printf("  Total tracked: %d\n", stats.TotalArticles)
		fmt.Printf("  Relevant: %d\n", stats.RelevantArticles)
		fmt.Printf("  Verified: %d\n", stats.VerifiedArticles)
		fmt.Printf("  Notified: %d\n", stats.NotifiedArticles)
		fmt.Println("\nSubscribers:")
		fmt.Printf("  Total: %d\n", stats.TotalSubscribers)
		fmt.Printf("  Active: %d\n", stats.ActiveSubscribers)
		fmt.Println("\nDeliveries:")
		fmt.Printf("  Successful sends: %d\n", stats.NotificationsSent)
		return nil
	},
}

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "List all subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		subs, err := db.AllSubscribers()
		if err != nil {
			return fmt.Errorf("listing subscribers: %w", err)
		}
		if len(subs) == 0 {
			fmt.Println("No subscribers yet.")
			return nil
		}

		for _, s := range subs {
			state := "active"
			if !s.IsActive {
				state = "inactive"
			}
			name := ""
			if s.Username != nil {
				name = " @" + *s.Username
			} else if s.FirstName != nil {
				name = " " + *s.FirstName
			}
			fmt.Printf("  %s%s (%s)\n", s.ChatID, name, state)
		}
		return nil
	},
}

// buildPipeline wires the cycle components from config. The returned bot
// is nil when no Telegram token is set.
func buildPipeline(db *store.DB) (*pipeline.Pipeline, *telegram.Bot) {
	provider := llm.CreateProvider(llm.Options{
		Provider:     cfg.LLM.Provider,
		GeminiModel:  cfg.LLM.GeminiModel,
		GeminiKeyEnv: cfg.LLM.GeminiKeyEnv,
		OpenAIModel:  cfg.LLM.OpenAIModel,
		OpenAIKeyEnv: cfg.LLM.OpenAIKeyEnv,
		OllamaModel:  cfg.LLM.OllamaModel,
		OllamaURL:    cfg.LLM.OllamaURL,
	})

	var enricher pipeline.Enricher
	if cfg.Fetch.EnrichContent {
		enricher = fetch.NewEnricher(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)
	}

	var (
		notifier pipeline.Notifier
		bot      *telegram.Bot
	)
	if token := os.Getenv(cfg.Telegram.TokenEnv); token != "" {
		bot = telegram.NewBot(telegram.NewClient(token), db)
		notifier = bot
	}

	pipe := pipeline.New(db,
		feed.NewFetcher(cfg.Sources),
		classify.New(provider, cfg.Keywords, cfg.Pipeline.RelevanceThreshold),
		summarize.New(provider),
		enricher,
		notifier,
		pipeline.Options{
			VerificationThreshold: cfg.Pipeline.VerificationThreshold,
			MaxItemsPerCycle:      cfg.Pipeline.MaxItemsPerCycle,
			ItemDelay:             cfg.Pipeline.ItemDelay(),
			DigestWindowHours:     cfg.Pipeline.DigestWindowHours,
			DigestLimit:           cfg.Pipeline.DigestLimit,
		},
	)
	return pipe, bot
}

func openDB() (*store.DB, error) {
	dbPath := filepath.Join(cfg.GetDataDir(), "ainews.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
