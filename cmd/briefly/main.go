// Briefly — AI Newsletter Agent
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/api"
	"github.com/brieflyhq/briefly/internal/brief"
	"github.com/brieflyhq/briefly/internal/cache"
	"github.com/brieflyhq/briefly/internal/config"
	"github.com/brieflyhq/briefly/internal/llm"
	"github.com/brieflyhq/briefly/internal/search"
	"github.com/brieflyhq/briefly/internal/summarize"
	"github.com/brieflyhq/briefly/internal/telemetry"
	"github.com/brieflyhq/briefly/internal/validate"
	"github.com/brieflyhq/briefly/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "briefly",
	Short: "Briefly — personalized AI newsletter agent",
	Long: `Briefly generates short, profession-tailored AI newsletters.
It searches the web for recent AI news and tools relevant to a given
profession, summarizes the findings into at most five points with
source links, and caches results per profession and time window.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cacheCmd)
}

// --- Application Wiring ---

// app bundles the wired pipeline shared by the brief, chat, and serve
// commands.
type app struct {
	log       *logrus.Logger
	router    *llm.Router
	gen       *brief.Generator
	validator *validate.Validator
	emitter   *telemetry.Emitter
}

func buildApp() (*app, error) {
	if err := config.ValidateRequired(cfg); err != nil {
		return nil, fmt.Errorf("%w (run 'briefly status' for details)", err)
	}

	log := newLogger(cfg)

	router, err := llm.NewRouterFromConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up LLM providers: %w", err)
	}

	tavily := search.NewClient(cfg.Search.TavilyKey,
		search.WithDepth(cfg.Search.Depth),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithExcludeDomains(cfg.Search.ExcludeDomains),
	)

	var fallback brief.Fallback
	if cfg.Search.RSSFallback {
		fallback = search.NewFeedFallback(nil)
	}

	chatOpts := &llm.ChatOptions{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
	summarizer := summarize.New(router,
		summarize.WithChatOptions(chatOpts),
		summarize.WithSimilarityCutoff(cfg.Newsletter.SimilarityCutoff),
	)

	var store cache.Store
	if cfg.Cache.RedisURL != "" {
		rs, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, falling back to in-memory cache")
			store = cache.NewMemoryStore()
		} else {
			store = rs
		}
	} else {
		store = cache.NewMemoryStore()
	}

	var emitter *telemetry.Emitter
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Path != "" {
			emitter, err = telemetry.NewFile(cfg.Telemetry.Path, log)
			if err != nil {
				log.WithError(err).Warn("telemetry file unavailable, events disabled")
			}
		} else {
			emitter = telemetry.New(os.Stdout, log)
		}
	}

	gen := brief.NewGenerator(brief.GeneratorConfig{
		Source:     tavily,
		Fallback:   fallback,
		Summarizer: summarizer,
		Store:      store,
		Threshold:  cfg.Newsletter.RelevanceThreshold,
		Emitter:    emitter,
		Logger:     log,
	})

	validator := validate.New(router, chatOpts, log)

	return &app{
		log:       log,
		router:    router,
		gen:       gen,
		validator: validator,
		emitter:   emitter,
	}, nil
}

func (a *app) close() {
	if err := a.emitter.Close(); err != nil {
		a.log.WithError(err).Debug("telemetry close failed")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("briefly %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Brief Command (one-shot) ---

var briefCmd = &cobra.Command{
	Use:   "brief [profession]",
	Short: "Generate a newsletter for a profession",
	Long: `Generate a newsletter for a profession in one shot.

Examples:
  briefly brief accountant
  briefly brief "data scientist" --window week
  briefly brief teacher --window month --fresh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		windowFlag, _ := cmd.Flags().GetString("window")
		fresh, _ := cmd.Flags().GetBool("fresh")

		window, err := models.ParseTimeWindow(windowFlag)
		if err != nil {
			return err
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		verdict := a.validator.Validate(ctx, args[0])
		switch verdict.Status {
		case validate.Rejected:
			return fmt.Errorf("%q does not look like a profession: %s", args[0], verdict.Reason)
		case validate.Corrected:
			fmt.Printf("Interpreting %q as %q.\n\n", args[0], verdict.Profession)
		}

		fmt.Printf("🔍 Gathering AI updates for %ss (last %s)...\n\n", verdict.Profession, window.Label())
		result, err := a.gen.Generate(ctx, verdict.Profession, window, brief.Options{Fresh: fresh})
		if err != nil {
			return err
		}

		fmt.Println(brief.Render(result.Newsletter))
		if result.Source == brief.SourceCache {
			fmt.Println("(served from cache — use --fresh to regenerate)")
		}
		return nil
	},
}

func init() {
	briefCmd.Flags().String("window", "day", "time window: day, week, or month")
	briefCmd.Flags().Bool("fresh", false, "bypass the cache and regenerate")
}

// --- Chat Command (interactive session) ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive newsletter session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		session := &chatSession{app: a, in: bufio.NewScanner(os.Stdin)}
		return session.run(ctx)
	},
}

// chatSession drives the interactive loop: profession → window → newsletter
// → follow-up actions. Every failure ends at a prompt with a next action.
type chatSession struct {
	app *app
	in  *bufio.Scanner
}

func (s *chatSession) run(ctx context.Context) error {
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Println("  Briefly — your personal AI newsletter")
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Println("I find the latest AI news and tools for your profession.")
	fmt.Println("Type 'q' at any prompt to quit.")
	fmt.Println()

	for {
		profession, ok := s.askProfession(ctx)
		if !ok {
			fmt.Println("👋 Goodbye!")
			return nil
		}

		window, ok := s.askWindow()
		if !ok {
			fmt.Println("👋 Goodbye!")
			return nil
		}

		if again := s.deliver(ctx, profession, window, false); !again {
			fmt.Println("👋 Goodbye!")
			return nil
		}
	}
}

// askProfession prompts until the input passes validation or the user quits.
func (s *chatSession) askProfession(ctx context.Context) (string, bool) {
	for {
		line, ok := s.prompt("What is your profession? ")
		if !ok {
			return "", false
		}

		verdict := s.app.validator.Validate(ctx, line)
		switch verdict.Status {
		case validate.Rejected:
			fmt.Printf("🤔 That doesn't look like a profession. %s\n", verdict.Reason)
			fmt.Println("   Try something like 'accountant', 'teacher', or 'filmmaker'.")
		case validate.Corrected:
			fmt.Printf("✏️  Got it — assuming you meant %q.\n", verdict.Profession)
			return verdict.Profession, true
		default:
			return verdict.Profession, true
		}
	}
}

// askWindow shows the 1/2/3 time-window menu.
func (s *chatSession) askWindow() (models.TimeWindow, bool) {
	for {
		fmt.Println("\nHow far back should I look?")
		fmt.Println("  1. Last 24 hours")
		fmt.Println("  2. Last week")
		fmt.Println("  3. Last month")
		line, ok := s.prompt("Choose 1, 2, or 3: ")
		if !ok {
			return "", false
		}

		switch line {
		case "1":
			return models.WindowDay, true
		case "2":
			return models.WindowWeek, true
		case "3":
			return models.WindowMonth, true
		default:
			fmt.Println("Please enter 1, 2, or 3.")
		}
	}
}

// deliver generates and displays a newsletter, then runs the follow-up menu.
// Returns false when the session should end.
func (s *chatSession) deliver(ctx context.Context, profession string, window models.TimeWindow, fresh bool) bool {
	// Offer the cached copy before spending a generation.
	if !fresh {
		if _, hit := s.app.gen.Cached(ctx, profession, window); hit {
			fmt.Printf("\n📦 I have a recent newsletter for %ss (last %s).\n", profession, window.Label())
			line, ok := s.prompt("Use it, or fetch fresh? (use/fresh): ")
			if !ok {
				return false
			}
			fresh = strings.HasPrefix(strings.ToLower(line), "f")
		}
	}

	if fresh {
		fmt.Printf("\n🔄 Fetching a fresh newsletter for %ss...\n", profession)
	} else {
		fmt.Printf("\n🔍 Gathering AI updates for %ss (last %s)...\n", profession, window.Label())
	}

	result, err := s.app.gen.Generate(ctx, profession, window, brief.Options{
		Fresh: fresh,
		Progress: func(stage brief.Stage) {
			if stage == brief.StageMerging {
				fmt.Println("   ✍️  Summarizing what I found...")
			}
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		fmt.Printf("😕 I couldn't put a newsletter together: %v\n", err)
		fmt.Println("   You can try a different window or profession.")
		return s.askRetry()
	}

	fmt.Println()
	fmt.Println(brief.Render(result.Newsletter))
	if result.Source == brief.SourceCache {
		fmt.Println("(served from cache)")
	}

	return s.followUp(ctx, result.Newsletter)
}

// followUp runs the post-newsletter action menu.
func (s *chatSession) followUp(ctx context.Context, n *models.Newsletter) bool {
	for {
		fmt.Println("\nWhat next?")
		fmt.Println("  a. Another profession")
		fmt.Println("  b. Regenerate this newsletter (fresh)")
		fmt.Println("  c. Deep dive into a point")
		fmt.Println("  q. Quit")
		line, ok := s.prompt("Choose a, b, c, or q: ")
		if !ok {
			return false
		}

		switch strings.ToLower(line) {
		case "a":
			return true
		case "b":
			return s.deliver(ctx, n.Profession, n.Window, true)
		case "c":
			s.deepDive(ctx, n)
		case "q":
			return false
		default:
			fmt.Println("Please enter a, b, c, or q.")
		}
	}
}

// deepDive asks for a point number and prints a detailed summary of it.
func (s *chatSession) deepDive(ctx context.Context, n *models.Newsletter) {
	line, ok := s.prompt(fmt.Sprintf("Which point? (1-%d): ", len(n.Points)))
	if !ok {
		return
	}
	rank, err := strconv.Atoi(line)
	if err != nil || n.PointByRank(rank) == nil {
		fmt.Printf("Please enter a number between 1 and %d.\n", len(n.Points))
		return
	}

	fmt.Println("📖 Reading the full article...")
	dd, err := s.app.gen.DeepDive(ctx, n, rank)
	if err != nil {
		fmt.Printf("😕 I couldn't read that article: %v\n", err)
		fmt.Println("   The source may be paywalled or offline. Try another point.")
		return
	}

	fmt.Println()
	fmt.Printf("─── Deep dive: point %d ───\n", dd.PointRank)
	fmt.Println(dd.DetailedSummary)
	fmt.Printf("\nSource: %s\n", dd.SourceURL)
}

func (s *chatSession) askRetry() bool {
	line, ok := s.prompt("Try again with a different profession? (y/n): ")
	if !ok {
		return false
	}
	return strings.HasPrefix(strings.ToLower(line), "y")
}

// prompt reads one trimmed line; ok is false on EOF or a 'q' answer.
func (s *chatSession) prompt(question string) (string, bool) {
	fmt.Print(question)
	if !s.in.Scan() {
		return "", false
	}
	line := strings.TrimSpace(s.in.Text())
	if strings.EqualFold(line, "q") || strings.EqualFold(line, "quit") {
		return "", false
	}
	return line, true
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting briefly API server on %s\n", addr)

		server := api.NewServer(cfg, a.gen, a.validator, a.router, a.log)
		return server.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Briefly — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:      %s (%s)\n", version, commit)
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Search Depth:  %s (max %d results)\n", cfg.Search.Depth, cfg.Search.MaxResults)
		cacheBackend := "memory"
		if cfg.Cache.RedisURL != "" {
			cacheBackend = "redis"
		}
		fmt.Printf("    Cache:         %s\n", cacheBackend)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			} else if !k.Required {
				status = "— not set (optional)"
			}
			fmt.Printf("    %-18s %s\n", k.Name+":", status)
		}
		fmt.Println()

		// Provider health
		if err := config.ValidateRequired(cfg); err == nil {
			log := newLogger(cfg)
			router, err := llm.NewRouterFromConfig(cfg, log)
			if err == nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()

				fmt.Println("  LLM Providers:")
				for name, pingErr := range router.HealthCheck(ctx) {
					if pingErr != nil {
						fmt.Printf("    %-10s ❌ %v\n", name+":", pingErr)
					} else {
						fmt.Printf("    %-10s ✅ reachable\n", name+":")
					}
				}
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Cache Command ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the newsletter cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache backend status and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		stats := a.gen.CacheStats(cmd.Context())
		fmt.Printf("Backend:     %s\n", stats.Backend)
		fmt.Printf("Connected:   %t\n", stats.Connected)
		fmt.Printf("Newsletters: %d\n", stats.Newsletters)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [profession] [window]",
	Short: "Delete the cached newsletter for a profession and window",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := models.ParseTimeWindow(args[1])
		if err != nil {
			return err
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.gen.InvalidateCache(cmd.Context(), args[0], window)
		fmt.Printf("Cleared cache for %q (%s).\n", args[0], window)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
