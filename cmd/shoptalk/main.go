package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/shoptalk/ai/cache"
	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/conversation"
	"github.com/hrygo/shoptalk/ai/engine"
	"github.com/hrygo/shoptalk/ai/intent"
	"github.com/hrygo/shoptalk/ai/llm"
	"github.com/hrygo/shoptalk/ai/match"
	"github.com/hrygo/shoptalk/ai/metrics"
	"github.com/hrygo/shoptalk/ai/prompt"
	"github.com/hrygo/shoptalk/ai/segment"
	"github.com/hrygo/shoptalk/internal/profile"
	"github.com/hrygo/shoptalk/internal/version"
	"github.com/hrygo/shoptalk/server"
)

var rootCmd = &cobra.Command{
	Use:   "shoptalk",
	Short: `A bilingual shop assistant: catalog-grounded answers about products and policies, backed by an LLM.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Try to load .env from the current directory; absence is fine.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{}
		instanceProfile.FromEnv()
		instanceProfile.Mode = viper.GetString("mode")
		instanceProfile.Addr = viper.GetString("addr")
		instanceProfile.Port = viper.GetInt("port")
		if v := viper.GetString("products"); v != "" {
			instanceProfile.ProductsPath = v
		}
		if v := viper.GetString("policies"); v != "" {
			instanceProfile.PoliciesPath = v
		}
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		setupLogging(instanceProfile)

		records, err := catalog.LoadAll(instanceProfile.ProductsPath, instanceProfile.PoliciesPath)
		if err != nil {
			slog.Error("failed to load catalog", "error", err)
			os.Exit(1)
		}

		eng, exporter := buildEngine(instanceProfile, records)
		s := server.NewServer(instanceProfile, eng, exporter)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. SIGTERM is what
		// process managers (systemd, Kubernetes) send first.
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			slog.Info("shutdown signal received")
			cancel()
		}()

		printGreetings(instanceProfile, len(records))

		if err := s.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server exited", "error", err)
			os.Exit(1)
		}
	},
}

func buildEngine(p *profile.Profile, records []*catalog.Record) (*engine.Engine, *metrics.PrometheusExporter) {
	cat := catalog.NewCatalog(records)
	scorer := match.NewLiveTokenSetScorer(func() *segment.Segmenter {
		return cat.Index().Tokenizer()
	})

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	exporter.SetThresholds(p.MatchThreshold, p.CacheSimilarityThreshold)
	exporter.RecordCatalogReload(map[string]int{
		string(catalog.KindProduct): len(cat.Index().RecordsOfKind(catalog.KindProduct)),
		string(catalog.KindPolicy):  len(cat.Index().RecordsOfKind(catalog.KindPolicy)),
	})

	var llmService llm.Service
	if p.IsAIEnabled() {
		llmService = llm.NewService(&llm.Config{
			BaseURL:     p.LLMAPIURL,
			APIKey:      p.LLMAPIKey,
			Model:       p.LLMModel,
			Temperature: float32(p.LLMTemperature),
			MaxTokens:   p.LLMMaxTokens,
			Timeout:     p.LLMTimeout,
		})
	} else {
		slog.Warn("LLM_API_KEY not set, every answer will be the fallback")
		llmService = unavailableLLM{}
	}

	eng := engine.New(engine.Config{
		Catalog:    cat,
		Classifier: intent.NewClassifier(),
		Matcher:    match.NewMatcher(scorer, p.MatchThreshold),
		Cache: cache.NewResponseCache(cache.Config{
			Capacity:            p.CacheCapacity,
			ExactTTL:            time.Duration(p.CacheTimeout) * time.Second,
			SimilarityTTL:       time.Duration(p.SearchCacheTimeout) * time.Second,
			SimilarityThreshold: p.CacheSimilarityThreshold,
			Scorer:              scorer,
		}),
		Conversations: conversation.NewStore(p.MaxConversationHistory),
		Assembler:     prompt.NewAssembler(p.ContextTopN, p.FieldBudget),
		LLM:           llmService,
		Exporter:      exporter,
	})
	return eng, exporter
}

// unavailableLLM stands in when no API key is configured, so the service
// still starts and serves cached or fallback answers.
type unavailableLLM struct{}

func (unavailableLLM) Chat(context.Context, []llm.Message) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", llm.ErrUnavailable)
}

func setupLogging(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if p.Mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile, records int) {
	fmt.Printf("ShopTalk %s started successfully!\n", version.String())
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Catalog records: %d\n", records)
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("products", "", "path to the product catalog file (json or csv)")
	rootCmd.PersistentFlags().String("policies", "", "path to the policy document file (json or csv)")

	for _, flag := range []string{"mode", "addr", "port", "products", "policies"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("shoptalk")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
