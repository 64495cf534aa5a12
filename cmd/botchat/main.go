// Command botchat runs an interactive multi-bot chat session on top of the
// message processing pipeline.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"botchat/pkg/chat"
	"botchat/pkg/config"
	"botchat/pkg/events"
	"botchat/pkg/llm"
	"botchat/pkg/llm/anthropic"
	"botchat/pkg/llm/google"
	"botchat/pkg/llm/middleware/metrics"
	"botchat/pkg/llm/middleware/retry"
	"botchat/pkg/llm/ollama"
	"botchat/pkg/llm/openai"
	"botchat/pkg/logx"
	"botchat/pkg/pipeline"
	"botchat/pkg/reprocess"
	"botchat/pkg/store"
	"botchat/pkg/tools"
	"botchat/pkg/track"
)

func main() {
	configPath := flag.String("config", "botchat.yaml", "path to the botchat config file")
	voiceMode := flag.Bool("voice", false, "run the session in voice mode")
	botFilter := flag.String("bot", "", "run only the bot with this id")
	metricsListen := flag.String("metrics-listen", "", "address to serve Prometheus metrics on (e.g. :9090)")
	ollamaHost := flag.String("ollama-host", ollama.DefaultHost, "Ollama server URL")
	flag.Parse()

	if err := run(*configPath, *botFilter, *ollamaHost, *metricsListen, *voiceMode); err != nil {
		fmt.Fprintf(os.Stderr, "botchat: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, botFilter, ollamaHost, metricsListen string, voiceMode bool) error {
	logger := logx.NewLogger("botchat")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	bots := cfg.Bots
	if botFilter != "" {
		bot := cfg.FindBot(botFilter)
		if bot == nil {
			return fmt.Errorf("no bot with id %q in %s", botFilter, configPath)
		}
		bots = []config.Bot{*bot}
	}

	var st store.Store
	if cfg.StorePath != "" {
		sqlite, err := store.OpenSQLite(cfg.StorePath)
		if err != nil {
			return err
		}
		defer func() { _ = sqlite.Close() }()
		st = sqlite
	} else {
		st = store.NewMemoryStore()
	}

	recorder := metrics.NewPrometheusRecorder()
	if metricsListen != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsListen, nil); err != nil {
				logger.Error("metrics listener failed: %v", err)
			}
		}()
		logger.Info("📈 Serving metrics on %s/metrics", metricsListen)
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)
	provider := registry.NewProvider(cfg.Settings.EnabledTools)

	tracker := track.NewTracker()
	bus := events.NewBus()
	subscribeConsoleObserver(bus, logger)
	metrics.ObserveReprocessing(bus, recorder)

	var usage *metrics.QueryService
	if cfg.PrometheusURL != "" {
		usage, err = metrics.NewQueryService(cfg.PrometheusURL)
		if err != nil {
			return err
		}
	}

	secretsDir := filepath.Dir(configPath)
	pipelines := make(map[string]*pipeline.Pipeline, len(bots))
	for i := range bots {
		bot := &bots[i]

		gateway, err := buildGateway(bot, secretsDir, ollamaHost, recorder, logger)
		if err != nil {
			return fmt.Errorf("bot %s: %w", bot.ID, err)
		}

		evaluator := reprocess.NewEvaluator(gateway, nil, logger.WithID("eval-"+bot.ID))
		orch := reprocess.NewOrchestrator(gateway, evaluator, tracker, bus, logger.WithID("reprocess-"+bot.ID))

		p, err := pipeline.New(pipeline.Deps{
			Gateway:      gateway,
			Orchestrator: orch,
			Store:        st,
			Tools:        provider,
			Tracker:      tracker,
			Bus:          bus,
			Logger:       logger.WithID("pipeline-" + bot.ID),
		})
		if err != nil {
			return fmt.Errorf("bot %s: %w", bot.ID, err)
		}
		pipelines[bot.ID] = p
	}

	return turnLoop(bots, pipelines, st, usage, cfg.Settings, voiceMode)
}

// buildGateway assembles the middleware-wrapped client for one bot.
func buildGateway(bot *config.Bot, secretsDir, ollamaHost string, recorder metrics.Recorder, logger *logx.Logger) (llm.Client, error) {
	var base llm.Client
	switch bot.Provider {
	case config.ProviderOllama:
		base = ollama.NewWithModel(ollamaHost, bot.Model)
	case config.ProviderOpenAI:
		key, err := resolveAPIKey(bot.Provider, secretsDir)
		if err != nil {
			return nil, err
		}
		base = openai.NewWithModel(key, bot.Model)
	case config.ProviderGemini:
		key, err := resolveAPIKey(bot.Provider, secretsDir)
		if err != nil {
			return nil, err
		}
		base = google.NewWithModel(key, bot.Model)
	case config.ProviderAnthropic, "":
		key, err := resolveAPIKey(config.ProviderAnthropic, secretsDir)
		if err != nil {
			return nil, err
		}
		base = anthropic.NewWithModel(key, bot.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q", bot.Provider)
	}

	return llm.Chain(base,
		retry.Middleware(retry.NewPolicy(retry.DefaultConfig, nil)),
		metrics.Middleware(recorder, nil, bot.ID, logger),
	), nil
}

// resolveAPIKey looks up a provider key: environment first, then the encrypted
// secrets file, then an interactive prompt.
func resolveAPIKey(provider, secretsDir string) (string, error) {
	if key := config.APIKeyFor(provider); key != "" {
		return key, nil
	}

	if config.SecretsExist(secretsDir) {
		passphrase, err := readSecret(fmt.Sprintf("Passphrase for %s/secrets.enc: ", secretsDir))
		if err != nil {
			return "", err
		}
		secrets, err := config.LoadSecrets(secretsDir, passphrase)
		if err != nil {
			return "", err
		}
		if key, ok := secrets[provider]; ok && key != "" {
			return key, nil
		}
	}

	key, err := readSecret(fmt.Sprintf("API key for %s: ", provider))
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("no API key for provider %s", provider)
	}
	return key, nil
}

// readSecret prompts without echoing when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// subscribeConsoleObserver prints reprocessing lifecycle events as they happen.
func subscribeConsoleObserver(bus *events.Bus, logger *logx.Logger) {
	bus.Subscribe(events.ReprocessingStarted, func(e events.Event) {
		logger.Info("🔁 [%s] reprocessing started (%v)", e.BotID, e.Data["reason"])
	})
	bus.Subscribe(events.ReprocessingCompleted, func(e events.Event) {
		logger.Info("✅ [%s] reprocessing completed (depth %v)", e.BotID, e.Data["depth"])
	})
	bus.Subscribe(events.ReprocessingFailed, func(e events.Event) {
		logger.Warn("❌ [%s] reprocessing failed: %v", e.BotID, e.Data["error"])
	})
	bus.Subscribe(events.ReprocessingMaxDepth, func(e events.Event) {
		logger.Warn("⚠️  [%s] reprocessing depth budget reached (%v/%v)", e.BotID, e.Data["depth"], e.Data["max_depth"])
	})
}

// turnLoop reads user turns from stdin and fans each one out to every bot.
func turnLoop(bots []config.Bot, pipelines map[string]*pipeline.Pipeline, st store.Store, usage *metrics.QueryService, settings chat.Settings, voiceMode bool) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("botchat ready. Type a message, /usage for token stats, or /quit to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "/usage" {
			printUsage(ctx, bots, usage)
			continue
		}

		history, err := st.History(ctx, 50)
		if err != nil {
			fmt.Fprintf(os.Stderr, "history unavailable: %v\n", err)
		}

		msg := chat.NewUserMessage("user", line)
		if err := st.SaveMessage(ctx, &msg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save message: %v\n", err)
		}

		cc := &chat.Context{Messages: history, Settings: settings, VoiceMode: voiceMode}

		type reply struct {
			name    string
			content string
		}
		replies := make([]reply, len(bots))

		g, gctx := errgroup.WithContext(ctx)
		for i := range bots {
			bot := &bots[i]
			idx := i
			g.Go(func() error {
				res := pipelines[bot.ID].Run(gctx, msg, bot, cc)
				replies[idx] = reply{name: bot.Name, content: res.Content}
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range replies {
			fmt.Printf("[%s] %s\n", r.name, r.content)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin read failed: %w", err)
	}
	return nil
}

// printUsage reports per-bot token totals and reprocessing cycle counts from
// the Prometheus server.
func printUsage(ctx context.Context, bots []config.Bot, usage *metrics.QueryService) {
	if usage == nil {
		fmt.Println("usage stats need prometheus_url in the config")
		return
	}

	for i := range bots {
		bot := &bots[i]

		u, err := usage.BotUsage(ctx, bot.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] usage query failed: %v\n", bot.Name, err)
			continue
		}
		fmt.Printf("[%s] tokens: %d prompt + %d completion = %d total\n",
			bot.Name, u.PromptTokens, u.CompletionTokens, u.TotalTokens)

		cycles, err := usage.ReprocessingCycles(ctx, bot.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] reprocessing query failed: %v\n", bot.Name, err)
			continue
		}
		if len(cycles) > 0 {
			fmt.Printf("[%s] reprocessing cycles: %d completed, %d failed\n",
				bot.Name, cycles[metrics.OutcomeCompleted], cycles[metrics.OutcomeFailed])
		}
	}
}
