package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Koplal/tai-discord-bot/pkg/access"
	"github.com/Koplal/tai-discord-bot/pkg/admission"
	"github.com/Koplal/tai-discord-bot/pkg/agent"
	"github.com/Koplal/tai-discord-bot/pkg/bot"
	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/discord"
	llmmetrics "github.com/Koplal/tai-discord-bot/pkg/llm/middleware/metrics"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
	"github.com/Koplal/tai-discord-bot/pkg/metrics"
	"github.com/Koplal/tai-discord-bot/pkg/resolver"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
	"github.com/Koplal/tai-discord-bot/pkg/tracker"
	"github.com/Koplal/tai-discord-bot/pkg/version"
)

// Idle admission buckets are swept on this cadence.
const (
	sweepInterval = 10 * time.Minute
	sweepIdleFor  = time.Hour
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		secretName  = flag.String("set-secret", "", "Store a secret by name in the encrypted secrets file and exit")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tai %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *secretName != "" {
		if err := setSecret(cfg.Secrets.File, *secretName); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to store secret: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// run returns an exit code so deferred teardown executes before exit.
	os.Exit(run(cfg))
}

func run(cfg config.Config) int {
	logger := logx.NewLogger("tai")
	logger.Info("tai %s starting (model %s, team %s)", version.Version, cfg.LLM.Model, cfg.Tracker.Team)

	secrets, err := config.LoadSecrets(cfg.Secrets.File)
	if err != nil {
		logger.Error("secrets: %v", err)
		return 1
	}
	token, err := secrets.Get(config.SecretDiscordToken)
	if err != nil {
		logger.Error("discord credentials: %v", err)
		return 1
	}
	trackerKey, err := secrets.Get(config.SecretTrackerAPIKey)
	if err != nil {
		logger.Error("tracker credentials: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Collectors are registered before any traffic so the first scrape
	// already sees them.
	sink := metrics.NewPrometheusSink()
	metrics.NewServer(cfg.Metrics.Listen, nil).Start(ctx)

	model, err := agent.NewLLMClient(cfg.LLM, secrets, llmmetrics.NewPrometheusRecorder(), logx.NewLogger("llm"))
	if err != nil {
		logger.Error("model client: %v", err)
		return 1
	}

	trackerClient := tracker.NewClient(
		cfg.Tracker.Endpoint,
		trackerKey,
		&http.Client{Timeout: cfg.Tracker.TimeoutDuration()},
		nil,
	).WithObserver(sink.ObserveTracker)

	classifier, err := access.NewClassifier(cfg.Tiers)
	if err != nil {
		logger.Error("tier config: %v", err)
		return 1
	}

	admit := admission.New(cfg.Tiers, nil, nil)
	admit.Start(ctx, sweepInterval, sweepIdleFor)
	defer admit.Close()

	var usage bot.UsageReporter
	if cfg.Metrics.PrometheusURL != "" {
		svc, usageErr := metrics.NewUsageService(cfg.Metrics.PrometheusURL)
		if usageErr != nil {
			logger.Error("usage service: %v", usageErr)
			return 1
		}
		usage = svc
	}

	surface, err := discord.New(token, cfg.Discord, nil)
	if err != nil {
		logger.Error("discord session: %v", err)
		return 1
	}

	service, err := bot.New(bot.Deps{
		Config:     &cfg,
		Classifier: classifier,
		Admission:  admit,
		Registry:   tools.NewTrackerRegistry(),
		Tracker:    trackerClient,
		Resolver:   resolver.New(trackerClient, resolver.NewCache(cfg.Cache.TTLDuration(), nil), nil),
		History:    discord.NewHistory(surface.Session(), nil),
		Model:      model,
		Usage:      usage,
		Sink:       sink,
	})
	if err != nil {
		logger.Error("pipeline: %v", err)
		return 1
	}

	if err := surface.Start(service); err != nil {
		logger.Error("gateway: %v", err)
		return 1
	}

	logger.Info("ready; press Ctrl-C to stop")
	<-ctx.Done()

	logger.Info("shutting down")
	if err := surface.Close(); err != nil {
		logger.Error("gateway close: %v", err)
	}
	return 0
}

// setSecret prompts for a value and stores it under name in the encrypted
// secrets file, creating the file when it does not exist yet.
func setSecret(path, name string) error {
	if path == "" {
		return fmt.Errorf("secrets.file is not configured; set it in the config or export %s directly", name)
	}

	passphrase := os.Getenv(config.PassphraseEnv)
	if passphrase == "" {
		var err error
		passphrase, err = promptHidden(fmt.Sprintf("Passphrase for %s: ", path))
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			confirm, err := promptHidden("Confirm passphrase (new file): ")
			if err != nil {
				return err
			}
			if confirm != passphrase {
				return fmt.Errorf("passphrases do not match")
			}
		}
	}

	value, err := promptHidden(fmt.Sprintf("Value for %s: ", name))
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("secret value cannot be empty")
	}

	if err := config.UpdateSecretFile(path, passphrase, name, value); err != nil {
		return err
	}
	fmt.Printf("Stored %s in %s\n", name, path)
	return nil
}

func promptHidden(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	for i := range raw {
		raw[i] = 0
	}
	return value, nil
}
