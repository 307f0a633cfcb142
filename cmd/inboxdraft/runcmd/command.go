package runcmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/inboxdraft/internal/activity"
	"github.com/quailyquaily/inboxdraft/internal/classify"
	"github.com/quailyquaily/inboxdraft/internal/config"
	"github.com/quailyquaily/inboxdraft/internal/dispatch"
	"github.com/quailyquaily/inboxdraft/internal/generation"
	"github.com/quailyquaily/inboxdraft/internal/logutil"
	"github.com/quailyquaily/inboxdraft/internal/slackclient"
	"github.com/quailyquaily/inboxdraft/internal/style"
	"github.com/quailyquaily/inboxdraft/internal/telemetry"
)

const activityCapacity = 200

func NewCommand(v *viper.Viper, version string) *cobra.Command {
	var autoDraft, announce bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the channel and post drafts until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("auto") {
				v.Set("drafts.auto", autoDraft)
			}
			if cmd.Flags().Changed("announce") {
				v.Set("drafts.announce_startup", announce)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, version)
		},
	}
	cmd.Flags().BoolVar(&autoDraft, "auto", false, "draft new notifications without a mention")
	cmd.Flags().BoolVar(&announce, "announce", false, "post a startup message to the channel")
	return cmd
}

func run(ctx context.Context, cfg config.Config, version string) error {
	telOpts := telemetry.Options{
		ServiceName:     cfg.Telemetry.ServiceName,
		ServiceVersion:  version,
		MetricsEndpoint: cfg.Telemetry.OTLPEndpoint,
		HTTPEndpoint:    cfg.Telemetry.OTLPHTTPEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		ExportInterval:  cfg.Telemetry.ExportInterval,
	}
	shutdownTelemetry, err := telemetry.Setup(ctx, telOpts)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	var mirror slog.Handler
	if telOpts.LogsEnabled() {
		mirror = telemetry.LogHandler()
	}
	logger, err := logutil.New(logutil.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Mirror: mirror,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	profile, err := style.Load(cfg.Style.ProfilePath)
	if err != nil {
		return err
	}

	client := slackclient.New(cfg.Slack.BotToken, slackclient.Options{
		APIURL:       cfg.Slack.APIURL,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		HistoryLimit: cfg.Poll.HistoryLimit,
	})
	ident, err := client.Identify(ctx)
	if err != nil {
		return fmt.Errorf("slack auth.test: %w", err)
	}

	gemini, err := generation.NewGemini(ctx, generation.GeminiOptions{
		APIKey:   cfg.Gemini.APIKey,
		Model:    cfg.Gemini.Model,
		Endpoint: cfg.Gemini.Endpoint,
		Timeout:  cfg.Gemini.RequestTimeout,
	})
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return err
	}
	store := activity.NewStore(activityCapacity)

	if cfg.Status.Listen != "" {
		if _, err := activity.StartServer(ctx, logger, activity.ServerOptions{
			Listen: cfg.Status.Listen,
			Routes: activity.RoutesOptions{
				AuthToken: cfg.Status.AuthToken,
				Reader:    store,
				Identity:  ident.UserID,
			},
		}); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
	}

	logger.Info("inboxdraft_start",
		"version", version,
		"channel_id", cfg.Slack.ChannelID,
		"bot_user_id", ident.UserID,
		"team", ident.Team,
		"model", gemini.Model(),
		"profile", profile.Name,
	)

	if cfg.Drafts.AnnounceStartup {
		if _, err := client.Post(ctx, cfg.Slack.ChannelID, "", StartupMessage(profile, cfg.Drafts.Auto)); err != nil {
			logger.Warn("startup_announce_error", "error", err.Error())
		}
	}

	drafter := &generation.Drafter{
		Generator:   gemini,
		MaxAttempts: cfg.Gemini.MaxAttempts,
		BaseDelay:   cfg.Gemini.BaseDelay,
		Logger:      logger,
	}
	deps := dispatch.Deps{
		Transport:  client,
		Drafter:    drafter,
		ChannelID:  cfg.Slack.ChannelID,
		BotUserID:  ident.UserID,
		BotID:      ident.BotID,
		Profile:    profile,
		Classifier: classify.Classifier{Owner: profile.DisplayName(), PrioritySenders: profile.PrioritySenders},
		Lookback:   cfg.Poll.Lookback,
		AutoDraft:  cfg.Drafts.Auto,
		Activity:   store,
		Metrics:    metrics,
		Logger:     logger,
	}
	state := dispatch.NewState(cfg.Poll.SeenCapacity, time.Now())
	return dispatch.Run(ctx, deps, state, cfg.Poll.Interval)
}

// StartupMessage is posted to the channel when announcing is enabled.
func StartupMessage(p style.Profile, auto bool) string {
	if auto {
		return fmt.Sprintf(":robot_face: *AI Draft Service Started*\n\nI'll automatically draft responses in %s's style when new emails arrive.", p.DisplayName())
	}
	return fmt.Sprintf(":robot_face: *AI Draft Service Started*\n\nMention me in an email notification's thread to get a draft in %s's style.", p.DisplayName())
}
