// SPDX-License-Identifier: MIT

// Command censord runs the chat censor client: HTTP API, central server
// link, Twitch announcements and the periodic dataset mirror.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/censord/internal/api"
	"github.com/ManuGH/censord/internal/audit"
	"github.com/ManuGH/censord/internal/censor"
	"github.com/ManuGH/censord/internal/config"
	"github.com/ManuGH/censord/internal/dataset"
	"github.com/ManuGH/censord/internal/discord"
	"github.com/ManuGH/censord/internal/health"
	"github.com/ManuGH/censord/internal/jobs"
	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/requests"
	"github.com/ManuGH/censord/internal/sftpsync"
	"github.com/ManuGH/censord/internal/state"
	"github.com/ManuGH/censord/internal/twitch"
	"github.com/ManuGH/censord/internal/wsclient"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	// Safe defaults until the real config is loaded.
	log.Configure(log.Config{Level: "info", Service: "censord", Version: Version})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envFile); err != nil && !errors.Is(err, context.Canceled) {
		logger := log.Base()
		logger.Fatal().Err(err).Msg("daemon exited")
	}
}

func run(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile, Version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger := log.WithComponent("daemon")

	var mirror *sftpsync.Mirrorer
	if cfg.SFTPEnabled() {
		mirror = sftpsync.New(sftpsync.Config{
			Host:       cfg.SFTPHost,
			User:       cfg.SFTPUser,
			Password:   cfg.SFTPPassword,
			RemoteRoot: cfg.SFTPRemoteRoot,
		})
	}

	paths := dataset.NewPaths(cfg.DataDir)
	datasets, err := dataset.NewStore(paths)
	if err != nil && mirror != nil {
		// Fresh install: the server-provided files do not exist until the
		// first mirror run.
		logger.Warn().Err(err).Msg("initial dataset load failed, mirroring from sftp")
		if _, merr := mirror.Mirror(ctx, paths.Remote); merr != nil {
			return fmt.Errorf("bootstrap mirror: %w", merr)
		}
		datasets, err = dataset.NewStore(paths)
	}
	if err != nil {
		return fmt.Errorf("dataset store: %w", err)
	}

	stateStore, err := state.Open(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	defer func() { _ = stateStore.Close() }()

	var recorder audit.Recorder
	var verdicts api.VerdictCounter
	sqliteRec, err := audit.NewSqliteRecorder(filepath.Join(cfg.DataDir, "audit.db"))
	if err != nil {
		logger.Warn().Err(err).Msg("audit store unavailable, falling back to log-only auditing")
		recorder = audit.LogRecorder{}
	} else {
		recorder = sqliteRec
		verdicts = sqliteRec
	}
	defer func() { _ = recorder.Close() }()

	bot := twitch.New(cfg.TwitchChannel, cfg.TwitchBotUsername, cfg.TwitchToken)

	var ws *wsclient.Client
	if cfg.WSEnabled() {
		ws = wsclient.New(wsclient.Config{
			URL:         cfg.WSServerURL,
			ClientID:    cfg.WSClientID,
			ServerID:    cfg.WSServerID,
			ChannelName: cfg.TwitchChannel,
		}, datasets, bot.Announce)
	}

	webhooks, whitelistFallback, blacklistAlerts := webhookClient(cfg)

	router := &requests.Router{}
	if ws != nil {
		router.Primary = ws
	}
	if whitelistFallback {
		router.Fallback = webhooks
	}

	service := &censor.Service{
		Datasets: datasets,
		State:    stateStore,
		Audit:    recorder,
		Requests: router,
	}
	if blacklistAlerts {
		service.Alerts = webhooks
	}

	var runner *jobs.Runner
	if mirror != nil {
		runner = jobs.NewRunner(jobs.SyncConfig{Mirror: mirror, Datasets: datasets})
	} else {
		logger.Info().Msg("sftp not configured, dataset sync disabled, serving local data")
	}

	healthMgr := health.NewManager(cfg.Version)
	healthMgr.RegisterChecker(health.DatasetChecker{Version: datasets.Version})
	healthMgr.RegisterChecker(health.LinkChecker{LinkName: "twitch", Connected: bot.Connected})
	if ws != nil {
		healthMgr.RegisterChecker(health.LinkChecker{LinkName: "server_link", Connected: ws.Connected})
	}

	apiOpts := api.Options{
		Config:          cfg,
		Censor:          service,
		Datasets:        datasets,
		Sync:            runner,
		Health:          healthMgr,
		Verdicts:        verdicts,
		TwitchConnected: bot.Connected,
	}
	if ws != nil {
		apiOpts.WSConnected = ws.Connected
	}
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.New(apiOpts).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.MetricsEnabled && cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return ignoreCanceled(bot.Run(gctx))
	})

	if ws != nil {
		g.Go(func() error {
			return ignoreCanceled(ws.Run(gctx))
		})
	}

	if runner != nil {
		g.Go(func() error {
			return ignoreCanceled(runner.Run(gctx, cfg.SyncInterval))
		})
	}

	g.Go(func() error {
		return ignoreCanceled(dataset.Watch(gctx, datasets))
	})

	logger.Info().Str("version", cfg.Version).Msg("censord started")
	err = g.Wait()
	logger.Info().Msg("censord stopped")
	return err
}

// webhookClient builds the Discord client whenever any webhook URL is
// configured. Blacklist alerts only need the alert channel, so they must not
// be gated on the whitelist webhook pair.
func webhookClient(cfg config.AppConfig) (client *discord.Client, whitelistFallback, blacklistAlerts bool) {
	if cfg.WebhookWordWhitelist == "" && cfg.WebhookUsernameWhitelist == "" && cfg.WebhookBlacklistAlert == "" {
		return nil, false, false
	}
	client = discord.New(discord.Config{
		WordWhitelistURL:     cfg.WebhookWordWhitelist,
		UsernameWhitelistURL: cfg.WebhookUsernameWhitelist,
		BlacklistAlertURL:    cfg.WebhookBlacklistAlert,
		AlertUserID:          cfg.BlacklistAlertUserID,
		TwitchChannel:        cfg.TwitchChannel,
	})
	return client, cfg.WebhooksEnabled(), cfg.WebhookBlacklistAlert != ""
}

// ignoreCanceled maps a context cancellation to a clean shutdown.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
