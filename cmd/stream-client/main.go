/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command stream-client follows the live-metrics websocket and logs what it sees.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/config"
	"github.com/carverauto/serviceradar-live/pkg/lifecycle"
	"github.com/carverauto/serviceradar-live/pkg/livemetrics"
	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
	"github.com/carverauto/serviceradar-live/pkg/natsutil"
	"github.com/carverauto/serviceradar-live/pkg/reconciler"
	"github.com/carverauto/serviceradar-live/pkg/version"
)

const (
	serviceName = "serviceradar-live"
	staleAfter  = 2 * time.Minute
)

var (
	errFailedToLoadConfig = errors.New("failed to load config")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to stream-client config file")
	streamURL := flag.String("url", "", "Live metrics websocket URL (overrides config)")
	topics := flag.String("topics", "", "Comma-separated topics to subscribe to (overrides config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	overrides := config.ClientOverrides{StreamURL: *streamURL, Topics: *topics}

	cfg, err := config.LoadClientConfig(ctx, *configPath, overrides)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	mainLogger, err := lifecycle.CreateComponentLogger(ctx, "stream-client", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("Failed to shut down OTel exporters: %v", err)
		}
	}()

	ctx = setupTelemetry(ctx, cfg, logConfig, mainLogger)

	opts := []livemetrics.Option{livemetrics.WithLogger(mainLogger)}

	if cfg.Events.Enabled {
		nc, err := natsutil.ConnectWithSecurity(ctx, cfg.NATS, mainLogger)
		if err != nil {
			return err
		}
		defer nc.Close()

		publisher, err := natsutil.CreateEventPublisher(ctx, nc, &cfg.Events, mainLogger)
		if err != nil {
			return err
		}

		opts = append(opts, livemetrics.WithPublisher(publisher))
	}

	client, err := livemetrics.New(cfg.Stream, opts...)
	if err != nil {
		return err
	}

	attachLogging(client, mainLogger)

	if err := client.Connect(ctx); err != nil {
		// the transport keeps retrying while budget remains
		mainLogger.Warn().Err(err).Str("url", cfg.Stream.URL).Msg("Initial connect failed")
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			cfg = reload(ctx, cfg, *configPath, overrides, client, mainLogger)
		case <-ctx.Done():
			mainLogger.Info().Msg("Shutting down")

			return client.Close()
		}
	}
}

// reload re-reads the config file and applies the fields a running client can change.
func reload(
	ctx context.Context, current *models.ClientConfig, path string, overrides config.ClientOverrides,
	client *livemetrics.Client, log logger.Logger) *models.ClientConfig {
	r, err := config.ReloadClientConfig(ctx, current, path, overrides)
	if err != nil {
		log.Error().Err(err).Msg("Config reload failed, keeping current config")
		return current
	}

	if len(r.Deferred) > 0 {
		log.Warn().Strs("fields", r.Deferred).Msg("Changed fields take effect after restart")
	}

	if r.Changed() {
		client.SetTopics(r.Config.Stream.Subscriptions...)
		log.Info().Strs("topics", client.Topics()).Msg("Subscriptions reloaded")
	}

	return r.Config
}

func setupTelemetry(ctx context.Context, cfg *models.ClientConfig, logConfig *logger.Config, log logger.Logger) context.Context {
	if !cfg.Metrics.Enabled {
		return ctx
	}

	otelCfg := logConfig.OTel

	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &otelCfg,
		ExportInterval: time.Duration(cfg.Metrics.ExportInterval),
	})
	if err != nil {
		log.Warn().Err(err).Msg("OTel metrics not initialized")
	}

	if !cfg.Metrics.Tracing {
		return ctx
	}

	_, traceCtx, rootSpan, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		Logger:         log,
		OTel:           &otelCfg,
	})
	if err != nil {
		log.Warn().Err(err).Msg("OTel tracing not initialized")
		return ctx
	}

	// the provider itself is flushed by logger.Shutdown
	go func() {
		<-traceCtx.Done()
		rootSpan.End()
	}()

	return traceCtx
}

func attachLogging(client *livemetrics.Client, log logger.Logger) {
	client.OnAlert(func(alert models.AlertEvent, redelivery bool) {
		log.Warn().
			Str("alert_id", alert.ID).
			Str("rule", alert.AlertRuleID).
			Str("agent_id", alert.AgentID).
			Str("severity", string(alert.Severity)).
			Float64("value", alert.Value).
			Float64("threshold", alert.Threshold).
			Bool("redelivery", redelivery).
			Msg(alert.Message)
	})

	client.OnSnapshot(func(snap reconciler.Snapshot) {
		sample, ok := snap.LatestSystem()
		if !ok {
			return
		}

		log.Debug().
			Uint64("version", snap.Version).
			Int("agents_online", sample.Agents.Online).
			Int("agents_total", sample.Agents.Total).
			Float64("avg_cpu", sample.System.AvgCPU).
			Interface("status_counts", snap.StatusCounts()).
			Bool("stale", snap.Stale(time.Now(), staleAfter)).
			Msg("Live metrics updated")
	})
}
