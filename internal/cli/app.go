package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sufield/trustboot/internal/adapters/logging"
	"github.com/sufield/trustboot/internal/adapters/metrics"
	"github.com/sufield/trustboot/internal/adapters/secondary/certstore"
	"github.com/sufield/trustboot/internal/adapters/secondary/exchange"
	"github.com/sufield/trustboot/internal/config"
	"github.com/sufield/trustboot/internal/core/ports"
	"github.com/sufield/trustboot/internal/core/services"
)

// app holds the adapters one command invocation works with.
type app struct {
	cfg      *config.Config
	logger   ports.Logger
	registry *prometheus.Registry
	metrics  *metrics.PrometheusMetrics
	store    *certstore.FileStore
	channel  *exchange.Channel
}

// secretMode selects whether a missing store secret is created.
type secretMode int

const (
	secretCreate secretMode = iota
	secretExisting
)

func (o *rootOptions) newApp(cmd *cobra.Command, mode secretMode) (*app, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	base, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	logger := base.WithAttrs(ports.Attr("role", cfg.Role.String()))

	var secret string
	switch mode {
	case secretExisting:
		secret, err = certstore.LoadSecret(cfg.Store.SecretFile)
	default:
		var created bool
		secret, created, err = certstore.LoadOrCreateSecret(cfg.Store.SecretFile)
		if created {
			logger.Info(cmd.Context(), "created store secret", ports.Attr("path", cfg.Store.SecretFile))
		}
	}
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(registry)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		store:    certstore.New(cfg.Store.Dir, secret),
		channel: exchange.New(cfg.Exchange.Dir,
			exchange.WithMetrics(m),
			exchange.WithLogger(logger),
		),
	}, nil
}

func (a *app) bootstrapper() (*services.Bootstrapper, error) {
	return services.NewBootstrapper(a.cfg.Settings(), a.store, a.channel,
		services.WithMetrics(a.metrics),
		services.WithLogger(a.logger),
	)
}

func (a *app) issuer() (*services.Issuer, error) {
	return services.NewIssuer(a.cfg.Settings(), a.store, a.channel, a.metrics, a.logger)
}

// flush writes the metrics textfile when one is configured.
func (a *app) flush(ctx context.Context) {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, a.registry); err != nil {
		a.logger.Warn(ctx, "metrics not written", ports.Attr("error", err.Error()))
	}
}
