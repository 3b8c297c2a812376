package paybot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/core/metrics"
	coretelegram "github.com/m3rciful/paybot/core/telegram"
	"github.com/m3rciful/paybot/core/telegram/router"
	"github.com/m3rciful/paybot/core/telegram/state"
	"github.com/m3rciful/paybot/internal/config"
	"github.com/m3rciful/paybot/internal/nowpayments"
	"github.com/m3rciful/paybot/internal/payment"
	"github.com/m3rciful/paybot/internal/profile"
	"github.com/prometheus/client_golang/prometheus"

	tele "gopkg.in/telebot.v4"
)

// Processor is the subset of the NOWPayments client the bot needs.
type Processor interface {
	payment.CurrencySource
	payment.InvoiceCreator
}

// App owns the bot's state and builds its Telegram runtime.
type App struct {
	cfg      *config.Config
	registry *coretelegram.Registry
	states   state.Manager
	flow     *payment.Flow
	profiles *profile.Store

	metricsSrv *metrics.Server
}

// New builds the app against the real payment processor.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("paybot: nil config")
	}
	client, err := nowpayments.NewClient(cfg.NOWPayments.APIKey,
		nowpayments.WithBaseURL(cfg.NOWPayments.BaseURL),
		nowpayments.WithTimeout(cfg.NOWPayments.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("paybot: %w", err)
	}
	return NewWithProcessor(cfg, client)
}

// NewWithProcessor builds the app against any Processor.
func NewWithProcessor(cfg *config.Config, proc Processor) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("paybot: nil config")
	}
	if proc == nil {
		return nil, fmt.Errorf("paybot: nil processor")
	}
	states := state.NewMemoryManager()
	a := &App{
		cfg:      cfg,
		registry: coretelegram.NewRegistry(),
		states:   states,
		profiles: profile.NewStore(),
		flow: payment.NewFlow(payment.FlowOptions{
			States:        states,
			Catalog:       payment.NewCatalog(proc, payment.TopCoins),
			Invoices:      payment.NewInvoiceRequester(proc, cfg.NOWPayments.OrderID),
			MinAmount:     cfg.Payment.Min(),
			ButtonsPerRow: cfg.Payment.ButtonsPerRow,
		}),
	}
	if err := a.register(); err != nil {
		return nil, err
	}
	return a, nil
}

// Profiles exposes the profile table.
func (a *App) Profiles() *profile.Store { return a.profiles }

// Registry exposes the command and callback registry.
func (a *App) Registry() *coretelegram.Registry { return a.registry }

// TelegramRunOptions assembles middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()

	mws := coretelegram.DefaultMiddlewares(core, coretelegram.MiddlewareOptions{RateScope: a.rateScope})
	mws = append(mws, coretelegram.Middleware{Name: "profile", Use: profile.Middleware(a.profiles)})

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{NotFound: ignore}))
	routes = append(routes, router.TextRoutes(a.states, a.registry, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: mws,
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

// ReadyAttrs names the payment upstream and the metrics listener for the ready log.
func (a *App) ReadyAttrs() []slog.Attr {
	listen := a.cfg.Metrics.Listen
	if listen == "" {
		listen = "off"
	}
	return []slog.Attr{
		slog.String("url", a.cfg.NOWPayments.BaseURL),
		slog.String("listen", listen),
		slog.String("amount", a.cfg.Payment.Min().String()),
	}
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	listen := a.cfg.Metrics.Listen
	if listen == "" {
		return nil
	}
	srv, err := metrics.Start(listen, prometheus.DefaultGatherer)
	if err != nil {
		return fmt.Errorf("paybot: metrics listener: %w", err)
	}
	a.metricsSrv = srv
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.metricsSrv == nil {
		return nil
	}
	if err := a.metricsSrv.Shutdown(ctx); err != nil {
		logger.LogEvent(ctx, logger.Metrics, slog.LevelWarn, "server.shutdown",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

// rateScope throttles amount attempts on their own bucket so a user cannot flood the amount parser.
func (a *App) rateScope(c tele.Context) (string, time.Duration) {
	u := c.Sender()
	if u == nil || c.Message() == nil || strings.HasPrefix(c.Text(), "/") {
		return "", 0
	}
	if !a.flow.AwaitingAmount(u.ID) {
		return "", 0
	}
	return "amount", a.cfg.Payment.AmountInterval()
}

func ignore(tele.Context) error { return nil }
