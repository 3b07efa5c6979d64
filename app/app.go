// Package app wires the storefront together. One App is built at startup and
// handed to whatever front end drives it; it owns the lifecycle of every
// component.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"bakery-storefront/cart"
	"bakery-storefront/catalog"
	"bakery-storefront/checkout"
	"bakery-storefront/client"
	"bakery-storefront/config"
	"bakery-storefront/consumers"
	"bakery-storefront/metrics"
	"bakery-storefront/models"
	"bakery-storefront/orders"
	"bakery-storefront/rabbitmq"
	"bakery-storefront/session"
	"bakery-storefront/storage"
)

var ErrEventsDisabled = errors.New("order events are disabled: RABBITMQ_URL is not set")

type App struct {
	Config   *config.Config
	Storage  storage.Store
	Client   *client.Client
	Session  *session.Store
	Catalog  *catalog.Catalog
	Cart     *cart.Aggregate
	Checkout *checkout.Orchestrator
	Orders   *orders.CustomerView
	Admin    *orders.AdminView

	rabbit     *rabbitmq.RabbitMQ
	metricsSrv *http.Server
}

// New opens durable storage and builds every component. The session is
// seeded from storage before New returns.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return NewWithStorage(ctx, cfg, kv), nil
}

func NewWithStorage(ctx context.Context, cfg *config.Config, kv storage.Store) *App {
	api := client.New(cfg.APIBaseURL)
	sess := session.New(ctx, api, kv)
	api.SetTokenSource(sess)

	c := cart.New(api, sess)
	a := &App{
		Config:   cfg,
		Storage:  kv,
		Client:   api,
		Session:  sess,
		Catalog:  catalog.New(api),
		Cart:     c,
		Checkout: checkout.New(api, c),
		Orders:   orders.NewCustomerView(api),
		Admin:    orders.NewAdminView(api),
	}
	sess.OnChange(func(u *models.User) {
		if u == nil {
			a.resetViews()
		}
	})
	return a
}

// Init runs the session's startup refresh, waits for it, and loads the cart
// when a session survived. It also starts the metrics endpoint if configured.
func (a *App) Init(ctx context.Context) error {
	if a.Config.MetricsAddr != "" {
		a.startMetrics()
	}

	select {
	case <-a.Session.Start(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}
	if !a.Session.Authenticated() {
		return nil
	}
	if err := a.Cart.Load(ctx); err != nil {
		log.Printf("Failed to load cart: %v", err)
	}
	return nil
}

func (a *App) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsSrv = &http.Server{Addr: a.Config.MetricsAddr, Handler: mux}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
}

// Logout clears the session; the change listener drops every view's
// protected state. An error means the stored token could not be removed.
func (a *App) Logout(ctx context.Context) error {
	err := a.Session.ClearAuth(ctx)
	a.resetViews()
	return err
}

func (a *App) resetViews() {
	a.Cart.Reset()
	a.Orders.Reset()
	a.Admin.Reset()
}

// WatchOrders subscribes the admin view to order events until ctx is done.
// after, if set, runs once the view has refreshed for an event.
func (a *App) WatchOrders(ctx context.Context, after func(models.OrderEvent)) error {
	if a.Config.RabbitMQURL == "" {
		return ErrEventsDisabled
	}
	if a.rabbit == nil {
		r, err := rabbitmq.NewRabbitMQ(a.Config)
		if err != nil {
			return fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		if err := r.SetupQueues(); err != nil {
			_ = r.Close()
			return fmt.Errorf("setup queues: %w", err)
		}
		a.rabbit = r
	}
	handler := consumers.HandlerFunc(func(ctx context.Context, event models.OrderEvent) error {
		if err := a.Admin.HandleOrderEvent(ctx, event); err != nil {
			return err
		}
		if after != nil {
			after(event)
		}
		return nil
	})
	return consumers.StartOrderConsumer(ctx, a.rabbit.Channel, a.Config, handler)
}

func (a *App) Close() error {
	var errs []error
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.metricsSrv.Shutdown(ctx))
	}
	if a.rabbit != nil {
		errs = append(errs, a.rabbit.Close())
	}
	errs = append(errs, a.Storage.Close())
	return errors.Join(errs...)
}
