package storefront

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cafeteria-storefront/internal/common/httpx"
	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/config"
	"cafeteria-storefront/internal/connections/database"
	"cafeteria-storefront/internal/connections/kafka"
	"cafeteria-storefront/internal/connections/rabbitmq"
	"cafeteria-storefront/internal/connections/telegram"
	"cafeteria-storefront/internal/menu"
	notifyservice "cafeteria-storefront/internal/microservices/notificator/service"
	orderrepo "cafeteria-storefront/internal/microservices/order/repository"
	"cafeteria-storefront/internal/microservices/storefront/handler"
	"cafeteria-storefront/internal/repository"
	"cafeteria-storefront/internal/session"
	"cafeteria-storefront/internal/settings"
	"cafeteria-storefront/internal/worker"
)

// settingsPage is the worker port the settings channel relays through.
const settingsPage = "admin-settings"

// Run serves the storefront until ctx is done.
func Run(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("storefront")

	catalog, err := loadCatalog(cfg.Menu.Path)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	broker, err := openBroker(cfg, logger.New("settings-broker"))
	if err != nil {
		return err
	}
	defer broker.Close()

	bg := worker.New(logger.New("worker"))
	go func() { _ = bg.Run(ctx) }()

	channel := settings.NewChannel(st.settings, broker, bg.Port(settingsPage), cfg.Settings.AdminPassword,
		settings.Default(cfg.Settings.DefaultMessage), logger.New("settings"))
	channel.Start(ctx)
	if cfg.Settings.AdminPassword == "" {
		lg.Warn("admin_disabled", nil, map[string]any{"reason": "ADMIN_PASSWORD not set"})
	}

	relay := telegram.New(telegram.Config{
		APIURL:   cfg.Telegram.APIURL,
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		Timeout:  time.Duration(cfg.Telegram.TimeoutSec) * time.Second,
	})
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		lg.Warn("telegram_not_configured", telegram.ErrNotConfigured, nil)
	}

	loc, err := time.LoadLocation(cfg.Notifications.Timezone)
	if err != nil {
		return fmt.Errorf("notifications.timezone: %w", err)
	}

	sessions := session.NewManager(session.Deps{
		Catalog:  catalog,
		Gate:     channel,
		History:  orderrepo.NewHistoryRepository(st.kv),
		Relay:    relay,
		Worker:   bg,
		Currency: cfg.Server.Currency,
		Notify:   notifyservice.Config{Icon: cfg.Notifications.Icon, Badge: cfg.Notifications.Badge, Location: loc},
		Logger:   logger.New("session"),
	}, time.Duration(cfg.Server.SessionTTLMin)*time.Minute)
	go sessions.RunJanitor(ctx, time.Minute)

	assets := bg.Assets(http.FileServer(http.Dir(cfg.Server.StaticDir)))
	assets.Install(ctx, worker.PrecacheURLs)

	router := handler.Router(handler.New(handler.Deps{
		Catalog:       catalog,
		Sessions:      sessions,
		Settings:      channel,
		Health:        healthChecks(st, broker),
		Assets:        assets,
		MaxConcurrent: cfg.Server.MaxConcurrent,
		Logger:        logger.New("http"),
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("service_started", map[string]any{
		"port": cfg.Server.Port, "storage": cfg.Storage.Driver, "broker": cfg.Settings.Broker, "menu_items": len(catalog.Items()),
	})
	return httpx.New(addr, router).Run(ctx)
}

// Migrate creates the storage tables and exits.
func Migrate(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("migrate")
	st, err := openStorage(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	if strings.EqualFold(cfg.Settings.Broker, config.BrokerKafka) {
		if err := kafka.EnsureTopic(ctx, kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}); err != nil {
			return fmt.Errorf("kafka topic: %w", err)
		}
	}
	lg.Info("migrations_applied", map[string]any{"storage": cfg.Storage.Driver})
	return nil
}

func healthChecks(st *storage, broker settings.Broker) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{"broker": broker.Ping}
	if st.db != nil {
		checks["storage"] = st.db.PingContext
	}
	return checks
}

func loadCatalog(path string) (*menu.Catalog, error) {
	if path == "" {
		return menu.Default(), nil
	}
	c, err := menu.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu: %w", err)
	}
	return c, nil
}

type storage struct {
	db       *sql.DB
	kv       repository.KVRepositoryInterface
	settings settings.Backend
	migrate  []func(context.Context) error
}

func (s *storage) Migrate(ctx context.Context) error {
	for _, m := range s.migrate {
		if err := m(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openStorage(ctx context.Context, cfg *config.Config, lg *logger.Logger) (*storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.DriverPostgres:
		db, err := database.ConnectDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		kv := repository.NewKVRepository(db, database.DriverPgx)
		admin, err := repository.NewAdminRepository(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		lg.Info("storage_connected", map[string]any{"driver": "postgres", "host": cfg.Database.Host, "database": cfg.Database.Database})
		return &storage{db: db, kv: kv, settings: settings.NewGormBackend(admin), migrate: []func(context.Context) error{kv.Migrate, admin.Migrate}}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		kv := repository.NewKVRepository(db, database.DriverSQLite)
		lg.Info("storage_connected", map[string]any{"driver": "sqlite", "path": cfg.Storage.SQLitePath})
		return &storage{db: db, kv: kv, settings: settings.NewKVBackend(kv), migrate: []func(context.Context) error{kv.Migrate}}, nil

	default:
		kv := repository.NewMemoryKVRepository()
		lg.Info("storage_connected", map[string]any{"driver": "memory"})
		return &storage{kv: kv, settings: settings.NewKVBackend(kv)}, nil
	}
}

func openBroker(cfg *config.Config, lg *logger.Logger) (settings.Broker, error) {
	switch strings.ToLower(cfg.Settings.Broker) {
	case config.BrokerRabbitMQ:
		client, err := rabbitmq.Dial(rabbitmq.Config{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
			UseTLS:   cfg.RabbitMQ.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("rabbitmq connect: %w", err)
		}
		b, err := settings.NewAMQPBroker(client, lg)
		if err != nil {
			client.Close()
			return nil, err
		}
		return b, nil
	case config.BrokerKafka:
		return settings.NewKafkaBroker(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, lg)
	default:
		return settings.NewMemoryBroker(), nil
	}
}
