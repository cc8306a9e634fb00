package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/adapter"
	"github.com/annko/keiba-bot-go/internal/bot"
	"github.com/annko/keiba-bot-go/internal/config"
	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/iris"
	"github.com/annko/keiba-bot-go/internal/line"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/server"
	"github.com/annko/keiba-bot-go/internal/service/ai"
	"github.com/annko/keiba-bot-go/internal/service/archive"
	"github.com/annko/keiba-bot-go/internal/service/cache"
	"github.com/annko/keiba-bot-go/internal/service/database"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/internal/service/netkeiba"
	"github.com/annko/keiba-bot-go/internal/service/notify"
	"github.com/annko/keiba-bot-go/internal/service/odds"
	"github.com/annko/keiba-bot-go/internal/service/race"
	"github.com/annko/keiba-bot-go/internal/util"
)

// Container bundles assembled services for constructing runtime components like the
// bot, the HTTP server and the CLI.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Fetcher   *fetch.Fetcher
	Cache     *cache.CacheService
	Races     *race.Service
	Parser    *ai.QueryParser
	Models    *ai.ModelManager
	Archiver  *archive.Archiver
	Scheduler *archive.Scheduler

	botDeps *bot.Dependencies
	closers []func()
}

// Build assembles all infrastructure services. Redis, Postgres, AI and the chat
// transports are optional and only wired when configured.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Container{Config: cfg, Logger: logger, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// Scraping
	fetcher, err := fetch.New(fetch.Config{
		UserAgent:         cfg.Scraper.UserAgent,
		Timeout:           cfg.Scraper.Timeout,
		RetryCount:        constants.FetchConfig.RetryCount,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
		Burst:             cfg.Scraper.Burst,
	}, c.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	c.Fetcher = fetcher

	if cfg.HasNetkeibaLogin() {
		if err := fetcher.Login(ctx, cfg.Netkeiba.UserID, cfg.Netkeiba.Password); err != nil {
			logger.Warn("netkeiba login failed, premium columns disabled", zap.Error(err))
		}
	}

	browsers := fetch.ChromeFactory(fetch.ChromeOptions{
		ExecPath: cfg.Scraper.ChromePath,
		Headless: cfg.Scraper.Headless,
	}, logger)
	sources := []odds.Source{
		odds.NewNetkeibaScraper(browsers, logger),
		odds.NewJRAScraper(browsers, logger),
	}

	// Cache
	var raceCache cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", err)
		}
		c.closers = append(c.closers, func() { _ = cacheSvc.Close() })
		c.Cache = cacheSvc
		raceCache = cacheSvc
	}

	c.Races = race.NewService(netkeiba.NewScraper(fetcher, logger), sources, raceCache, c.Metrics, logger)

	// Archive
	if cfg.Postgres.Enabled {
		postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", err)
		}
		c.closers = append(c.closers, func() { _ = postgresSvc.Close() })

		if err := postgresSvc.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
		}

		mailer := notify.NewEmailSender(notify.EmailConfig{
			SMTPServer: cfg.Mail.SMTPServer,
			SMTPPort:   cfg.Mail.SMTPPort,
			SMTPUser:   cfg.Mail.SMTPUser,
			SMTPPass:   cfg.Mail.SMTPPass,
			FromEmail:  cfg.Mail.From,
			ToEmail:    cfg.Mail.To,
			Enabled:    cfg.Mail.Enabled,
		}, logger)

		concurrency := cfg.Archive.Concurrency
		if concurrency <= 0 {
			concurrency = constants.ArchiveConfig.Concurrency
		}
		c.Archiver = archive.NewArchiver(c.Races, database.NewRaceRepository(postgresSvc, logger), mailer, c.Metrics, concurrency, logger)

		if cfg.Archive.Enabled {
			c.Scheduler = archive.NewScheduler(c.Archiver, logger)
			if err := c.Scheduler.Schedule(cfg.Archive.Schedule); err != nil {
				return nil, err
			}
		}
	}

	// AI stack
	if cfg.Gemini.APIKey != "" {
		modelManager, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
			GeminiAPIKey:       cfg.Gemini.APIKey,
			OpenAIAPIKey:       cfg.OpenAI.APIKey,
			DefaultGeminiModel: cfg.Gemini.Model,
			DefaultOpenAIModel: cfg.OpenAI.Model,
			EnableFallback:     cfg.OpenAI.EnableFallback,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create model manager: %w", err)
		}
		c.Models = modelManager
		c.Parser = ai.NewQueryParser(modelManager, logger)
	}

	// Messaging primitives
	deps := &bot.Dependencies{
		Logger:         logger,
		Metrics:        c.Metrics,
		MessageAdapter: adapter.NewMessageAdapter(cfg.Bot.Prefix),
		Formatter:      adapter.NewResponseFormatter(cfg.Bot.Prefix, c.Parser != nil),
		Races:          c.Races,
		OddsSource:     race.DefaultOddsSource,
	}
	if c.Parser != nil {
		deps.Parser = c.Parser
	}
	if cfg.Line.Enabled {
		deps.Line = line.NewClient(cfg.Line.ChannelAccessToken, logger)
	}
	if cfg.Iris.Enabled {
		deps.IrisClient = iris.NewClient(cfg.Iris.BaseURL, logger)
		deps.IrisWebSocket = iris.NewWebSocket(cfg.Iris.WSURL, iris.Filter{
			Rooms:  cfg.Iris.Rooms,
			Prefix: cfg.Bot.Prefix,
		}, logger)
	}
	c.botDeps = deps

	return c, nil
}

// NewBot instantiates a bot using the pre-built dependency graph.
func (c *Container) NewBot() (*bot.Bot, error) {
	if c == nil || c.botDeps == nil {
		return nil, fmt.Errorf("bot dependencies not initialized")
	}
	return bot.NewBot(c.botDeps)
}

// NewServer builds the HTTP server; the LINE callback is mounted when b is given and
// LINE is enabled.
func (c *Container) NewServer(b *bot.Bot) *server.Server {
	opts := server.Options{
		Config:   c.Config.Server,
		Races:    c.Races,
		Breakers: []server.BreakerStatus{c.Fetcher.BreakerStatuses},
		Metrics:  c.Metrics,
		Logger:   c.Logger,
	}
	if c.Models != nil {
		opts.Breakers = append(opts.Breakers, func() []util.CircuitBreakerStatus {
			return []util.CircuitBreakerStatus{c.Models.GetCircuitStatus()}
		})
	}
	if b != nil && c.Config.Line.Enabled {
		opts.Line = line.NewWebhookHandler(b.HandleLineEvent, c.Logger)
	}
	return server.New(opts)
}

// Close releases connections in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
