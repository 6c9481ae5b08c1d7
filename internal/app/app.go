package app

import (
	"context"
	"fmt"
	"log"

	"newsmill/internal/auth"
	"newsmill/internal/config"
	"newsmill/internal/database"
	"newsmill/internal/events"
	"newsmill/internal/feeds"
	"newsmill/internal/handlers"
	"newsmill/internal/llm"
	"newsmill/internal/pipeline"
	"newsmill/internal/scraper"
	"newsmill/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App holds every long lived dependency shared by the server and the CLI
type App struct {
	Config config.Config
	DB     *gorm.DB

	Scraper *scraper.Scraper
	LLM     *llm.Client

	Scrape  *services.ScrapeService
	Ingest  *services.IngestService
	Extract *services.ExtractionService
	Judge   *services.JudgeService
	Retire  *services.RetirementService
	Access  *services.AccessService
	Cleanup *services.CleanupService
	Admin   *services.AdminService

	Feeds        *feeds.FeedService
	Hub          *events.Hub
	Orchestrator *pipeline.Orchestrator
	Tokens       *auth.TokenManager

	closers []func()
}

// Open connects to the configured database and builds the application on it
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	a, err := Build(ctx, cfg, db)
	if err != nil {
		database.Close(db)
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := database.Close(db); err != nil {
			log.Printf("⚠️ Failed to close database: %v", err)
		}
	})
	return a, nil
}

// Build wires services around an existing connection. Redis and NATS are
// only dialed when their URLs are configured.
func Build(ctx context.Context, cfg config.Config, db *gorm.DB) (*App, error) {
	a := &App{Config: cfg, DB: db}

	a.LLM = llm.NewClient(cfg.OpenAI, cfg.Scrape.RequestTimeout)
	rules := append(scraper.DefaultLoginRules(), scraper.ConfiguredLoginRules(cfg.Scrape.LoginRules)...)
	a.Scraper = scraper.New(cfg.Scrape,
		scraper.WithLoginDetector(scraper.NewLoginDetector(rules...)),
		scraper.WithCaptioner(llm.NewImageCaptioner(a.LLM, cfg.Caption.Model, cfg.Caption.Enabled)))

	var summarizer llm.Summarizer = llm.HeuristicSummarizer{}
	if cfg.Extraction.UseLLM && a.LLM.Configured() {
		summarizer = llm.NewChatSummarizer(a.LLM, cfg.Extraction.Model, cfg.Extraction.MaxChars)
	}
	var judge llm.Judge
	if a.LLM.Configured() {
		judge = llm.NewChatJudge(a.LLM, cfg.Judge.Model)
	} else {
		log.Println("⚠️ OPENAI_API_KEY not set, articles will not be judged")
	}

	a.Scrape = services.NewScrapeService(db, a.Scraper)
	a.Ingest = services.NewIngestService(db, a.Scraper, cfg.Extraction.MaxChars)
	a.Extract = services.NewExtractionService(db, summarizer, cfg.Pipeline.MaxAttempts)
	a.Judge = services.NewJudgeService(db, judge, cfg.Judge.VideoMinScore, cfg.Pipeline.MaxAttempts)
	a.Retire = services.NewRetirementService(db)
	a.Access = services.NewAccessService(db, a.Scraper)
	a.Cleanup = services.NewCleanupService(db)
	a.Admin = services.NewAdminService(db)
	a.Feeds = feeds.NewFeedService(db)
	a.Tokens = auth.NewTokenManager(cfg.HTTP.JWTSecret)

	var locker pipeline.Locker
	if cfg.Redis.URL != "" {
		redisLocker, err := pipeline.NewRedisLocker(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { redisLocker.Close() })
		locker = redisLocker
	}

	a.Hub = events.NewHub()
	a.closers = append(a.closers, a.Hub.Close)
	publishers := []events.Publisher{a.Hub}
	natsPublisher, err := events.NewNATSPublisher(cfg.NATS)
	if err != nil {
		a.Close()
		return nil, err
	}
	if natsPublisher != nil {
		a.closers = append(a.closers, natsPublisher.Close)
		publishers = append(publishers, natsPublisher)
	}

	stages := pipeline.Stages{
		Scrape:  a.Scrape,
		Ingest:  a.Ingest,
		Extract: a.Extract,
		Judge:   a.Judge,
		Retire:  a.Retire,
	}
	a.Orchestrator = pipeline.NewOrchestrator(db, stages, locker, events.NewMulti(publishers...), pipeline.OptionsFromConfig(cfg))
	return a, nil
}

// Router mounts the HTTP API. status may be nil when no scheduler runs.
func (a *App) Router(status handlers.StatusReporter) *gin.Engine {
	return handlers.NewRouter(handlers.Router{
		Admin:    handlers.NewAdminHandler(a.Admin, a.Tokens, a.Config.HTTP.AdminPassword),
		Pipeline: handlers.NewPipelineHandler(a.Scrape, a.Access, a.Orchestrator, a.Hub),
		Feed:     handlers.NewFeedHandler(a.Feeds, status, a.Config.Judge.VideoMinScore, a.Config.Roundup),
		Preview:  handlers.NewPreviewHandler(a.Feeds),
		Tokens:   a.Tokens,
	})
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
