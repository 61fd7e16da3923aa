package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/tendril/config"
	ledgerrepo "github.com/Ramsey-B/tendril/internal/repositories/ledger"
	mappingrepo "github.com/Ramsey-B/tendril/internal/repositories/mapping"
	matchresultrepo "github.com/Ramsey-B/tendril/internal/repositories/matchresult"
	runerrorrepo "github.com/Ramsey-B/tendril/internal/repositories/runerror"
	"github.com/Ramsey-B/tendril/pkg/attributes"
	"github.com/Ramsey-B/tendril/pkg/database"
	"github.com/Ramsey-B/tendril/pkg/events"
	"github.com/Ramsey-B/tendril/pkg/identity"
	"github.com/Ramsey-B/tendril/pkg/kafka"
	"github.com/Ramsey-B/tendril/pkg/matching"
	"github.com/Ramsey-B/tendril/pkg/middleware"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/oracle"
	"github.com/Ramsey-B/tendril/pkg/pipeline"
	"github.com/Ramsey-B/tendril/pkg/reconcile"
	"github.com/Ramsey-B/tendril/pkg/routes/health"
	ledgerroutes "github.com/Ramsey-B/tendril/pkg/routes/ledger"
	mappingroutes "github.com/Ramsey-B/tendril/pkg/routes/mapping"
	matchroutes "github.com/Ramsey-B/tendril/pkg/routes/match"
	snapshotroutes "github.com/Ramsey-B/tendril/pkg/routes/snapshot"
	"github.com/Ramsey-B/tendril/pkg/search"
	"github.com/Ramsey-B/tendril/pkg/startup"
	"github.com/Ramsey-B/tendril/pkg/tracing"
	"github.com/Ramsey-B/tendril/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment")
	}

	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Printf("Failed to read config: %v\n", err)
		os.Exit(1)
	}

	logger, zapLogger, err := buildLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		defer shutdownTracing(context.Background())
	}

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to start")
		os.Exit(1)
	}
	defer app.Close()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		err = app.serve(ctx, cfg, logger)
	case "run":
		err = app.runMatching(ctx, argAt(2))
	case "reconcile":
		err = app.reconcileSnapshot(ctx, argAt(2))
	case "rebuild":
		err = app.resolver.RebuildAndApply(ctx)
	default:
		err = fmt.Errorf("unknown command %q (expected serve, run, reconcile or rebuild)", command)
	}

	if err != nil {
		logger.WithError(err).Errorf("Command %q failed", command)
		os.Exit(1)
	}
}

func argAt(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func buildLogger(cfg config.Config) (ectologger.Logger, *zap.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), zapLogger, nil
}

func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT not set")
	}

	exporterCfg := exporters.DefaultOTLPConfig()
	exporterCfg.Endpoint = endpoint
	if protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); protocol != "" {
		exporterCfg.Protocol = protocol
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporterCfg)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
			attribute.String("service.version", version),
		)),
	)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}

// app holds the wired components shared by every command
type app struct {
	db          database.DB
	producer    *kafka.Producer
	ledgerRepo  *ledgerrepo.Repository
	resultsRepo *matchresultrepo.Repository
	mappingRepo *mappingrepo.Repository
	errorsRepo  *runerrorrepo.Repository
	pipeline    *pipeline.Pipeline
	reconciler  *reconcile.Reconciler
	resolver    *identity.Resolver
	logger      ectologger.Logger
}

// databaseDependency connects to PostgreSQL and runs migrations under the
// startup retry loop
type databaseDependency struct {
	cfg    config.Config
	logger ectologger.Logger
	db     database.DB
}

func (d *databaseDependency) GetName() string { return "database" }

func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.cfg.DatabaseHost, d.cfg.DatabasePort, d.cfg.DatabaseUserName, d.cfg.DatabasePassword, d.cfg.DatabaseName, d.cfg.DatabaseSSLMode)

	sqlxDB, err := sqlx.ConnectContext(ctx, d.cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}
	sqlxDB.SetMaxOpenConns(d.cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(d.cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(d.cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return err
	}
	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(d.cfg.DatabaseName, driver); err != nil {
		return err
	}

	d.db = database.NewDatabaseInstance(sqlxDB, d.logger)
	return nil
}

func buildApp(ctx context.Context, cfg config.Config, logger ectologger.Logger) (*app, error) {
	dbDep := &databaseDependency{cfg: cfg, logger: logger}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(dbDep)
	if err := boot.Start(ctx); err != nil {
		return nil, err
	}

	db := dbDep.db

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
	}
	emitter := events.NewEmitter(producer, logger)

	judgmentOracle, verifier, err := oracle.New(ctx, oracle.Config{
		Provider: cfg.OracleProvider,
		APIKey:   cfg.OracleAPIKey,
		Model:    cfg.OracleModel,
		BaseURL:  cfg.OracleBaseURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	searchClient := search.NewHTTPClient(search.HTTPClientConfig{
		BaseURL:           cfg.SearchBaseURL,
		Timeout:           cfg.SearchTimeout,
		RequestsPerMinute: cfg.SearchRequestsPerMinute,
		MaxAttempts:       cfg.SearchMaxAttempts,
	}, logger)

	ledgerRepo := ledgerrepo.NewRepository(db, logger)
	resultsRepo := matchresultrepo.NewRepository(db, logger)
	mappingRepo := mappingrepo.NewRepository(db, logger)
	errorsRepo := runerrorrepo.NewRepository(db, logger)

	extractor := attributes.NewExtractor()
	judge := matching.NewJudge(judgmentOracle, verifier, cfg.JudgmentRetries, logger)

	pipe := pipeline.New(
		pipeline.Config{TopN: cfg.SearchTopN},
		searchClient, judge, extractor, matching.NewFilter(),
		resultsRepo, errorsRepo, emitter, logger,
	)

	return &app{
		db:          db,
		producer:    producer,
		ledgerRepo:  ledgerRepo,
		resultsRepo: resultsRepo,
		mappingRepo: mappingRepo,
		errorsRepo:  errorsRepo,
		pipeline:    pipe,
		reconciler:  reconcile.NewReconciler(ledgerRepo, emitter, logger),
		resolver:    identity.NewResolver(db, ledgerRepo, mappingRepo, logger),
		logger:      logger,
	}, nil
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}

func (a *app) serve(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker := health.NewChecker(a.db, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	ledgerroutes.NewHandler(a.ledgerRepo).Register(api.Group("/ledger"))
	mappingroutes.NewHandler(a.mappingRepo).Register(api.Group("/mappings"))
	matchroutes.NewHandler(a.resultsRepo, a.errorsRepo).Register(api.Group("/matches"))
	snapshotroutes.NewHandler(a.reconciler).Register(api.Group("/snapshots"))

	checker.SetReady(true)

	go func() {
		<-ctx.Done()
		checker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Server starting")
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runMatching runs one matching pass over reference items loaded from a JSON
// file. Rerunning the same file resumes where the previous run stopped.
func (a *app) runMatching(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: tendril run <references.json>")
	}

	var refs []models.ReferenceItem
	if err := readJSONFile(path, &refs); err != nil {
		return err
	}

	report, err := a.pipeline.Run(ctx, refs)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	return err
}

// reconcileSnapshot folds a snapshot file into the product ledger
func (a *app) reconcileSnapshot(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: tendril reconcile <snapshot.json>")
	}

	var items []reconcile.SnapshotItem
	if err := readJSONFile(path, &items); err != nil {
		return err
	}

	report, err := a.reconciler.Reconcile(ctx, items)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
