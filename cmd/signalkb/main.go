// Command signalkb builds company knowledge bases from scraped sources and
// generates intelligence reports from them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/signalkb/internal/adapters/driven/ai"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/storage/reports"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/vectorindex/pgvector"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/cli"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/services"
	"github.com/custodia-labs/signalkb/internal/logger"
	"github.com/custodia-labs/signalkb/internal/normalisers"
	"github.com/custodia-labs/signalkb/internal/normalisers/appstore"
	"github.com/custodia-labs/signalkb/internal/normalisers/html"
	"github.com/custodia-labs/signalkb/internal/normalisers/jobposting"
	"github.com/custodia-labs/signalkb/internal/normalisers/pdf"
	"github.com/custodia-labs/signalkb/internal/normalisers/plaintext"
	"github.com/custodia-labs/signalkb/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Services are wired before cobra parses flags.
	logger.SetVerbose(slices.Contains(os.Args[1:], "-v") || slices.Contains(os.Args[1:], "--verbose"))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Ignoring .env: %v", err)
	}

	app, err := wire(ctx)
	if err != nil {
		logger.Error("%v", err)
		return err
	}
	defer app.close()

	cli.SetVersion(version)
	cli.SetServices(app.services)
	return cli.Execute(ctx)
}

// application holds the wired services and the resources to release.
type application struct {
	services cli.Services
	closers  []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Closing: %v", err)
		}
	}
}

// wire builds the services from the settings. Ingestion and search need an
// embedding provider, analysis also an LLM; when one is missing the
// dependent services stay nil and their commands report it.
func wire(ctx context.Context) (*application, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	baseDir := filepath.Join(home, ".signalkb")
	dataDir := filepath.Join(baseDir, "data")

	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(dataDir))
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	app := &application{}
	app.services.Settings = settingsService

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	companyService := services.NewCompanyService(store.CompanyStore())
	app.services.Company = companyService

	reportStore, err := reports.NewStore(settings.Reports.Dir)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("opening report store: %w", err)
	}
	app.services.Report = services.NewReportService(companyService, reportStore)

	embedder, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding, dataDir)
	if err != nil {
		logger.Warn("Ingestion, search and analysis unavailable: %v", err)
		return app, nil
	}
	app.closers = append(app.closers, embedder.Close)

	index, err := openIndex(ctx, settings, embedder, dataDir)
	if err != nil {
		app.close()
		return nil, err
	}
	app.closers = append(app.closers, index.Close)

	registry := normalisers.NewRegistry(
		plaintext.New(),
		html.New(),
		pdf.New(),
		appstore.New(),
		jobposting.New(),
	)
	chunks := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	app.services.Ingest = services.NewIngestService(
		services.NewRecordNormaliser(registry, store.CompanyStore()),
		chunks,
		embedder,
		store.RecordStore(),
		index,
		settings.Retrieval.Concurrency,
	)
	app.services.Search = services.NewSearchService(companyService, embedder, index)

	llm, err := ai.CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("Analysis unavailable: %v", err)
		return app, nil
	}
	if llm == nil {
		logger.Debug("No LLM provider configured, analysis unavailable")
		return app, nil
	}
	app.closers = append(app.closers, llm.Close)

	prompts, err := file.NewPromptStore(filepath.Join(baseDir, "prompts"))
	if err != nil {
		app.close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}
	categoriesFile := settings.Retrieval.CategoriesFile
	if categoriesFile == "" {
		categoriesFile = filepath.Join(baseDir, "categories.yaml")
	}

	app.services.Analysis = services.NewAnalysisService(
		companyService,
		index,
		services.NewPlanner(index, embedder, settings.Retrieval),
		services.NewReportGenerator(llm, prompts, settings.Generation),
		reportStore,
		file.NewCategoryCatalog(categoriesFile),
		settings.Retrieval.Concurrency,
	)
	return app, nil
}

// openIndex opens the configured vector index for the embedder's model and
// loads its persisted state.
func openIndex(
	ctx context.Context,
	settings *domain.AppSettings,
	embedder driven.EmbeddingService,
	dataDir string,
) (driven.VectorIndex, error) {
	var idx driven.VectorIndex
	switch settings.Index.Backend {
	case domain.IndexBackendPgvector:
		pg, err := pgvector.New(ctx, pgvector.Config{
			DSN:        settings.Index.DSN,
			Model:      embedder.ModelName(),
			Dimensions: embedder.Dimensions(),
		})
		if err != nil {
			return nil, fmt.Errorf("opening pgvector index: %w", err)
		}
		idx = pg
	default:
		idx = flat.New(
			filepath.Join(dataDir, "index.db"),
			flat.WithModel(embedder.ModelName()),
			flat.WithDimensions(embedder.Dimensions()),
		)
	}

	if err := idx.Load(ctx); err != nil {
		idx.Close()
		return nil, fmt.Errorf("loading vector index: %w", err)
	}
	return idx, nil
}
