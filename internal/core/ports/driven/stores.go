package driven

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// CompanyStore persists the company registry.
type CompanyStore interface {
	// Save creates or updates a company.
	Save(ctx context.Context, company domain.Company) error

	// Get retrieves a company by id. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Company, error)

	// List returns all companies ordered by id.
	List(ctx context.Context) ([]domain.Company, error)

	// Delete removes a company.
	Delete(ctx context.Context, id string) error
}

// RecordStore persists normalised records and their chunks.
type RecordStore interface {
	// SaveRecord stores a record and replaces its chunks in one transaction.
	SaveRecord(ctx context.Context, record domain.Record, chunks []domain.Chunk) error

	// GetRecord retrieves a record by id. Returns domain.ErrNotFound if absent.
	GetRecord(ctx context.Context, id string) (*domain.Record, error)

	// ListRecords returns the records of a company.
	ListRecords(ctx context.Context, companyID string) ([]domain.Record, error)

	// GetChunks returns the chunks of a record ordered by sequence.
	GetChunks(ctx context.Context, recordID string) ([]domain.Chunk, error)

	// DeleteRecord removes a record and its chunks.
	DeleteRecord(ctx context.Context, id string) error
}

// ReportStore persists versioned intelligence reports.
type ReportStore interface {
	// Save writes a report and returns where it was stored. When overwrite
	// is false a new version is created; otherwise the latest is replaced.
	Save(ctx context.Context, company domain.Company, report *domain.IntelligenceReport, overwrite bool) (string, error)

	// Latest loads the newest report of a company.
	Latest(ctx context.Context, company domain.Company) (*domain.IntelligenceReport, error)

	// List describes all stored reports, newest version last per company.
	List(ctx context.Context) ([]domain.ReportInfo, error)

	// Load reads a report from a path returned by List or Save.
	Load(ctx context.Context, path string) (*domain.IntelligenceReport, error)
}

// CategoryCatalog supplies the signal categories a report is built around.
type CategoryCatalog interface {
	// Categories returns the defaults merged with configured extensions,
	// in report order.
	Categories() ([]domain.SignalCategory, error)
}
