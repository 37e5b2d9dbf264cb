package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/signalkb/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/normalisers"
	"github.com/custodia-labs/signalkb/internal/normalisers/jobposting"
	"github.com/custodia-labs/signalkb/internal/normalisers/plaintext"
	"github.com/custodia-labs/signalkb/internal/postprocessors/chunker"
)

var (
	acmeCompany   = domain.Company{ID: "acme", Name: "Acme"}
	globexCompany = domain.Company{ID: "globex-corporation", Name: "Globex Corporation LLC"}
	capturedAt    = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
)

// fixture wires real in-memory adapters around the services under test.
type fixture struct {
	companies *memory.CompanyStore
	records   *memory.RecordStore
	index     *flat.Index
	embedder  *hashing.EmbeddingService
	prompts   *file.PromptStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	companies := memory.NewCompanyStore()
	ctx := context.Background()
	require.NoError(t, companies.Save(ctx, acmeCompany))
	require.NoError(t, companies.Save(ctx, globexCompany))

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)

	return &fixture{
		companies: companies,
		records:   memory.NewRecordStore(),
		index:     flat.New(filepath.Join(t.TempDir(), "index.db"), flat.WithModel(hashing.DefaultModel)),
		embedder:  hashing.NewEmbeddingService(256),
		prompts:   prompts,
	}
}

func (f *fixture) normaliser() *RecordNormaliser {
	return NewRecordNormaliser(normalisers.NewRegistry(plaintext.New(), jobposting.New()), f.companies)
}

func (f *fixture) ingestService() *IngestService {
	return NewIngestService(
		f.normaliser(),
		chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20)),
		f.embedder,
		f.records,
		f.index,
		2,
	)
}

func (f *fixture) ingest(t *testing.T, payloads ...domain.RawPayload) *domain.IngestSummary {
	t.Helper()
	summary, err := f.ingestService().Ingest(context.Background(), payloads)
	require.NoError(t, err)
	return summary
}

func textPayload(company string, source domain.SourceType, url, text string) domain.RawPayload {
	return domain.RawPayload{
		Kind:       domain.PayloadText,
		SourceType: source,
		SourceURL:  url,
		CompanyID:  company,
		CapturedAt: capturedAt,
		Text:       text,
	}
}

// scriptedLLM replays canned replies and records the conversations it saw.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]driven.ChatMessage
	opts    []driven.ChatOptions
	reply   func(messages []driven.ChatMessage) string
}

func (m *scriptedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]driven.ChatMessage(nil), messages...))
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.reply != nil {
		return m.reply(messages), nil
	}
	if len(m.replies) == 0 {
		return "{}", nil
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r, nil
}

func (m *scriptedLLM) ModelName() string            { return "scripted" }
func (m *scriptedLLM) Ping(_ context.Context) error { return nil }
func (m *scriptedLLM) Close() error                 { return nil }

func (m *scriptedLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
