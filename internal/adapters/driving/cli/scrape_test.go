package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

const jobsJSONL = `{"kind":"job_posting","source_url":"https://jobs.example/1","company_id":"acme","fields":{"title":"Credit analyst"}}
{"kind":"job_posting","source_type":"job_board","source_url":"https://jobs.example/2","company_id":"acme","fields":{"title":"Risk lead"}}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestScrapeCommandName(t *testing.T) {
	tests := []struct {
		source domain.SourceType
		want   string
	}{
		{domain.SourceLinkedIn, "scrape-linkedin"},
		{domain.SourceWebsite, "scrape-website"},
		{domain.SourceNews, "scrape-news"},
		{domain.SourceAppStore, "scrape-app-store"},
		{domain.SourceJobBoard, "scrape-job-board"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, scrapeCommandName(tt.source))
		})
	}
}

func TestReadPayloads(t *testing.T) {
	t.Run("json lines stamped with the source", func(t *testing.T) {
		payloads, rejected, err := readPayloads(strings.NewReader(jobsJSONL), domain.SourceJobBoard)
		require.NoError(t, err)
		assert.Empty(t, rejected)
		require.Len(t, payloads, 2)
		assert.Equal(t, domain.SourceJobBoard, payloads[0].SourceType)
		assert.Equal(t, domain.PayloadJobPosting, payloads[0].Kind)
		assert.Equal(t, "Credit analyst", payloads[0].Fields["title"])
		assert.Equal(t, "https://jobs.example/2", payloads[1].SourceURL)
	})

	t.Run("json array", func(t *testing.T) {
		in := `  [{"kind":"text","source_url":"https://news.example/1","company_id":"acme","text":"Acme news."}]`
		payloads, rejected, err := readPayloads(strings.NewReader(in), domain.SourceNews)
		require.NoError(t, err)
		assert.Empty(t, rejected)
		require.Len(t, payloads, 1)
		assert.Equal(t, domain.SourceNews, payloads[0].SourceType)
	})

	t.Run("empty input", func(t *testing.T) {
		payloads, rejected, err := readPayloads(strings.NewReader("\n\n"), domain.SourceNews)
		require.NoError(t, err)
		assert.Empty(t, payloads)
		assert.Empty(t, rejected)
	})

	tests := []struct {
		name     string
		input    string
		urls     []string
		rejected []string
	}{
		{
			name: "malformed line among good ones",
			input: `{"kind":"text","source_url":"https://news.example/1","company_id":"acme"}` + "\n" +
				"{not json}\n\n" +
				`{"kind":"text","source_url":"https://news.example/2","company_id":"acme"}` + "\n",
			urls:     []string{"https://news.example/1", "https://news.example/2"},
			rejected: []string{"line 2: "},
		},
		{
			name: "payload from another source",
			input: `{"kind":"text","source_type":"website","source_url":"https://acme.example/","company_id":"acme"}` + "\n" +
				`{"kind":"text","source_url":"https://news.example/1","company_id":"acme"}`,
			urls:     []string{"https://news.example/1"},
			rejected: []string{"line 1: ", "is from website, not news"},
		},
		{
			name: "bad element in an array",
			input: `[{"kind":"text","source_url":"https://news.example/1","company_id":"acme"},` +
				`{"kind":"text","source_type":"job_board","source_url":"https://jobs.example/1"}]`,
			urls:     []string{"https://news.example/1"},
			rejected: []string{"payload 2: ", "is from job_board"},
		},
		{
			name:     "broken array",
			input:    `[{"kind":"text"`,
			rejected: []string{"payload array: "},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloads, rejected, err := readPayloads(strings.NewReader(tt.input), domain.SourceNews)
			require.NoError(t, err)

			urls := make([]string, 0, len(payloads))
			for _, p := range payloads {
				urls = append(urls, p.SourceURL)
				assert.Equal(t, domain.SourceNews, p.SourceType)
			}
			assert.Equal(t, len(tt.urls), len(urls))
			assert.ElementsMatch(t, tt.urls, urls)

			require.Len(t, rejected, 1)
			for _, want := range tt.rejected {
				assert.Contains(t, rejected[0], want)
			}
		})
	}
}

func TestScrapeCmd_IngestsFiles(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, t.TempDir(), "jobs.jsonl", jobsJSONL)

	out, _, err := execute(t, "scrape-job-board", path)
	require.NoError(t, err)
	require.Len(t, ts.ingest.payloads, 2)
	for _, p := range ts.ingest.payloads {
		assert.Equal(t, domain.SourceJobBoard, p.SourceType)
	}
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "Indexed 2 records, 0 failed.")
}

func TestScrapeCmd_RequiresInput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "scrape-news")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payload files given")
}

func TestScrapeCmd_RejectsWrongSource(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, t.TempDir(), "jobs.jsonl", jobsJSONL)

	out, _, err := execute(t, "scrape-news", path)
	require.NoError(t, err)
	require.Len(t, ts.ingest.payloads, 1, "the payload without a source_type is taken as news")
	assert.Contains(t, out, "jobs.jsonl line 2: ")
	assert.Contains(t, out, "is from job_board, not news")
	assert.Contains(t, out, "Indexed 1 records, 1 failed.")
}

func TestScrapeCmd_NothingReadable(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	lines := strings.SplitAfter(jobsJSONL, "\n")
	path := writeFile(t, t.TempDir(), "jobs.jsonl", lines[1])

	out, _, err := execute(t, "scrape-news", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "no readable payloads")
	assert.Contains(t, out, "Indexed 0 records, 1 failed.")
	assert.Empty(t, ts.ingest.payloads)
}

func TestScrapeCmd_SkipsMalformedLines(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	lines := strings.SplitAfter(jobsJSONL, "\n")
	path := writeFile(t, t.TempDir(), "jobs.jsonl", lines[0]+"{\"kind\": \n"+lines[1])

	out, _, err := execute(t, "scrape-job-board", path)
	require.NoError(t, err)
	require.Len(t, ts.ingest.payloads, 2)
	assert.Contains(t, out, domain.UnreadableKey)
	assert.Contains(t, out, "jobs.jsonl line 2: ")
	assert.Contains(t, out, "Indexed 2 records, 1 failed.")
}

func TestScrapeCmd_IngestFailureStillPrintsTally(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.err = domain.ErrIndexIO

	path := writeFile(t, t.TempDir(), "jobs.jsonl", jobsJSONL)

	out, _, err := execute(t, "scrape-job-board", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexIO)
	assert.Contains(t, out, "Indexed 2 records")
}

func TestIsPayloadFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"jobs.jsonl", true},
		{"news.ndjson", true},
		{"apps.JSON", true},
		{".jobs.jsonl", false},
		{"jobs.jsonl.part", false},
		{"notes.txt", false},
		{"processed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPayloadFile(tt.name))
		})
	}
}

func TestInboxFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "news.jsonl", "")
	sub := filepath.Join(dir, "batch.json")
	require.NoError(t, os.Mkdir(sub, 0700))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create file event", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"write file event", fsnotify.Event{Name: file, Op: fsnotify.Write}, false},
		{"rename file event", fsnotify.Event{Name: file, Op: fsnotify.Rename}, false},
		{"create directory event", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
		{"create missing file", fsnotify.Event{Name: filepath.Join(dir, "gone.jsonl"), Op: fsnotify.Create}, false},
		{"create other file", fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := inboxFile(tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, file, path)
			}
		})
	}
}

func TestIngestInboxFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	t.Run("moves ingested files to processed", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "jobs.jsonl", jobsJSONL)
		buf := new(bytes.Buffer)

		require.NoError(t, ingestInboxFile(context.Background(), newTestCmd(buf), path, domain.SourceJobBoard))
		assert.NoFileExists(t, path)
		assert.FileExists(t, filepath.Join(dir, processedDir, "jobs.jsonl"))
		assert.Contains(t, buf.String(), "Ingesting jobs.jsonl")
	})

	t.Run("keeps readable payloads of a partly broken file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "mixed.jsonl", "{oops\n"+jobsJSONL)
		buf := new(bytes.Buffer)

		require.NoError(t, ingestInboxFile(context.Background(), newTestCmd(buf), path, domain.SourceJobBoard))
		assert.FileExists(t, filepath.Join(dir, processedDir, "mixed.jsonl"))
		assert.Contains(t, buf.String(), "Indexed 2 records, 1 failed.")
	})

	t.Run("moves unreadable files to failed", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "broken.jsonl", "{oops")
		buf := new(bytes.Buffer)

		require.NoError(t, ingestInboxFile(context.Background(), newTestCmd(buf), path, domain.SourceJobBoard))
		assert.FileExists(t, filepath.Join(dir, failedDir, "broken.jsonl"))
		assert.Contains(t, buf.String(), "Rejected broken.jsonl")
	})

	t.Run("fatal ingestion errors stop the watcher", func(t *testing.T) {
		ts.ingest.err = domain.ErrIndexIO
		defer func() { ts.ingest.err = nil }()

		dir := t.TempDir()
		path := writeFile(t, dir, "jobs.jsonl", jobsJSONL)

		err := ingestInboxFile(context.Background(), newTestCmd(new(bytes.Buffer)), path, domain.SourceJobBoard)
		assert.ErrorIs(t, err, domain.ErrIndexIO)
		assert.FileExists(t, path, "a file whose ingestion failed stays in the inbox")
	})
}

func TestWatchInbox_ProcessesExistingFiles(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeFile(t, dir, "jobs.jsonl", jobsJSONL)
	writeFile(t, dir, "readme.txt", "ignored")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := new(bytes.Buffer)
	err := watchInbox(ctx, newTestCmd(buf), dir, domain.SourceJobBoard)
	require.NoError(t, err)

	assert.Len(t, ts.ingest.payloads, 2)
	assert.FileExists(t, filepath.Join(dir, processedDir, "jobs.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "readme.txt"))
}

func TestWatchInbox_MissingDir(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	err := watchInbox(context.Background(), newTestCmd(new(bytes.Buffer)),
		filepath.Join(t.TempDir(), "missing"), domain.SourceNews)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
