package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func init() {
	for _, source := range domain.AllSourceTypes() {
		rootCmd.AddCommand(newScrapeCmd(source))
	}
}

// scrapeCommandName returns the command name for a source, e.g. scrape-app-store.
func scrapeCommandName(source domain.SourceType) string {
	return "scrape-" + strings.ReplaceAll(string(source), "_", "-")
}

func newScrapeCmd(source domain.SourceType) *cobra.Command {
	cmd := &cobra.Command{
		Use:   scrapeCommandName(source) + " [payloads.jsonl...]",
		Short: fmt.Sprintf("Ingest %s payloads into the knowledge base", source.Description()),
		Long: fmt.Sprintf(`Ingest the payload files produced by the %s scraper.

Each file holds one JSON payload per line (or a JSON array). Payloads name
their company by company_id or company_name, which must be registered.
Payloads without a source_type are taken as %s; payloads from another
source, and lines that are not valid JSON, are counted as failed and the
rest of the file is still ingested.

With --watch, files moved into the inbox directory are ingested as they
arrive and then moved to its processed/ subdirectory.`, source.Description(), source),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, args, source)
		},
	}
	cmd.Flags().String("watch", "", "inbox directory to watch for new payload files")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string, source domain.SourceType) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	watchDir, err := cmd.Flags().GetString("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}
	if len(args) == 0 && watchDir == "" {
		return errors.New("no payload files given; pass files or --watch <dir>")
	}

	ctx := cmd.Context()
	if len(args) > 0 {
		var (
			payloads []domain.RawPayload
			rejected []string
		)
		for _, path := range args {
			batch, bad, err := readPayloadFile(path, source)
			if err != nil {
				return err
			}
			payloads = append(payloads, batch...)
			rejected = append(rejected, bad...)
		}
		if len(payloads) == 0 && len(rejected) > 0 {
			renderIngestTallies(cmd.OutOrStdout(), rejectedSummary(rejected))
			return fmt.Errorf("%w: no readable payloads", domain.ErrInvalidInput)
		}
		if err := ingestPayloads(ctx, cmd, payloads, rejected); err != nil {
			return err
		}
	}

	if watchDir != "" {
		return watchInbox(ctx, cmd, watchDir, source)
	}
	return nil
}

// ingestPayloads runs one ingestion and prints its tally.
func ingestPayloads(ctx context.Context, cmd *cobra.Command, payloads []domain.RawPayload, rejected []string) error {
	summary, err := ingestService.Ingest(ctx, payloads)
	if summary == nil && len(rejected) > 0 {
		summary = domain.NewIngestSummary()
	}
	if summary != nil {
		for _, msg := range rejected {
			summary.Reject(msg)
		}
		renderIngestTallies(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

// rejectedSummary tallies payloads that never reached ingestion.
func rejectedSummary(rejected []string) *domain.IngestSummary {
	summary := domain.NewIngestSummary()
	for _, msg := range rejected {
		summary.Reject(msg)
	}
	return summary
}

func readPayloadFile(path string, source domain.SourceType) ([]domain.RawPayload, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open payloads: %w", err)
	}
	defer f.Close()

	payloads, rejected, err := readPayloads(f, source)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	name := filepath.Base(path)
	for i, msg := range rejected {
		rejected[i] = name + " " + msg
	}
	return payloads, rejected, nil
}

// maxPayloadLine bounds one JSON lines record; PDF payloads carry base64 data.
const maxPayloadLine = 64 << 20

// readPayloads decodes a JSON lines stream or a JSON array of payloads and
// stamps the source type on payloads that omit it. A payload that does not
// decode or comes from another source is reported in rejected and the rest
// of the stream is still read.
func readPayloads(r io.Reader, source domain.SourceType) (payloads []domain.RawPayload, rejected []string, err error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err != nil {
		return nil, nil, fmt.Errorf("reading payloads: %w", err)
	}

	accept := func(label string, data []byte) {
		p, err := decodePayload(data, source)
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("%s: %v", label, err))
			return
		}
		payloads = append(payloads, p)
	}

	if first == '[' {
		var items []json.RawMessage
		if err := json.NewDecoder(br).Decode(&items); err != nil {
			return nil, []string{fmt.Sprintf("payload array: %v", err)}, nil
		}
		for i, item := range items {
			accept(fmt.Sprintf("payload %d", i+1), item)
		}
		return payloads, rejected, nil
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPayloadLine)
	for n := 1; scanner.Scan(); n++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		accept(fmt.Sprintf("line %d", n), line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading payloads: %w", err)
	}
	return payloads, rejected, nil
}

// firstByte peeks at the first non-space byte, or 0 for empty input.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// decodePayload decodes one payload and stamps or checks its source type.
func decodePayload(data []byte, source domain.SourceType) (domain.RawPayload, error) {
	var p domain.RawPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	switch p.SourceType {
	case "":
		p.SourceType = source
	case source:
	default:
		return p, fmt.Errorf("%w: payload is from %s, not %s", domain.ErrInvalidInput, p.SourceType, source)
	}
	return p, nil
}
