package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func testRecord(text string) domain.Record {
	return domain.Record{
		ID:         "rec-1",
		CompanyID:  "acme",
		SourceType: domain.SourceWebsite,
		SourceURL:  "https://acme.example/about",
		RawText:    text,
	}
}

// reconstruct drops the declared overlap from every chunk after the first.
func reconstruct(chunks []domain.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[overlap:]
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

func prose(paragraphs int) string {
	var b strings.Builder
	for p := 0; p < paragraphs; p++ {
		if p > 0 {
			b.WriteString("\n\n")
		}
		for s := 0; s < 6; s++ {
			if s > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "Paragraph %d sentence %d describes lending growth across the region.", p, s)
		}
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(50))
		if p.ChunkSize() != 500 || p.Overlap() != 50 {
			t.Errorf("expected 500/50, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.Overlap() >= p.ChunkSize() {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.Overlap())
		}
	})
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	rec := testRecord("Acme expands its SME lending book.")

	chunks, err := Chunk(rec, 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Text != rec.RawText {
		t.Errorf("expected text preserved, got %q", c.Text)
	}
	if c.ID != "rec-1:0000" || c.Sequence != 0 {
		t.Errorf("unexpected identity %s/%d", c.ID, c.Sequence)
	}
	if c.CompanyID != "acme" || c.SourceType != domain.SourceWebsite || c.SourceURL != rec.SourceURL {
		t.Errorf("metadata not denormalised: %+v", c)
	}
	if c.Range != (domain.CharRange{Start: 0, End: utf8.RuneCountInString(rec.RawText)}) {
		t.Errorf("unexpected range %+v", c.Range)
	}
}

func TestChunk_ExactlyMaxIsSingleChunk(t *testing.T) {
	chunks, err := Chunk(testRecord(strings.Repeat("a", 1000)), 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunk_Reconstruction(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"prose", prose(30), 1000, 100},
		{"no boundaries", strings.Repeat("x", 5321), 1000, 100},
		{"multibyte", strings.Repeat("مصرف الإمارات للتمويل. ", 300), 400, 40},
		{"zero overlap", prose(12), 300, 0},
		{"lines", strings.Repeat("line of text without stop\n", 200), 250, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Chunk(testRecord(tt.text), tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(chunks) < 2 {
				t.Fatalf("expected several chunks, got %d", len(chunks))
			}
			if got := reconstruct(chunks, tt.overlap); got != tt.text {
				t.Error("reconstructed text differs from original")
			}
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c.Text); n > tt.size || n != c.Range.Len() {
					t.Errorf("chunk %d has %d runes, range %+v", i, n, c.Range)
				}
				if c.Sequence != i {
					t.Errorf("chunk %d has sequence %d", i, c.Sequence)
				}
			}
		})
	}
}

func TestChunk_PrefersParagraphBoundary(t *testing.T) {
	text := prose(10)
	chunks, err := Chunk(testRecord(text), 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runes := []rune(text)
	for _, c := range chunks[:len(chunks)-1] {
		end := c.Range.End
		if runes[end-1] != '\n' && runes[end-1] != '.' {
			t.Errorf("chunk ending at %d cut mid-sentence: %q", end, string(runes[end-10:end]))
		}
	}
}

func TestChunk_FortyPagePDF(t *testing.T) {
	var pages []string
	for i := 1; i <= 40; i++ {
		pages = append(pages, fmt.Sprintf("Page %d.\n\n%s", i, prose(2)))
	}
	text := strings.Join(pages, "\n\n")

	chunks, err := New(WithChunkSize(1000), WithOverlap(100)).Chunk(testRecord(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Range, chunks[i].Range
		if prev.End-cur.Start != 100 {
			t.Errorf("boundary %d overlaps by %d", i, prev.End-cur.Start)
		}
		if cur.Start <= prev.Start {
			t.Errorf("chunk %d does not advance", i)
		}
	}

	total := utf8.RuneCountInString(text)
	if minChunks := total / 1000; len(chunks) < minChunks {
		t.Errorf("expected at least %d chunks, got %d", minChunks, len(chunks))
	}
	if got := reconstruct(chunks, 100); got != text {
		t.Error("reconstructed text differs from original")
	}
}

func TestChunk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"invalid utf8", "ok \xff\xfe", 100, 10},
		{"empty", "", 100, 10},
		{"overlap too large", "text", 100, 100},
		{"zero size", "text", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk(testRecord(tt.text), tt.size, tt.overlap)
			if !errors.Is(err, domain.ErrChunking) {
				t.Errorf("expected ErrChunking, got %v", err)
			}
		})
	}
}
