// Package chunker splits records into bounded, overlapping chunks.
package chunker

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits records using a fixed chunk size and overlap.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits the record with the configured size and overlap.
func (p *Processor) Chunk(record domain.Record) ([]domain.Chunk, error) {
	return Chunk(record, p.chunkSize, p.overlap)
}

// Chunk splits record.RawText into windows of at most maxChars runes.
//
// Each cut is placed on the best boundary found in the last quarter of the
// window: a paragraph break, then a sentence end, then a line break, then any
// whitespace. Without a boundary the window is cut hard. Every chunk after
// the first starts exactly overlapChars runes before the end of the previous
// one, so dropping the first overlapChars runes of each later chunk and
// concatenating reproduces the text.
func Chunk(record domain.Record, maxChars, overlapChars int) ([]domain.Chunk, error) {
	if maxChars <= 0 || overlapChars < 0 || overlapChars >= maxChars {
		return nil, fmt.Errorf("%w: invalid window size %d with overlap %d", domain.ErrChunking, maxChars, overlapChars)
	}
	if !utf8.ValidString(record.RawText) {
		return nil, fmt.Errorf("%w: record %s is not valid UTF-8", domain.ErrChunking, record.ID)
	}
	if record.RawText == "" {
		return nil, fmt.Errorf("%w: record %s has no text", domain.ErrChunking, record.ID)
	}

	runes := []rune(record.RawText)
	total := len(runes)

	estimated := total/(maxChars-overlapChars) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for {
		end := start + maxChars
		if end >= total {
			chunks = append(chunks, newChunk(record, runes, len(chunks), start, total))
			break
		}

		cut := findCut(runes, start, end, maxChars, overlapChars)
		chunks = append(chunks, newChunk(record, runes, len(chunks), start, cut))
		start = cut - overlapChars
	}

	return chunks, nil
}

func newChunk(record domain.Record, runes []rune, seq, start, end int) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(record.ID, seq),
		RecordID:   record.ID,
		CompanyID:  record.CompanyID,
		SourceType: record.SourceType,
		SourceURL:  record.SourceURL,
		Text:       string(runes[start:end]),
		Sequence:   seq,
		Range:      domain.CharRange{Start: start, End: end},
	}
}

// findCut returns the end offset of the chunk starting at start. The cut is
// never closer than overlapChars+1 to start so the next chunk always advances.
func findCut(runes []rune, start, end, maxChars, overlapChars int) int {
	lo := end - maxChars/4
	if minCut := start + overlapChars + 1; lo < minCut {
		lo = minCut
	}
	if lo > end {
		return end
	}

	for _, isBoundary := range []func([]rune, int) bool{
		isParagraphBreak,
		isSentenceEnd,
		isLineBreak,
		isSpace,
	} {
		for i := end; i >= lo; i-- {
			if isBoundary(runes, i) {
				return i
			}
		}
	}
	return end
}

// isParagraphBreak reports whether a blank line ends just before i.
func isParagraphBreak(runes []rune, i int) bool {
	return i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n'
}

// isSentenceEnd reports whether i is the whitespace following a sentence terminator.
func isSentenceEnd(runes []rune, i int) bool {
	if i < 1 || i >= len(runes) || !unicode.IsSpace(runes[i]) {
		return false
	}
	switch runes[i-1] {
	case '.', '!', '?', '。', '؟':
		return true
	}
	return false
}

func isLineBreak(runes []rune, i int) bool {
	return i >= 1 && runes[i-1] == '\n'
}

func isSpace(runes []rune, i int) bool {
	return i >= 1 && unicode.IsSpace(runes[i-1])
}
