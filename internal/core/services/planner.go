package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// shingleSize is the number of words per shingle used for near-duplicate detection.
const shingleSize = 3

// Planner runs the multi-query retrieval protocol for one company and
// assembles a balanced, budget-bounded context bundle.
type Planner struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	cfg      domain.RetrievalSettings
}

// NewPlanner creates a retrieval planner. Zero settings fall back to defaults.
func NewPlanner(index driven.VectorIndex, embedder driven.EmbeddingService, cfg domain.RetrievalSettings) *Planner {
	d := domain.DefaultAppSettings().Retrieval
	if cfg.TopK <= 0 {
		cfg.TopK = d.TopK
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = d.ContextBudget
	}
	if cfg.NearDuplicateThreshold <= 0 {
		cfg.NearDuplicateThreshold = d.NearDuplicateThreshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = d.Concurrency
	}
	if cfg.MinExcerptChars <= 0 {
		cfg.MinExcerptChars = d.MinExcerptChars
	}
	if _, ok := embedder.(*GuardedEmbedder); !ok && embedder != nil {
		embedder = NewGuardedEmbedder(embedder)
	}
	return &Planner{index: index, embedder: embedder, cfg: cfg}
}

// query is one rendered retrieval phrasing and the category it serves.
type query struct {
	category int
	text     string
}

// Plan retrieves evidence for every category and returns the context bundle.
// A company without indexed entries fails with domain.ErrEmptyKnowledgeBase
// before anything is embedded.
func (p *Planner) Plan(
	ctx context.Context,
	company domain.Company,
	categories []domain.SignalCategory,
) (*domain.ContextBundle, error) {
	count, err := p.index.Count(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyKnowledgeBase, company.ID)
	}
	if p.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Retrieval: " + company.ID)

	name := domain.CleanCompanyName(company.Name)
	if name == "" {
		name = company.ID
	}
	var queries []query
	for i, c := range categories {
		for _, q := range c.RenderQueries(name) {
			queries = append(queries, query{category: i, text: q})
		}
	}

	results, err := p.search(ctx, company.ID, categories, queries)
	if err != nil {
		return nil, err
	}

	perCategory := make([][]domain.RetrievalResult, len(categories))
	for i, q := range queries {
		perCategory[q.category] = append(perCategory[q.category], results[i]...)
	}

	candidates := make([][]domain.RetrievalResult, len(categories))
	for i := range categories {
		candidates[i] = dropNearDuplicates(mergeByChunk(perCategory[i]), p.cfg.NearDuplicateThreshold)
		logger.Debug("%s: %d raw results, %d candidates", categories[i].ID, len(perCategory[i]), len(candidates[i]))
	}

	bundle := p.admit(company, categories, candidates)
	logger.Info("Context for %s: %d items, %d/%d chars", company.ID, len(bundle.Items()), bundle.TotalChars, bundle.Budget)
	return bundle, nil
}

// search embeds all queries in one batch and runs the searches concurrently.
// results[i] holds the hits of queries[i].
func (p *Planner) search(
	ctx context.Context,
	companyID string,
	categories []domain.SignalCategory,
	queries []query,
) ([][]domain.RetrievalResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}

	results := make([][]domain.RetrievalResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, q := range queries {
		opts := domain.SearchOptions{
			K:           p.cfg.TopK,
			SourceTypes: categories[q.category].SourceTypes,
			MinScore:    p.cfg.MinScore,
		}
		g.Go(func() error {
			hits, err := p.index.Search(gctx, vectors[i], companyID, opts)
			if err != nil {
				return fmt.Errorf("search %q: %w", q.text, err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// admit distributes the budget across categories. Round one gives every
// category with evidence its best candidate, cut to the category's share of
// what is left when it does not fit. Later rounds admit whole candidates in
// category order while they fit. Each chunk is admitted at most once; the
// other categories that retrieved it reference it as shared evidence.
func (p *Planner) admit(
	company domain.Company,
	categories []domain.SignalCategory,
	candidates [][]domain.RetrievalResult,
) *domain.ContextBundle {
	budget := p.cfg.ContextBudget
	bundle := &domain.ContextBundle{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Categories:  make([]domain.CategoryEvidence, len(categories)),
		Budget:      budget,
	}
	for i, c := range categories {
		bundle.Categories[i] = domain.CategoryEvidence{
			Category:   c,
			NoEvidence: len(candidates[i]) == 0,
			Candidates: len(candidates[i]),
		}
	}

	admitted := make(map[string]bool)
	next := make([]int, len(categories))
	used := 0

	// nextCandidate skips chunks already admitted for another category.
	nextCandidate := func(i int) (domain.RetrievalResult, bool) {
		for next[i] < len(candidates[i]) {
			r := candidates[i][next[i]]
			if !admitted[r.ChunkID] {
				return r, true
			}
			next[i]++
		}
		return domain.RetrievalResult{}, false
	}
	add := func(i int, r domain.RetrievalResult, text string, truncated bool) {
		admitted[r.ChunkID] = true
		used += runeLen(text)
		bundle.Categories[i].Items = append(bundle.Categories[i].Items, domain.ContextItem{
			Category:   categories[i].ID,
			ChunkID:    r.ChunkID,
			Score:      r.Score,
			Text:       text,
			SourceType: r.SourceType,
			SourceURL:  r.SourceURL,
			Truncated:  truncated,
		})
	}

	withEvidence := 0
	for i := range categories {
		if len(candidates[i]) > 0 {
			withEvidence++
		}
	}

	// Round one.
	waiting := withEvidence
	for i := range categories {
		if len(candidates[i]) == 0 {
			continue
		}
		share := (budget - used) / waiting
		waiting--
		r, ok := nextCandidate(i)
		if !ok {
			continue
		}
		next[i]++
		if n := runeLen(r.Text); n <= share {
			add(i, r, r.Text, false)
			continue
		}
		if share < p.cfg.MinExcerptChars {
			continue
		}
		add(i, r, truncate(r.Text, share), true)
	}

	// Later rounds. A candidate that does not fit is passed over so a shorter
	// one further down may still use the remaining budget.
	for progress := true; progress; {
		progress = false
		for i := range categories {
			r, ok := nextCandidate(i)
			if !ok {
				continue
			}
			next[i]++
			progress = true
			if runeLen(r.Text) <= budget-used {
				add(i, r, r.Text, false)
			}
		}
	}

	for i := range categories {
		ev := &bundle.Categories[i]
		own := make(map[string]bool, len(ev.Items))
		for _, item := range ev.Items {
			own[item.ChunkID] = true
		}
		for _, r := range candidates[i] {
			if admitted[r.ChunkID] && !own[r.ChunkID] {
				ev.Shared = append(ev.Shared, r.ChunkID)
			}
		}
	}

	bundle.TotalChars = used
	return bundle
}

// mergeByChunk keeps the best score of every chunk and sorts by descending
// score with ties broken by ascending chunk id.
func mergeByChunk(results []domain.RetrievalResult) []domain.RetrievalResult {
	best := make(map[string]domain.RetrievalResult, len(results))
	for _, r := range results {
		if cur, ok := best[r.ChunkID]; !ok || r.Score > cur.Score {
			best[r.ChunkID] = r
		}
	}
	out := make([]domain.RetrievalResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sortResults(out)
	return out
}

func sortResults(results []domain.RetrievalResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
}

// dropNearDuplicates removes results whose shingle similarity with a
// higher-ranked kept result reaches the threshold. Input must be sorted.
func dropNearDuplicates(results []domain.RetrievalResult, threshold float64) []domain.RetrievalResult {
	kept := make([]domain.RetrievalResult, 0, len(results))
	keptShingles := make([]map[string]struct{}, 0, len(results))
	for _, r := range results {
		sh := shingles(r.Text)
		dup := false
		for _, k := range keptShingles {
			if jaccard(sh, k) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, r)
		keptShingles = append(keptShingles, sh)
	}
	return kept
}

// shingles returns the set of lower-cased word n-grams of a text. Texts
// shorter than one shingle yield a single shingle of all their words.
func shingles(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{})
	if len(words) < shingleSize {
		set[strings.Join(words, " ")] = struct{}{}
		return set
	}
	for i := 0; i+shingleSize <= len(words); i++ {
		set[strings.Join(words[i:i+shingleSize], " ")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// truncate cuts text to at most limit runes, backing up to a word boundary
// when one is close to the limit.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := limit
	for i := limit; i > limit*4/5; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
}

func runeLen(s string) int {
	return len([]rune(s))
}
