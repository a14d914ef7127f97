// Package search provides full-text search over the track catalog.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/justestif/moodmix/internal/catalog"
)

// ErrEmptyQuery is returned when the query is blank.
var ErrEmptyQuery = errors.New("empty search query")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Hit is one matching track.
type Hit struct {
	Track catalog.Track `json:"track"`
	Score float64       `json:"score"`
}

// Index is an in-memory bleve index over a catalog snapshot.
// It is safe for concurrent searches.
type Index struct {
	index  bleve.Index
	tracks []catalog.Track
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = simple.Name

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = simple.Name
	doc.AddFieldMappingsAt("title", title)

	artist := bleve.NewTextFieldMapping()
	artist.Analyzer = simple.Name
	doc.AddFieldMappingsAt("artist", artist)

	// Genres like "singer-songwriter" must stay one token.
	genre := bleve.NewTextFieldMapping()
	genre.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("genre", genre)

	im.DefaultMapping = doc
	return im
}

// NewIndex indexes every track in cat.
func NewIndex(cat *catalog.Catalog) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return fill(idx, cat.Tracks())
}

// fill indexes tracks into idx, closing idx if indexing fails.
func fill(idx bleve.Index, tracks []catalog.Track) (*Index, error) {
	batch := idx.NewBatch()
	for i, t := range tracks {
		d := map[string]any{"title": t.Title, "artist": t.Artist}
		if t.Genre != nil {
			d["genre"] = *t.Genre
		}
		if err := batch.Index(strconv.Itoa(i), d); err != nil {
			idx.Close()
			return nil, fmt.Errorf("index %q: %w", t.Title, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return &Index{index: idx, tracks: tracks}, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.index.Close()
}

// Search returns tracks matching q by title, artist or exact genre, best
// first. Misspellings of one edit and word prefixes also match.
// limit <= 0 uses DefaultLimit; larger values are capped at MaxLimit.
func (x *Index) Search(ctx context.Context, q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, 0, false)
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		i, err := strconv.Atoi(h.ID)
		if err != nil || i < 0 || i >= len(x.tracks) {
			continue
		}
		hits = append(hits, Hit{Track: x.tracks[i], Score: h.Score})
	}
	return hits, nil
}

func buildQuery(q string) query.Query {
	lower := strings.ToLower(q)
	var parts []query.Query

	for field, boost := range map[string]float64{"title": 3, "artist": 2} {
		m := bleve.NewMatchQuery(q)
		m.SetField(field)
		m.SetBoost(boost)
		parts = append(parts, m)

		f := bleve.NewFuzzyQuery(lower)
		f.SetField(field)
		f.SetFuzziness(1)
		f.SetBoost(0.8)
		parts = append(parts, f)

		if len(lower) >= 2 {
			p := bleve.NewPrefixQuery(lower)
			p.SetField(field)
			p.SetBoost(0.5)
			parts = append(parts, p)
		}
	}

	g := bleve.NewTermQuery(lower)
	g.SetField("genre")
	parts = append(parts, g)

	return bleve.NewDisjunctionQuery(parts...)
}
