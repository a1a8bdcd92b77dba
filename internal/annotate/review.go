package annotate

import (
	"context"
	"sort"
	"time"
)

// ReviewRow is one row of the flat review listing: a span joined with its
// parent text's title and its code's name.
type ReviewRow struct {
	SpanID    int64
	TextTitle string
	CodeName  string
	Selected  string
	CreatedAt time.Time
}

// Aggregator joins persisted spans with their texts and codes to produce
// the review listing. Pure projection and ordering; no span math.
type Aggregator struct {
	stores Stores
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(stores Stores) *Aggregator {
	return &Aggregator{stores: stores}
}

// List returns every coded segment, newest first. Ties on creation time
// are broken by span ID descending, i.e. reverse insertion order.
func (a *Aggregator) List(ctx context.Context) ([]ReviewRow, error) {
	spans, err := a.stores.Segments.ListSegments(ctx)
	if err != nil {
		return nil, err
	}

	texts, err := a.stores.Texts.ListTexts(ctx)
	if err != nil {
		return nil, err
	}
	titleByID := make(map[int64]string, len(texts))
	for _, t := range texts {
		titleByID[t.ID] = t.Title
	}

	codes, err := a.stores.Codes.ListCodes(ctx)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[int64]string, len(codes))
	for _, c := range codes {
		nameByID[c.ID] = c.Name
	}

	rows := make([]ReviewRow, 0, len(spans))
	for _, s := range spans {
		rows = append(rows, ReviewRow{
			SpanID:    s.ID,
			TextTitle: titleByID[s.TextID],
			CodeName:  nameByID[s.CodeID],
			Selected:  s.Selected,
			CreatedAt: s.CreatedAt,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].SpanID > rows[j].SpanID
	})
	return rows, nil
}
