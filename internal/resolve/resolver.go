package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"galaxysync/internal/catalog"
	"galaxysync/internal/logging"
)

// Result is a successful resolution: the candidates the catalog returned
// and the (possibly reduced) title string that produced them.
type Result struct {
	Candidates []catalog.Identity
	UsedTitle  string
}

// NotFoundError reports that no title at any reduction level yielded
// results. Attempted lists every query sent, in order.
type NotFoundError struct {
	Attempted []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no catalog match after %d queries (%s)", len(e.Attempted), strings.Join(e.Attempted, "; "))
}

// Resolver maps candidate titles to catalog identities via the reducing
// title search. Search responses are memoized for the lifetime of the
// resolver so a run never repeats a query.
type Resolver struct {
	searcher catalog.Searcher
	logger   *slog.Logger
	cache    map[string][]catalog.Identity
}

// New creates a Resolver over the provided search seam.
func New(searcher catalog.Searcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		logger:   logging.NewComponentLogger(logger, "resolve"),
		cache:    make(map[string][]catalog.Identity),
	}
}

// ReduceTitle returns the query ladder for one title: the full string
// first, then each form with one more trailing word dropped, down to a
// single word.
func ReduceTitle(title string) []string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return nil
	}
	queries := []string{title}
	for {
		idx := strings.LastIndex(title, " ")
		if idx < 0 {
			break
		}
		title = title[:idx]
		queries = append(queries, title)
	}
	return queries
}

// Resolve runs the reducing-title search across titles in order: every
// reduction level of a title is exhausted before the next title is tried,
// and the first non-empty result set wins. Exhaustion returns a
// *NotFoundError carrying every attempted query.
func (r *Resolver) Resolve(ctx context.Context, titles []string, hint catalog.DateHint) (*Result, error) {
	var attempted []string
	for _, title := range titles {
		for _, query := range ReduceTitle(title) {
			attempted = append(attempted, query)
			candidates, err := r.search(ctx, query, hint)
			if err != nil {
				return nil, err
			}
			if len(candidates) > 0 {
				return &Result{Candidates: candidates, UsedTitle: query}, nil
			}
		}
	}
	return nil, &NotFoundError{Attempted: attempted}
}

func (r *Resolver) search(ctx context.Context, query string, hint catalog.DateHint) ([]catalog.Identity, error) {
	key := strings.ToLower(query) + "|" + hint.String()
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}
	candidates, err := r.searcher.Search(ctx, query, hint)
	if err != nil {
		return nil, err
	}
	r.cache[key] = candidates
	return candidates, nil
}

// Select applies the selection policy to a non-empty candidate list:
// the first candidate not already cataloged remotely wins, so fresh games
// get fresh records; when every candidate is cataloged the first one wins,
// so executables and assets still attach to the right existing record.
func Select(candidates []catalog.Identity, cataloged map[int64]struct{}) catalog.Identity {
	for _, candidate := range candidates {
		if _, exists := cataloged[candidate.ID]; !exists {
			return candidate
		}
	}
	return candidates[0]
}

// WarnLowSimilarity logs when the chosen candidate's name is a distant
// edit-distance match for the query that produced it. Purely diagnostic;
// selection is never altered.
func (r *Resolver) WarnLowSimilarity(query string, chosen catalog.Identity) {
	q := strings.ToLower(strings.TrimSpace(query))
	name := strings.ToLower(strings.TrimSpace(chosen.Name))
	if q == "" || name == "" {
		return
	}
	distance := fuzzy.LevenshteinDistance(q, name)
	if distance <= similarityThreshold(len(q)) {
		return
	}
	r.logger.Warn("selected candidate is a weak title match",
		logging.String("query", query),
		logging.String("candidate", chosen.Name),
		logging.Int64(logging.FieldGameID, chosen.ID),
		logging.Int("distance", distance))
}

// similarityThreshold scales the acceptable edit distance with query
// length, half the query rounded down but at least three.
func similarityThreshold(n int) int {
	th := n / 2
	if th < 3 {
		return 3
	}
	return th
}
