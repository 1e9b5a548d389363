// Package search ranks event-group documents against free-text queries.
//
// Short queries are delegated to the corpus's native text index; longer or
// index-missed queries fall back to an in-process substring and
// word-overlap scan. Indexed-search failures are never surfaced, they just
// trigger the fallback.
package search

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"history-service/metrics"
	"history-service/model"
)

// ErrCorpusUnavailable is returned when the document corpus cannot be
// queried at all (nil handle or fallback-scan failure).
var ErrCorpusUnavailable = errors.New("search: corpus unavailable")

// Corpus is the language-partitioned document store the engine searches.
type Corpus interface {
	// TextSearch runs the store's native indexed full-text query and returns
	// results already ranked by the index's own relevance score.
	TextSearch(ctx context.Context, language, query string) ([]Result, error)
	// Scan returns every event group in the language partition, in stable
	// store order.
	Scan(ctx context.Context, language string) ([]model.EventGroup, error)
}

// Result pairs a matched event group with its relevance score.
type Result struct {
	Group model.EventGroup `json:"group"`
	Score float64          `json:"score"`
}

// Weights are the fallback scoring constants. The defaults reproduce the
// observed ranking behavior; they are configurable, not load-bearing.
type Weights struct {
	GroupFullMatch int // group name contains the full query
	GroupFirstWord int // group name contains the first query word
	EventMatch     int // per event whose name or title contains the full query
}

// DefaultWeights returns the standard fallback scoring weights.
func DefaultWeights() Weights {
	return Weights{GroupFullMatch: 10, GroupFirstWord: 5, EventMatch: 3}
}

// Engine answers search queries over a Corpus. It holds no per-query state
// and is safe for concurrent use.
type Engine struct {
	corpus  Corpus
	weights Weights
}

func NewEngine(corpus Corpus, weights Weights) *Engine {
	return &Engine{corpus: corpus, weights: weights}
}

// Search returns the event groups in the given language partition matching
// query, ranked by descending relevance. An empty query yields an empty
// result set and no error.
func (e *Engine) Search(ctx context.Context, query, language string) ([]Result, error) {
	if e == nil || e.corpus == nil {
		return nil, ErrCorpusUnavailable
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return []Result{}, nil
	}
	words := strings.Fields(normalized)

	// The text index handles short queries well; longer natural
	// language queries go straight to the fallback.
	if len(words) <= 2 && len(normalized) > 2 {
		results, err := e.corpus.TextSearch(ctx, language, normalized)
		if err != nil {
			log.Printf("Indexed search failed for query=%q lang=%s, falling back: %v", query, language, err)
		} else if len(results) > 0 {
			metrics.SearchesTotal.WithLabelValues("indexed", language).Inc()
			return results, nil
		}
	}

	// Fallback: scan the partition and score matches in process.
	groups, err := e.corpus.Scan(ctx, language)
	if err != nil {
		log.Printf("Corpus scan failed for lang=%s: %v", language, err)
		return nil, ErrCorpusUnavailable
	}

	results := []Result{}
	for _, group := range groups {
		if !e.matches(group, normalized, words) {
			continue
		}
		results = append(results, Result{Group: group, Score: e.score(group, normalized, words)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	metrics.SearchesTotal.WithLabelValues("fallback", language).Inc()
	return results, nil
}

// matches decides whether a group is a fallback candidate: either the full
// normalized query appears in some indexed field, or every query word does.
func (e *Engine) matches(group model.EventGroup, normalized string, words []string) bool {
	fields := indexedFields(group)

	if len(normalized) > 2 {
		for _, f := range fields {
			if strings.Contains(f, normalized) {
				return true
			}
		}
	}

	if len(words) > 1 {
		for _, w := range words {
			found := false
			for _, f := range fields {
				if strings.Contains(f, w) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	return false
}

func (e *Engine) score(group model.EventGroup, normalized string, words []string) float64 {
	score := 0
	groupName := strings.ToLower(group.BigEventName)

	if strings.Contains(groupName, normalized) {
		score += e.weights.GroupFullMatch
	}
	if len(words) > 0 && strings.Contains(groupName, words[0]) {
		score += e.weights.GroupFirstWord
	}
	for _, event := range group.Events {
		if strings.Contains(strings.ToLower(event.EventName), normalized) ||
			strings.Contains(strings.ToLower(event.ArticleTitle), normalized) {
			score += e.weights.EventMatch
		}
	}
	return float64(score)
}

// indexedFields flattens the fields covered by the text index, lowercased
// for case-insensitive matching.
func indexedFields(group model.EventGroup) []string {
	fields := []string{strings.ToLower(group.BigEventName)}
	for _, event := range group.Events {
		fields = append(fields, strings.ToLower(event.EventName), strings.ToLower(event.ArticleTitle))
		for _, section := range event.Sections {
			fields = append(fields, strings.ToLower(section.Subtitle))
			for _, para := range section.Paragraphs {
				fields = append(fields, strings.ToLower(para.Text))
			}
		}
	}
	return fields
}
