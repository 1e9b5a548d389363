// Package structurer turns a flat, citation-marked article draft into a
// section/paragraph tree with per-paragraph source attribution.
package structurer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"history-service/model"
)

// ErrNilDraft is returned when Structure is called without a draft.
var ErrNilDraft = errors.New("structurer: nil article draft")

// SourceLookup resolves a source uid to its full catalog record. The second
// return value reports whether the uid is known.
type SourceLookup func(sourceUID string) (model.Source, bool)

// Warning is a non-fatal data-quality issue found while structuring. Warnings
// never abort the transform; the caller decides what to do with them.
type Warning struct {
	ParagraphID string `json:"paragraph_id,omitempty"`
	Message     string `json:"message"`
}

// Structure converts draft into a StructuredArticle. It is a pure function:
// the same draft always yields the same output, and it only fails when draft
// itself is nil. Malformed or dangling citations and unresolved source uids
// are reported as warnings alongside the result.
func Structure(draft *model.ArticleDraft, lookup SourceLookup) (*model.StructuredArticle, []Warning, error) {
	if draft == nil {
		return nil, nil, ErrNilDraft
	}

	var warnings []Warning
	title := ""
	sections := []model.Section{}

	type rawSection struct {
		subtitle   string
		paragraphs []string
	}

	// Line scan: the first "# " heading is the article title, every later
	// heading ("# " or "## ") starts a new section. Text before any heading
	// is an implicit section with an empty subtitle.
	var raw []rawSection
	current := rawSection{}
	var paraLines []string
	started := false

	flushParagraph := func() {
		if len(paraLines) > 0 {
			current.paragraphs = append(current.paragraphs, strings.Join(paraLines, " "))
			paraLines = nil
		}
	}
	flushSection := func() {
		flushParagraph()
		if started && (current.subtitle != "" || len(current.paragraphs) > 0) {
			raw = append(raw, current)
		}
		current = rawSection{}
	}

	for _, line := range strings.Split(draft.RawText, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "## "):
			flushSection()
			current.subtitle = strings.TrimSpace(trimmed[3:])
			started = true
		case strings.HasPrefix(trimmed, "# "):
			heading := strings.TrimSpace(trimmed[2:])
			if title == "" {
				flushSection()
				title = heading
				started = true
			} else {
				// Later top-level headings delimit sections like "## " does.
				flushSection()
				current.subtitle = heading
				started = true
			}
		case trimmed == "":
			flushParagraph()
		default:
			if !started {
				started = true
			}
			paraLines = append(paraLines, trimmed)
		}
	}
	flushSection()

	if title == "" {
		title = draft.Title
	}

	citedSet := map[string]bool{}
	var citedOrder []string

	for si, rs := range raw {
		section := model.Section{Subtitle: rs.subtitle, Paragraphs: []model.Paragraph{}}
		for pi, paraText := range rs.paragraphs {
			paragraphID := fmt.Sprintf("s%d_p%d", si+1, pi+1)
			scan := scanCitations(paraText)

			for _, m := range scan.Malformed {
				warnings = append(warnings, Warning{
					ParagraphID: paragraphID,
					Message:     fmt.Sprintf("malformed citation marker %q", m),
				})
			}

			uidSet := map[string]bool{}
			for _, n := range scan.Refs {
				if n < 1 || n > len(draft.OrderedSourceUIDs) {
					warnings = append(warnings, Warning{
						ParagraphID: paragraphID,
						Message: fmt.Sprintf("citation number %d out of range (have %d sources)",
							n, len(draft.OrderedSourceUIDs)),
					})
					continue
				}
				uid := draft.OrderedSourceUIDs[n-1]
				uidSet[uid] = true
				if !citedSet[uid] {
					citedSet[uid] = true
					citedOrder = append(citedOrder, uid)
				}
			}

			uids := make([]string, 0, len(uidSet))
			for uid := range uidSet {
				uids = append(uids, uid)
			}
			sort.Strings(uids)

			section.Paragraphs = append(section.Paragraphs, model.Paragraph{
				ParagraphID: paragraphID,
				Text:        scan.Cleaned,
				SourceUIDs:  uids,
			})
		}
		sections = append(sections, section)
	}

	sourceList := []model.Source{}
	if lookup != nil {
		for _, uid := range citedOrder {
			src, found := lookup(uid)
			if !found {
				warnings = append(warnings, Warning{
					Message: fmt.Sprintf("source %q not found in catalog", uid),
				})
				continue
			}
			sourceList = append(sourceList, src)
		}
	}

	return &model.StructuredArticle{
		EventName:    draft.EventName,
		ArticleTitle: title,
		Sections:     sections,
		SourceList:   sourceList,
	}, warnings, nil
}
