// model/event.go
package model

// Source is one citation-able origin document, produced by the upstream
// extraction stage and resolved through the source catalog.
type Source struct {
	SourceUID       string            `json:"source_uid" bson:"source_uid"`
	URL             string            `json:"url" bson:"url"`
	OriginType      string            `json:"origin_type" bson:"origin_type"`
	LanguageSection string            `json:"language_section,omitempty" bson:"language_section,omitempty"`
	Extra           map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// Origin types for Source.OriginType.
const (
	OriginPrimaryPage = "primary-page"
	OriginLinkedPDF   = "linked-pdf"
	OriginOther       = "other"
)

// ArticleDraft is the raw synthesized article text before structuring.
// RawText carries markdown-style headings and inline citation markers of the
// form [n] or [n, m]; citation number i refers to OrderedSourceUIDs[i-1].
type ArticleDraft struct {
	EventName         string   `json:"event_name" bson:"event_name"`
	Title             string   `json:"article_title" bson:"article_title"`
	RawText           string   `json:"article_text_raw" bson:"article_text_raw"`
	OrderedSourceUIDs []string `json:"source_references_ordered" bson:"source_references_ordered"`
}

// Paragraph is one addressable paragraph of a structured article with the
// citation markers stripped and the cited sources resolved to uids.
type Paragraph struct {
	ParagraphID string   `json:"paragraph_id" bson:"paragraph_id"`
	Text        string   `json:"text" bson:"text"`
	SourceUIDs  []string `json:"source_uids" bson:"source_uids"`
}

type Section struct {
	Subtitle   string      `json:"subtitle" bson:"subtitle"`
	Paragraphs []Paragraph `json:"paragraphs" bson:"paragraphs"`
}

// StructuredArticle is the persisted, paragraph-addressable write-up of a
// single historical event.
type StructuredArticle struct {
	EventName    string    `json:"event_name" bson:"event_name"`
	ArticleTitle string    `json:"article_title" bson:"article_title"`
	Sections     []Section `json:"sections" bson:"sections"`
	SourceList   []Source  `json:"source_list" bson:"source_list"`
}

// EventGroup is the search unit: a named big-event grouping of structured
// event articles, one document per group in a language partition.
type EventGroup struct {
	BigEventName string              `json:"big_event_name" bson:"big_event_name"`
	Events       []StructuredArticle `json:"events" bson:"events"`
}
