package types

type DocumentKind string

const (
	DocumentKindKnowledge   DocumentKind = "knowledge"
	DocumentKindInstruction DocumentKind = "instruction"
)

// Document is a reusable knowledge or instruction document linked to an
// activity of a run.
type Document struct {
	ID      string       `json:"id" yaml:"id"`
	Kind    DocumentKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Title   string       `json:"title" yaml:"title"`
	Content string       `json:"content,omitempty" yaml:"content,omitempty"`
}
