// Package model defines the data structures shared by every picker surface.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// Snippet represents a saved, reusable block of text.
// The `json:"..."` tags match the layout the surfaces have always persisted
// under the "prompts" key, so old collections keep decoding:
//
//	[{"id":"cv37rs3pp9olc6atsptg","name":"greet","content":"Hello!","modeId":"work"}]
//
// ORDERING LIVES IN THE SLICE:
// There is no position column. The global []Snippet order is the order, and a
// mode's view is that slice filtered by ModeID. Reordering therefore means
// moving elements of the global slice (see repository.MoveSnippetUp).
type Snippet struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	ModeID  string `json:"modeId,omitempty"`
}

// EffectiveModeID returns the mode this snippet belongs to.
// Collections written before modes existed carry no modeId; those read as the
// default mode. The default is applied on read only and never written back.
func (s Snippet) EffectiveModeID() string {
	if s.ModeID == "" {
		return DefaultModeID
	}
	return s.ModeID
}

// ScoredSnippet is a ranked view of a Snippet. It is never persisted.
//
// ModeName is only filled by global search, where results from every mode are
// mixed and the surface shows a small mode tag next to each name.
type ScoredSnippet struct {
	Snippet
	Score    int    `json:"score"`
	ModeName string `json:"modeName,omitempty"`
}
