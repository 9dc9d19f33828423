// Package model defines the data structures shared by every picker surface.
package model

// Persisted store keys. Every surface reads and writes these same keys, so
// they are the contract between the popup, the overlay and the panel.
const (
	KeySnippets           = "prompts"
	KeyModes              = "modes"
	KeyCurrentMode        = "currentMode"
	KeyPermissionPrompted = "pastePermissionPrompted"
)

// DefaultModeID is the reserved id of the mode that exists before the user
// creates any. Snippets without a modeId belong to it.
const DefaultModeID = "default"

// DefaultModeName is the display name used when the store holds no modes yet.
const DefaultModeName = "Default"

// Mode is a named group of snippets. Exactly one mode is current at a time.
//
// WHY IS Mode STORED TWICE?
// The list under "modes" owns ordering; "currentMode" holds a full copy of
// the active mode (not just its id) because that is what older surfaces
// persisted. Renaming the current mode must therefore update both copies.
type Mode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultMode returns the implicit mode used when nothing is stored.
func DefaultMode() Mode {
	return Mode{ID: DefaultModeID, Name: DefaultModeName}
}
