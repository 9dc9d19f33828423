package picker

// Action is what a key press asks the picker to do.
type Action int

const (
	ActionNone Action = iota
	ActionPrev
	ActionNext
	ActionConfirm
	ActionHide
	ActionModeNext
	ActionModePrev
)

func (a Action) String() string {
	switch a {
	case ActionPrev:
		return "prev"
	case ActionNext:
		return "next"
	case ActionConfirm:
		return "confirm"
	case ActionHide:
		return "hide"
	case ActionModeNext:
		return "mode_next"
	case ActionModePrev:
		return "mode_prev"
	}
	return "none"
}

// Key is a key press as the surface reports it. Name uses DOM key names
// ("ArrowUp", "Enter", "Escape", "Tab", "c", "?").
type Key struct {
	Name  string
	Shift bool
	Ctrl  bool
	Meta  bool
}

// Keymap turns key presses into actions.
type Keymap func(Key) Action

// OverlayKeys is the in-page overlay: the user is still typing into the
// host page's field, so only keys that make no sense as text are taken,
// plus w/s for one-handed navigation.
func OverlayKeys(k Key) Action {
	if k.Ctrl || k.Meta {
		return ActionNone
	}
	switch k.Name {
	case "ArrowUp", "w", "W":
		return ActionPrev
	case "ArrowDown", "s", "S", "Tab":
		return ActionNext
	case "Enter":
		return ActionConfirm
	case "Escape", "?":
		return ActionHide
	}
	return ActionNone
}

// PanelKeys is the focused list of a popup or desktop panel. Tab switches
// modes there instead of moving the selection.
func PanelKeys(k Key) Action {
	if k.Ctrl || k.Meta {
		return ActionNone
	}
	switch k.Name {
	case "ArrowUp", "ArrowLeft":
		return ActionPrev
	case "ArrowDown", "ArrowRight":
		return ActionNext
	case "Enter":
		return ActionConfirm
	case "Escape":
		return ActionHide
	case "Tab":
		if k.Shift {
			return ActionModePrev
		}
		return ActionModeNext
	}
	return ActionNone
}
