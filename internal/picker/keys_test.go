package picker

import "testing"

func TestOverlayKeys(t *testing.T) {
	tests := []struct {
		key  Key
		want Action
	}{
		{Key{Name: "ArrowUp"}, ActionPrev},
		{Key{Name: "w"}, ActionPrev},
		{Key{Name: "W", Shift: true}, ActionPrev},
		{Key{Name: "ArrowDown"}, ActionNext},
		{Key{Name: "s"}, ActionNext},
		{Key{Name: "S", Shift: true}, ActionNext},
		{Key{Name: "Tab"}, ActionNext},
		{Key{Name: "Enter"}, ActionConfirm},
		{Key{Name: "Escape"}, ActionHide},
		{Key{Name: "?"}, ActionHide},
		{Key{Name: "ArrowLeft"}, ActionNone},
		{Key{Name: "a"}, ActionNone},
		{Key{Name: "s", Ctrl: true}, ActionNone},
		{Key{Name: "w", Meta: true}, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.key.Name, func(t *testing.T) {
			if got := OverlayKeys(tt.key); got != tt.want {
				t.Errorf("OverlayKeys(%+v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestPanelKeys(t *testing.T) {
	tests := []struct {
		key  Key
		want Action
	}{
		{Key{Name: "ArrowUp"}, ActionPrev},
		{Key{Name: "ArrowLeft"}, ActionPrev},
		{Key{Name: "ArrowDown"}, ActionNext},
		{Key{Name: "ArrowRight"}, ActionNext},
		{Key{Name: "Enter"}, ActionConfirm},
		{Key{Name: "Escape"}, ActionHide},
		{Key{Name: "Tab"}, ActionModeNext},
		{Key{Name: "Tab", Shift: true}, ActionModePrev},
		// Letters belong to the search box on a panel.
		{Key{Name: "w"}, ActionNone},
		{Key{Name: "s"}, ActionNone},
		{Key{Name: "?"}, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.key.Name, func(t *testing.T) {
			if got := PanelKeys(tt.key); got != tt.want {
				t.Errorf("PanelKeys(%+v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
