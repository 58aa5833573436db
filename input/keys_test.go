package input

import "testing"

func TestParseModifier(t *testing.T) {
	tests := []struct {
		in   string
		want Modifier
		err  bool
	}{
		{in: "logo", want: ModLogo},
		{in: "Super", want: ModLogo},
		{in: "ctrl+alt", want: ModCtrl | ModAlt},
		{in: " shift + logo ", want: ModShift | ModLogo},
		{in: "hyper", err: true},
	}
	for _, tt := range tests {
		got, err := ParseModifier(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if s := (ModCtrl | ModLogo).String(); s != "ctrl+logo" {
		t.Errorf("String gave %q", s)
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("toggle-overview")
	if !ok || a != ActionToggleOverview {
		t.Errorf("got %v, %v", a, ok)
	}
	if _, ok := ParseAction("none"); ok {
		t.Error("none is not a requestable action")
	}
	if _, ok := ParseAction("launch-rockets"); ok {
		t.Error("unknown action accepted")
	}
}

func TestLookupHonoursShift(t *testing.T) {
	bindings := DefaultBindings(ModAlt)
	if b, ok := Lookup(bindings, ModAlt, KeyUp); !ok || b.Action != ActionMaximize {
		t.Errorf("alt+up gave %v", b.Action)
	}
	if b, ok := Lookup(bindings, ModAlt|ModShift, KeyUp); !ok || b.Action != ActionRestoreAll {
		t.Errorf("alt+shift+up gave %v", b.Action)
	}
}
