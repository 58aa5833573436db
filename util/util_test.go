package util

import "testing"

func TestUnpack(t *testing.T) {
	var a, b, c string
	Unpack([]string{"run", "foot"}, &a, &b, &c)
	if a != "run" || b != "foot" || c != "" {
		t.Errorf("got %q %q %q", a, b, c)
	}

	a, b = "keep", "keep"
	Unpack([]string{"x", "y", "z"}, &a, &b)
	if a != "x" || b != "y" {
		t.Errorf("extra elements not ignored: %q %q", a, b)
	}

	Unpack(nil, &a)
	if a != "x" {
		t.Errorf("empty slice modified target: %q", a)
	}
}
