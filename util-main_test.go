package main

import (
	"strings"
	"testing"

	"github.com/mstarongithub/strata/ipc"
)

func TestPrintModesMarksPreferred(t *testing.T) {
	var b strings.Builder
	printModes(&b, "DP-1", []ipc.OutputMode{
		{Width: 2560, Height: 1440, RefreshRate: 144000, Preferred: true},
		{Width: 1920, Height: 1080, RefreshRate: 60000},
	})
	want := "Modes for output DP-1:\n" +
		"\t- 2560x1440@144.000Hz (preferred)\n" +
		"\t- 1920x1080@60.000Hz\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestPrintModesWithoutModes(t *testing.T) {
	var b strings.Builder
	printModes(&b, "WL-1", nil)
	if !strings.Contains(b.String(), "any size") {
		t.Errorf("nested outputs should say they take any size, got %q", b.String())
	}
}

func TestPrintWindowsMarksFocused(t *testing.T) {
	var b strings.Builder
	printWindows(&b, ipc.WindowsResponse{Windows: []ipc.WindowInfo{
		{ID: 1, Title: "shell", AppID: "foot", Box: ipc.Box{Width: 800, Height: 600}, State: "mapped", Focused: true},
		{ID: 2, Title: "web", AppID: "firefox", Box: ipc.Box{X: 10, Y: 20, Width: 400, Height: 300}, State: "mapped|minimized"},
	}})
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", b.String())
	}
	if !strings.HasPrefix(lines[0], "* 1\tfoot") {
		t.Errorf("focused window not marked: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  2\tfirefox") || !strings.HasSuffix(lines[1], "mapped|minimized") {
		t.Errorf("unexpected line %q", lines[1])
	}
}

func TestPrintOutputs(t *testing.T) {
	var b strings.Builder
	printOutputs(&b, ipc.OutputResponse{Outputs: []ipc.OutputInfo{
		{Name: "DP-1", Enabled: true, Width: 1920, Height: 1080},
		{Name: "HDMI-A-1", X: 1920, Width: 1280, Height: 720},
	}})
	want := "Output 0: DP-1 (enabled) 1920x1080 at 0,0\n" +
		"Output 1: HDMI-A-1 (disabled) 1280x720 at 1920,0\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}
