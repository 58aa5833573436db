package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `
start_type = "command"
start_command = "foot"

[tiling]
inner_gap = 4

[input]
modifier = "alt"
menu_bar_height = 28
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StartType != START_SINGLE_COMMAND || cfg.StartCommand == nil || *cfg.StartCommand != "foot" {
		t.Errorf("start settings not read: %v %v", cfg.StartType, cfg.StartCommand)
	}
	if cfg.Tiling.InnerGap != 4 {
		t.Errorf("inner gap %d, want 4", cfg.Tiling.InnerGap)
	}
	if cfg.Tiling.OuterGap != 10 || cfg.Tiling.MasterRatio != 0.6 {
		t.Errorf("tiling defaults lost: %+v", cfg.Tiling)
	}
	if cfg.Input.Modifier != "alt" || cfg.Input.MenuBarHeight != 28 || cfg.Input.RepeatRate != 25 {
		t.Errorf("unexpected input config %+v", cfg.Input)
	}
	if cfg.Overview != Default().Overview {
		t.Errorf("overview defaults lost: %+v", cfg.Overview)
	}
	if !cfg.Ipc.Enabled {
		t.Error("ipc default lost")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[tiling]
master_ratio = 1.5
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a master ratio above 1")
	}

	path = writeConfig(t, `start_type = "command"`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a command start without command")
	}

	path = writeConfig(t, `start_type = "sideways"`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unknown start type")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not exist error, got %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults don't validate: %v", err)
	}
}
