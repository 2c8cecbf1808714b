package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Backend != "mesh" || c.Codec != "json" || c.Edge != "wrap" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Rocks != 8 || c.SnapshotHz != 12 || c.InputHz != 15 {
		t.Fatalf("unexpected default rates: %+v", c)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_BACKEND", "relay")
	t.Setenv("ARENA_CODEC", "msgpack")
	t.Setenv("ARENA_ROCKS", "3")
	t.Setenv("ARENA_ROOM", "ABC234")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Backend != "relay" || c.Codec != "msgpack" || c.Rocks != 3 || c.Room != "ABC234" {
		t.Fatalf("overrides not applied: %+v", c)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("ARENA_ROCKS", "many")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for non-numeric ARENA_ROCKS")
	}
	t.Setenv("ARENA_ROCKS", "4")
	t.Setenv("ARENA_EDGE", "bounce")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for unknown edge policy")
	}
}

func TestInitConfigLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ARENA_TEST_ONLY=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("ARENA_TEST_ONLY") })

	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	v, err := GetEnvVariable("ARENA_TEST_ONLY")
	if err != nil || v != "loaded" {
		t.Fatalf("GetEnvVariable = %q, %v", v, err)
	}
}

func TestInitConfigMissingFileIsNotAnError(t *testing.T) {
	if err := InitConfig(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("InitConfig on missing file: %v", err)
	}
}

func TestGetEnvVariableEmptyName(t *testing.T) {
	if _, err := GetEnvVariable(""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
