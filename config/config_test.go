package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		wantOK bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero quorum", func(c *Config) { c.Engine.Quorum = 0 }, false},
		{"negative deadline option", func(c *Config) { c.Engine.DeadlineDays = []int{7, -1} }, false},
		{"empty deadline set accepts any", func(c *Config) { c.Engine.DeadlineDays = nil }, true},
		{"inverted rating bounds", func(c *Config) { c.Engine.RatingMin = 5; c.Engine.RatingMax = 1 }, false},
		{"missing http addr", func(c *Config) { c.HTTP.Addr = "" }, false},
		{"missing directory path", func(c *Config) { c.Directory.Path = "" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate() error = %v, wantOK %v", err, tt.wantOK)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `engine:
  quorum: 3
http:
  addr: ":9000"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Engine.Quorum != 3 {
		t.Errorf("quorum = %d, want 3", cfg.Engine.Quorum)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("addr = %q, want :9000", cfg.HTTP.Addr)
	}
	// Unset fields keep their defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q, want default", cfg.NATS.URL)
	}
	if len(cfg.Engine.DeadlineDays) == 0 {
		t.Error("deadline set should keep the defaults")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile() with missing file should fail")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Engine: EngineConfig{Quorum: 4, DeadlineDays: []int{10, 20}},
		HTTP:   HTTPConfig{Addr: ":7000"},
	})

	if base.Engine.Quorum != 4 {
		t.Errorf("quorum = %d, want 4", base.Engine.Quorum)
	}
	if len(base.Engine.DeadlineDays) != 2 || base.Engine.DeadlineDays[0] != 10 {
		t.Errorf("deadline days = %v, want [10 20]", base.Engine.DeadlineDays)
	}
	if base.HTTP.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000", base.HTTP.Addr)
	}
	// Zero values in the overlay leave the base untouched.
	if base.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q, want untouched default", base.NATS.URL)
	}
	if base.Engine.RatingMax != 5 {
		t.Errorf("rating max = %d, want untouched default", base.Engine.RatingMax)
	}

	base.Merge(nil)
	if base.Engine.Quorum != 4 {
		t.Error("Merge(nil) changed the config")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine.Quorum = 3
	cfg.Directory.Path = "/etc/reviewflow/directory.yaml"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Engine.Quorum != 3 {
		t.Errorf("quorum = %d, want 3", loaded.Engine.Quorum)
	}
	if loaded.Directory.Path != "/etc/reviewflow/directory.yaml" {
		t.Errorf("directory path = %q, want round-tripped value", loaded.Directory.Path)
	}
}
