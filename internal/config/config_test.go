package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetFileFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	if err := os.WriteFile(path, []byte("  from-file \n"), 0600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("CHARTS_TEST_SECRET", "")
	t.Setenv("CHARTS_TEST_SECRET_FILE", path)

	if got := Get("CHARTS_TEST_SECRET", "def"); got != "from-file" {
		t.Errorf("Get() = %q, want %q", got, "from-file")
	}
}

func TestGetList(t *testing.T) {
	t.Setenv("CHARTS_TEST_LIST", " /a, ,/b ,")
	got := GetList("CHARTS_TEST_LIST")
	if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
		t.Errorf("GetList() = %v", got)
	}
}

func TestWithPrefix(t *testing.T) {
	t.Setenv("CHARTS_TEST_THEME_OCEAN", `{"background_color":"#000"}`)
	t.Setenv("CHARTS_TEST_THEME_", "ignored")

	got := WithPrefix("CHARTS_TEST_THEME_")
	if len(got) != 1 {
		t.Fatalf("WithPrefix() returned %d entries, want 1: %v", len(got), got)
	}
	if got["OCEAN"] == "" {
		t.Errorf("expected OCEAN entry, got %v", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2d", 48 * time.Hour},
		{" 1H ", time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewBasicConfig(t *testing.T) {
	t.Run("defaults from embedded files", func(t *testing.T) {
		t.Setenv("PORT", "")
		c, err := NewAppConfig("dev")
		if err != nil {
			t.Fatalf("NewAppConfig: %v", err)
		}
		basic, err := NewBasicConfig(c)
		if err != nil {
			t.Fatalf("NewBasicConfig: %v", err)
		}
		if basic.Listen != "127.0.0.1:5000" {
			t.Errorf("Listen = %q", basic.Listen)
		}
		if basic.RequestLimit != 5000 {
			t.Errorf("RequestLimit = %d", basic.RequestLimit)
		}
		if basic.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v", basic.Timeout)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("BASIC_LISTEN", "0.0.0.0:7000")
		t.Setenv("BASIC_TIMEOUT", "5s")
		c, err := NewAppConfig("production")
		if err != nil {
			t.Fatalf("NewAppConfig: %v", err)
		}
		basic, err := NewBasicConfig(c)
		if err != nil {
			t.Fatalf("NewBasicConfig: %v", err)
		}
		if basic.Listen != "0.0.0.0:7000" {
			t.Errorf("Listen = %q", basic.Listen)
		}
		if basic.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v", basic.Timeout)
		}
	})

	t.Run("empty listen is rejected", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("BASIC_LISTEN", "")
		c, err := NewAppConfig("dev")
		if err != nil {
			t.Fatalf("NewAppConfig: %v", err)
		}
		if _, err := NewBasicConfig(c); err == nil {
			t.Error("expected validation error for empty listen")
		}
	})
}

func TestNewDatabaseConfig(t *testing.T) {
	t.Setenv("DB_TYPE", "mysql")
	c, err := NewAppConfig("dev")
	if err != nil {
		t.Fatalf("NewAppConfig: %v", err)
	}
	if _, err := NewDatabaseConfig(c); err == nil {
		t.Error("expected error for unsupported DB_TYPE")
	}

	t.Setenv("DB_TYPE", "")
	db, err := NewDatabaseConfig(c)
	if err != nil {
		t.Fatalf("NewDatabaseConfig: %v", err)
	}
	if db.Type != "none" {
		t.Errorf("Type = %q, want none for dev", db.Type)
	}
}
