package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			want    Config
		}{
			{"empty file", "", *Default()},
			{"comment only", "# nothing\n", *Default()},
			{
				"all keys",
				"root: /srv/data\nlog_level: debug\nsync: true\nimport_rate: 250\n",
				Config{Root: "/srv/data", LogLevel: "debug", Sync: true, ImportRate: 250},
			},
			{
				"partial keeps defaults",
				"sync: true\n",
				Config{Root: "~/.filedb", LogLevel: "info", Sync: true},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg, err := Load(writeConfig(t, tt.content))
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if *cfg != tt.want {
					t.Errorf("Load = %+v, want %+v", *cfg, tt.want)
				}
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if *cfg != *Default() {
			t.Errorf("Load = %+v", *cfg)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			wantErr string
		}{
			{"unknown key", "roots: /x\n", "roots"},
			{"bad level", "log_level: loud\n", "log_level"},
			{"negative rate", "import_rate: -1\n", "import_rate"},
			{"not yaml", "root: [\n", "failed to parse"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load(writeConfig(t, tt.content))
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Load = %v, want error containing %q", err, tt.wantErr)
				}
			})
		}
	})
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := (&Config{LogLevel: tt.in}).Level()
			if err != nil || got != tt.want {
				t.Errorf("Level(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestExpandRoot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	tests := []struct {
		root string
		want string
	}{
		{"", filepath.Join(home, ".filedb")},
		{"~", home},
		{"~/data/x", filepath.Join(home, "data", "x")},
		{"/abs", "/abs"},
		{"rel/dir", "rel/dir"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			got, err := (&Config{Root: tt.root}).ExpandRoot()
			if err != nil || got != tt.want {
				t.Errorf("ExpandRoot(%q) = %q, %v; want %q", tt.root, got, err, tt.want)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatal(err)
	}
	var s struct {
		Title      string                    `json:"title"`
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if s.Title != "filedb configuration" {
		t.Errorf("title = %q", s.Title)
	}
	for _, key := range []string{"root", "log_level", "sync", "import_rate"} {
		if _, ok := s.Properties[key]; !ok {
			t.Errorf("schema lacks property %q", key)
		}
	}
	if d, _ := s.Properties["sync"]["description"].(string); d == "" {
		t.Error("sync has no description")
	}
}
