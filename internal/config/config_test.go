package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localhtml.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Migration, Defaults().Migration) || cfg.Log.Level != "warn" || cfg.Store.Path != "" || cfg.Document.IDs != IDsRandom {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
document:
  name_field: characterName
  info_url: https://example.com/help
  disabled_widgets: [browser, stopwatch]
migration:
  rules: rules.yaml
  cache_ttl: 30s
log:
  level: debug
  format: json
`)
	t.Setenv("LOCALHTML_STORE_PATH", "/tmp/history.db")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Document.NameField != "characterName" || !reflect.DeepEqual(cfg.Document.DisabledWidgets, []string{"browser", "stopwatch"}) {
		t.Fatalf("unexpected document config %+v", cfg.Document)
	}
	if cfg.Migration.Rules != "rules.yaml" || cfg.Migration.CacheTTL != 30*time.Second || cfg.Migration.ScriptTimeout != 5*time.Second {
		t.Fatalf("unexpected migration config %+v", cfg.Migration)
	}
	if cfg.Store.Path != "/tmp/history.db" {
		t.Fatalf("environment override ignored: %q", cfg.Store.Path)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected level %v", cfg.Log.SlogLevel())
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Migration.Rules = "rules.yaml"
	cfg.Migration.Script = "migrate.js"
	cfg.Log.Level = "loud"
	cfg.Document.IDs = "serial"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"mutually exclusive", "log.level", "document.ids"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
