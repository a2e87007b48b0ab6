package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/reactive"
	"github.com/kbukum/reactor/reactive/reactivetest"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		data    string
		wantErr string
	}{
		{"yaml", "config.yml", "name: svc\nengine:\n  concurrency: 4\n", ""},
		{"json", "config.json", `{"name": "svc", "engine": {"concurrency": 4}}`, ""},
		{"invalid after defaults", "config.yml", "name: svc\nengine:\n  concurrency: -3\n", "concurrency: must be between 1 and 65536"},
		{"malformed", "config.yml", "name: [svc\n", "INVALID_ARGUMENT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse[ServiceConfig](tc.path, []byte(tc.data))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Name != "svc" || cfg.Engine.Concurrency != 4 {
				t.Errorf("unexpected config: %+v", cfg)
			}
			if cfg.Environment != "development" {
				t.Errorf("expected defaults to be applied, got environment %q", cfg.Environment)
			}
		})
	}
}

func TestWatch_RequiresPath(t *testing.T) {
	rec := reactivetest.NewRecorder[[]byte]()
	Watch("").Subscribe(rec)
	if errors.CodeOf(rec.Err()) != errors.ErrCodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", rec.Err())
	}
	if !strings.Contains(rec.Err().Error(), "path: is required") {
		t.Errorf("expected the field in %q", rec.Err().Error())
	}
}

func TestParse_PlainStruct(t *testing.T) {
	type plain struct {
		Level string `mapstructure:"level"`
	}
	cfg, err := Parse[plain]("c.yaml", []byte("level: debug\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Level)
	}
}

func TestWatch_MissingFile(t *testing.T) {
	_, err := reactive.Collect(context.Background(), Watch(filepath.Join(t.TempDir(), "absent.yml")))
	if errors.CodeOf(err) != errors.ErrCodeSource {
		t.Errorf("expected SOURCE_ERROR, got %v", err)
	}
}

func TestWatchConfig_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("name: first\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var rejected []error
	rec := reactivetest.NewRecorder[*ServiceConfig]()
	WatchConfig[ServiceConfig](path).
		OnErrorContinue(func(err error, _ any) {
			mu.Lock()
			rejected = append(rejected, err)
			mu.Unlock()
		}).
		Subscribe(rec)
	defer rec.Cancel()

	if !rec.AwaitCount(1, 2*time.Second) {
		t.Fatal("expected the initial config")
	}
	if rec.Values()[0].Name != "first" {
		t.Errorf("expected initial name 'first', got %q", rec.Values()[0].Name)
	}

	if err := os.WriteFile(path, []byte("name: second\nengine:\n  concurrency: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(rejected)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the invalid version to be rejected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := os.WriteFile(path, []byte("name: third\n"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for {
		values := rec.Values()
		if len(values) > 0 && values[len(values)-1].Name == "third" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the third version, got %d values", len(values))
		}
		time.Sleep(5 * time.Millisecond)
	}

	for _, cfg := range rec.Values() {
		if cfg.Name == "second" {
			t.Error("the rejected version must not be delivered")
		}
	}
	if rec.Terminated() {
		t.Errorf("expected the watch to keep running, got %v", rec.Err())
	}
}
