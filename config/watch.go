package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/zoobzio/capitan"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/reactive"
	"github.com/kbukum/reactor/validation"
)

// Reload signals, emitted on the default capitan instance.
var (
	ReloadReceived = capitan.NewSignal("reactor.config.reload.received", "Config file changed")
	ReloadRejected = capitan.NewSignal("reactor.config.reload.rejected", "Changed config failed to parse or validate")
	ReloadApplied  = capitan.NewSignal("reactor.config.reload.applied", "Changed config accepted")
)

// Reload signal fields.
var (
	KeyPath  = capitan.NewStringKey("path")
	KeyError = capitan.NewStringKey("error")
)

// Validatable is implemented by config structs; ServiceConfig and anything
// embedding it qualify.
type Validatable interface {
	ApplyDefaults()
	Validate() error
}

// Watch emits the contents of the file at path once on subscription and
// again after every write. The watcher is closed when the subscription ends.
func Watch(path string) *reactive.Flux[[]byte] {
	return reactive.Defer(func() reactive.Publisher[[]byte] {
		if err := validation.Required("path", path); err != nil {
			return reactive.Error[[]byte](err)
		}
		ch, stop, err := watchFile(path)
		if err != nil {
			return reactive.Error[[]byte](err)
		}
		return reactive.FromChannel(ch).DoFinally(func(reactive.SignalType) { stop() })
	})
}

func watchFile(path string) (<-chan []byte, func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, errors.Source(fmt.Errorf("creating fsnotify watcher: %w", err))
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, nil, errors.Source(fmt.Errorf("watching %s: %w", path, err))
	}

	out := make(chan []byte)
	done := make(chan struct{})
	send := func(data []byte) bool {
		select {
		case out <- data:
			return true
		case <-done:
			return false
		}
	}

	go func() {
		defer close(out)
		defer watcher.Close()

		if data, err := os.ReadFile(path); err == nil && !send(data) {
			return
		}
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				if !send(data) {
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, sync.OnceFunc(func() { close(done) }), nil
}

// WatchConfig decodes every version of the file at path into a fresh C,
// applying defaults and validation. A version that fails is delivered as an
// element-level error, so a downstream OnErrorContinue skips it and keeps
// watching:
//
//	config.WatchConfig[config.ServiceConfig](path).
//	    OnErrorContinue(func(err error, _ any) { log.Warn(err.Error()) })
func WatchConfig[C any](path string) *reactive.Flux[*C] {
	return reactive.Map(Watch(path), func(ctx context.Context, data []byte) (*C, error) {
		capitan.Emit(ctx, ReloadReceived, KeyPath.Field(path))
		cfg, err := Parse[C](path, data)
		if err != nil {
			capitan.Emit(ctx, ReloadRejected, KeyPath.Field(path), KeyError.Field(err.Error()))
			return nil, err
		}
		capitan.Emit(ctx, ReloadApplied, KeyPath.Field(path))
		return cfg, nil
	})
}

// Parse decodes data, in the format implied by path's extension, into a new
// C. When *C implements Validatable, defaults are applied and the result is
// validated.
func Parse[C any](path string, data []byte) (*C, error) {
	v := viper.New()
	v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.InvalidArgument("config", err.Error())
	}
	cfg := new(C)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.InvalidArgument("config", err.Error())
	}
	if val, ok := any(cfg).(Validatable); ok {
		val.ApplyDefaults()
		if err := val.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
