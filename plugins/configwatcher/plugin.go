// Package configwatcher reloads channel impairments while a link runs.
// It watches a TOML configuration file and overlays its [channel] table
// on the link's current impairments each time the file is written.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/linkarq"
	"github.com/bft-labs/linkarq/pkg/log"
)

// ErrNoPath is returned by Initialize when Config.Path is empty.
var ErrNoPath = errors.New("configwatcher: no config path")

// Plugin watches a configuration file and applies its [channel] table.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	applyOnStart  bool
	pinned        map[string]bool

	ctl      linkarq.ChannelController
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  atomic.Uint64
	failures atomic.Uint64
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	Path string

	// DebounceDelay is the quiet period after a change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// ApplyOnStart loads the file once when the link starts. Leave it
	// off when the starting profile already came from the file and was
	// overridden elsewhere.
	ApplyOnStart bool

	// Pinned lists [channel] keys ("loss", "latency", ...) that reloads
	// never change, typically those set by flags or the environment.
	Pinned map[string]bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		applyOnStart:  cfg.ApplyOnStart,
		pinned:        cfg.Pinned,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the directory that holds the file.
func (p *Plugin) Initialize(ctx context.Context, cfg linkarq.PluginConfig) error {
	if p.path == "" {
		return ErrNoPath
	}

	p.mu.Lock()
	p.ctl = cfg.Channel
	if cfg.Logger != nil {
		p.logger = log.With(cfg.Logger, log.String("plugin", p.Name()))
	}
	p.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	if p.applyOnStart {
		p.reload()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("watching config file", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns the number of successful reloads.
func (p *Plugin) Reloads() uint64 { return p.reloads.Load() }

// Failures returns the number of reloads rejected because the file
// could not be read or held an invalid [channel] table.
func (p *Plugin) Failures() uint64 { return p.failures.Load() }

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload overlays the [channel] table on the current impairments. Keys
// missing from the table or pinned keep their value. A file that fails
// to parse or validate leaves the current impairments in place.
func (p *Plugin) reload() {
	p.mu.Lock()
	ctl := p.ctl
	p.mu.Unlock()

	table, err := channel.ReadImpairmentsFile(p.path)
	if err != nil {
		p.failures.Add(1)
		p.logger.Warn("ignoring config change", log.String("path", p.path), log.Err(err))
		return
	}
	current := ctl.Impairments()
	imp, err := table.Without(p.pinned).Apply(current)
	if err != nil {
		p.failures.Add(1)
		p.logger.Warn("ignoring config change", log.String("path", p.path), log.Err(err))
		return
	}
	if imp == current {
		return
	}
	if err := ctl.SetImpairments(imp); err != nil {
		p.failures.Add(1)
		p.logger.Warn("failed to apply channel impairments", log.Err(err))
		return
	}
	p.reloads.Add(1)
	p.logger.Info("channel impairments reloaded", log.String("path", p.path))
}

// Ensure Plugin implements linkarq.Plugin.
var _ linkarq.Plugin = (*Plugin)(nil)
