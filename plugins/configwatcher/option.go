package configwatcher

import "github.com/bft-labs/linkarq/pkg/linkarq"

// WithConfigWatcher returns a linkarq Option that reloads the [channel]
// table of a TOML file whenever it changes.
//
// Usage:
//
//	link, err := linkarq.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/linkarq/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) linkarq.Option {
	return linkarq.WithPlugin(New(cfg))
}
