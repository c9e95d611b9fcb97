// Package sink provides consumers for the payloads an arq.Engine
// delivers.
//
// Memory keeps payloads in a slice, Writer appends them to an io.Writer,
// and Bolt persists each payload in a bbolt database keyed by its
// delivery index so a stream survives restarts:
//
//	store, err := sink.OpenBolt("deliveries.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	link, err := linkarq.New(cfg, linkarq.WithConsumer(store))
//
// Deliver has no error return, so Bolt and Writer keep the first error
// and report it from Err.
package sink
