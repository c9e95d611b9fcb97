// Package report records the outcome of a transfer: configuration,
// channel profile and the counters of both endpoints.
//
//	repo := report.NewFileRepository(dir)
//	rep := report.New(link.StreamID(), cfg.Engine, cfg.Channel)
//	// ... transfer ...
//	stats := link.Stats()
//	rep.Finish(stats.Sender, stats.Receiver, stats.Channel, link.Err())
//	if err := repo.Save(ctx, rep); err != nil {
//	    return err
//	}
//
// Reports are JSON with snake_case field names.
package report
