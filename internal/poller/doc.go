// Package poller runs a health probe (or any action) on a repeating interval.
//
//	p := poller.New(logger)
//	p.Start(ctx, 20*time.Second, func(ctx context.Context) {
//	    _ = orchestrator.RunHealthCheck(ctx)
//	})
//	defer p.Stop()
//
// The action runs immediately on Start and then after each interval, which is
// never shorter than MinInterval. Errors are the action's own business; a
// panic is recovered and logged so the loop keeps going.
package poller
