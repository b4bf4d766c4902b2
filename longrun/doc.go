// Package longrun manages long-running requests: a request is registered,
// processed in stages on a bounded worker pool, and its result is delivered
// back only while the originating client still counts as connected.
//
// The registry entry for a request doubles as its liveness flag. Workers poll
// it at stage boundaries (cooperative cancellation), and whichever side gives
// up first removes it: the worker on completion, or the dispatcher when the
// client disconnects or the wait times out. Removal is idempotent, so the
// entry is released exactly once on every path.
//
// Typical wiring:
//
//	d := longrun.New(longrun.Config{Workers: 10, StageDelay: 10 * time.Second})
//	d.Start(ctx)
//	defer d.Stop(shutdownCtx)
//
//	id, res, err := d.Dispatch(r.Context())
//	switch res := res.(type) {
//	case longrun.Final:
//		// 200 with res.Payload
//	case longrun.Failure:
//		// 500 with res.Message
//	}
package longrun
