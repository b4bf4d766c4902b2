package longrun

import "errors"

var (
	// ErrDuplicateID is returned by Registry.Create for an id already registered.
	ErrDuplicateID = errors.New("longrun: request id already registered")
	// ErrPoolFull is returned by Pool.Submit when the queue is saturated.
	ErrPoolFull = errors.New("longrun: worker pool queue is full")
	// ErrPoolClosed is returned by Pool.Submit after Stop.
	ErrPoolClosed = errors.New("longrun: worker pool is closed")
	// ErrPoolNotStarted is returned by Pool.Submit before Start.
	ErrPoolNotStarted = errors.New("longrun: worker pool not started")
	// ErrClientGone is returned by Dispatch when the caller's context ends
	// before a result arrives.
	ErrClientGone = errors.New("longrun: client disconnected")
	// ErrWaitTimeout is returned by Dispatch when no result arrives in time.
	ErrWaitTimeout = errors.New("longrun: timed out waiting for result")
)
