package future

// Policy selects where and when a continuation registered with Then runs
// relative to its source future's fulfillment.
type Policy int

const (
	// Async runs the continuation on a fresh goroutine. It is never run
	// synchronously on the caller's goroutine, even when the source is
	// already ready at registration time.
	Async Policy = iota
	// Deferred postpones the continuation until Wait or Get is called on
	// the returned future; it then runs on that caller's goroutine.
	Deferred
	// Sync runs the continuation inline on the goroutine that fulfills the
	// source future, before blocked waiters are released. Anything that
	// goroutine does next is delayed by the continuation's duration.
	Sync
	// Inherit runs the continuation on the source future's executor when
	// one is attached, and as Async otherwise.
	Inherit
	// Any lets the implementation choose: Sync when the source is already
	// ready at registration time, Async otherwise.
	Any
	// None is an alias for Any.
	None = Any
)

func (p Policy) String() string {
	switch p {
	case Async:
		return "async"
	case Deferred:
		return "deferred"
	case Sync:
		return "sync"
	case Inherit:
		return "inherit"
	case Any:
		return "any"
	default:
		return "unknown"
	}
}
