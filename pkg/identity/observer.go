package identity

import "time"

// Observer receives provider events, typically to record metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	// CacheLookup is called once per GetAuthToken with whether a usable
	// cached token was found.
	CacheLookup(hit bool)

	// FlowCompleted is called when a web flow finishes. errCode is empty on
	// success, otherwise the Error code that rejected the flow.
	FlowCompleted(grant ResponseType, errCode string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) CacheLookup(bool) {}
func (nopObserver) FlowCompleted(ResponseType, string, time.Duration) {}
