package notesdk

import "time"

// Observer receives events from the renewal machinery. Implementations must
// be safe for concurrent use and must not block.
type Observer interface {
	// RenewalFinished is called once per renewal call with its outcome.
	RenewalFinished(err error, took time.Duration)

	// RenewalJoined is called when a failed request waits on a renewal that
	// another request already started.
	RenewalJoined()

	// RequestReplayed is called for every replay after renewal.
	RequestReplayed()

	// RequestRejected is called when a request fails terminally with an
	// authorization error.
	RequestRejected(reason error)
}

type nopObserver struct{}

func (nopObserver) RenewalFinished(error, time.Duration) {}
func (nopObserver) RenewalJoined()                       {}
func (nopObserver) RequestReplayed()                     {}
func (nopObserver) RequestRejected(error)                {}
