// Package progress defines the job runtime's progress events and an
// optional NATS JetStream fan-out for external dashboards.
package progress

// Event is emitted by a partitioned writer between its temp-write and the
// sealing rename; the listener (job runtime + checkpoint store) decides
// whether to accept it.
type Event struct {
	Task       string
	Start      uint64
	Checkpoint uint64
	Len        int
	Cut        uint64
	End        uint64
}

// Listener is the fallible callback invoked before a partition seals: it
// may veto an advance by returning false, aborting the task cleanly before
// seal.
type Listener func(Event) bool
