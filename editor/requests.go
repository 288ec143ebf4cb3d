package editor

// Ticket identifies one remote request. Tickets increase monotonically.
type Ticket uint64

// BeginRequest issues a ticket for a new remote request. Any ticket issued
// earlier becomes stale.
func (o *Orchestrator) BeginRequest() Ticket {
	o.latest++
	o.inFlight = true
	return Ticket(o.latest)
}

// IsLatest reports whether t is the most recent ticket.
func (o *Orchestrator) IsLatest(t Ticket) bool {
	return uint64(t) == o.latest
}

// EndRequest marks the request for t as finished. It reports false when t is
// stale, in which case the caller must discard the response.
func (o *Orchestrator) EndRequest(t Ticket) bool {
	if !o.IsLatest(t) {
		o.logger.Debug("stale response discarded", "ticket", uint64(t), "latest", o.latest)
		return false
	}
	o.inFlight = false
	return true
}

// Processing reports whether the latest request is still outstanding.
func (o *Orchestrator) Processing() bool {
	return o.inFlight
}
