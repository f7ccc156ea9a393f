package events

// Event enumerates high-level topics inside the trading core.
type Event string

const (
	EventBar            Event = "market.bar"
	EventSignalAccepted Event = "signal.accepted"
	EventSignalRejected Event = "signal.rejected"
	EventSignalDropped  Event = "signal.dropped"
	EventOrderSubmitted Event = "order.submitted"
	EventOrderFilled    Event = "order.filled"
	EventOrderFailed    Event = "order.failed"
	EventPositionOpened Event = "position.opened"
	EventPositionClosed Event = "position.closed"
	EventRiskAlert      Event = "risk.alert"
	EventStateChanged   Event = "state.changed"
)
