package controller

import "github.com/briarwatch/meetingcap/internal/fsm"

// Controller phases.
const (
	StateIdle      fsm.State = "IDLE"
	StateBusy      fsm.State = "BUSY"
	StateRecording fsm.State = "RECORDING"
)

const (
	eventBeginStart    fsm.Event = "begin_start"
	eventStartSucceeded fsm.Event = "start_succeeded"
	eventStartFailed    fsm.Event = "start_failed"
	eventBeginStop      fsm.Event = "begin_stop"
	eventStopDone       fsm.Event = "stop_done"
)

// table encodes the IDLE<->BUSY<->RECORDING lifecycle. BUSY is reached from
// both directions; distinct events for each exit keep the table
// deterministic despite BUSY being a single shared state.
var table = fsm.Table{
	StateIdle: {
		eventBeginStart: StateBusy,
	},
	StateBusy: {
		eventStartSucceeded: StateRecording,
		eventStartFailed:    StateIdle,
		eventStopDone:       StateIdle,
	},
	StateRecording: {
		eventBeginStop: StateBusy,
	},
}
