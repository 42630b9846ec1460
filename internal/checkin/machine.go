package checkin

import (
	dErrors "kidgate/pkg/errors"
)

// transitions is the full legal state table. Anything absent is illegal;
// completed has no outgoing edges.
var transitions = map[Status]map[Action]Status{
	StatusActive: {
		ActionRaiseAlert: StatusAlert,
		ActionCheckOut:   StatusCompleted,
	},
	StatusAlert: {
		ActionResolveAlert: StatusActive,
		ActionCheckOut:     StatusCompleted,
	},
}

// Next computes the state an action leads to. changed=false with a nil error
// is the idempotent case: raising an alert that is already raised is a no-op,
// tolerating duplicate leader taps. Illegal transitions, notably anything on a
// completed record, return an invalid-transition error that callers must
// surface, never swallow.
func Next(from Status, action Action) (to Status, changed bool, err error) {
	if action == ActionRaiseAlert && from == StatusAlert {
		return StatusAlert, false, nil
	}
	to, ok := transitions[from][action]
	if !ok {
		return from, false, dErrors.New(dErrors.CodeInvalidTransition,
			"cannot "+string(action)+" a "+string(from)+" check-in")
	}
	return to, true, nil
}
