// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"slices"
)

// State is the lifecycle position of a Session.
type State int32

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Draining
	Stopped
	Failed
)

var stateNames = [...]string{
	Idle:     "idle",
	Loading:  "loading",
	Playing:  "playing",
	Paused:   "paused",
	Draining: "draining",
	Stopped:  "stopped",
	Failed:   "failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Stopped || s == Failed }

// transitions lists the legal targets of every non-terminal state. Playing and
// Paused reach Stopped directly only when the caller's context is cancelled.
var transitions = map[State][]State{
	Idle:     {Loading, Stopped, Failed},
	Loading:  {Playing, Stopped, Failed},
	Playing:  {Paused, Draining, Stopped, Failed},
	Paused:   {Playing, Draining, Stopped, Failed},
	Draining: {Stopped, Failed},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
