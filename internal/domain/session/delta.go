package session

import (
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// Delta is the whole-step partial update produced by one controller stage.
// Nil and zero fields leave the record unchanged.
type Delta struct {
	State       State           // next controller state, always required
	Schema      *schema.Catalog // attached once, when leaving init
	Candidate   *string         // statement produced by a generation step
	Outcome     *Outcome        // result of the latest external call
	Failure     *Failure        // classified failure of the current attempt
	NextAttempt bool            // the current cycle completed as a failure
	Status      Status          // terminal status, empty keeps the current one
	At          time.Time
}

// Transition is one audited state change
type Transition struct {
	From    State     `json:"from"`
	To      State     `json:"to"`
	Attempt int       `json:"attempt"`
	At      time.Time `json:"at"`
}
