// Package combat implements the roll evaluator, outcome tables, and the
// per-combatant ledger for the Deckbound encounter engine.
package combat

import (
	"github.com/mverrilli/deckbound/internal/game/dice"
)

// Outcome is the 4-tier result of a single check.
type Outcome int

const (
	CritFailure Outcome = iota
	Failure
	Success
	CritSuccess
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case CritFailure:
		return "critical failure"
	case Failure:
		return "failure"
	case Success:
		return "success"
	case CritSuccess:
		return "critical success"
	default:
		return "unknown"
	}
}

// Succeeded reports whether the outcome counts as meeting the target.
func (o Outcome) Succeeded() bool {
	return o == Success || o == CritSuccess
}

// CheckResult holds the outcome of one roll-based check: attack, spell,
// reaction, or resource gather. All of them share this evaluator; only the
// target number and the success payload differ per caller.
type CheckResult struct {
	Roll    int // raw d20 result before modifiers
	Total   int // Roll + stat + situational modifiers
	Target  int // the number Total had to meet
	Outcome Outcome
}

// EvaluateCheck computes the check outcome for an already-drawn roll.
//
// A roll of exactly 1 is always a critical failure regardless of Total —
// no success branch can trigger. A roll of 20 is a critical success only
// when Total also meets the target; on-crit payloads key off that.
//
// Precondition: roll must be in [1, 20].
// Postcondition: Returns a fully populated CheckResult; pure, no side effects.
func EvaluateCheck(roll, stat, situational, target int) CheckResult {
	total := roll + stat + situational
	r := CheckResult{Roll: roll, Total: total, Target: target}
	switch {
	case roll == 1:
		r.Outcome = CritFailure
	case roll == 20 && total >= target:
		r.Outcome = CritSuccess
	case total >= target:
		r.Outcome = Success
	default:
		r.Outcome = Failure
	}
	return r
}

// RollCheck draws a fresh d20 from src and evaluates it.
//
// Precondition: src must be non-nil.
func RollCheck(src dice.Source, stat, situational, target int) CheckResult {
	return EvaluateCheck(dice.D20(src), stat, situational, target)
}
