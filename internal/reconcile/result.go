package reconcile

import (
	"encoding/json"
	"errors"
	"time"

	"kasir-sync/internal/models"
)

type Phase string

const (
	PhasePush Phase = "push"
	PhasePull Phase = "pull"
)

// Outcome is ordered from best to worst so a pass can report its worst phase.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSynced
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSynced:
		return "synced"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

// PhaseResult describes one push or pull of one kind.
type PhaseResult struct {
	Kind    models.Kind
	Phase   Phase
	Outcome Outcome
	Sent    int // records pushed
	Acked   int // pushed records the server acknowledged
	Kept    int // acknowledged records left dirty because they changed mid-push
	Pulled  int
	Err     error
}

func (p PhaseResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    models.Kind `json:"kind"`
		Phase   Phase       `json:"phase"`
		Outcome Outcome     `json:"outcome"`
		Sent    int         `json:"sent,omitempty"`
		Acked   int         `json:"acked,omitempty"`
		Kept    int         `json:"kept,omitempty"`
		Pulled  int         `json:"pulled,omitempty"`
		Error   string      `json:"error,omitempty"`
	}{p.Kind, p.Phase, p.Outcome, p.Sent, p.Acked, p.Kept, p.Pulled, ""}
	if p.Err != nil {
		out.Error = p.Err.Error()
	}
	return json.Marshal(out)
}

// Result is the typed report of one reconciliation pass.
type Result struct {
	PassID   string        `json:"pass_id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Phases   []PhaseResult `json:"phases"`
}

// Outcome is the worst outcome of any phase; an empty pass is skipped.
func (r Result) Outcome() Outcome {
	worst := OutcomeSkipped
	for _, p := range r.Phases {
		if p.Outcome > worst {
			worst = p.Outcome
		}
	}
	return worst
}

func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Outcome Outcome `json:"outcome"`
	}{plain(r), r.Outcome()})
}

// OK reports whether nothing in the pass failed.
func (r Result) OK() bool { return r.Outcome() <= OutcomeSynced }

// Err joins the errors of every failed phase.
func (r Result) Err() error {
	var errs []error
	for _, p := range r.Phases {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}

// Phase returns the result for kind and phase, if that phase ran.
func (r Result) Phase(kind models.Kind, phase Phase) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Kind == kind && p.Phase == phase {
			return p, true
		}
	}
	return PhaseResult{}, false
}
