package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// State is the phase an operation has reached.
type State string

const (
	StateIdle               State = "idle"
	StateNumberGenerated    State = "number_generated"
	StateHeaderInserted     State = "header_inserted"
	StateItemsInserted      State = "items_inserted"
	StateSideEffectsApplied State = "side_effects_applied"
	StateMovementsReversed  State = "movements_reversed"
	StateHeaderUpdated      State = "header_updated"
	StateItemsReplaced      State = "items_replaced"
	StateBalancesRestored   State = "balances_restored"
	StateDeleted            State = "deleted"
	StateAllocated          State = "allocated"
	StateCommitted          State = "committed"
)

// Step is one action of a saga.
//
// A failing required step compensates every completed step in reverse
// order and aborts. A failing BestEffort step becomes a warning and the saga
// carries on. Compensate may be nil when there is nothing to undo.
type Step struct {
	Name       string
	State      State
	BestEffort bool
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs steps strictly in order.
type Saga struct {
	name  string
	steps []Step
	log   *zap.Logger
	state State
}

func NewSaga(name string, log *zap.Logger) *Saga {
	return &Saga{name: name, log: log, state: StateIdle}
}

func (s *Saga) Add(steps ...Step) *Saga {
	s.steps = append(s.steps, steps...)
	return s
}

// State returns the last state reached.
func (s *Saga) State() State { return s.state }

// Run executes the steps. It returns the warnings of failed best-effort
// steps, and the error of the first failed required step.
func (s *Saga) Run(ctx context.Context) ([]*SideEffectWarning, error) {
	var (
		warnings []*SideEffectWarning
		done     []Step
	)
	for _, step := range s.steps {
		if err := step.Action(ctx); err != nil {
			if step.BestEffort {
				for _, e := range splitErrors(err) {
					s.log.Warn("side effect failed",
						zap.String("saga", s.name),
						zap.String("step", step.Name),
						zap.Error(e))
					warnings = append(warnings, &SideEffectWarning{Step: step.Name, Err: e})
				}
				continue
			}
			s.log.Debug("step failed, compensating",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err))
			s.compensate(ctx, done)
			s.state = StateIdle
			return warnings, err
		}

		if step.Compensate != nil {
			done = append(done, step)
		}
		if step.State != "" {
			s.state = step.State
			s.log.Debug("state reached", zap.String("saga", s.name), zap.String("state", string(step.State)))
		}
	}
	s.state = StateCommitted
	s.log.Debug("state reached", zap.String("saga", s.name), zap.String("state", string(StateCommitted)))
	return warnings, nil
}

func (s *Saga) compensate(ctx context.Context, done []Step) {
	for i := len(done) - 1; i >= 0; i-- {
		if err := done[i].Compensate(ctx); err != nil {
			s.log.Error("compensation failed",
				zap.String("saga", s.name),
				zap.String("step", done[i].Name),
				zap.Error(err))
		}
	}
}

// splitErrors unpacks errors.Join so every failure becomes its own warning.
func splitErrors(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
