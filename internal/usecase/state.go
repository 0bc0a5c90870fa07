package usecase

import "fmt"

// Phase is a state of the run state machine.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseIngesting     Phase = "ingesting"
	PhaseDeduplicating Phase = "deduplicating"
	PhaseClassifying   Phase = "classifying"
	PhaseDrafting      Phase = "drafting"
	PhaseComplete      Phase = "complete"
	PhaseError         Phase = "error"
)

var transitions = map[Phase][]Phase{
	PhaseIdle:          {PhaseIngesting},
	PhaseIngesting:     {PhaseDeduplicating},
	PhaseDeduplicating: {PhaseClassifying, PhaseComplete},
	PhaseClassifying:   {PhaseDrafting, PhaseComplete},
	PhaseDrafting:      {PhaseComplete},
}

// stateMachine enforces idle -> ingesting -> deduplicating -> classifying ->
// drafting -> complete, with error reachable from any non-terminal state.
type stateMachine struct {
	current Phase
	history []Phase
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: PhaseIdle, history: []Phase{PhaseIdle}}
}

func (m *stateMachine) Current() Phase {
	return m.current
}

// History lists every phase entered, starting with idle.
func (m *stateMachine) History() []Phase {
	out := make([]Phase, len(m.history))
	copy(out, m.history)
	return out
}

func (m *stateMachine) Transition(to Phase) error {
	if m.current == PhaseComplete || m.current == PhaseError {
		return fmt.Errorf("run already finished in %s", m.current)
	}
	if to == PhaseError {
		m.enter(to)
		return nil
	}
	for _, allowed := range transitions[m.current] {
		if allowed == to {
			m.enter(to)
			return nil
		}
	}
	return fmt.Errorf("illegal phase transition %s -> %s", m.current, to)
}

func (m *stateMachine) enter(p Phase) {
	m.current = p
	m.history = append(m.history, p)
}
