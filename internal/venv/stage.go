package venv

import "fmt"

// Stage is one state of the provisioning sequence.
type Stage string

const (
	StageStart    Stage = "start"
	StageReset    Stage = "reset"
	StageCreate   Stage = "create"
	StageActivate Stage = "activate"
	StageInstall  Stage = "install"
	StageVerify   Stage = "verify"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func IsTerminal(s Stage) bool {
	return s == StageDone || s == StageFailed
}

// Transition validates a move from one stage to the next.
func Transition(from, to Stage) error {
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func isAllowedTransition(from, to Stage) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StageFailed {
		return true
	}
	switch from {
	case StageStart:
		return to == StageReset
	case StageReset:
		return to == StageCreate
	case StageCreate:
		return to == StageActivate
	case StageActivate:
		return to == StageInstall
	case StageInstall:
		return to == StageVerify || to == StageDone
	case StageVerify:
		return to == StageDone
	default:
		return false
	}
}

// stageTrail tracks the current stage and every stage visited so far.
type stageTrail struct {
	current Stage
	visited []Stage
}

func newStageTrail() *stageTrail {
	return &stageTrail{current: StageStart, visited: []Stage{StageStart}}
}

func (s *stageTrail) advance(to Stage) error {
	if err := Transition(s.current, to); err != nil {
		return err
	}
	s.current = to
	s.visited = append(s.visited, to)
	return nil
}

func (s *stageTrail) fail() {
	if IsTerminal(s.current) {
		return
	}
	s.current = StageFailed
	s.visited = append(s.visited, StageFailed)
}

func (s *stageTrail) stages() []Stage {
	out := make([]Stage, len(s.visited))
	copy(out, s.visited)
	return out
}
