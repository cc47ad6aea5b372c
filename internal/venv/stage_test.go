package venv

import (
	"errors"
	"reflect"
	"testing"
)

func TestTransitionFollowsLinearSequence(t *testing.T) {
	sequence := []Stage{StageStart, StageReset, StageCreate, StageActivate, StageInstall, StageVerify, StageDone}
	for i := 0; i+1 < len(sequence); i++ {
		if err := Transition(sequence[i], sequence[i+1]); err != nil {
			t.Fatalf("%s -> %s: %v", sequence[i], sequence[i+1], err)
		}
	}
	if err := Transition(StageInstall, StageDone); err != nil {
		t.Fatalf("verify should be optional: %v", err)
	}
}

func TestTransitionRejectsSkipsAndLoops(t *testing.T) {
	cases := [][2]Stage{
		{StageStart, StageCreate},
		{StageCreate, StageInstall},
		{StageActivate, StageReset},
		{StageReset, StageReset},
		{StageVerify, StageInstall},
		{StageDone, StageFailed},
		{StageFailed, StageReset},
	}
	for _, c := range cases {
		if err := Transition(c[0], c[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", c[0], c[1], err)
		}
	}
}

func TestAnyActiveStageMayFail(t *testing.T) {
	for _, s := range []Stage{StageStart, StageReset, StageCreate, StageActivate, StageInstall, StageVerify} {
		if err := Transition(s, StageFailed); err != nil {
			t.Fatalf("%s -> failed: %v", s, err)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StageDone) || !IsTerminal(StageFailed) {
		t.Fatalf("done and failed must be terminal")
	}
	if IsTerminal(StageInstall) {
		t.Fatalf("install must not be terminal")
	}
}

func TestStageTrailRecordsFailureOnce(t *testing.T) {
	trail := newStageTrail()
	if err := trail.advance(StageReset); err != nil {
		t.Fatalf("advance: %v", err)
	}
	trail.fail()
	trail.fail()
	want := []Stage{StageStart, StageReset, StageFailed}
	if got := trail.stages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected trail: %v", got)
	}
	if err := trail.advance(StageCreate); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected no transition out of failed, got %v", err)
	}
}
