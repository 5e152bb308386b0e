package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ludo-technologies/pystage/internal/interp"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// VerifyOutcome tells whether a converted module was checked against its
// original
type VerifyOutcome struct {
	Verified bool
	// Reason explains a skipped check
	Reason string
}

// Verifier runs an original module and its converted form through the
// evaluator and compares printed output and module-level bindings.
type Verifier struct {
	maxSteps int
}

// NewVerifier creates a verifier with the default step budget
func NewVerifier() *Verifier {
	return &Verifier{maxSteps: interp.DefaultMaxSteps}
}

// SetMaxSteps changes the statement budget of each run
func (v *Verifier) SetMaxSteps(n int) {
	v.maxSteps = n
}

// Verify returns an error when the converted module behaves differently.
// Modules the evaluator cannot run, or that exceed the step budget, are
// skipped rather than failed. An original that raises must make the
// converted module raise the same exception kind.
func (v *Verifier) Verify(ctx context.Context, original, converted *parser.Node, runtimeModule string) (VerifyOutcome, error) {
	want, wantErr := v.run(ctx, original, runtimeModule)
	if reason, skip := skipReason(wantErr); skip {
		return VerifyOutcome{Reason: reason}, nil
	}
	if err := ctx.Err(); err != nil {
		return VerifyOutcome{}, err
	}

	got, gotErr := v.run(ctx, converted, runtimeModule)
	if err := ctx.Err(); err != nil {
		return VerifyOutcome{}, err
	}

	var wantExc, gotExc *interp.Exception
	switch {
	case errors.As(wantErr, &wantExc):
		if !errors.As(gotErr, &gotExc) {
			return VerifyOutcome{}, fmt.Errorf("original raises %s, converted module does not", wantExc.Kind)
		}
		if wantExc.Kind != gotExc.Kind {
			return VerifyOutcome{}, fmt.Errorf("original raises %s, converted module raises %s", wantExc.Kind, gotExc.Kind)
		}
		return VerifyOutcome{Verified: true}, nil
	case wantErr != nil:
		return VerifyOutcome{}, wantErr
	case gotErr != nil:
		return VerifyOutcome{}, fmt.Errorf("converted module fails: %w", gotErr)
	}

	if err := interp.Equivalent(want, got); err != nil {
		return VerifyOutcome{}, err
	}
	return VerifyOutcome{Verified: true}, nil
}

func (v *Verifier) run(ctx context.Context, module *parser.Node, runtimeModule string) (*interp.Env, error) {
	in := interp.New(interp.WithRuntimeModule(runtimeModule), interp.WithMaxSteps(v.maxSteps))
	return in.Run(ctx, module)
}

func skipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, interp.ErrUnsupported):
		return err.Error(), true
	case errors.Is(err, interp.ErrStepLimit):
		return "original module exceeds the step limit", true
	}
	return "", false
}
