package harness

import (
	"context"
	"errors"
	"fmt"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

// Kind classifies why a scenario failed.
type Kind string

const (
	KindInsufficientPoolLiquidity Kind = "InsufficientPoolLiquidity"
	KindInsufficientShares        Kind = "InsufficientShares"
	KindPriceMismatch             Kind = "PriceMismatch"
	KindBalanceMismatch           Kind = "BalanceMismatch"
	KindActionRejected            Kind = "ActionRejected"
	KindOperationTimeout          Kind = "OperationTimeout"
	KindIssuanceRejected          Kind = "IssuanceRejected"
	// KindExpectationUnmet means the scenario expected a failure that did not happen.
	KindExpectationUnmet Kind = "ExpectationUnmet"
	// KindInternal covers transport and configuration errors.
	KindInternal Kind = "Internal"
)

var (
	ErrPriceMismatch   = errors.New("price mismatch")
	ErrBalanceMismatch = errors.New("balance mismatch")
	ErrActionRejected  = errors.New("action rejected")
)

// Failure is the recorded reason a scenario did not pass.
type Failure struct {
	Kind Kind
	Step string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s during %s: %v", f.Kind, f.Step, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Steps that belong to the action under test. Only failures raised in them can
// satisfy a scenario's expectation; setup failures always fail the scenario.
const (
	stepPredict = "predict"
	stepSubmit  = "submit"
)

func (f *Failure) fromAction() bool {
	return f.Step == stepPredict || f.Step == stepSubmit
}

func fail(kind Kind, step string, err error) *Failure {
	return &Failure{Kind: kind, Step: step, Err: err}
}

// failFrom classifies err by its sentinel.
func failFrom(step string, err error) *Failure {
	return fail(classify(err), step, err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, model.ErrOperationTimeout):
		return KindOperationTimeout
	case errors.Is(err, model.ErrIssuanceRejected):
		return KindIssuanceRejected
	case errors.Is(err, amm.ErrInsufficientPoolLiquidity), errors.Is(err, amm.ErrEmptyPool):
		return KindInsufficientPoolLiquidity
	case errors.Is(err, amm.ErrInsufficientShares):
		return KindInsufficientShares
	case errors.Is(err, ErrPriceMismatch):
		return KindPriceMismatch
	case errors.Is(err, ErrBalanceMismatch):
		return KindBalanceMismatch
	case errors.Is(err, ErrActionRejected):
		return KindActionRejected
	default:
		return KindInternal
	}
}
