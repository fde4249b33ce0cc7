// Package qerr holds the error taxonomy shared by the engine packages.
package qerr

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError reports malformed or insufficient input.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// DomainError reports a mathematically undefined operation on otherwise
// well-formed input.
type DomainError struct {
	Param  string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("undefined for %s: %s", e.Param, e.Reason)
}

// OptimizationError reports a solver that did not converge within its budget.
type OptimizationError struct {
	Objective  string
	Iterations int
	Reason     string
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations: %s", e.Objective, e.Iterations, e.Reason)
}

func Validation(param, format string, args ...interface{}) error {
	return &ValidationError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

func Domain(param, format string, args ...interface{}) error {
	return &DomainError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsDomain(err error) bool {
	var d *DomainError
	return errors.As(err, &d)
}

func IsOptimization(err error) bool {
	var o *OptimizationError
	return errors.As(err, &o)
}

// Probability checks that p lies in the open interval (0, 1).
func Probability(param string, p float64) error {
	if !(p > 0 && p < 1) {
		return Validation(param, "%v must lie in (0, 1)", p)
	}
	return nil
}

// Positive checks that x is strictly positive and finite.
func Positive(param string, x float64) error {
	if !(x > 0) || math.IsInf(x, 1) {
		return Validation(param, "%v must be positive", x)
	}
	return nil
}

// Count checks that n is at least min.
func Count(param string, n, min int) error {
	if n < min {
		return Validation(param, "%d must be at least %d", n, min)
	}
	return nil
}
