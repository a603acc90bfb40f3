package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vanshika/debtledger/backend/internal/repository"
)

var (
	// ErrForbidden is returned when the acting user may not perform the action.
	ErrForbidden = errors.New("not allowed to perform this action")
	// ErrNotFound is returned for unknown debts, payments, users or witnesses.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks benign no-ops: the target is no longer in the state the
	// action expects. Nothing is written.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyProcessed is returned when a debt or invitation was already answered.
	ErrAlreadyProcessed = fmt.Errorf("%w: already processed", ErrConflict)
	// ErrNotPending is returned when a payment was already approved or rejected.
	ErrNotPending = fmt.Errorf("%w: payment is not pending", ErrConflict)

	// ErrBalanceExceeded is the cause carried by a ValidationError when a
	// payment is larger than the remaining balance.
	ErrBalanceExceeded = errors.New("exceeds remaining balance")
	// ErrUpgradePending is the cause carried by a ValidationError when a
	// nomination is already outstanding.
	ErrUpgradePending = errors.New("upgrade request already pending")
)

// ValidationError maps fields to human readable problems.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// validation collects field problems before deciding whether to fail.
type validation struct {
	fields map[string]string
	cause  error
}

func (v *validation) add(field, msg string) {
	if v.fields == nil {
		v.fields = map[string]string{}
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *validation) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields, cause: v.cause}
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func invalidBecause(cause error, field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}, cause: cause}
}

// lookupErr converts a repository miss into ErrNotFound and passes every
// other error through.
func lookupErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
