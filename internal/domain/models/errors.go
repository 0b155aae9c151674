package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoAgents          = errors.New("no agents found")
	ErrInvalidTransition = errors.New("invalid trade status transition")
	ErrCycleInProgress   = errors.New("another cycle is already running")
	ErrMissingHandle     = errors.New("twitter username not found")
)

// DataProviderError is a non-success response from the market data or portfolio provider.
type DataProviderError struct {
	Provider string
	Status   int
	Interval Interval
	Query    string
	Err      error
}

func (e *DataProviderError) Error() string {
	target := string(e.Interval)
	if target == "" {
		target = e.Query
	}
	msg := fmt.Sprintf("%s responded with status %d", e.Provider, e.Status)
	if target != "" {
		msg += " for " + target
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataProviderError) Unwrap() error { return e.Err }

// SchemaValidationError means generated output did not match the expected structure.
type SchemaValidationError struct {
	Schema string
	Reason string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s output failed validation: %s", e.Schema, e.Reason)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// AllocationInvariantError is raised when sizing inputs cannot produce a bounded plan.
type AllocationInvariantError struct {
	Reason string
}

func (e *AllocationInvariantError) Error() string {
	return "allocation invariant violated: " + e.Reason
}

// PersistenceError wraps a store rejection for one record.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExecutionError is a wallet-agent failure for one trade.
type ExecutionError struct {
	TradeID string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute trade %s: %v", e.TradeID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
