// Package swaperrors defines the node's error taxonomy (spec.md §7): six
// mutually exclusive kinds the coordinator and its collaborators use to
// decide whether to retry, decline, wait, or mark a swap InternalFailure.
// Every constructor wraps the underlying cause with go-errors/errors so a
// stack trace survives to the RPC boundary, the way lnd.go and rpcserver.go
// wrap errors before returning them across goroutine and process
// boundaries.
package swaperrors

import (
	stderrors "errors"
	"fmt"

	"github.com/go-errors/errors"
)

// Kind tags one of the six error classes from spec.md §7.
type Kind int

const (
	// Protocol errors are surfaced before any on-chain action: expiry
	// inequality violated, hash function unsupported, asset/ledger pair
	// unsupported.
	Protocol Kind = iota

	// Counterparty errors cover a malformed SwapRequest, an invalid
	// acceptance body, or a timeout waiting for a peer response.
	Counterparty

	// Execution errors are recoverable by waiting and re-recommending:
	// a reverted redeem (wrong secret, wrong identity), or a refund
	// attempted before expiry.
	Execution

	// Chain errors originate from the chain watcher: RPC unreachable,
	// reorg beyond the swap window, or a block missing its parent.
	Chain

	// Funding errors mean the observed on-chain amount disagreed with
	// params.asset. Terminal for that ledger.
	Funding

	// Internal errors should be impossible in a correct implementation:
	// an unextractable secret, a state-store write failure, a
	// coordinator bug. Always mark the swap InternalFailure.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Protocol:
		return "protocol"
	case Counterparty:
		return "counterparty"
	case Execution:
		return "execution"
	case Chain:
		return "chain"
	case Funding:
		return "funding"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Retriable reports whether errors of this kind are recovered by waiting
// and re-recommending rather than surfaced to the operator. Only Execution
// errors, and transient Chain sub-kinds (judged by the caller, not by
// Kind alone), are retriable by default.
func (k Kind) Retriable() bool {
	return k == Execution
}

// Error is a swaperrors-tagged error carrying a Kind and a wrapped cause.
// The wrapped error retains its go-errors stack trace.
type Error struct {
	Kind Kind
	Err  *errors.Error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err.Err
}

// New creates a swaperrors.Error of the given kind from a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Newf creates a swaperrors.Error of the given kind from a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// Wrap attaches kind and a stack trace to an existing error. Returns nil if
// err is nil, matching the teacher's own wrap helpers.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: errors.Wrap(err, 1)}
}

// Is reports whether err is a swaperrors.Error of the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}
