// Package services contains the booking and payment business logic.
//
// The sentinel errors below are the service-layer taxonomy. Handlers match
// them with errors.Is and translate them into stable HTTP responses:
// ErrVerificationFailed is deliberately indistinguishable from
// ErrInvalidInput on the wire so a caller probing signatures cannot tell
// "wrong signature" apart from "wrong format".
package services

import "errors"

// ErrUnauthenticated indicates a missing or invalid caller credential
var ErrUnauthenticated = errors.New("not authenticated")

// ErrForbidden indicates the caller does not own the resource. Only used
// where the caller already holds the identifier (the verification path);
// everywhere else ownership failures surface as ErrNotFound to avoid
// leaking existence.
var ErrForbidden = errors.New("not authorized for this resource")

// ErrNotFound indicates the resource does not exist or is not visible to
// the caller
var ErrNotFound = errors.New("not found")

// ErrInvalidInput indicates a malformed or missing request field
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidState indicates the booking or payment does not permit the
// requested operation in its current status
var ErrInvalidState = errors.New("invalid state for this operation")

// ErrInvalidAmount indicates a missing or non-positive price
var ErrInvalidAmount = errors.New("invalid amount")

// ErrVerificationFailed indicates a signature mismatch
var ErrVerificationFailed = errors.New("payment verification failed")

// ErrGatewayError indicates the upstream payment provider failed or
// rejected the request
var ErrGatewayError = errors.New("payment gateway error")

// ErrStateConflict indicates the two settlement paths disagree about the
// terminal state of a payment (e.g. the webhook reports failed after the
// client path recorded completed). Surfaced, never auto-resolved.
var ErrStateConflict = errors.New("conflicting payment state")
