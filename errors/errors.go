package errors

import "fmt"

// Authentication failures always reject the handshake before any session or
// room state is created.
var (
	ErrCredentialMissing = fmt.Errorf("credential missing")
	ErrCredentialInvalid = fmt.Errorf("credential invalid")
	ErrCredentialExpired = fmt.Errorf("credential expired")
	ErrAccountNotFound   = fmt.Errorf("account not found")
)

// Dispatch validation failures are reported to the offending sender only.
var (
	ErrNoTarget        = fmt.Errorf("no target")
	ErrEmptyRecipients = fmt.Errorf("empty recipient list")
	ErrUnknownRole     = fmt.Errorf("unknown role")
	ErrEmptyCourse     = fmt.Errorf("empty course id")
	ErrEmptyBody       = fmt.Errorf("empty message body")
	ErrUnknownStatus   = fmt.Errorf("unknown status")
)

var (
	// ErrSessionNotFound marks an operation on an already-removed session.
	// Callers treat it as a no-op; it never reaches a client.
	ErrSessionNotFound = fmt.Errorf("session not found")

	// ErrSlowConsumer is returned by a session sink whose buffer is full.
	// The delivery is dropped, counted, and never retried.
	ErrSlowConsumer = fmt.Errorf("slow consumer")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// Account directory failures.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidPassword    = fmt.Errorf("invalid password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)
