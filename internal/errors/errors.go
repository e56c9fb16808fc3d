// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the CIE CLI.
//
// This package defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it. It also defines
// consistent exit codes for different error categories, and one constructor per
// error kind of spec.md §7 (NotFound, Corrupt, Busy, ProviderUnavailable,
// RateLimited, DimensionMismatch, ConfigInvalid, IO).
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := errors.NewConfigInvalidError(
//	    "Cannot load CIE configuration",
//	    "score_weights_semantic must be in [0, 1]",
//	    "Edit .cie/config.yaml and re-run",
//	    underlyingErr,
//	)
//	if err != nil {
//	    // Simple approach: print and exit with colored output
//	    errors.FatalError(err, false)
//	}
//
// # Formatted Output
//
// The Format() method provides colored terminal output:
//
//	err := errors.NewBusyError(
//	    "Partition locked",
//	    "Another process is holding the write lock",
//	    "Retry in a moment",
//	    underlyingErr,
//	)
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// Error: Partition locked
//	// Cause: Another process is holding the write lock
//	// Fix:   Retry in a moment
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//	// Output:
//	// {
//	//   "error": "Partition locked",
//	//   "cause": "Another process is holding the write lock",
//	//   "fix": "Retry in a moment",
//	//   "kind": "busy",
//	//   "exit_code": 1
//	// }
//
// # Exit Codes
//
// spec.md §6's exit code table (narrower than a general-purpose CLI's,
// since CORE surfaces only three failure shapes to a caller):
//   - ExitSuccess (0): successful execution
//   - ExitOperational (1): an operation failed but the process state is
//     still sound (NotFound, Busy, ProviderUnavailable, RateLimited, IO)
//   - ExitMisuse (2): caller error — invalid arguments or configuration
//     (ConfigInvalid)
//   - ExitStoreUnavailable (3): the on-disk store cannot be trusted
//     (Corrupt, DimensionMismatch) — both are fatal at startup per
//     spec.md §7's propagation policy
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories, per spec.md §6.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitOperational indicates a recoverable operation failure: the
	// requested thing failed but the store and process remain sound.
	ExitOperational = 1

	// ExitMisuse indicates invalid caller input or configuration.
	ExitMisuse = 2

	// ExitStoreUnavailable indicates the on-disk store cannot be
	// trusted: corruption, or a provider/collection dimension mismatch.
	ExitStoreUnavailable = 3
)

// Kind classifies a UserError by the error kinds of spec.md §7.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindCorrupt             Kind = "corrupt"
	KindBusy                Kind = "busy"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindDimensionMismatch   Kind = "dimension_mismatch"
	KindConfigInvalid       Kind = "config_invalid"
	KindIO                  Kind = "io"
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
//
// UserError also carries the spec.md §7 error Kind, the exit code
// derived from it, and optionally wraps an underlying error for error
// chain compatibility.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// Kind is the spec.md §7 error kind this error represents.
	Kind Kind

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	// This enables error wrapping and compatibility with errors.Is/As.
	Err error
}

// Error implements the error interface.
//
// It returns a simple error message string. If an underlying error is present,
// it appends that error's message for context.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is and errors.As.
//
// It returns the underlying error, allowing standard library error inspection
// functions to work with error chains.
func (e *UserError) Unwrap() error {
	return e.Err
}

func exitCodeFor(k Kind) int {
	switch k {
	case KindConfigInvalid:
		return ExitMisuse
	case KindCorrupt, KindDimensionMismatch:
		return ExitStoreUnavailable
	default:
		return ExitOperational
	}
}

// NewNotFoundError creates an error for the NotFound kind: a requested
// entity, partition, or file absent — recoverable by the caller.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindNotFound, ExitCode: exitCodeFor(KindNotFound)}
}

// NewCorruptError creates an error for the Corrupt kind: an on-disk
// structure fails an invariant. Fatal for the affected partition,
// isolated from others, per spec.md §7's propagation policy.
func NewCorruptError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindCorrupt, ExitCode: exitCodeFor(KindCorrupt), Err: err}
}

// NewBusyError creates an error for the Busy kind: lock acquisition
// timed out. Callers should retry with back-off.
func NewBusyError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindBusy, ExitCode: exitCodeFor(KindBusy), Err: err}
}

// NewProviderUnavailableError creates an error for the
// ProviderUnavailable kind: the embedding provider returned a 5xx or
// timed out, after HSE's retry budget was exhausted.
func NewProviderUnavailableError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindProviderUnavailable, ExitCode: exitCodeFor(KindProviderUnavailable), Err: err}
}

// NewRateLimitedError creates an error for the RateLimited kind: the
// embedding provider returned 429, after HSE's retry budget was
// exhausted.
func NewRateLimitedError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindRateLimited, ExitCode: exitCodeFor(KindRateLimited), Err: err}
}

// NewDimensionMismatchError creates an error for the DimensionMismatch
// kind: the provider's advertised vector dimension does not match the
// collection schema. Fatal at startup.
func NewDimensionMismatchError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindDimensionMismatch, ExitCode: exitCodeFor(KindDimensionMismatch), Err: err}
}

// NewConfigInvalidError creates an error for the ConfigInvalid kind: an
// enumerated configuration option is out of range.
func NewConfigInvalidError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindConfigInvalid, ExitCode: exitCodeFor(KindConfigInvalid), Err: err}
}

// NewIOError creates an error for the IO kind: anything from the OS,
// propagated with path context.
func NewIOError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Kind: KindIO, ExitCode: exitCodeFor(KindIO), Err: err}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// The output includes colored sections for Error (red/bold), Cause (yellow),
// and Fix (green). Color output respects the NO_COLOR environment variable
// and can be explicitly disabled with the noColor parameter.
//
// Example output:
//
//	Error: Cannot open the CIE database
//	Cause: The database file is locked by another process
//	Fix:   Close other CIE instances and retry
//
// Empty Cause or Fix fields are omitted from the output.
//
// Note: This method temporarily modifies the global color.NoColor state
// and restores it after formatting to ensure thread safety.
func (e *UserError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
//
// This structure is suitable for machine consumption and integrates with
// CLI commands that support --json output mode.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	Kind     Kind   `json:"kind,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
//
// Fields with empty values (Cause, Fix) are omitted from JSON output
// using the omitempty tag. This keeps JSON output clean when additional
// context is not available.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		Kind:     e.Kind,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitOperational.
//
// This function never returns - it always calls os.Exit().
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    errors.FatalError(err, jsonMode)
//	}
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			// Encode error is intentionally ignored since we're about to exit.
			// If JSON encoding fails, the program will still exit with the correct code.
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	// Fallback for non-UserError
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitOperational)
}
