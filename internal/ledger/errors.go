package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/mnemos/internal/ir"
)

// RejectCode categorizes why an event was rejected.
type RejectCode string

const (
	// CodeMalformedPayload indicates the event payload failed to decode.
	CodeMalformedPayload RejectCode = "MALFORMED_PAYLOAD"

	// CodeUnknownKey indicates a Modify or Delete addressed an absent item.
	CodeUnknownKey RejectCode = "UNKNOWN_KEY"

	// CodeKeyAlreadyExists indicates a Create addressed an existing item.
	CodeKeyAlreadyExists RejectCode = "KEY_ALREADY_EXISTS"

	// CodeInvalidModifier indicates the modifier does not apply to the
	// item's current form.
	CodeInvalidModifier RejectCode = "INVALID_MODIFIER"

	// CodeDanglingStrongReference indicates a strong reference to an
	// absent key.
	CodeDanglingStrongReference RejectCode = "DANGLING_STRONG_REFERENCE"

	// CodeCycleDetected indicates the event would close a reference cycle.
	CodeCycleDetected RejectCode = "CYCLE_DETECTED"

	// CodeInvariantViolation indicates the candidate form failed
	// validation.
	CodeInvariantViolation RejectCode = "INVARIANT_VIOLATION"

	// CodeDeleteWouldOrphanDependents indicates a Delete whose victim
	// still has dependents.
	CodeDeleteWouldOrphanDependents RejectCode = "DELETE_WOULD_ORPHAN_DEPENDENTS"

	// CodeChainDivergence indicates an import whose chain disagrees with
	// the local one.
	CodeChainDivergence RejectCode = "CHAIN_DIVERGENCE"
)

// RejectError is a structured event rejection. It is surfaced verbatim to
// the caller with enough detail for a UI to explain.
type RejectError struct {
	// Code identifies the rejection category.
	Code RejectCode

	// Key identifies the affected item.
	Key ir.Key

	// Detail is a human-readable description.
	Detail string

	// Path is the detected cycle for CodeCycleDetected, starting and
	// ending at Key.
	Path []ir.Key

	// Orphans lists the dependents blocking a delete.
	Orphans []ir.Key

	// LocalIndex and RemoteIndex locate a chain divergence.
	LocalIndex  uint64
	RemoteIndex uint64
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	switch e.Code {
	case CodeCycleDetected:
		steps := make([]string, len(e.Path))
		for i, k := range e.Path {
			steps[i] = k.String()
		}
		return fmt.Sprintf("%s: %s", e.Code, strings.Join(steps, " -> "))
	case CodeDeleteWouldOrphanDependents:
		deps := make([]string, len(e.Orphans))
		for i, k := range e.Orphans {
			deps[i] = k.String()
		}
		return fmt.Sprintf("%s: %s still required by %s", e.Code, e.Key, strings.Join(deps, ", "))
	case CodeChainDivergence:
		return fmt.Sprintf("%s: local index %d, remote index %d", e.Code, e.LocalIndex, e.RemoteIndex)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Detail, e.Key)
	}
	return fmt.Sprintf("%s (key=%s)", e.Code, e.Key)
}

// CodeOf extracts the rejection code from err, or "" when err is not a
// rejection. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RejectCode {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCycle reports whether err is a cycle rejection.
func IsCycle(err error) bool {
	return CodeOf(err) == CodeCycleDetected
}

// IsReject reports whether err is any event rejection (as opposed to a
// storage fault).
func IsReject(err error) bool {
	return CodeOf(err) != ""
}

func rejectUnknownKey(key ir.Key) *RejectError {
	return &RejectError{Code: CodeUnknownKey, Key: key, Detail: "no item with this key"}
}

func rejectKeyExists(key ir.Key) *RejectError {
	return &RejectError{Code: CodeKeyAlreadyExists, Key: key, Detail: "item already exists"}
}

func rejectMalformed(key ir.Key, err error) *RejectError {
	return &RejectError{Code: CodeMalformedPayload, Key: key, Detail: err.Error()}
}

func rejectInvalidModifier(key ir.Key, err error) *RejectError {
	return &RejectError{Code: CodeInvalidModifier, Key: key, Detail: err.Error()}
}

func rejectDangling(key, missing ir.Key, kind ir.RefKind) *RejectError {
	return &RejectError{
		Code:   CodeDanglingStrongReference,
		Key:    key,
		Detail: fmt.Sprintf("%s reference to missing item %s", kind, missing),
	}
}

func rejectCycle(key ir.Key, path []ir.Key) *RejectError {
	return &RejectError{Code: CodeCycleDetected, Key: key, Path: path}
}

func rejectInvariant(key ir.Key, err error) *RejectError {
	return &RejectError{Code: CodeInvariantViolation, Key: key, Detail: err.Error()}
}

func rejectOrphans(key ir.Key, orphans []ir.Key) *RejectError {
	return &RejectError{Code: CodeDeleteWouldOrphanDependents, Key: key, Orphans: orphans}
}
