// Package errs classifies the error taxonomy so callers can distinguish a
// dropped record from a fatal sweep abort with errors.Is.
package errs

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", KindX) at the point of
// failure; callers use errors.Is to classify.
var (
	// ErrTransientRPC marks a failed upstream RPC call. rpcfetch makes no
	// retry; the failure ends the batch that issued the call.
	ErrTransientRPC = errors.New("transient rpc error")
	// ErrDecodeMismatch marks a single record dropped for failing a type
	// constraint (e.g. a non-zero upper-address word, a missing topic).
	ErrDecodeMismatch = errors.New("decode mismatch")
	// ErrUnknownTopic marks a log whose topic0 has no dispatch entry.
	ErrUnknownTopic = errors.New("unknown topic0")
	// ErrRowCountInvariant marks an on-disk partition inconsistent with the
	// producer's output; always fatal.
	ErrRowCountInvariant = errors.New("row count invariant violated")
	// ErrStageParse marks a malformed (but present) stage file.
	ErrStageParse = errors.New("stage parse error")
	// ErrFilesystem marks a fatal write/rename failure.
	ErrFilesystem = errors.New("filesystem error")
	// ErrListenerVeto marks a listener that rejected an advance.
	ErrListenerVeto = errors.New("listener veto")
)
