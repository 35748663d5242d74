// Package errors provides centralized error handling for WARDEN.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrUsage indicates a caller mistake (bad flags, missing arguments).
	// No state is changed.
	ErrUsage = errors.New("usage error")

	// ErrSchemaInvalid indicates the definition document or the dcl-config
	// lock document was rejected at load.
	ErrSchemaInvalid = errors.New("schema invalid")

	// ErrNotFound indicates an unknown packet or area id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates the state machine rejected a transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrWrongStatus indicates the packet is not in a status the requested
	// operation accepts.
	ErrWrongStatus = errors.New("wrong packet status")

	// ErrIdentityConflict indicates an identity rule was violated
	// (reviewer==executor, actor is not the assignee, supervisor required).
	ErrIdentityConflict = errors.New("identity conflict")

	// ErrDependencyUnmet indicates a claim was attempted while one or more
	// dependencies are not done.
	ErrDependencyUnmet = errors.New("dependency unmet")

	// ErrContextAttestationMissing indicates a claim omitted required
	// context manifest attestations.
	ErrContextAttestationMissing = errors.New("context attestation missing")

	// ErrEvidenceMissing indicates a done transition carried no evidence.
	ErrEvidenceMissing = errors.New("evidence missing")

	// ErrInvalidResidualRisk indicates a malformed residual risk acknowledgment.
	ErrInvalidResidualRisk = errors.New("invalid residual risk acknowledgment")

	// ErrAlreadyTerminal indicates a forward transition was attempted from
	// a terminal status.
	ErrAlreadyTerminal = errors.New("packet already terminal")

	// ErrAlreadyClaimed indicates a claim on a packet that has an assignee.
	ErrAlreadyClaimed = errors.New("packet already claimed")

	// ErrInvalidPayload indicates a preflight/review/heartbeat payload is
	// missing one of its required keys.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidVerdict indicates an unknown review verdict.
	ErrInvalidVerdict = errors.New("invalid review verdict")

	// ErrAreaIncomplete indicates a closeout was attempted while packets in
	// the area are not done.
	ErrAreaIncomplete = errors.New("area has packets not done")

	// ErrConcurrencyConflict indicates lock contention escalated beyond the
	// retry budget.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrLockTimeout indicates a file lock could not be acquired within the
	// timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrIntegrityFailure indicates a verifier or doctor failure.
	ErrIntegrityFailure = errors.New("integrity failure")

	// ErrSeqDiscontinuity indicates a gap or duplicate in commit sequence numbers.
	ErrSeqDiscontinuity = errors.New("commit sequence discontinuity")

	// ErrPrevHashMismatch indicates a broken prev_commit_hash link.
	ErrPrevHashMismatch = errors.New("previous commit hash mismatch")

	// ErrStateHashMismatch indicates pre/post state hash discontinuity
	// between adjacent commits.
	ErrStateHashMismatch = errors.New("state hash mismatch")

	// ErrHeadDrift indicates HEAD disagrees with the last commit on disk.
	ErrHeadDrift = errors.New("head drift")

	// ErrCommitHashMismatch indicates a commit's stored hash does not match
	// its recomputed hash.
	ErrCommitHashMismatch = errors.New("commit hash mismatch")

	// ErrRuntimeBindingMismatch indicates the runtime state hash does not
	// match HEAD's post_state_hash.
	ErrRuntimeBindingMismatch = errors.New("runtime state binding mismatch")

	// ErrCheckpointMismatch indicates the latest project checkpoint
	// disagrees with current HEADs.
	ErrCheckpointMismatch = errors.New("checkpoint mismatch")

	// ErrConfigLockMissing indicates the dcl-config lock document is absent.
	ErrConfigLockMissing = errors.New("dcl config lock missing")

	// ErrConfigLockMismatch indicates the dcl-config lock document disagrees
	// with the in-use runtime.
	ErrConfigLockMismatch = errors.New("dcl config lock mismatch")

	// ErrMutationRefused indicates fail-open mode is refusing mutations
	// because of an unresolved integrity failure.
	ErrMutationRefused = errors.New("mutations refused: integrity failure unresolved")

	// ErrInvalidValue indicates a value the canonical serializer cannot
	// represent (NaN, infinities, unsupported types).
	ErrInvalidValue = errors.New("invalid value for canonical form")

	// ErrIoTransient indicates a filesystem error worth retrying.
	ErrIoTransient = errors.New("transient io error")

	// ErrIoFatal indicates a filesystem error that aborts the operation.
	ErrIoFatal = errors.New("fatal io error")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrRootNotInitialized indicates the governance root has no state yet.
	ErrRootNotInitialized = errors.New("governance root not initialized")

	// ErrRootAlreadyInitialized indicates init was run on a non-empty root.
	ErrRootAlreadyInitialized = errors.New("governance root already initialized")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrPathTraversal indicates an attempt to use path traversal in a name.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrJournalCorrupted indicates an unreadable crash-recovery journal.
	ErrJournalCorrupted = errors.New("journal corrupted")

	// ErrCommitCorrupted indicates an unreadable commit file.
	ErrCommitCorrupted = errors.New("commit file corrupted")

	// ErrStateCorrupted indicates an unreadable state document.
	ErrStateCorrupted = errors.New("state document corrupted")

	// ErrDependencyCycle indicates the packet dependency graph has a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)
