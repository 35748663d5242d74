package constants

import "time"

// Schema and protocol versions. Bumping any of these is a governed
// operation gated by the dcl-config lock document.
const (
	// StateSchemaVersion is the version of the state.json document schema.
	StateSchemaVersion = 1

	// DclVersion is the commitment layer protocol version.
	DclVersion = "1.0"

	// CanonicalizationVersion is the canonical serializer rule set version.
	CanonicalizationVersion = "1.0"

	// HashAlgorithm is the only supported hash algorithm.
	HashAlgorithm = "sha256"

	// DclMode is the only supported persistence mode.
	DclMode = "dcl"
)

// GenesisHash is the prev_commit_hash of the first commit in every chain.
const GenesisHash = "GENESIS"

// Timing defaults. All are overridable through config (§ config package).
const (
	// DefaultPreflightTimeout returns a packet to pending when a submitted
	// preflight assessment waits this long without supervisor action.
	DefaultPreflightTimeout = 3600 * time.Second

	// DefaultStallThreshold is the floor on the heartbeat stall window:
	// a packet stalls after max(2×heartbeat_interval, this).
	DefaultStallThreshold = 1800 * time.Second

	// DefaultHeartbeatInterval applies when a packet definition requires
	// heartbeats but does not set its own interval.
	DefaultHeartbeatInterval = 600 * time.Second

	// DefaultLockTimeout is the maximum wait for a file lock.
	DefaultLockTimeout = 5 * time.Second

	// MaxReviewCycles is the number of REJECT verdicts tolerated before a
	// packet escalates automatically.
	MaxReviewCycles = 3

	// IoRetryAttempts bounds transient I/O retries per write phase.
	IoRetryAttempts = 3

	// IoRetryBaseDelay is the initial backoff delay for transient I/O.
	IoRetryBaseDelay = 25 * time.Millisecond
)

// EnvPrefix is the environment variable prefix (WARDEN_ROOT, WARDEN_STRICT, ...).
const EnvPrefix = "WARDEN"
