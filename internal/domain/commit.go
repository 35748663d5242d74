package domain

import (
	"time"

	"github.com/mrz1836/warden/internal/constants"
)

// ActionEnvelope is the original action record a commit seals. Its canonical
// form is hashed into the commit's action_hash.
type ActionEnvelope struct {
	// Event names the governance action.
	Event constants.LifecycleEvent `json:"event"`

	// Actor is the identity that initiated the action.
	Actor string `json:"actor"`

	// Inputs are the action's arguments, as given by the operator.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Timestamp is when the action was applied (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// DiffOp is one JSON Patch-style operation in a commit's state delta.
type DiffOp struct {
	// Op is "add", "remove", or "replace".
	Op string `json:"op"`

	// Path is the JSON Pointer to the changed field.
	Path string `json:"path"`

	// From is the prior value for remove/replace operations.
	From any `json:"from,omitempty"`

	// Value is the new value for add/replace operations.
	Value any `json:"value,omitempty"`
}

// DclCommit is an immutable hash-linked record of one lifecycle transition.
// Once written it is never modified; verification recomputes every hash.
//
// Example JSON representation:
//
//	{
//	    "commit_id": "2f4c...-uuid",
//	    "packet_id": "PKT-001",
//	    "seq": 2,
//	    "prev_commit_hash": "9be1...",
//	    "action_hash": "77aa...",
//	    "pre_state_hash": "c0de...",
//	    "post_state_hash": "f00d...",
//	    "constitution_hash": "abcd...",
//	    "diff": [{"op":"replace","path":"/status","from":"in_progress","value":"done"}],
//	    "created_at": "2026-07-30T10:05:00Z",
//	    "action_envelope": {...},
//	    "commit_hash": "1337..."
//	}
type DclCommit struct {
	// CommitID is a unique identifier for the commit.
	CommitID string `json:"commit_id"`

	// PacketID is the packet this commit belongs to.
	PacketID string `json:"packet_id"`

	// Seq is the 1-based, dense, strictly monotone sequence number.
	Seq int `json:"seq"`

	// PrevCommitHash links to the previous commit; GENESIS for seq 1.
	PrevCommitHash string `json:"prev_commit_hash"`

	// ActionHash is SHA-256 of the canonical action envelope.
	ActionHash string `json:"action_hash"`

	// PreStateHash is SHA-256 of the canonical pre-transition state.
	PreStateHash string `json:"pre_state_hash"`

	// PostStateHash is SHA-256 of the canonical post-transition state.
	PostStateHash string `json:"post_state_hash"`

	// ConstitutionHash is SHA-256 of the governance rules document at
	// transition time.
	ConstitutionHash string `json:"constitution_hash"`

	// Diff is the structured delta from pre-state to post-state. Mandatory;
	// an empty delta is recorded as an empty array, never omitted.
	Diff []DiffOp `json:"diff"`

	// CreatedAt is when the commit was written (UTC).
	CreatedAt time.Time `json:"created_at"`

	// ActionEnvelope is the original action record.
	ActionEnvelope ActionEnvelope `json:"action_envelope"`

	// CommitHash is SHA-256 of the canonical commit with this field empty.
	CommitHash string `json:"commit_hash,omitempty"`
}

// HashScope returns a copy of the commit with CommitHash cleared, which is
// the form the commit hash is computed over.
func (c *DclCommit) HashScope() DclCommit {
	scoped := *c
	scoped.CommitHash = ""
	return scoped
}

// Head is the per-packet latest-commit pointer.
type Head struct {
	// Seq is the sequence number of the latest commit.
	Seq int `json:"seq"`

	// CommitHash is the hash of the latest commit.
	CommitHash string `json:"commit_hash"`

	// PostStateHash is the latest commit's post-state hash; the runtime
	// state on disk must hash to this value at rest.
	PostStateHash string `json:"post_state_hash"`
}

// Journal phases.
const (
	// JournalPhasePrepare marks a commit write in flight.
	JournalPhasePrepare = "prepare"

	// JournalPhaseDone marks a completed HEAD advance awaiting unlink.
	JournalPhaseDone = "done"
)

// Journal is the transient per-packet crash-recovery record. Written before
// a commit, unlinked after the HEAD advance.
type Journal struct {
	// Phase is "prepare" or "done".
	Phase string `json:"phase"`

	// TargetSeq is the sequence number the in-flight commit targets.
	TargetSeq int `json:"target_seq"`

	// PayloadHash is the hash of the commit payload being written.
	PayloadHash string `json:"payload_hash"`
}

// CheckpointHead is one packet's HEAD inside a project checkpoint.
type CheckpointHead struct {
	Seq           int    `json:"seq"`
	CommitHash    string `json:"commit_hash"`
	PostStateHash string `json:"post_state_hash"`
}

// ProjectCheckpoint is an immutable snapshot of every packet's HEAD.
type ProjectCheckpoint struct {
	// CheckpointID is a unique identifier for the checkpoint.
	CheckpointID string `json:"checkpoint_id"`

	// CreatedAt is when the checkpoint was taken (UTC).
	CreatedAt time.Time `json:"created_at"`

	// HeadTable maps packet id to its HEAD at checkpoint time.
	HeadTable map[string]CheckpointHead `json:"head_table"`

	// CheckpointHash is SHA-256 of the canonical head table.
	CheckpointHash string `json:"checkpoint_hash"`
}
