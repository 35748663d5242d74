// Package verify implements chain verification: per-packet commit chains,
// HEAD binding, runtime-state binding, project checkpoints, and sealed
// proof export.
package verify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/dcl"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/metrics"
	"github.com/mrz1836/warden/internal/state"
)

// verifyParallelism bounds concurrent packet verification in VerifyAll.
const verifyParallelism = 8

// Verifier checks the commitment layer against live state.
type Verifier struct {
	commits *dcl.Store
	states  state.Store
	metrics *metrics.Metrics
}

// New creates a Verifier.
func New(commits *dcl.Store, states state.Store, m *metrics.Metrics) *Verifier {
	return &Verifier{commits: commits, states: states, metrics: m}
}

// Failure is one verification failure, typed by its sentinel error.
type Failure struct {
	// PacketID is the packet the failure concerns; empty for
	// checkpoint-level failures.
	PacketID string `json:"packet_id,omitempty"`

	// Seq is the commit sequence the failure anchors to, when applicable.
	Seq int `json:"seq,omitempty"`

	// Code is the stable machine code.
	Code wardenerrors.Code `json:"code"`

	// Kind subcodes the integrity failure (seq_discontinuity,
	// prev_hash_mismatch, state_hash_mismatch, head_drift,
	// commit_hash_mismatch, runtime_binding_mismatch, checkpoint_mismatch).
	Kind string `json:"kind"`

	// Message is the human-readable description.
	Message string `json:"message"`
}

// kindFor maps a sentinel to its failure subcode.
func kindFor(sentinel error) string {
	switch sentinel {
	case wardenerrors.ErrSeqDiscontinuity:
		return "seq_discontinuity"
	case wardenerrors.ErrPrevHashMismatch:
		return "prev_hash_mismatch"
	case wardenerrors.ErrStateHashMismatch:
		return "state_hash_mismatch"
	case wardenerrors.ErrHeadDrift:
		return "head_drift"
	case wardenerrors.ErrCommitHashMismatch:
		return "commit_hash_mismatch"
	case wardenerrors.ErrRuntimeBindingMismatch:
		return "runtime_binding_mismatch"
	case wardenerrors.ErrCheckpointMismatch:
		return "checkpoint_mismatch"
	case wardenerrors.ErrCommitCorrupted:
		return "commit_corrupted"
	default:
		return "integrity_failure"
	}
}

// PacketReport is the verification result for one packet.
type PacketReport struct {
	PacketID    string    `json:"packet_id"`
	CommitCount int       `json:"commit_count"`
	OK          bool      `json:"ok"`
	Failures    []Failure `json:"failures"`
}

// Report aggregates verification across the project.
type Report struct {
	OK              bool      `json:"ok"`
	PacketCount     int       `json:"packet_count"`
	CommitCount     int       `json:"commit_count"`
	CheckpointCount int       `json:"checkpoint_count"`
	Failures        []Failure `json:"failures"`
}

// VerifyPacket verifies one packet's chain: recomputed commit hashes,
// prev-hash links, pre/post state continuity, HEAD binding, and the
// runtime-state binding.
func (v *Verifier) VerifyPacket(ctx context.Context, packetID string) (*PacketReport, error) {
	report := &PacketReport{PacketID: packetID, OK: true, Failures: []Failure{}}

	commits, err := v.commits.Commits(packetID)
	if err != nil {
		return nil, err
	}
	report.CommitCount = len(commits)

	v.checkChain(report, commits)
	if err := v.checkHead(report, packetID, commits); err != nil {
		return nil, err
	}
	if err := v.checkRuntimeBinding(ctx, report, packetID); err != nil {
		return nil, err
	}

	if !report.OK {
		v.metrics.RecordVerifyFailure()
	}
	return report, nil
}

// checkChain verifies internal chain consistency.
func (v *Verifier) checkChain(report *PacketReport, commits []*domain.DclCommit) {
	prevHash := constants.GenesisHash
	var prevPostState string

	for i, c := range commits {
		if c.Seq != i+1 {
			report.fail(c.Seq, wardenerrors.ErrSeqDiscontinuity,
				fmt.Sprintf("expected seq %d, found %d", i+1, c.Seq))
			// The chain is renumbered from here; later checks would cascade.
			return
		}

		recomputed, err := canonical.Hash(c.HashScope())
		if err != nil {
			report.fail(c.Seq, wardenerrors.ErrCommitCorrupted, err.Error())
			continue
		}
		if recomputed != c.CommitHash {
			report.fail(c.Seq, wardenerrors.ErrCommitHashMismatch,
				fmt.Sprintf("stored %s, recomputed %s", short(c.CommitHash), short(recomputed)))
		}
		if c.PrevCommitHash != prevHash {
			report.fail(c.Seq, wardenerrors.ErrPrevHashMismatch,
				fmt.Sprintf("stored %s, chain has %s", short(c.PrevCommitHash), short(prevHash)))
		}
		if i > 0 && c.PreStateHash != prevPostState {
			report.fail(c.Seq, wardenerrors.ErrStateHashMismatch,
				fmt.Sprintf("pre-state %s does not continue post-state %s", short(c.PreStateHash), short(prevPostState)))
		}

		prevHash = c.CommitHash
		prevPostState = c.PostStateHash
	}
}

// checkHead verifies HEAD equals the last commit.
func (v *Verifier) checkHead(report *PacketReport, packetID string, commits []*domain.DclCommit) error {
	head, err := v.commits.Head(packetID)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		if head != nil {
			report.fail(head.Seq, wardenerrors.ErrHeadDrift, "HEAD present with no commits")
		}
		return nil
	}
	last := commits[len(commits)-1]
	switch {
	case head == nil:
		report.fail(last.Seq, wardenerrors.ErrHeadDrift, "HEAD missing")
	case head.Seq != last.Seq || head.CommitHash != last.CommitHash:
		report.fail(last.Seq, wardenerrors.ErrHeadDrift,
			fmt.Sprintf("HEAD at seq %d (%s), last commit seq %d (%s)",
				head.Seq, short(head.CommitHash), last.Seq, short(last.CommitHash)))
	case head.PostStateHash != last.PostStateHash:
		report.fail(last.Seq, wardenerrors.ErrHeadDrift, "HEAD post-state hash disagrees with last commit")
	}
	return nil
}

// checkRuntimeBinding verifies the live runtime state hashes to HEAD's
// post_state_hash.
func (v *Verifier) checkRuntimeBinding(ctx context.Context, report *PacketReport, packetID string) error {
	head, err := v.commits.Head(packetID)
	if err != nil {
		return err
	}
	if head == nil {
		return nil
	}

	doc, err := v.states.Load(ctx)
	if err != nil {
		return err
	}
	st, ok := doc.Packets[packetID]
	if !ok {
		report.fail(head.Seq, wardenerrors.ErrRuntimeBindingMismatch, "no runtime state for committed packet")
		return nil
	}
	stateHash, err := canonical.Hash(st.HashScope())
	if err != nil {
		return err
	}
	if stateHash != head.PostStateHash {
		report.fail(head.Seq, wardenerrors.ErrRuntimeBindingMismatch,
			fmt.Sprintf("runtime state %s, HEAD post-state %s", short(stateHash), short(head.PostStateHash)))
	}
	return nil
}

// VerifyAll verifies every packet with a chain plus the latest project
// checkpoint. Packet chains verify concurrently.
func (v *Verifier) VerifyAll(ctx context.Context) (*Report, error) {
	ids, err := v.commits.PacketIDs()
	if err != nil {
		return nil, err
	}

	report := &Report{OK: true, PacketCount: len(ids), Failures: []Failure{}}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyParallelism)
	for _, id := range ids {
		g.Go(func() error {
			pr, err := v.VerifyPacket(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			report.CommitCount += pr.CommitCount
			report.Failures = append(report.Failures, pr.Failures...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := v.verifyLatestCheckpoint(report); err != nil {
		return nil, err
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].PacketID != report.Failures[j].PacketID {
			return report.Failures[i].PacketID < report.Failures[j].PacketID
		}
		return report.Failures[i].Seq < report.Failures[j].Seq
	})
	report.OK = len(report.Failures) == 0
	return report, nil
}

// verifyLatestCheckpoint checks the newest checkpoint's hash and that it
// does not contradict current HEADs: a checkpoint head must never be ahead
// of the live chain.
func (v *Verifier) verifyLatestCheckpoint(report *Report) error {
	cps, err := v.commits.Checkpoints()
	if err != nil {
		return err
	}
	report.CheckpointCount = len(cps)
	if len(cps) == 0 {
		return nil
	}
	cp := cps[len(cps)-1]

	recomputed, err := canonical.Hash(cp.HeadTable)
	if err != nil {
		return err
	}
	if recomputed != cp.CheckpointHash {
		report.Failures = append(report.Failures, Failure{
			Code:    wardenerrors.CodeFor(wardenerrors.ErrCheckpointMismatch),
			Kind:    kindFor(wardenerrors.ErrCheckpointMismatch),
			Message: fmt.Sprintf("checkpoint %s hash mismatch", cp.CheckpointID),
		})
		v.metrics.RecordVerifyFailure()
	}

	for packetID, cph := range cp.HeadTable {
		head, err := v.commits.Head(packetID)
		if err != nil {
			return err
		}
		if head == nil || head.Seq < cph.Seq {
			report.Failures = append(report.Failures, Failure{
				PacketID: packetID,
				Seq:      cph.Seq,
				Code:     wardenerrors.CodeFor(wardenerrors.ErrCheckpointMismatch),
				Kind:     kindFor(wardenerrors.ErrCheckpointMismatch),
				Message:  "live chain is behind the latest checkpoint",
			})
			v.metrics.RecordVerifyFailure()
			continue
		}
		if head.Seq == cph.Seq && head.CommitHash != cph.CommitHash {
			report.Failures = append(report.Failures, Failure{
				PacketID: packetID,
				Seq:      cph.Seq,
				Code:     wardenerrors.CodeFor(wardenerrors.ErrCheckpointMismatch),
				Kind:     kindFor(wardenerrors.ErrCheckpointMismatch),
				Message:  "checkpoint commit hash disagrees with live chain",
			})
			v.metrics.RecordVerifyFailure()
		}
	}
	return nil
}

// HistoryEntry pairs a stored commit with its recomputed hash for
// inspection.
type HistoryEntry struct {
	Commit     *domain.DclCommit `json:"commit"`
	Recomputed string            `json:"recomputed_hash"`
	OK         bool              `json:"ok"`
}

// History returns the ordered commit list with recomputed hashes.
func (v *Verifier) History(packetID string) ([]HistoryEntry, error) {
	commits, err := v.commits.Commits(packetID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(commits))
	for _, c := range commits {
		recomputed, err := canonical.Hash(c.HashScope())
		if err != nil {
			return nil, err
		}
		out = append(out, HistoryEntry{Commit: c, Recomputed: recomputed, OK: recomputed == c.CommitHash})
	}
	return out, nil
}

// fail records a typed failure on a packet report.
func (r *PacketReport) fail(seq int, sentinel error, msg string) {
	r.OK = false
	r.Failures = append(r.Failures, Failure{
		PacketID: r.PacketID,
		Seq:      seq,
		Code:     wardenerrors.CodeFor(sentinel),
		Kind:     kindFor(sentinel),
		Message:  fmt.Sprintf("%v: %s", sentinel, msg),
	})
}

// short truncates a hash for messages.
func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
