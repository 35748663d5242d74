// Package doctor implements the integrity runtime: journal recovery, the
// DCL config lock check, state replay for half-applied transitions, and
// fast or full verification. It runs at process start and as a standalone
// operator command.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/dcl"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/metrics"
	"github.com/mrz1836/warden/internal/state"
	"github.com/mrz1836/warden/internal/verify"
)

// Mode selects how much the doctor checks.
type Mode string

// Doctor modes.
const (
	// ModeFast runs journal recovery, the config lock check, HEAD
	// equality, and runtime-state binding for each packet.
	ModeFast Mode = "fast"

	// ModeFull runs everything fast does plus complete chain
	// recomputation and checkpoint verification.
	ModeFull Mode = "full"
)

// Report is the doctor's structured output.
type Report struct {
	OK              bool                          `json:"ok"`
	Mode            Mode                          `json:"mode"`
	PacketCount     int                           `json:"packet_count"`
	CommitCount     int                           `json:"commit_count"`
	CheckpointCount int                           `json:"checkpoint_count"`
	Recovered       map[string]dcl.RecoveryAction `json:"recovered,omitempty"`
	Replayed        []string                      `json:"replayed,omitempty"`
	Failures        []verify.Failure              `json:"failures"`
	Metrics         map[string]float64            `json:"metrics,omitempty"`
}

// Doctor binds live state to committed history.
type Doctor struct {
	commits  *dcl.Store
	states   state.Store
	verifier *verify.Verifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New creates a Doctor.
func New(commits *dcl.Store, states state.Store, verifier *verify.Verifier, m *metrics.Metrics, logger zerolog.Logger) *Doctor {
	return &Doctor{commits: commits, states: states, verifier: verifier, metrics: m, logger: logger}
}

// Run executes the doctor in the given mode.
func (d *Doctor) Run(ctx context.Context, mode Mode) (*Report, error) {
	report := &Report{OK: true, Mode: mode, Failures: []verify.Failure{}}

	// Journal recovery first: nothing downstream should observe a
	// half-advanced chain.
	recovered, err := d.commits.RecoverAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(recovered) > 0 {
		report.Recovered = recovered
		for id, action := range recovered {
			d.logger.Info().Str("packet_id", id).Str("action", string(action)).Msg("journal recovered")
		}
	}

	if err := d.commits.CheckConfigLock(); err != nil {
		report.OK = false
		report.Failures = append(report.Failures, verify.Failure{
			Code:    wardenerrors.CodeFor(err),
			Kind:    "config_lock",
			Message: err.Error(),
		})
	}

	if err := d.replayHalfApplied(ctx, report); err != nil {
		return nil, err
	}

	if mode == ModeFull {
		full, err := d.verifier.VerifyAll(ctx)
		if err != nil {
			return nil, err
		}
		report.PacketCount = full.PacketCount
		report.CommitCount = full.CommitCount
		report.CheckpointCount = full.CheckpointCount
		report.Failures = append(report.Failures, full.Failures...)
		report.Metrics = d.metrics.Snapshot()
	} else {
		if err := d.fastChecks(ctx, report); err != nil {
			return nil, err
		}
	}

	report.OK = len(report.Failures) == 0
	return report, nil
}

// fastChecks verifies HEAD equality with the last commit file and the
// runtime-state binding for each packet, without recomputing whole chains.
func (d *Doctor) fastChecks(ctx context.Context, report *Report) error {
	ids, err := d.commits.PacketIDs()
	if err != nil {
		return err
	}
	report.PacketCount = len(ids)

	doc, err := d.states.Load(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		head, err := d.commits.Head(id)
		if err != nil {
			return err
		}
		if head == nil {
			continue
		}
		report.CommitCount += head.Seq

		last, err := d.commits.Commit(id, head.Seq)
		if err != nil {
			report.failf(id, head.Seq, "head_drift", "HEAD points at seq %d but the commit file is unreadable: %v", head.Seq, err)
			continue
		}
		if last.CommitHash != head.CommitHash || last.PostStateHash != head.PostStateHash {
			report.failf(id, head.Seq, "head_drift", "HEAD disagrees with commit %d", head.Seq)
		}

		st, ok := doc.Packets[id]
		if !ok {
			report.failf(id, head.Seq, "runtime_binding_mismatch", "no runtime state for committed packet")
			continue
		}
		stateHash, err := canonical.Hash(st.HashScope())
		if err != nil {
			return err
		}
		if stateHash != head.PostStateHash {
			report.failf(id, head.Seq, "runtime_binding_mismatch",
				"runtime state does not hash to HEAD post-state")
		}
	}

	cps, err := d.commits.Checkpoints()
	if err != nil {
		return err
	}
	report.CheckpointCount = len(cps)
	return nil
}

// replayHalfApplied repairs the commit-durable-but-state-stale case: a
// crash between the DCL append and the state-document save. When a packet's
// runtime state hashes to the last commit's pre-state, the commit's diff is
// replayed onto it and the document rewritten.
func (d *Doctor) replayHalfApplied(ctx context.Context, report *Report) error {
	ids, err := d.commits.PacketIDs()
	if err != nil {
		return err
	}

	doc, err := d.states.Load(ctx)
	if err != nil {
		return err
	}

	dirty := false
	for _, id := range ids {
		head, err := d.commits.Head(id)
		if err != nil {
			return err
		}
		if head == nil {
			continue
		}

		st := doc.Packet(id)
		stateHash, err := canonical.Hash(st.HashScope())
		if err != nil {
			return err
		}
		if stateHash == head.PostStateHash {
			continue
		}

		last, err := d.commits.Commit(id, head.Seq)
		if err != nil {
			continue // fast/full checks will report the broken chain
		}
		if stateHash != last.PreStateHash {
			continue // not the half-applied shape; verification reports it
		}

		replayed, err := d.replayCommit(st, last)
		if err != nil {
			return err
		}
		doc.Packets[id] = replayed
		report.Replayed = append(report.Replayed, id)
		dirty = true
		d.logger.Warn().Str("packet_id", id).Int("seq", last.Seq).Msg("replayed half-applied commit onto runtime state")
	}

	if dirty {
		lock, err := d.states.Lock(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = lock.Unlock() }()
		return d.states.Save(ctx, doc)
	}
	return nil
}

// replayCommit applies the commit's diff to the packet's hash-scoped state
// and carries the volatile heartbeat fields over unchanged.
func (d *Doctor) replayCommit(st *domain.PacketRuntimeState, commit *domain.DclCommit) (*domain.PacketRuntimeState, error) {
	patched, err := canonical.ApplyDiff(st.HashScope(), commit.Diff)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(patched)
	if err != nil {
		return nil, wardenerrors.Wrap(err, "failed to marshal replayed state")
	}
	var replayed domain.PacketRuntimeState
	if err := json.Unmarshal(data, &replayed); err != nil {
		return nil, fmt.Errorf("%w: replayed state: %v", wardenerrors.ErrStateCorrupted, err)
	}
	replayed.LastHeartbeatAt = st.LastHeartbeatAt
	replayed.HeartbeatPayload = st.HeartbeatPayload
	return &replayed, nil
}

// failf appends a formatted failure to the report.
func (r *Report) failf(packetID string, seq int, kind, format string, args ...any) {
	r.OK = false
	r.Failures = append(r.Failures, verify.Failure{
		PacketID: packetID,
		Seq:      seq,
		Code:     wardenerrors.CodeIntegrityFailure,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	})
}
