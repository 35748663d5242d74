// Package engine implements the lifecycle state machine: transition guards,
// identity rules, evidence checks, dependency propagation, and the atomic
// write of runtime state, lifecycle log, and DCL commits.
//
// Import rules:
//   - CAN import: internal/{canonical,clock,constants,dcl,definition,domain,
//     errors,fsafe,gate,metrics,state}, standard library
//   - MUST NOT import: internal/cli, internal/doctor, internal/verify
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/clock"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/ctxutil"
	"github.com/mrz1836/warden/internal/dcl"
	"github.com/mrz1836/warden/internal/definition"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/gate"
	"github.com/mrz1836/warden/internal/metrics"
	"github.com/mrz1836/warden/internal/risk"
	"github.com/mrz1836/warden/internal/state"
)

// Timeouts bundles the observer thresholds. Zero values fall back to the
// defaults in constants.
type Timeouts struct {
	// PreflightTimeout returns a packet to pending when a submitted
	// assessment waits this long without supervisor action.
	PreflightTimeout time.Duration

	// StallThreshold is the floor on the heartbeat stall window.
	StallThreshold time.Duration

	// HeartbeatInterval applies to packets that require heartbeats but do
	// not set their own interval.
	HeartbeatInterval time.Duration
}

// withDefaults fills zero fields from the package defaults.
func (t Timeouts) withDefaults() Timeouts {
	if t.PreflightTimeout <= 0 {
		t.PreflightTimeout = constants.DefaultPreflightTimeout
	}
	if t.StallThreshold <= 0 {
		t.StallThreshold = constants.DefaultStallThreshold
	}
	if t.HeartbeatInterval <= 0 {
		t.HeartbeatInterval = constants.DefaultHeartbeatInterval
	}
	return t
}

// Options configures a new Engine.
type Options struct {
	// Root is the governance root directory.
	Root string

	// Definition is the loaded, validated work definition.
	Definition *definition.Index

	// States is the runtime state store.
	States state.Store

	// Commits is the DCL commit store.
	Commits *dcl.Store

	// Clock supplies time; defaults to the system clock.
	Clock clock.Clock

	// Logger receives structured engine events.
	Logger zerolog.Logger

	// Metrics receives counters; optional.
	Metrics *metrics.Metrics

	// Risks is the residual risk register; declared risks at completion
	// are appended to it.
	Risks *risk.Store

	// Timeouts overrides the observer thresholds.
	Timeouts Timeouts

	// ReadOnly refuses every mutation (fail-open integrity mode).
	ReadOnly bool
}

// Engine is the lifecycle engine handle. All mutation flows through it;
// there are no hidden module-level writers.
type Engine struct {
	root             string
	def              *definition.Index
	states           state.Store
	commits          *dcl.Store
	clock            clock.Clock
	logger           zerolog.Logger
	metrics          *metrics.Metrics
	risks            *risk.Store
	timeouts         Timeouts
	constitutionHash string
	readOnly         bool
}

// New creates an Engine, loading and hashing the constitution document.
func New(opts Options) (*Engine, error) {
	if opts.Definition == nil {
		return nil, fmt.Errorf("definition %w", wardenerrors.ErrEmptyValue)
	}
	if opts.States == nil {
		return nil, fmt.Errorf("state store %w", wardenerrors.ErrEmptyValue)
	}
	if opts.Commits == nil {
		return nil, fmt.Errorf("commit store %w", wardenerrors.ErrEmptyValue)
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	constitutionHash, err := ConstitutionHash(opts.Root)
	if err != nil {
		return nil, err
	}

	return &Engine{
		root:             opts.Root,
		def:              opts.Definition,
		states:           opts.States,
		commits:          opts.Commits,
		clock:            opts.Clock,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		risks:            opts.Risks,
		timeouts:         opts.Timeouts.withDefaults(),
		constitutionHash: constitutionHash,
		readOnly:         opts.ReadOnly,
	}, nil
}

// ConstitutionHash hashes the governance rules document at the root.
// Every commit binds this hash; editing the document after any commit is a
// governed operation (definition replacement), not a silent file edit.
func ConstitutionHash(root string) (string, error) {
	path := filepath.Join(root, constants.ConstitutionFileName)
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("constitution %s: %w", path, wardenerrors.ErrNotFound)
		}
		return "", wardenerrors.Wrap(err, "failed to read constitution")
	}
	return canonical.HashBytes(data), nil
}

// Definition returns the engine's read-only definition index.
func (e *Engine) Definition() *definition.Index {
	return e.def
}

// SetReadOnly flips fail-open mutation refusal.
func (e *Engine) SetReadOnly(ro bool) {
	e.readOnly = ro
}

// now returns the engine's current time in the canonical resolution.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Microsecond)
}

// Snapshot returns the current state document.
func (e *Engine) Snapshot(ctx context.Context) (*domain.StateDocument, error) {
	return e.states.Load(ctx)
}

// Ready enumerates claimable packets ordered by (area_id, wbs_ref).
func (e *Engine) Ready(ctx context.Context) ([]*domain.PacketDefinition, error) {
	doc, err := e.states.Load(ctx)
	if err != nil {
		return nil, err
	}
	return gate.ReadyList(e.def, doc), nil
}

// mutation is one packet's guarded state change inside a transaction.
// It inspects and mutates st in place; details feed the lifecycle log.
type mutation func(doc *domain.StateDocument, st *domain.PacketRuntimeState, def *domain.PacketDefinition) (details map[string]any, err error)

// applyOpts tunes apply's commit and propagation behavior.
type applyOpts struct {
	// skipCommit suppresses the DCL commit (payload-only heartbeats).
	skipCommit bool

	// propagate recomputes blocked propagation after the mutation.
	propagate bool

	// inputs is the action envelope's input record.
	inputs map[string]any
}

// apply executes one packet transition atomically: guard, mutate, emit the
// DCL commit, append the log entry, persist the state document. On any
// rejection the on-disk artifacts are untouched.
func (e *Engine) apply(ctx context.Context, packetID string, event constants.LifecycleEvent, actor string, opts applyOpts, mutate mutation) (*domain.PacketRuntimeState, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if err := e.checkMutable(actor); err != nil {
		return nil, err
	}

	def, err := e.def.Packet(packetID)
	if err != nil {
		return nil, err
	}

	// Global state lock first, packet locks second, always in that order;
	// every writer follows it, so the pair cannot deadlock.
	stateLock, err := e.states.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stateLock.Unlock() }()

	packetLock, err := e.commits.LockPacket(ctx, packetID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = packetLock.Unlock() }()

	// Idempotent journal recovery: a crashed predecessor must not leave a
	// half-advanced chain under us.
	if _, err := e.commits.Recover(packetID); err != nil {
		return nil, err
	}

	doc, err := e.states.Load(ctx)
	if err != nil {
		return nil, err
	}

	st := doc.Packet(packetID)
	pre := st.Clone()

	details, err := mutate(doc, st, def)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if !opts.skipCommit {
		if err := e.emitCommit(packetID, event, actor, opts.inputs, pre, st, now); err != nil {
			return nil, err
		}
	}
	e.appendLog(doc, domain.LifecycleLogEntry{
		Timestamp: now,
		PacketID:  packetID,
		Event:     event,
		Actor:     actor,
		Details:   details,
	})

	if opts.propagate {
		if err := e.propagate(ctx, doc, packetID, now); err != nil {
			return nil, err
		}
	}

	if err := e.states.Save(ctx, doc); err != nil {
		// The commit is durable; the doctor replays its diff onto the
		// stale state document at next startup.
		return nil, err
	}

	e.metrics.RecordTransition(event)
	e.logger.Info().
		Str("packet_id", packetID).
		Str("event", string(event)).
		Str("actor", actor).
		Str("status", string(st.Status)).
		Msg("transition applied")

	return st.Clone(), nil
}

// checkMutable rejects mutations in fail-open read-only mode and actions
// without an actor identity.
func (e *Engine) checkMutable(actor string) error {
	if e.readOnly {
		return wardenerrors.ErrMutationRefused
	}
	if actor == "" {
		return fmt.Errorf("actor %w", wardenerrors.ErrEmptyValue)
	}
	return nil
}

// emitCommit builds, seals, and appends the DCL commit for one transition.
func (e *Engine) emitCommit(packetID string, event constants.LifecycleEvent, actor string, inputs map[string]any, pre, post *domain.PacketRuntimeState, now time.Time) error {
	commit, err := e.commits.NextCommit(packetID)
	if err != nil {
		return err
	}

	envelope := domain.ActionEnvelope{
		Event:     event,
		Actor:     actor,
		Inputs:    inputs,
		Timestamp: now,
	}
	actionHash, err := canonical.Hash(envelope)
	if err != nil {
		return err
	}
	preHash, err := canonical.Hash(pre.HashScope())
	if err != nil {
		return err
	}
	postHash, err := canonical.Hash(post.HashScope())
	if err != nil {
		return err
	}
	diff, err := canonical.Diff(pre.HashScope(), post.HashScope())
	if err != nil {
		return err
	}

	commit.CommitID = uuid.NewString()
	commit.ActionHash = actionHash
	commit.PreStateHash = preHash
	commit.PostStateHash = postHash
	commit.ConstitutionHash = e.constitutionHash
	commit.Diff = diff
	commit.CreatedAt = now
	commit.ActionEnvelope = envelope

	if err := dcl.Seal(commit); err != nil {
		return err
	}
	if err := e.commits.Append(commit); err != nil {
		return err
	}
	e.metrics.RecordCommit()
	return nil
}

// appendLog appends one entry to the embedded lifecycle log. Entries are
// only ever appended here; nothing in the engine rewrites or removes one.
func (e *Engine) appendLog(doc *domain.StateDocument, entry domain.LifecycleLogEntry) {
	doc.Log = append(doc.Log, entry)
}

// propagate recomputes blocked propagation across the DAG and seals one
// observer commit per flipped packet so the runtime binding invariant
// survives the flip. The caller holds the global state lock plus the lock
// of heldPacketID; that packet's lock is not retaken.
func (e *Engine) propagate(ctx context.Context, doc *domain.StateDocument, heldPacketID string, now time.Time) error {
	changes := gate.Recompute(e.def, doc)
	if len(changes) == 0 {
		return nil
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].PacketID < changes[j].PacketID })

	for _, change := range changes {
		event := constants.EventBlocked
		if change.To == constants.StatusPending {
			event = constants.EventUnblocked
		}

		var packetLock interface{ Unlock() error }
		if change.PacketID != heldPacketID {
			lock, err := e.commits.LockPacket(ctx, change.PacketID)
			if err != nil {
				return err
			}
			packetLock = lock
		}

		pre := doc.Packet(change.PacketID).Clone()
		pre.Status = change.From
		post := doc.Packet(change.PacketID)

		err := e.emitCommit(change.PacketID, event, constants.ActorObserver,
			map[string]any{"from": string(change.From), "to": string(change.To)}, pre, post, now)
		if packetLock != nil {
			if unlockErr := packetLock.Unlock(); unlockErr != nil && err == nil {
				err = unlockErr
			}
		}
		if err != nil {
			return err
		}

		e.appendLog(doc, domain.LifecycleLogEntry{
			Timestamp: now,
			PacketID:  change.PacketID,
			Event:     event,
			Actor:     constants.ActorObserver,
			Details:   map[string]any{"from": string(change.From), "to": string(change.To)},
		})
		e.metrics.RecordTransition(event)
	}
	return nil
}

// transition flips the status and records the change in the packet's
// transition history.
func (e *Engine) transition(st *domain.PacketRuntimeState, to constants.PacketStatus, event constants.LifecycleEvent, actor, reason string) {
	now := e.now()
	st.Transitions = append(st.Transitions, domain.Transition{
		FromStatus: st.Status,
		ToStatus:   to,
		Event:      event,
		Actor:      actor,
		Timestamp:  now,
		Reason:     reason,
	})
	st.Status = to
	if to == constants.StatusDone || to == constants.StatusFailed {
		st.CompletedAt = &now
	}
}
