package engine

import (
	"context"
	"fmt"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// CloseoutL2 performs a level-2 area closeout: every packet in the area
// must be done. It appends the closeout log entry and snapshots every
// packet's HEAD into a new project checkpoint.
func (e *Engine) CloseoutL2(ctx context.Context, areaID, supervisor string, assessment map[string]any, notes string) (*domain.ProjectCheckpoint, error) {
	if err := e.checkMutable(supervisor); err != nil {
		return nil, err
	}
	if _, err := e.def.Area(areaID); err != nil {
		return nil, err
	}

	stateLock, err := e.states.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stateLock.Unlock() }()

	doc, err := e.states.Load(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range e.def.PacketsInArea(areaID) {
		st, ok := doc.Packets[p.ID]
		if !ok || st.Status != constants.StatusDone {
			return nil, fmt.Errorf("%w: packet %s in area %s is not done",
				wardenerrors.ErrAreaIncomplete, p.ID, areaID)
		}
	}

	now := e.now()
	cp, err := e.commits.WriteCheckpoint(now)
	if err != nil {
		return nil, err
	}

	details := map[string]any{
		"checkpoint_id": cp.CheckpointID,
		"assessment":    assessment,
	}
	if notes != "" {
		details["notes"] = notes
	}
	e.appendLog(doc, domain.LifecycleLogEntry{
		Timestamp: now,
		AreaID:    areaID,
		Event:     constants.EventCloseoutL2,
		Actor:     supervisor,
		Details:   details,
	})

	if err := e.states.Save(ctx, doc); err != nil {
		return nil, err
	}

	e.metrics.RecordTransition(constants.EventCloseoutL2)
	e.logger.Info().
		Str("area_id", areaID).
		Str("actor", supervisor).
		Str("checkpoint_id", cp.CheckpointID).
		Msg("area closed out")

	return cp, nil
}

// Checkpoint snapshots every packet's HEAD without a closeout. Exposed as a
// first-class operator command.
func (e *Engine) Checkpoint(ctx context.Context, actor string) (*domain.ProjectCheckpoint, error) {
	if err := e.checkMutable(actor); err != nil {
		return nil, err
	}

	stateLock, err := e.states.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stateLock.Unlock() }()

	return e.commits.WriteCheckpoint(e.now())
}
