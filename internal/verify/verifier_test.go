package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	"github.com/mrz1836/warden/internal/testutil"
)

// completedHarness runs packet A to done and returns a verifier over the root.
func completedHarness(t *testing.T) (*testutil.Harness, *Verifier) {
	t.Helper()
	h := testutil.NewHarness(t, testutil.SimplePackets())
	ctx := context.Background()

	_, err := h.Engine.Claim(ctx, "A", "alice", nil)
	require.NoError(t, err)
	_, err = h.Engine.Done(ctx, "A", "alice", "impl+tests", testutil.NoneAck())
	require.NoError(t, err)

	return h, New(h.Commits, h.States, h.Metrics)
}

func TestVerifyPacket_CleanChain(t *testing.T) {
	_, v := completedHarness(t)

	report, err := v.VerifyPacket(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, report.OK, "failures: %+v", report.Failures)
	assert.Equal(t, 2, report.CommitCount)
}

func TestVerifyAll_Clean(t *testing.T) {
	h, v := completedHarness(t)
	ctx := context.Background()

	_, err := h.Engine.Claim(ctx, "B", "bob", nil)
	require.NoError(t, err)
	_, err = h.Engine.Done(ctx, "B", "bob", "impl", testutil.NoneAck())
	require.NoError(t, err)

	report, err := v.VerifyAll(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK, "failures: %+v", report.Failures)
	assert.Equal(t, 4, report.CommitCount)
}

// tamperCommit rewrites one field of a stored commit file.
func tamperCommit(t *testing.T, h *testutil.Harness, packetID string, seq int, mutate func(c *domain.DclCommit)) {
	t.Helper()
	path := filepath.Join(h.Root, constants.DclDirName, constants.PacketsDirName,
		packetID, constants.CommitsDirName, fmt.Sprintf("%06d.json", seq))
	data, err := os.ReadFile(path) //#nosec G304 -- test fixture path
	require.NoError(t, err)
	var c domain.DclCommit
	require.NoError(t, json.Unmarshal(data, &c))
	mutate(&c)
	out, err := json.MarshalIndent(&c, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o600))
}

func TestVerifyPacket_DetectsCommitTamper(t *testing.T) {
	h, v := completedHarness(t)

	tamperCommit(t, h, "A", 1, func(c *domain.DclCommit) {
		c.ActionEnvelope.Actor = "mallory"
	})

	report, err := v.VerifyPacket(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, "commit_hash_mismatch", report.Failures[0].Kind)
}

func TestVerifyPacket_DetectsBrokenLink(t *testing.T) {
	h, v := completedHarness(t)

	tamperCommit(t, h, "A", 2, func(c *domain.DclCommit) {
		c.PrevCommitHash = "0000000000000000000000000000000000000000000000000000000000000000"
	})

	report, err := v.VerifyPacket(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, report.OK)

	kinds := failureKinds(report.Failures)
	assert.Contains(t, kinds, "prev_hash_mismatch")
	// The rewritten file no longer matches its stored hash either.
	assert.Contains(t, kinds, "commit_hash_mismatch")
}

func TestVerifyPacket_DetectsSeqGap(t *testing.T) {
	h, v := completedHarness(t)

	require.NoError(t, os.Remove(filepath.Join(h.Root, constants.DclDirName,
		constants.PacketsDirName, "A", constants.CommitsDirName, "000001.json")))

	report, err := v.VerifyPacket(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, "seq_discontinuity", report.Failures[0].Kind)
}

func TestVerifyPacket_DetectsRuntimeBindingMismatch(t *testing.T) {
	h, v := completedHarness(t)
	ctx := context.Background()

	// Silent state edit behind the commitment layer's back.
	doc, err := h.States.Load(ctx)
	require.NoError(t, err)
	doc.Packets["A"].Notes = "tampered"
	require.NoError(t, h.States.Save(ctx, doc))

	report, err := v.VerifyPacket(ctx, "A")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Contains(t, failureKinds(report.Failures), "runtime_binding_mismatch")
}

func TestVerifyPacket_DetectsHeadDrift(t *testing.T) {
	h, v := completedHarness(t)

	headPath := filepath.Join(h.Root, constants.DclDirName, constants.PacketsDirName, "A", constants.HeadFileName)
	require.NoError(t, os.WriteFile(headPath,
		[]byte(`{"seq":1,"commit_hash":"beef","post_state_hash":"beef"}`), 0o600))

	report, err := v.VerifyPacket(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Contains(t, failureKinds(report.Failures), "head_drift")
}

func TestVerifyAll_ChecksLatestCheckpoint(t *testing.T) {
	h, v := completedHarness(t)
	ctx := context.Background()

	_, err := h.Engine.Checkpoint(ctx, "sam")
	require.NoError(t, err)

	report, err := v.VerifyAll(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK, "failures: %+v", report.Failures)
	assert.Equal(t, 1, report.CheckpointCount)

	// Later commits on other packets do not invalidate an older checkpoint.
	_, err = h.Engine.Claim(ctx, "B", "bob", nil)
	require.NoError(t, err)
	report, err = v.VerifyAll(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK, "failures: %+v", report.Failures)
}

func TestHistory_MarksDivergence(t *testing.T) {
	h, v := completedHarness(t)

	entries, err := v.History("A")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].OK)

	tamperCommit(t, h, "A", 2, func(c *domain.DclCommit) {
		c.ActionEnvelope.Actor = "mallory"
	})
	entries, err = v.History("A")
	require.NoError(t, err)
	assert.False(t, entries[1].OK)
}

func TestExportProof_RoundTrip(t *testing.T) {
	h, v := completedHarness(t)
	ctx := context.Background()

	def, err := h.Def.Packet("A")
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "proof.zip")
	manifest, err := v.ExportProof(ctx, h.Root, def, outPath,
		time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEmpty(t, manifest.BundleHash)
	assert.Contains(t, manifest.Files, "constitution.txt")
	assert.Contains(t, manifest.Files, "commits/000001.json")

	// verify(export_proof(p)) succeeds.
	verified, err := VerifyProof(outPath)
	require.NoError(t, err)
	assert.Equal(t, manifest.BundleHash, verified.BundleHash)
}

func TestVerifyProof_DetectsTamper(t *testing.T) {
	h, v := completedHarness(t)
	ctx := context.Background()

	def, err := h.Def.Packet("A")
	require.NoError(t, err)
	outPath := filepath.Join(t.TempDir(), "proof.zip")
	_, err = v.ExportProof(ctx, h.Root, def, outPath, time.Now())
	require.NoError(t, err)

	// Clobber the archive body.
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_TRUNC, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("not a zip anymore")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = VerifyProof(outPath)
	require.Error(t, err)
}

// failureKinds projects failures to their kinds.
func failureKinds(failures []Failure) []string {
	kinds := make([]string, 0, len(failures))
	for _, f := range failures {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}
