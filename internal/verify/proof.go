package verify

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// ProofManifest seals a proof archive: per-member SHA-256 hashes plus a
// bundle hash over the canonical hash table.
type ProofManifest struct {
	PacketID   string            `json:"packet_id"`
	CreatedAt  time.Time         `json:"created_at"`
	Files      map[string]string `json:"files"`
	BundleHash string            `json:"bundle_hash"`
}

// manifestName is the manifest member inside a proof archive.
const manifestName = "manifest.json"

// ExportProof writes a sealed zip archive for one packet: the definition
// excerpt, the full commit chain, the constitution snapshot, and the
// current runtime state. The manifest's bundle hash covers every member.
func (v *Verifier) ExportProof(ctx context.Context, root string, def *domain.PacketDefinition, outPath string, now time.Time) (*ProofManifest, error) {
	packetID := def.ID

	commits, err := v.commits.Commits(packetID)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("packet %s has no commits: %w", packetID, wardenerrors.ErrNotFound)
	}

	doc, err := v.states.Load(ctx)
	if err != nil {
		return nil, err
	}
	st, ok := doc.Packets[packetID]
	if !ok {
		return nil, fmt.Errorf("runtime state for %s: %w", packetID, wardenerrors.ErrNotFound)
	}

	constitution, err := os.ReadFile(filepath.Join(root, constants.ConstitutionFileName)) //#nosec G304 -- path comes from validated config
	if err != nil {
		return nil, wardenerrors.Wrap(err, "failed to read constitution")
	}

	members := map[string][]byte{
		"constitution.txt": constitution,
	}
	if members["definition.json"], err = json.MarshalIndent(def, "", "  "); err != nil {
		return nil, wardenerrors.Wrap(err, "failed to marshal definition excerpt")
	}
	if members["state.json"], err = json.MarshalIndent(st, "", "  "); err != nil {
		return nil, wardenerrors.Wrap(err, "failed to marshal runtime state")
	}
	for _, c := range commits {
		name := fmt.Sprintf("commits/%0*d.json", constants.CommitSeqWidth, c.Seq)
		if members[name], err = json.MarshalIndent(c, "", "  "); err != nil {
			return nil, wardenerrors.Wrap(err, "failed to marshal commit")
		}
	}

	manifest := &ProofManifest{
		PacketID:  packetID,
		CreatedAt: now.UTC().Truncate(time.Microsecond),
		Files:     make(map[string]string, len(members)),
	}
	for name, data := range members {
		manifest.Files[name] = canonical.HashBytes(data)
	}
	if manifest.BundleHash, err = canonical.Hash(manifest.Files); err != nil {
		return nil, err
	}

	if err := writeZip(outPath, members, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// writeZip writes the archive with members in sorted order, manifest last.
func writeZip(outPath string, members map[string][]byte, manifest *ProofManifest) error {
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePerm) //#nosec G304 -- operator-supplied path
	if err != nil {
		return wardenerrors.Wrap(err, "failed to create proof archive")
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return wardenerrors.Wrapf(err, "failed to add %s to proof archive", name)
		}
		if _, err := w.Write(members[name]); err != nil {
			return wardenerrors.Wrapf(err, "failed to write %s to proof archive", name)
		}
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return wardenerrors.Wrap(err, "failed to marshal proof manifest")
	}
	w, err := zw.Create(manifestName)
	if err != nil {
		return wardenerrors.Wrap(err, "failed to add manifest to proof archive")
	}
	if _, err := w.Write(manifestData); err != nil {
		return wardenerrors.Wrap(err, "failed to write manifest to proof archive")
	}

	if err := zw.Close(); err != nil {
		return wardenerrors.Wrap(err, "failed to finalize proof archive")
	}
	return f.Sync()
}

// VerifyProof checks a proof archive: every member hashes to its manifest
// entry and the bundle hash recomputes from the hash table.
func VerifyProof(path string) (*ProofManifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, wardenerrors.Wrap(err, "failed to open proof archive")
	}
	defer func() { _ = zr.Close() }()

	var manifest *ProofManifest
	contents := make(map[string][]byte, len(zr.File))
	for _, member := range zr.File {
		rc, err := member.Open()
		if err != nil {
			return nil, wardenerrors.Wrapf(err, "failed to open %s", member.Name)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, wardenerrors.Wrapf(err, "failed to read %s", member.Name)
		}
		if member.Name == manifestName {
			var m ProofManifest
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("%w: manifest parse error: %v", wardenerrors.ErrIntegrityFailure, err)
			}
			manifest = &m
			continue
		}
		contents[member.Name] = data
	}
	if manifest == nil {
		return nil, fmt.Errorf("%w: proof archive has no manifest", wardenerrors.ErrIntegrityFailure)
	}

	for name, wantHash := range manifest.Files {
		data, ok := contents[name]
		if !ok {
			return nil, fmt.Errorf("%w: manifest names missing member %s", wardenerrors.ErrIntegrityFailure, name)
		}
		if got := canonical.HashBytes(data); got != wantHash {
			return nil, fmt.Errorf("%w: member %s hash mismatch", wardenerrors.ErrIntegrityFailure, name)
		}
	}
	for name := range contents {
		if _, ok := manifest.Files[name]; !ok {
			return nil, fmt.Errorf("%w: member %s not named by manifest", wardenerrors.ErrIntegrityFailure, name)
		}
	}

	bundle, err := canonical.Hash(manifest.Files)
	if err != nil {
		return nil, err
	}
	if bundle != manifest.BundleHash {
		return nil, fmt.Errorf("%w: bundle hash mismatch", wardenerrors.ErrIntegrityFailure)
	}
	return manifest, nil
}
