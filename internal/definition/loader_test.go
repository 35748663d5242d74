package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// testDefinition builds a small valid definition for loader tests.
func testDefinition() *domain.Definition {
	return &domain.Definition{
		SchemaVersion: 1,
		Areas: []domain.WorkArea{
			{ID: "core", Title: "Core"},
			{ID: "infra", Title: "Infrastructure"},
		},
		Packets: []domain.PacketDefinition{
			{ID: "PKT-B", WbsRef: "1.2", AreaID: "core", Title: "Second", Dependencies: []string{"PKT-A"}},
			{ID: "PKT-A", WbsRef: "1.1", AreaID: "core", Title: "First"},
			{ID: "PKT-C", WbsRef: "2.1", AreaID: "infra", Title: "Third", Dependencies: []string{"PKT-B"}},
		},
	}
}

func TestBuild_Valid(t *testing.T) {
	idx, err := Build(testDefinition())
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())

	p, err := idx.Packet("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, "First", p.Title)

	_, err = idx.Area("core")
	require.NoError(t, err)
}

func TestBuild_OrderedByAreaAndWbsRef(t *testing.T) {
	idx, err := Build(testDefinition())
	require.NoError(t, err)

	ordered := idx.Ordered()
	ids := make([]string, 0, len(ordered))
	for _, p := range ordered {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"PKT-A", "PKT-B", "PKT-C"}, ids)
}

func TestBuild_SchemaRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(def *domain.Definition)
		wantErr error
	}{
		{
			"duplicate packet id",
			func(def *domain.Definition) {
				def.Packets = append(def.Packets, domain.PacketDefinition{
					ID: "PKT-A", WbsRef: "9.9", AreaID: "core", Title: "Dup",
				})
			},
			wardenerrors.ErrSchemaInvalid,
		},
		{
			"unknown area",
			func(def *domain.Definition) { def.Packets[0].AreaID = "nope" },
			wardenerrors.ErrSchemaInvalid,
		},
		{
			"unknown dependency",
			func(def *domain.Definition) { def.Packets[0].Dependencies = []string{"ghost"} },
			wardenerrors.ErrSchemaInvalid,
		},
		{
			"empty id",
			func(def *domain.Definition) { def.Packets[1].ID = "" },
			wardenerrors.ErrSchemaInvalid,
		},
		{
			"empty title",
			func(def *domain.Definition) { def.Packets[1].Title = "" },
			wardenerrors.ErrSchemaInvalid,
		},
		{
			"empty wbs_ref",
			func(def *domain.Definition) { def.Packets[1].WbsRef = "" },
			wardenerrors.ErrSchemaInvalid,
		},
		{
			"self dependency",
			func(def *domain.Definition) { def.Packets[1].Dependencies = []string{"PKT-A"} },
			wardenerrors.ErrDependencyCycle,
		},
		{
			"required manifest entry without file",
			func(def *domain.Definition) {
				def.Packets[1].ContextManifest = []domain.ContextManifestEntry{{Required: true}}
			},
			wardenerrors.ErrSchemaInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testDefinition()
			tt.mutate(def)
			_, err := Build(def)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuild_RejectsCycles(t *testing.T) {
	def := testDefinition()
	// PKT-A → PKT-C closes the A→B→C chain into a cycle.
	def.Packets[1].Dependencies = []string{"PKT-C"}

	_, err := Build(def)
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrDependencyCycle)
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "definition.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"schema_version": 1,
		"areas": [{"id": "core", "title": "Core"}],
		"packets": [{"id": "PKT-A", "wbs_ref": "1.1", "area_id": "core", "title": "Only"}]
	}`), 0o600))

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "definition.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrNotFound)
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "definition.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrSchemaInvalid)
}
