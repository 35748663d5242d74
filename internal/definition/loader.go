// Package definition loads and indexes the immutable work definition.
//
// The definition document (definition.json) is read once per process,
// validated against the schema rules, and served as a read-only index.
// Mutating a definition requires out-of-band replacement and
// reinitialization; nothing in this package writes.
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// Index is the validated, indexed, read-only definition.
type Index struct {
	def     *domain.Definition
	areas   map[string]*domain.WorkArea
	packets map[string]*domain.PacketDefinition
	byArea  map[string][]*domain.PacketDefinition
}

// Load reads, parses, and validates the definition document at path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("definition %s: %w", path, wardenerrors.ErrNotFound)
		}
		return nil, wardenerrors.Wrapf(err, "failed to read definition %s", path)
	}

	var def domain.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: definition parse error: %v", wardenerrors.ErrSchemaInvalid, err)
	}

	return Build(&def)
}

// Build validates and indexes an in-memory definition. Exposed separately so
// tests can construct definitions without touching disk.
func Build(def *domain.Definition) (*Index, error) {
	idx := &Index{
		def:     def,
		areas:   make(map[string]*domain.WorkArea, len(def.Areas)),
		packets: make(map[string]*domain.PacketDefinition, len(def.Packets)),
		byArea:  make(map[string][]*domain.PacketDefinition),
	}

	for i := range def.Areas {
		area := &def.Areas[i]
		if area.ID == "" {
			return nil, fmt.Errorf("%w: area %d has empty id", wardenerrors.ErrSchemaInvalid, i)
		}
		if _, dup := idx.areas[area.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate area id %q", wardenerrors.ErrSchemaInvalid, area.ID)
		}
		idx.areas[area.ID] = area
	}

	for i := range def.Packets {
		p := &def.Packets[i]
		if err := validatePacket(p); err != nil {
			return nil, err
		}
		if _, dup := idx.packets[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate packet id %q", wardenerrors.ErrSchemaInvalid, p.ID)
		}
		if _, ok := idx.areas[p.AreaID]; !ok {
			return nil, fmt.Errorf("%w: packet %q references unknown area %q",
				wardenerrors.ErrSchemaInvalid, p.ID, p.AreaID)
		}
		idx.packets[p.ID] = p
		idx.byArea[p.AreaID] = append(idx.byArea[p.AreaID], p)
	}

	for _, p := range idx.packets {
		for _, dep := range p.Dependencies {
			if _, ok := idx.packets[dep]; !ok {
				return nil, fmt.Errorf("%w: packet %q depends on unknown packet %q",
					wardenerrors.ErrSchemaInvalid, p.ID, dep)
			}
			if dep == p.ID {
				return nil, fmt.Errorf("%w: packet %q depends on itself",
					wardenerrors.ErrDependencyCycle, p.ID)
			}
		}
	}

	if err := idx.rejectCycles(); err != nil {
		return nil, err
	}

	// Pre-sort each area's packets by (area_id, wbs_ref): ids are display
	// handles, never ordering keys.
	for area := range idx.byArea {
		packets := idx.byArea[area]
		sort.Slice(packets, func(i, j int) bool {
			return packets[i].WbsRef < packets[j].WbsRef
		})
	}

	return idx, nil
}

// validatePacket checks a single packet's required fields.
func validatePacket(p *domain.PacketDefinition) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: packet with empty id", wardenerrors.ErrSchemaInvalid)
	case p.AreaID == "":
		return fmt.Errorf("%w: packet %q has empty area_id", wardenerrors.ErrSchemaInvalid, p.ID)
	case p.Title == "":
		return fmt.Errorf("%w: packet %q has empty title", wardenerrors.ErrSchemaInvalid, p.ID)
	case p.WbsRef == "":
		return fmt.Errorf("%w: packet %q has empty wbs_ref", wardenerrors.ErrSchemaInvalid, p.ID)
	case p.HeartbeatIntervalSeconds < 0:
		return fmt.Errorf("%w: packet %q has negative heartbeat interval", wardenerrors.ErrSchemaInvalid, p.ID)
	}
	for _, entry := range p.ContextManifest {
		if entry.File == "" {
			return fmt.Errorf("%w: packet %q has context manifest entry with empty file",
				wardenerrors.ErrSchemaInvalid, p.ID)
		}
	}
	return nil
}

// rejectCycles runs a three-color depth-first search over the dependency
// graph and fails on any back edge.
func (idx *Index) rejectCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(idx.packets))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, dep := range idx.packets[id].Dependencies {
			switch color[dep] {
			case gray:
				return fmt.Errorf("%w: involving packets %q and %q",
					wardenerrors.ErrDependencyCycle, id, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	ids := idx.PacketIDs()
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Packet returns the definition for id, or ErrNotFound.
func (idx *Index) Packet(id string) (*domain.PacketDefinition, error) {
	p, ok := idx.packets[id]
	if !ok {
		return nil, fmt.Errorf("packet %q: %w", id, wardenerrors.ErrNotFound)
	}
	return p, nil
}

// Area returns the work area for id, or ErrNotFound.
func (idx *Index) Area(id string) (*domain.WorkArea, error) {
	a, ok := idx.areas[id]
	if !ok {
		return nil, fmt.Errorf("area %q: %w", id, wardenerrors.ErrNotFound)
	}
	return a, nil
}

// Areas returns all work areas sorted by id.
func (idx *Index) Areas() []*domain.WorkArea {
	out := make([]*domain.WorkArea, 0, len(idx.areas))
	for _, a := range idx.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PacketIDs returns every packet id sorted lexicographically. Used where a
// fixed acquisition order is needed to avoid deadlock.
func (idx *Index) PacketIDs() []string {
	ids := make([]string, 0, len(idx.packets))
	for id := range idx.packets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PacketsInArea returns the area's packets ordered by wbs_ref.
func (idx *Index) PacketsInArea(areaID string) []*domain.PacketDefinition {
	return idx.byArea[areaID]
}

// Ordered returns every packet ordered by (area_id, wbs_ref) ascending.
func (idx *Index) Ordered() []*domain.PacketDefinition {
	out := make([]*domain.PacketDefinition, 0, len(idx.packets))
	for _, p := range idx.packets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AreaID != out[j].AreaID {
			return out[i].AreaID < out[j].AreaID
		}
		return out[i].WbsRef < out[j].WbsRef
	})
	return out
}

// Len returns the number of packets.
func (idx *Index) Len() int {
	return len(idx.packets)
}
