// Package aoi implements the Area of Interest partitioner:
// spatial assignment of entities to replication zones, with load-derived
// update rates and stable enter/leave membership events.
package aoi

import (
	"sort"

	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

// Zone is one AOI sphere.
type Zone struct {
	ID          uint32
	Name        string
	Center      mathx.Vec3
	Radius      float64
	Capacity    int
	PlayerCount int
	NPCCount    int
	Load        float64
	UpdateHz    float64
}

// EntityPos is the minimal per-entity input the assignment pass needs.
type EntityPos struct {
	ID       uuid.UUID
	Position mathx.Vec3
	IsPlayer bool
}

// Event reports a membership transition for the next snapshot batch.
type Event struct {
	EntityID uuid.UUID
	ZoneID   uint32
	Entered  bool
}

const unassigned = 0

// Partitioner owns the zone table and the current entity->zone binding.
// Rebuilt once per tick by Assign; never destroys a zone with bound
// entities.
type Partitioner struct {
	zones    map[uint32]*Zone
	order    []uint32 // zone ids in stable (ascending) order for tie-breaks
	bindings map[uuid.UUID]uint32

	baseHz float64
	kLoad  float64
	minHz  float64
}

func NewPartitioner(baseHz, kLoad, minHz float64) *Partitioner {
	return &Partitioner{
		zones:    make(map[uint32]*Zone),
		bindings: make(map[uuid.UUID]uint32),
		baseHz:   baseHz,
		kLoad:    kLoad,
		minHz:    minHz,
	}
}

func (p *Partitioner) AddZone(z Zone) {
	cp := z
	p.zones[z.ID] = &cp
	p.order = append(p.order, z.ID)
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
}

// RemoveZone deletes a zone with no bound entities. Returns false if any
// entity is still bound (callers must reassign first).
func (p *Partitioner) RemoveZone(id uint32) bool {
	z, ok := p.zones[id]
	if !ok {
		return true
	}
	if z.PlayerCount+z.NPCCount > 0 {
		return false
	}
	delete(p.zones, id)
	for i, zid := range p.order {
		if zid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

func (p *Partitioner) Zone(id uint32) (Zone, bool) {
	z, ok := p.zones[id]
	if !ok {
		return Zone{}, false
	}
	return *z, true
}

func (p *Partitioner) Zones() []Zone {
	out := make([]Zone, 0, len(p.zones))
	for _, id := range p.order {
		out = append(out, *p.zones[id])
	}
	return out
}

func (p *Partitioner) ZoneOf(id uuid.UUID) uint32 {
	return p.bindings[id]
}

// Assign rebuilds zone membership for the given entities: each entity
// binds to the zone minimizing distance/radius among zones under
// capacity whose radius contains it, else to the nearest zone under
// capacity within twice its radius, else goes unassigned; then recomputes
// player_count/npc_count/load/update_hz. It returns the enter/leave
// events produced by this rebuild, stably ordered by zone id then
// entity id.
func (p *Partitioner) Assign(entities []EntityPos) []Event {
	for _, z := range p.zones {
		z.PlayerCount, z.NPCCount = 0, 0
	}

	var events []Event
	newBindings := make(map[uuid.UUID]uint32, len(entities))

	sortedEntities := make([]EntityPos, len(entities))
	copy(sortedEntities, entities)
	sort.Slice(sortedEntities, func(i, j int) bool {
		return sortedEntities[i].ID.String() < sortedEntities[j].ID.String()
	})

	for _, e := range sortedEntities {
		zoneID := p.pickZone(e.Position)
		newBindings[e.ID] = zoneID
		if zoneID != unassigned {
			z := p.zones[zoneID]
			if e.IsPlayer {
				z.PlayerCount++
			} else {
				z.NPCCount++
			}
		}

		if old, had := p.bindings[e.ID]; !had || old != zoneID {
			if had && old != unassigned {
				events = append(events, Event{EntityID: e.ID, ZoneID: old, Entered: false})
			}
			if zoneID != unassigned {
				events = append(events, Event{EntityID: e.ID, ZoneID: zoneID, Entered: true})
			}
		}
	}
	p.bindings = newBindings

	for _, id := range p.order {
		z := p.zones[id]
		z.Load = float64(z.PlayerCount+z.NPCCount) / float64(z.Capacity)
		z.UpdateHz = mathx.Clamp(p.baseHz*(1-z.Load*p.kLoad), p.minHz, p.baseHz)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].ZoneID != events[j].ZoneID {
			return events[i].ZoneID < events[j].ZoneID
		}
		return events[i].EntityID.String() < events[j].EntityID.String()
	})
	return events
}

// pickZone implements the ratio-minimizing assignment with a 2R
// not-at-capacity fallback. Ties broken by
// ascending zone id via p.order's iteration order.
func (p *Partitioner) pickZone(pos mathx.Vec3) uint32 {
	bestRatio := -1.0
	bestID := uint32(unassigned)

	for _, id := range p.order {
		z := p.zones[id]
		if z.Capacity > 0 && z.PlayerCount+z.NPCCount >= z.Capacity {
			continue
		}
		ratio := pos.Distance(z.Center) / z.Radius
		if ratio <= 1.0 && (bestID == unassigned || ratio < bestRatio) {
			bestRatio = ratio
			bestID = id
		}
	}
	if bestID != unassigned {
		return bestID
	}

	bestDist := -1.0
	for _, id := range p.order {
		z := p.zones[id]
		if z.Capacity > 0 && z.PlayerCount+z.NPCCount >= z.Capacity {
			continue
		}
		dist := pos.Distance(z.Center)
		if dist <= 2*z.Radius && (bestID == unassigned || dist < bestDist) {
			bestDist = dist
			bestID = id
		}
	}
	return bestID
}

// ViewSet returns the ids of the entities bound to zoneID, sorted by id.
// It holds entity ids only: celestial bodies and the other zones' summary
// rows are not part of it and are sent separately by the caller.
func (p *Partitioner) ViewSet(zoneID uint32) []uuid.UUID {
	out := make([]uuid.UUID, 0)
	for id, z := range p.bindings {
		if z == zoneID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
