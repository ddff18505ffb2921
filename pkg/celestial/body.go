// Package celestial owns the body forest and advances it each tick via
// the Kepler primitives in pkg/mathx.
package celestial

import (
	"errors"

	"stellarcore/pkg/mathx"
)

type BodyType byte

const (
	Star BodyType = iota
	Planet
	Moon
	Asteroid
	Comet
	Station
)

// Body is the orbital definition plus the per-tick computed pose kept in
// one flat struct, favoring a flat record with derived fields over split
// read/write types.
type Body struct {
	ID       uint32
	Name     string
	Type     BodyType
	Mass     float64
	Radius   float64
	ParentID uint32 // 0 means root; root has no parent
	IsRoot   bool
	Color    uint32

	Elements mathx.Elements

	// Computed each tick.
	Position      mathx.Vec3
	Velocity      mathx.Vec3
	OrbitProgress float64
}

var (
	ErrUnknownBody     = errors.New("celestial: unknown body id")
	ErrDuplicateBody   = errors.New("celestial: id already exists")
	ErrRootAlreadySet  = errors.New("celestial: forest already has a root")
	ErrUnknownParent   = errors.New("celestial: parent id does not exist")
	ErrOrphanOnDelete  = errors.New("celestial: delete would orphan children")
	ErrNonRootElements = errors.New("celestial: non-root body must have a>0")
	ErrRootElements    = errors.New("celestial: root body must have a=0, e=0")
)

const gravitationalConstant = 6.674e-11

// Forest is the body table: a tree keyed by id with exactly one root.
// Mutation goes only through the admin mutation queue at tick
// boundaries; Advance is called once per tick thereafter.
type Forest struct {
	bodies   map[uint32]*Body
	children map[uint32][]uint32
	rootID   uint32
	hasRoot  bool

	simTimeSeconds float64
	frozen         bool
}

func NewForest() *Forest {
	return &Forest{
		bodies:   make(map[uint32]*Body),
		children: make(map[uint32][]uint32),
	}
}

// AddBody inserts a new body. Exactly one root is permitted; all others
// must reference an existing parent and carry a>0.
func (f *Forest) AddBody(b Body) error {
	if _, exists := f.bodies[b.ID]; exists {
		return ErrDuplicateBody
	}
	if b.IsRoot {
		if f.hasRoot {
			return ErrRootAlreadySet
		}
		if b.Elements.SemiMajorAxis != 0 || b.Elements.Eccentricity != 0 {
			return ErrRootElements
		}
	} else {
		if _, ok := f.bodies[b.ParentID]; !ok {
			return ErrUnknownParent
		}
		if b.Elements.SemiMajorAxis <= 0 {
			return ErrNonRootElements
		}
		if err := b.Elements.Validate(); err != nil {
			return err
		}
	}

	cp := b
	f.bodies[b.ID] = &cp
	if b.IsRoot {
		f.rootID = b.ID
		f.hasRoot = true
	} else {
		f.children[b.ParentID] = append(f.children[b.ParentID], b.ID)
	}
	return nil
}

// UpdateBody replaces the orbital elements (and descriptive fields) of
// an existing non-root body. The parent relation cannot be changed by
// update; removing and re-adding is required to reparent.
func (f *Forest) UpdateBody(id uint32, elements mathx.Elements, name string, color uint32) error {
	b, ok := f.bodies[id]
	if !ok {
		return ErrUnknownBody
	}
	if b.IsRoot {
		return ErrRootElements
	}
	if err := elements.Validate(); err != nil {
		return err
	}
	b.Elements = elements
	b.Name = name
	b.Color = color
	return nil
}

// DeleteBody removes a leaf body. A delete that would orphan children is
// rejected.
func (f *Forest) DeleteBody(id uint32) error {
	b, ok := f.bodies[id]
	if !ok {
		return ErrUnknownBody
	}
	if kids := f.children[id]; len(kids) > 0 {
		return ErrOrphanOnDelete
	}
	delete(f.bodies, id)
	siblings := f.children[b.ParentID]
	for i, sid := range siblings {
		if sid == id {
			f.children[b.ParentID] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if b.IsRoot {
		f.hasRoot = false
		f.rootID = 0
	}
	return nil
}

func (f *Forest) Get(id uint32) (Body, bool) {
	b, ok := f.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

func (f *Forest) All() []Body {
	out := make([]Body, 0, len(f.bodies))
	for _, b := range f.bodies {
		out = append(out, *b)
	}
	return out
}

func (f *Forest) SetFrozen(frozen bool) { f.frozen = frozen }
func (f *Forest) Frozen() bool          { return f.frozen }
func (f *Forest) SimTime() float64      { return f.simTimeSeconds }

// Snapshot is the JSON-serializable persisted form of a Forest, restored
// at boot when a prior run saved one.
type Snapshot struct {
	SimTimeSeconds float64 `json:"sim_time_seconds"`
	Frozen         bool    `json:"frozen"`
	Bodies         []Body  `json:"bodies"`
}

// Snapshot captures the forest's full body table and clock, independent
// of insertion order, for persistence between runs.
func (f *Forest) Snapshot() Snapshot {
	return Snapshot{
		SimTimeSeconds: f.simTimeSeconds,
		Frozen:         f.frozen,
		Bodies:         f.All(),
	}
}

// Restore rebuilds a forest from a prior Snapshot. Bodies are re-added
// in parent-before-child order since AddBody requires the parent to
// already exist; the root goes first, then repeated passes over the
// remainder until every body has landed.
func Restore(snap Snapshot) (*Forest, error) {
	f := NewForest()
	var root *Body
	pending := make([]Body, 0, len(snap.Bodies))
	for i := range snap.Bodies {
		if snap.Bodies[i].IsRoot {
			root = &snap.Bodies[i]
			continue
		}
		pending = append(pending, snap.Bodies[i])
	}
	if root != nil {
		if err := f.AddBody(*root); err != nil {
			return nil, err
		}
	}
	for len(pending) > 0 {
		progressed := false
		remaining := pending[:0]
		for _, b := range pending {
			if _, ok := f.bodies[b.ParentID]; !ok {
				remaining = append(remaining, b)
				continue
			}
			if err := f.AddBody(b); err != nil {
				return nil, err
			}
			progressed = true
		}
		pending = remaining
		if !progressed {
			return nil, ErrUnknownParent
		}
	}
	f.simTimeSeconds = snap.SimTimeSeconds
	f.frozen = snap.Frozen
	return f, nil
}
