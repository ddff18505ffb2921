package celestial

import (
	"math"
	"testing"

	"stellarcore/pkg/mathx"
)

func earthLike() Body {
	return Body{
		ID:       2,
		Name:     "Terra",
		Type:     Planet,
		ParentID: 1,
		Elements: mathx.Elements{
			SemiMajorAxis: 1.5e11,
			Eccentricity:  0.0167,
		},
	}
}

func seedForest(t *testing.T) *Forest {
	t.Helper()
	f := NewForest()
	if err := f.AddBody(Body{ID: 1, Name: "Sol", Type: Star, IsRoot: true, Mass: 1.989e30}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddBody(earthLike()); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestAddBodyRejectsSecondRoot(t *testing.T) {
	f := seedForest(t)
	err := f.AddBody(Body{ID: 99, IsRoot: true})
	if err != ErrRootAlreadySet {
		t.Fatalf("expected ErrRootAlreadySet, got %v", err)
	}
}

func TestAddBodyRejectsUnknownParent(t *testing.T) {
	f := NewForest()
	err := f.AddBody(Body{ID: 5, ParentID: 404, Elements: mathx.Elements{SemiMajorAxis: 1}})
	if err != ErrUnknownParent {
		t.Fatalf("expected ErrUnknownParent, got %v", err)
	}
}

func TestDeleteBodyRejectsOrphaning(t *testing.T) {
	f := seedForest(t)
	err := f.DeleteBody(1)
	if err != ErrOrphanOnDelete {
		t.Fatalf("expected ErrOrphanOnDelete, got %v", err)
	}
}

func TestAdvanceRootStaysAtOrigin(t *testing.T) {
	f := seedForest(t)
	f.Advance(100, 1.0)
	root, _ := f.Get(1)
	if root.Position != (mathx.Vec3{}) || root.Velocity != (mathx.Vec3{}) {
		t.Errorf("root moved: %+v", root)
	}
}

func TestAdvanceQuarterPeriodMatchesClosedForm(t *testing.T) {
	f := seedForest(t)
	mu := gravitationalConstant * 1.989e30
	el := earthLike().Elements
	el.Mu = mu
	period := el.Period()

	f.Advance(period/4, 1.0)
	body, _ := f.Get(2)

	wantY := el.SemiMajorAxis * math.Sqrt(1-el.Eccentricity*el.Eccentricity)
	if math.Abs(body.Position.X) > 1e-4*el.SemiMajorAxis {
		t.Errorf("expected x near 0, got %v", body.Position.X)
	}
	if math.Abs(body.Position.Y-wantY)/wantY > 1e-4 {
		t.Errorf("expected y near %v, got %v", wantY, body.Position.Y)
	}
}

func TestFrozenModeFreezesPosition(t *testing.T) {
	f := seedForest(t)
	f.Advance(1000, 1.0)
	before, _ := f.Get(2)

	f.SetFrozen(true)
	f.Advance(5000, 1.0)
	after, _ := f.Get(2)

	if before.Position != after.Position {
		t.Errorf("frozen forest moved: before %+v after %+v", before.Position, after.Position)
	}
}

func TestAdvanceGrandchildPositionIsOffsetFromParent(t *testing.T) {
	f := seedForest(t)
	moon := Body{
		ID:       3,
		Name:     "Luna",
		Type:     Moon,
		ParentID: 2,
		Mass:     7.342e22,
		Elements: mathx.Elements{
			SemiMajorAxis: 3.844e8,
			Eccentricity:  0.0549,
		},
	}
	if err := f.AddBody(moon); err != nil {
		t.Fatal(err)
	}

	f.Advance(100, 1.0)
	planet, _ := f.Get(2)
	satellite, _ := f.Get(3)

	if planet.Position.Len() < 1e10 {
		t.Fatalf("expected planet well away from origin, got %+v", planet.Position)
	}

	offset := satellite.Position.Distance(planet.Position)
	if offset < moon.Elements.SemiMajorAxis*(1-moon.Elements.Eccentricity)*0.5 ||
		offset > moon.Elements.SemiMajorAxis*(1+moon.Elements.Eccentricity)*1.5 {
		t.Fatalf("expected moon within its orbital radius of the planet, got offset %v", offset)
	}

	distFromOrigin := satellite.Position.Len()
	if distFromOrigin < planet.Position.Len()*0.5 {
		t.Fatalf("moon position looks parent-relative, not composed with parent position: moon %+v planet %+v", satellite.Position, planet.Position)
	}
}

func TestOrbitProgressIsFraction(t *testing.T) {
	f := seedForest(t)
	f.Advance(1, 1.0)
	body, _ := f.Get(2)
	if body.OrbitProgress < 0 || body.OrbitProgress >= 1 {
		t.Errorf("orbit_progress out of [0,1): %v", body.OrbitProgress)
	}
}
