package mathx

import "testing"
import "math"

func TestSolveEccentricAnomalyCircularConvergesImmediately(t *testing.T) {
	M := 1.2345
	E := SolveEccentricAnomaly(M, 0)
	if math.Abs(E-M) > 1e-12 {
		t.Fatalf("circular orbit should return E == M, got E=%v M=%v", E, M)
	}
}

func TestSolveEccentricAnomalySatisfiesKeplerEquation(t *testing.T) {
	for _, e := range []float64{0, 0.0167, 0.3, 0.9} {
		for _, M := range []float64{0, 0.5, 1.0, 3.0, 5.5} {
			E := SolveEccentricAnomaly(M, e)
			residual := math.Abs(M - (E - e*math.Sin(E)))
			if residual > 1e-9 {
				t.Errorf("e=%v M=%v: |M-(E-e sinE)|=%v exceeds 1e-9", e, M, residual)
			}
		}
	}
}

func TestPropagateRejectsNonElliptic(t *testing.T) {
	_, err := Propagate(Elements{SemiMajorAxis: 1, Eccentricity: 1.0}, 0)
	if err != ErrNonElliptic {
		t.Fatalf("expected ErrNonElliptic, got %v", err)
	}
}

func TestPropagateEarthLikeQuarterPeriod(t *testing.T) {
	const G = 6.674e-11
	const sunMass = 1.989e30
	el := Elements{
		SemiMajorAxis: 1.5e11,
		Eccentricity:  0.0167,
		Mu:            G * sunMass,
	}
	T := el.Period()
	st, err := Propagate(el, T/4)
	if err != nil {
		t.Fatal(err)
	}
	b := el.SemiMajorAxis * math.Sqrt(1-el.Eccentricity*el.Eccentricity)
	if math.Abs(st.Position.X) > 1e-4*el.SemiMajorAxis {
		t.Errorf("position.x should be ~0 at T/4, got %v", st.Position.X)
	}
	rel := math.Abs(st.Position.Y-b) / b
	if rel > 1e-4 {
		t.Errorf("position.y = %v, want ~%v (rel err %v)", st.Position.Y, b, rel)
	}
}

func TestPropagateRadiusBounds(t *testing.T) {
	el := Elements{SemiMajorAxis: 1e10, Eccentricity: 0.4, Mu: 3.986e14}
	T := el.Period()
	for frac := 0.0; frac < 1.0; frac += 0.05 {
		st, err := Propagate(el, T*frac)
		if err != nil {
			t.Fatal(err)
		}
		r := st.Position.Len()
		lo := el.SemiMajorAxis * (1 - el.Eccentricity)
		hi := el.SemiMajorAxis * (1 + el.Eccentricity)
		tol := 1e-6 * hi
		if r < lo-tol || r > hi+tol {
			t.Errorf("frac=%v radius %v outside [%v,%v]", frac, r, lo, hi)
		}
	}
}

func TestPropagateRejectsRootSentinelElements(t *testing.T) {
	// Root bodies are never propagated via Kepler elements (a=e=0 is
	// their sentinel); the celestial simulator special-cases them.
	// This test documents that Propagate itself is undefined for a=0 and
	// callers must not invoke it for the root.
	_, err := Propagate(Elements{SemiMajorAxis: 0}, 0)
	if err == nil {
		t.Fatal("expected an error for a=0 (root body sentinel), propagation must be special-cased by the caller")
	}
}
