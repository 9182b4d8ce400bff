package symexpr

import (
	"math"
	"testing"
)

func evalOk(t *testing.T, e Expr, env map[string]float64) float64 {
	t.Helper()
	v, err := e.Eval(env)
	if err != nil {
		t.Fatalf("eval %s: %v", e, err)
	}
	return v
}

func TestConstantFolding(t *testing.T) {
	e := Sum(Number(1), Number(2), Mul(Number(3), Number(4)))
	if v := evalOk(t, e, nil); v != 15 {
		t.Fatalf("expected 15, got %g", v)
	}
	if !IsZero(Mul(Number(0), Symbol("x"))) {
		t.Fatal("0*x should fold to zero")
	}
	if !IsZero(Sum()) {
		t.Fatal("empty sum should be zero")
	}
}

func TestDiffPolynomial(t *testing.T) {
	// d/dx (3x^2 + 2x + 7) = 6x + 2
	x := Symbol("x")
	e := Sum(Mul(Number(3), Pow(x, 2)), Mul(Number(2), x), Number(7))
	d := e.Diff("x")
	env := map[string]float64{"x": 1.5}
	if got, want := evalOk(t, d, env), 6*1.5+2; math.Abs(got-want) > 1e-14 {
		t.Fatalf("expected %g, got %g", want, got)
	}
	if !IsZero(e.Diff("y")) {
		t.Fatal("derivative in absent symbol should be zero")
	}
}

func TestDiffProductAndPow(t *testing.T) {
	// d/dx (x^2 * y) = 2xy
	x, y := Symbol("x"), Symbol("y")
	e := Mul(Pow(x, 2), y)
	env := map[string]float64{"x": 2, "y": 3}
	if got := evalOk(t, e.Diff("x"), env); math.Abs(got-12) > 1e-14 {
		t.Fatalf("expected 12, got %g", got)
	}
	// d/dx sqrt(x) = 1/(2 sqrt(x))
	d := Sqrt(x).Diff("x")
	if got, want := evalOk(t, d, env), 1/(2*math.Sqrt(2)); math.Abs(got-want) > 1e-14 {
		t.Fatalf("expected %g, got %g", want, got)
	}
}

func TestTrigDerivatives(t *testing.T) {
	x := Symbol("x")
	env := map[string]float64{"x": 0.7}
	if got := evalOk(t, Sin(x).Diff("x"), env); math.Abs(got-math.Cos(0.7)) > 1e-14 {
		t.Fatalf("d sin = cos failed: %g", got)
	}
	if got := evalOk(t, Cos(x).Diff("x"), env); math.Abs(got+math.Sin(0.7)) > 1e-14 {
		t.Fatalf("d cos = -sin failed: %g", got)
	}
	// Chain rule: d/dx sin(2x) = 2 cos(2x)
	e := Sin(Mul(Number(2), x)).Diff("x")
	if got, want := evalOk(t, e, env), 2*math.Cos(1.4); math.Abs(got-want) > 1e-14 {
		t.Fatalf("expected %g, got %g", want, got)
	}
}

func TestSub(t *testing.T) {
	x, y := Symbol("x"), Symbol("y")
	e := Sum(Pow(x, 2), y).Sub("x", Mul(Number(2), y))
	if got := evalOk(t, e, map[string]float64{"y": 3}); math.Abs(got-39) > 1e-14 {
		t.Fatalf("expected 39, got %g", got)
	}
}

func TestEvalUnboundSymbol(t *testing.T) {
	if _, err := Symbol("q").Eval(map[string]float64{}); err == nil {
		t.Fatal("expected error for unbound symbol")
	}
}

func TestTaylorExpansion(t *testing.T) {
	// cos(x) about 0 to fourth order: 1 - x^2/2 + x^4/24
	x := "x"
	e := Taylor(Cos(Symbol(x)), x, 4)
	at := 0.3
	want := 1 - at*at/2 + math.Pow(at, 4)/24
	if got := evalOk(t, e, map[string]float64{x: at}); math.Abs(got-want) > 1e-14 {
		t.Fatalf("expected %g, got %g", want, got)
	}
	// Truncation drops the higher orders entirely.
	e2 := Taylor(Pow(Sum(Number(1), Symbol(x)), 5), x, 1)
	if got := evalOk(t, e2, map[string]float64{x: 0.1}); math.Abs(got-1.5) > 1e-14 {
		t.Fatalf("expected 1.5, got %g", got)
	}
}
