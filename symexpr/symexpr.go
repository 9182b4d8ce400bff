// Package symexpr implements a small symbolic-expression kernel sufficient
// for building, differentiating and truncating perturbative Hamiltonians:
// sums and products of named symbols, real powers, sines and cosines.
//
// Expressions are immutable. Constructors simplify eagerly (constant folding,
// flattening of nested sums/products, annihilation by zero) so that repeated
// differentiation does not balloon the tree more than necessary.
package symexpr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Expr is a symbolic expression over float64-valued symbols.
type Expr interface {
	// Diff returns the partial derivative with respect to the named symbol.
	Diff(name string) Expr
	// Sub substitutes an expression for every occurrence of the named symbol.
	Sub(name string, value Expr) Expr
	// Eval evaluates the expression with symbol values taken from env.
	// An unbound symbol is an error.
	Eval(env map[string]float64) (float64, error)
	String() string
}

type num struct{ v float64 }
type sym struct{ name string }
type add struct{ terms []Expr }
type mul struct{ factors []Expr }
type pow struct {
	base Expr
	exp  float64
}
type fn struct {
	name string // "sin" or "cos"
	arg  Expr
}

// Number returns a constant expression.
func Number(v float64) Expr { return num{v} }

// Symbol returns a named variable.
func Symbol(name string) Expr { return sym{name} }

// Sum returns the simplified sum of terms.
func Sum(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	c := 0.0
	for _, t := range terms {
		switch tt := t.(type) {
		case num:
			c += tt.v
		case add:
			for _, u := range tt.terms {
				if n, ok := u.(num); ok {
					c += n.v
				} else {
					flat = append(flat, u)
				}
			}
		default:
			flat = append(flat, t)
		}
	}
	if c != 0 {
		flat = append(flat, num{c})
	}
	switch len(flat) {
	case 0:
		return num{0}
	case 1:
		return flat[0]
	}
	return add{flat}
}

// Mul returns the simplified product of factors.
func Mul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	c := 1.0
	for _, f := range factors {
		switch ff := f.(type) {
		case num:
			c *= ff.v
		case mul:
			for _, u := range ff.factors {
				if n, ok := u.(num); ok {
					c *= n.v
				} else {
					flat = append(flat, u)
				}
			}
		default:
			flat = append(flat, f)
		}
	}
	if c == 0 {
		return num{0}
	}
	if c != 1 {
		flat = append([]Expr{num{c}}, flat...)
	}
	switch len(flat) {
	case 0:
		return num{1}
	case 1:
		return flat[0]
	}
	return mul{flat}
}

// Pow returns base raised to a constant real exponent.
func Pow(base Expr, exp float64) Expr {
	if exp == 0 {
		return num{1}
	}
	if exp == 1 {
		return base
	}
	if n, ok := base.(num); ok {
		return num{math.Pow(n.v, exp)}
	}
	if p, ok := base.(pow); ok {
		return Pow(p.base, p.exp*exp)
	}
	return pow{base, exp}
}

// Sqrt is shorthand for Pow(e, 1/2).
func Sqrt(e Expr) Expr { return Pow(e, 0.5) }

// Neg is shorthand for Mul(-1, e).
func Neg(e Expr) Expr { return Mul(num{-1}, e) }

// Sin returns the sine of arg.
func Sin(arg Expr) Expr {
	if n, ok := arg.(num); ok {
		return num{math.Sin(n.v)}
	}
	return fn{"sin", arg}
}

// Cos returns the cosine of arg.
func Cos(arg Expr) Expr {
	if n, ok := arg.(num); ok {
		return num{math.Cos(n.v)}
	}
	return fn{"cos", arg}
}

func (n num) Diff(string) Expr        { return num{0} }
func (n num) Sub(string, Expr) Expr   { return n }
func (n num) Eval(map[string]float64) (float64, error) { return n.v, nil }
func (n num) String() string          { return strconv.FormatFloat(n.v, 'g', -1, 64) }

func (s sym) Diff(name string) Expr {
	if s.name == name {
		return num{1}
	}
	return num{0}
}
func (s sym) Sub(name string, value Expr) Expr {
	if s.name == name {
		return value
	}
	return s
}
func (s sym) Eval(env map[string]float64) (float64, error) {
	v, ok := env[s.name]
	if !ok {
		return 0, fmt.Errorf("symexpr: unbound symbol %q", s.name)
	}
	return v, nil
}
func (s sym) String() string { return s.name }

func (a add) Diff(name string) Expr {
	d := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		d[i] = t.Diff(name)
	}
	return Sum(d...)
}
func (a add) Sub(name string, value Expr) Expr {
	d := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		d[i] = t.Sub(name, value)
	}
	return Sum(d...)
}
func (a add) Eval(env map[string]float64) (float64, error) {
	total := 0.0
	for _, t := range a.terms {
		v, err := t.Eval(env)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
func (a add) String() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, " + ") + ")"
}

func (m mul) Diff(name string) Expr {
	// Product rule over all factors.
	terms := make([]Expr, 0, len(m.factors))
	for i := range m.factors {
		df := m.factors[i].Diff(name)
		if n, ok := df.(num); ok && n.v == 0 {
			continue
		}
		rest := make([]Expr, 0, len(m.factors))
		rest = append(rest, df)
		for j, f := range m.factors {
			if j != i {
				rest = append(rest, f)
			}
		}
		terms = append(terms, Mul(rest...))
	}
	return Sum(terms...)
}
func (m mul) Sub(name string, value Expr) Expr {
	d := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		d[i] = f.Sub(name, value)
	}
	return Mul(d...)
}
func (m mul) Eval(env map[string]float64) (float64, error) {
	total := 1.0
	for _, f := range m.factors {
		v, err := f.Eval(env)
		if err != nil {
			return 0, err
		}
		total *= v
	}
	return total, nil
}
func (m mul) String() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		parts[i] = f.String()
	}
	return strings.Join(parts, "*")
}

func (p pow) Diff(name string) Expr {
	db := p.base.Diff(name)
	if n, ok := db.(num); ok && n.v == 0 {
		return num{0}
	}
	return Mul(num{p.exp}, Pow(p.base, p.exp-1), db)
}
func (p pow) Sub(name string, value Expr) Expr {
	return Pow(p.base.Sub(name, value), p.exp)
}
func (p pow) Eval(env map[string]float64) (float64, error) {
	b, err := p.base.Eval(env)
	if err != nil {
		return 0, err
	}
	v := math.Pow(b, p.exp)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("symexpr: %g^%g is not finite", b, p.exp)
	}
	return v, nil
}
func (p pow) String() string {
	return "(" + p.base.String() + ")^" + strconv.FormatFloat(p.exp, 'g', -1, 64)
}

func (f fn) Diff(name string) Expr {
	da := f.arg.Diff(name)
	if n, ok := da.(num); ok && n.v == 0 {
		return num{0}
	}
	switch f.name {
	case "sin":
		return Mul(Cos(f.arg), da)
	case "cos":
		return Mul(num{-1}, Sin(f.arg), da)
	}
	panic("symexpr: unknown function " + f.name)
}
func (f fn) Sub(name string, value Expr) Expr {
	arg := f.arg.Sub(name, value)
	switch f.name {
	case "sin":
		return Sin(arg)
	case "cos":
		return Cos(arg)
	}
	panic("symexpr: unknown function " + f.name)
}
func (f fn) Eval(env map[string]float64) (float64, error) {
	a, err := f.arg.Eval(env)
	if err != nil {
		return 0, err
	}
	switch f.name {
	case "sin":
		return math.Sin(a), nil
	case "cos":
		return math.Cos(a), nil
	}
	panic("symexpr: unknown function " + f.name)
}
func (f fn) String() string { return f.name + "(" + f.arg.String() + ")" }

// Taylor returns the Taylor polynomial of e in the named symbol about zero,
// truncated after the term of the given order.
func Taylor(e Expr, name string, order int) Expr {
	terms := make([]Expr, 0, order+1)
	cur := e
	fact := 1.0
	for k := 0; k <= order; k++ {
		if k > 0 {
			cur = cur.Diff(name)
			fact *= float64(k)
		}
		at0 := cur.Sub(name, Number(0))
		terms = append(terms, Mul(Number(1/fact), at0, Pow(Symbol(name), float64(k))))
	}
	return Sum(terms...)
}

// IsZero reports whether e simplified to the constant zero.
func IsZero(e Expr) bool {
	n, ok := e.(num)
	return ok && n.v == 0
}
