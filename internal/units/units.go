// Package units converts quantities between measurement units of the same
// physical family (volume, mass). Discrete units only convert to themselves.
package units

import "strings"

type Unit string

const (
	Kilolitre  Unit = "kL"
	Litre      Unit = "L"
	Centilitre Unit = "cL"
	Millilitre Unit = "mL"

	Tonne     Unit = "t"
	Kilogram  Unit = "kg"
	Gram      Unit = "g"
	Milligram Unit = "mg"

	Piece  Unit = "piece"
	Sachet Unit = "sachet"
	Bottle Unit = "bottle"
	Carton Unit = "carton"
	Pack   Unit = "pack"
	Box    Unit = "box"
)

type Family string

const (
	FamilyVolume   Family = "volume"
	FamilyMass     Family = "mass"
	FamilyDiscrete Family = "discrete"
)

type unitInfo struct {
	family Family
	// multiplier relative to the family reference unit (litre, kilogram).
	// Zero for discrete units.
	multiplier float64
}

var table = map[Unit]unitInfo{
	Kilolitre:  {FamilyVolume, 1000},
	Litre:      {FamilyVolume, 1},
	Centilitre: {FamilyVolume, 0.01},
	Millilitre: {FamilyVolume, 0.001},

	Tonne:     {FamilyMass, 1000},
	Kilogram:  {FamilyMass, 1},
	Gram:      {FamilyMass, 0.001},
	Milligram: {FamilyMass, 0.000001},

	Piece:  {FamilyDiscrete, 0},
	Sachet: {FamilyDiscrete, 0},
	Bottle: {FamilyDiscrete, 0},
	Carton: {FamilyDiscrete, 0},
	Pack:   {FamilyDiscrete, 0},
	Box:    {FamilyDiscrete, 0},
}

var aliases = map[string]Unit{
	"kl": Kilolitre,
	"l":  Litre,
	"cl": Centilitre,
	"ml": Millilitre,
}

// All returns every known unit, volume first, then mass, then discrete.
func All() []Unit {
	return []Unit{
		Kilolitre, Litre, Centilitre, Millilitre,
		Tonne, Kilogram, Gram, Milligram,
		Piece, Sachet, Bottle, Carton, Pack, Box,
	}
}

// ParseUnit accepts the canonical spelling and lower-case aliases of the
// volume units.
func ParseUnit(s string) (Unit, bool) {
	s = strings.TrimSpace(s)
	if _, ok := table[Unit(s)]; ok {
		return Unit(s), true
	}
	if u, ok := aliases[strings.ToLower(s)]; ok {
		return u, true
	}
	return "", false
}

func (u Unit) Valid() bool {
	_, ok := table[u]
	return ok
}

func (u Unit) String() string {
	return string(u)
}

// FamilyOf reports the family of u; ok is false for unknown units.
func FamilyOf(u Unit) (Family, bool) {
	info, ok := table[u]
	return info.family, ok
}

// Compatible reports whether Convert between a and b is physically meaningful.
func Compatible(a, b Unit) bool {
	if a == b {
		return true
	}
	ia, okA := table[a]
	ib, okB := table[b]
	if !okA || !okB {
		return false
	}
	return ia.family == ib.family && ia.family != FamilyDiscrete
}

// Convert expresses quantity, given in from, in to. Identical units return
// quantity untouched. Any pair that is not Compatible (cross-family, discrete,
// unknown) also returns quantity untouched; callers wanting strictness must
// check Compatible first. No rounding is applied.
func Convert(quantity float64, from, to Unit) float64 {
	if from == to || !Compatible(from, to) {
		return quantity
	}
	return quantity * table[from].multiplier / table[to].multiplier
}
