// Package geometry provides the axis-aligned box primitives used by the
// stowage planner: volume, containment, overlap and clearance tests.
package geometry

import (
	"errors"
	"fmt"
)

// DefaultClearance is the minimum gap required between two facing boxes.
const DefaultClearance = 0.1

// epsilon absorbs floating point error in clearance and bounds comparisons.
const epsilon = 1e-9

// ErrInvalidGeometry is returned for negative coordinates, non-positive
// dimensions or boxes whose end lies before their start.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Axis identifies one of the three box axes.
type Axis int

const (
	Width Axis = iota
	Depth
	Height
)

// Vec3 is a point or a size expressed as width, depth and height.
type Vec3 struct {
	W float64 `json:"width"`
	D float64 `json:"depth"`
	H float64 `json:"height"`
}

// Get returns the component on the given axis.
func (v Vec3) Get(a Axis) float64 {
	switch a {
	case Width:
		return v.W
	case Depth:
		return v.D
	default:
		return v.H
	}
}

// Add returns v + o componentwise.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{W: v.W + o.W, D: v.D + o.D, H: v.H + o.H}
}

// Volume returns the product of the components.
func (v Vec3) Volume() float64 {
	return v.W * v.D * v.H
}

// Positive reports whether every component is strictly positive.
func (v Vec3) Positive() bool {
	return v.W > 0 && v.D > 0 && v.H > 0
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g,%g,%g)", v.W, v.D, v.H)
}

// Box is an axis-aligned region from Start (inclusive) to End (exclusive).
type Box struct {
	Start Vec3 `json:"startCoordinates"`
	End   Vec3 `json:"endCoordinates"`
}

// NewBox anchors a box of the given size at origin.
func NewBox(origin, size Vec3) Box {
	return Box{Start: origin, End: origin.Add(size)}
}

// Size returns the edge lengths of b.
func (b Box) Size() Vec3 {
	return Vec3{W: b.End.W - b.Start.W, D: b.End.D - b.Start.D, H: b.End.H - b.Start.H}
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	return b.Size().Volume()
}

// Validate checks that every coordinate is non-negative and End >= Start.
func (b Box) Validate() error {
	for _, a := range axes {
		if b.Start.Get(a) < 0 || b.End.Get(a) < 0 {
			return fmt.Errorf("%w: negative coordinate in %s", ErrInvalidGeometry, b)
		}
		if b.End.Get(a) < b.Start.Get(a) {
			return fmt.Errorf("%w: end before start in %s", ErrInvalidGeometry, b)
		}
	}
	return nil
}

func (b Box) String() string {
	return b.Start.String() + "," + b.End.String()
}

var axes = [3]Axis{Width, Depth, Height}

// overlapsOn reports whether the half-open projections of a and b on axis
// intersect.
func overlapsOn(a, b Box, axis Axis) bool {
	return a.End.Get(axis) > b.Start.Get(axis) && a.Start.Get(axis) < b.End.Get(axis)
}

// Overlaps3D reports whether a and b intersect on all three axes.
func Overlaps3D(a, b Box) bool {
	return overlapsOn(a, b, Width) && overlapsOn(a, b, Depth) && overlapsOn(a, b, Height)
}

// Overlaps2D reports whether the projections of a and b onto the plane
// spanned by the two axes intersect.
func Overlaps2D(a, b Box, first, second Axis) bool {
	return overlapsOn(a, b, first) && overlapsOn(a, b, second)
}

// TooClose reports whether a and b face each other along some axis with a
// gap smaller than clearance. Two boxes face each other along an axis when
// their projections overlap on both remaining axes.
func TooClose(a, b Box, clearance float64) bool {
	for _, axis := range axes {
		first, second := others(axis)
		if !Overlaps2D(a, b, first, second) {
			continue
		}
		gap := b.Start.Get(axis) - a.End.Get(axis)
		if alt := a.Start.Get(axis) - b.End.Get(axis); alt > gap {
			gap = alt
		}
		if gap > -epsilon && gap < clearance-epsilon {
			return true
		}
	}
	return false
}

func others(axis Axis) (Axis, Axis) {
	switch axis {
	case Width:
		return Depth, Height
	case Depth:
		return Width, Height
	default:
		return Width, Depth
	}
}

// Within reports whether b lies inside a container of the given size.
func Within(b Box, bounds Vec3) bool {
	for _, a := range axes {
		if b.Start.Get(a) < -epsilon || b.End.Get(a) > bounds.Get(a)+epsilon {
			return false
		}
	}
	return true
}

// Permutations returns the axis permutations of size in a fixed order,
// starting with the identity. Permutations equal to an earlier one are
// dropped.
func Permutations(size Vec3) []Vec3 {
	all := [6]Vec3{
		{W: size.W, D: size.D, H: size.H},
		{W: size.W, D: size.H, H: size.D},
		{W: size.D, D: size.W, H: size.H},
		{W: size.D, D: size.H, H: size.W},
		{W: size.H, D: size.W, H: size.D},
		{W: size.H, D: size.D, H: size.W},
	}
	out := make([]Vec3, 0, len(all))
	for _, p := range all {
		seen := false
		for _, q := range out {
			if p == q {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, p)
		}
	}
	return out
}
