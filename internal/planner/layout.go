package planner

import (
	"strings"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// Layout is a named set of preset footprints tried before the shelf scan.
type Layout int

const (
	LayoutDefault Layout = iota
	LayoutCold
	LayoutTemperate
)

var layoutNames = map[Layout]string{
	LayoutDefault:   "default",
	LayoutCold:      "cold",
	LayoutTemperate: "temperate",
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return layoutNames[LayoutDefault]
}

// LayoutForZone maps a container zone to its layout. Matching ignores case
// and surrounding space; unknown zones use LayoutDefault.
func LayoutForZone(zone string) Layout {
	switch strings.ToLower(strings.TrimSpace(zone)) {
	case "cold":
		return LayoutCold
	case "temperate":
		return LayoutTemperate
	default:
		return LayoutDefault
	}
}

func preset(sw, sd, sh, ew, ed, eh float64) geometry.Box {
	return geometry.Box{
		Start: geometry.Vec3{W: sw, D: sd, H: sh},
		End:   geometry.Vec3{W: ew, D: ed, H: eh},
	}
}

var footprints = map[Layout][]geometry.Box{
	LayoutDefault: {
		preset(0, 0, 0, 40, 40, 60),
		preset(40, 0, 0, 80, 30, 45),
		preset(80, 0, 0, 100, 30, 25),
		preset(40, 30, 0, 55, 45, 25),
	},
	LayoutCold: {
		preset(0, 0, 0, 25, 20, 30),
		preset(25, 0, 0, 60, 25, 20),
	},
	LayoutTemperate: {
		preset(0, 0, 0, 20, 20, 35),
		preset(20, 0, 0, 45, 20, 15),
		preset(45, 0, 0, 65, 15, 10),
	},
}

// Footprints returns the preset footprints of l in priority order.
func (l Layout) Footprints() []geometry.Box {
	if fps, ok := footprints[l]; ok {
		return fps
	}
	return footprints[LayoutDefault]
}

// holds reports whether a footprint is large enough for an item of the given size.
func holds(fp geometry.Box, size geometry.Vec3) bool {
	s := fp.Size()
	return s.W >= size.W && s.D >= size.D && s.H >= size.H
}
