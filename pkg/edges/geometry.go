// Package edges extracts feature and boundary edges from indexed triangle
// meshes and merges the resulting line-segment buffers.
package edges

import "github.com/Faultbox/modeledge/pkg/math"

// Geometry is a set of line segments. Without an index buffer every two
// consecutive positions form one segment; with one, every two indices do.
type Geometry struct {
	Positions []math.Vec3
	Index     []uint32
}

// Segments returns the number of line segments.
func (g Geometry) Segments() int {
	if g.Index != nil {
		return len(g.Index) / 2
	}
	return len(g.Positions) / 2
}

// IsEmpty reports whether the geometry holds no segments.
func (g Geometry) IsEmpty() bool {
	return g.Segments() == 0
}

// Segment returns the endpoints of segment i.
func (g Geometry) Segment(i int) (math.Vec3, math.Vec3) {
	if g.Index != nil {
		return g.Positions[g.Index[2*i]], g.Positions[g.Index[2*i+1]]
	}
	return g.Positions[2*i], g.Positions[2*i+1]
}

// Merge concatenates geometries in order. If any part carries an index
// buffer the result carries one too: indexed parts are shifted by the
// running vertex count and unindexed parts contribute sequential indices.
func Merge(parts ...Geometry) Geometry {
	switch len(parts) {
	case 0:
		return Geometry{}
	case 1:
		return parts[0]
	}

	vertexTotal, indexTotal, indexed := 0, 0, false
	for _, p := range parts {
		vertexTotal += len(p.Positions)
		if p.Index != nil {
			indexed = true
			indexTotal += len(p.Index)
		} else {
			indexTotal += len(p.Positions)
		}
	}

	merged := Geometry{Positions: make([]math.Vec3, 0, vertexTotal)}
	if indexed {
		merged.Index = make([]uint32, 0, indexTotal)
	}

	for _, p := range parts {
		base := uint32(len(merged.Positions))
		merged.Positions = append(merged.Positions, p.Positions...)
		if !indexed {
			continue
		}
		if p.Index != nil {
			for _, idx := range p.Index {
				merged.Index = append(merged.Index, idx+base)
			}
			continue
		}
		for i := range p.Positions {
			merged.Index = append(merged.Index, base+uint32(i))
		}
	}
	return merged
}
