package edges

import (
	stdmath "math"

	"github.com/Faultbox/modeledge/pkg/math"
)

// DefaultThreshold is the dihedral angle, in degrees, at or above which an edge
// between two faces counts as a feature edge.
const DefaultThreshold = 60.0

// edgeRecord accumulates the triangles adjacent to one undirected edge.
// Only the first two are kept; count tells manifold from non-manifold.
type edgeRecord struct {
	a, b       uint32 // Endpoints, a < b
	tri0, tri1 int32
	count      int32
}

func edgeKey(a, b uint32) uint64 {
	return uint64(a)<<32 | uint64(b)
}

// Extract returns the feature and boundary edges of a triangle mesh whose
// indices all address positions. An edge shared by exactly two triangles is
// kept when the angle between their face normals is at least thresholdDeg;
// boundary and non-manifold edges are always kept. Triangles that repeat a
// vertex index are ignored. Segments appear in first-seen edge order.
func Extract(positions []math.Vec3, indices []uint32, thresholdDeg float64) Geometry {
	triCount := len(indices) / 3
	faceNormals := make([]math.Vec3, triCount)
	slots := make(map[uint64]int32, len(indices)/2)
	records := make([]edgeRecord, 0, len(indices)/2)

	add := func(a, b uint32, tri int32) {
		if a > b {
			a, b = b, a
		}
		key := edgeKey(a, b)
		slot, ok := slots[key]
		if !ok {
			slots[key] = int32(len(records))
			records = append(records, edgeRecord{a: a, b: b, tri0: tri, tri1: -1, count: 1})
			return
		}
		rec := &records[slot]
		if rec.count == 1 {
			rec.tri1 = tri
		}
		rec.count++
	}

	for t := 0; t < triCount; t++ {
		i0, i1, i2 := indices[3*t], indices[3*t+1], indices[3*t+2]
		if i0 == i1 || i1 == i2 || i0 == i2 {
			continue
		}
		faceNormals[t] = math.TriangleNormal(positions[i0], positions[i1], positions[i2])
		add(i0, i1, int32(t))
		add(i1, i2, int32(t))
		add(i2, i0, int32(t))
	}

	thresholdDot := stdmath.Cos(math.DegToRad(thresholdDeg))
	if thresholdDeg <= 0 {
		thresholdDot = 1
	}

	out := Geometry{Positions: make([]math.Vec3, 0, 2*len(records))}
	for i := range records {
		rec := &records[i]
		if rec.count == 2 {
			dot := math.CosAngle(faceNormals[rec.tri0], faceNormals[rec.tri1])
			if dot > thresholdDot {
				continue
			}
		}
		out.Positions = append(out.Positions, positions[rec.a], positions[rec.b])
	}
	return out
}
