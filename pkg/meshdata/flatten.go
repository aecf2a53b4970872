package meshdata

import (
	"fmt"

	"github.com/Faultbox/modeledge/pkg/math"
)

// Flatten rewrites group-local indices into the mesh's single vertex range.
// The input mesh is left untouched; vertex buffers are shared, the index
// buffer is new. Single-group meshes keep their index buffer as is.
func Flatten(m *Mesh) (*Mesh, error) {
	if m.Flattened {
		return m, nil
	}

	out := *m
	out.Flattened = true

	if len(m.Groups) <= 1 {
		for i, idx := range m.Indices {
			if int(idx) >= len(m.Positions) {
				return nil, indexRangeError(0, i, idx, len(m.Positions))
			}
		}
		return &out, nil
	}

	out.Indices = make([]uint32, len(m.Indices))
	for g, group := range m.Groups {
		src := m.Indices[group.IndexOffset : group.IndexOffset+group.IndexCount]
		dst := out.Indices[group.IndexOffset : group.IndexOffset+group.IndexCount]
		offset := uint32(group.VertexOffset)
		for i, idx := range src {
			if int(idx) >= group.VertexCount {
				return nil, indexRangeError(g, i, idx, group.VertexCount)
			}
			dst[i] = idx + offset
		}
	}
	return &out, nil
}

func indexRangeError(group, pos int, idx uint32, limit int) error {
	return &FormatError{
		Reason: fmt.Sprintf("group %d index %d out of vertex range", group, pos),
		Want:   limit,
		Got:    int(idx),
	}
}

// ValidateGroup checks that every index of group g addresses a vertex of
// that group.
func (m *Mesh) ValidateGroup(g int) error {
	group := m.Groups[g]
	base := uint32(0)
	if m.Flattened {
		base = uint32(group.VertexOffset)
	}
	for i, idx := range m.Indices[group.IndexOffset : group.IndexOffset+group.IndexCount] {
		if idx < base || int(idx-base) >= group.VertexCount {
			return indexRangeError(g, i, idx, group.VertexCount)
		}
	}
	return nil
}

// Group returns group g of a mesh as a standalone mesh: its own vertex
// sub-buffers and indices relative to them. m may be flattened or
// group-local.
func (m *Mesh) Group(g int) *Mesh {
	group := m.Groups[g]
	vStart, vEnd := group.VertexOffset, group.VertexOffset+group.VertexCount

	sub := &Mesh{
		Positions: append([]math.Vec3(nil), m.Positions[vStart:vEnd]...),
		Normals:   append([]math.Vec3(nil), m.Normals[vStart:vEnd]...),
		Groups:    []Group{{VertexCount: group.VertexCount, IndexCount: group.IndexCount}},
		Flattened: true,
	}
	if m.UVs != nil {
		sub.UVs = append([][2]float32(nil), m.UVs[vStart:vEnd]...)
	}

	src := m.Indices[group.IndexOffset : group.IndexOffset+group.IndexCount]
	sub.Indices = make([]uint32, len(src))
	base := uint32(0)
	if m.Flattened {
		base = uint32(vStart)
	}
	for i, idx := range src {
		sub.Indices[i] = idx - base
	}
	return sub
}
