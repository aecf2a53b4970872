package meshdata

import (
	"encoding/binary"
	stdmath "math"

	"github.com/Faultbox/modeledge/pkg/math"
)

// Mesh holds the decoded buffers of one mesh record.
type Mesh struct {
	Positions []math.Vec3
	Indices   []uint32 // Group-local until Flattened is set
	UVs       [][2]float32
	Normals   []math.Vec3
	Groups    []Group
	Flattened bool
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// IndexCount returns the number of indices.
func (m *Mesh) IndexCount() int {
	return len(m.Indices)
}

// HasUV reports whether the mesh carries texture coordinates.
func (m *Mesh) HasUV() bool {
	return m.UVs != nil
}

// Decode reads a mesh blob laid out as positions, indices, optional UVs and
// normals, all little endian. The blob length must match the layout exactly.
func Decode(raw []byte, layout Layout) (*Mesh, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if want := layout.ByteSize(); len(raw) != want {
		reason := "blob length does not match layout"
		if len(raw) < want {
			reason = "truncated mesh blob"
		}
		return nil, &FormatError{Reason: reason, Want: want, Got: len(raw)}
	}

	vertexCount := layout.VertexCount()
	indexCount := layout.IndexCount()
	r := blobReader{data: raw}

	mesh := &Mesh{
		Positions: r.vec3s(vertexCount),
		Groups:    layout.Groups(),
	}

	mesh.Indices = make([]uint32, indexCount)
	for i := range mesh.Indices {
		v := int32(r.u32())
		if v < 0 {
			return nil, &FormatError{Reason: "negative index", Got: int(v)}
		}
		mesh.Indices[i] = uint32(v)
	}

	if layout.HasUV {
		mesh.UVs = make([][2]float32, vertexCount)
		for i := range mesh.UVs {
			mesh.UVs[i] = [2]float32{r.f32(), r.f32()}
		}
	}

	mesh.Normals = r.vec3s(vertexCount)
	return mesh, nil
}

// blobReader walks a byte slice whose length was validated up front.
type blobReader struct {
	data []byte
	off  int
}

func (r *blobReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *blobReader) f32() float32 {
	return stdmath.Float32frombits(r.u32())
}

func (r *blobReader) vec3s(n int) []math.Vec3 {
	out := make([]math.Vec3, n)
	for i := range out {
		out[i] = math.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
	}
	return out
}
