// Package meshdata decodes the per-mesh binary records stored in model
// databases and renumbers multi-group meshes into one index space.
package meshdata

import (
	"encoding/json"
	"errors"
	"fmt"
	stdmath "math"
)

// ErrFormat is matched by every *FormatError via errors.Is.
var ErrFormat = errors.New("mesh format error")

// FormatError reports a mesh record whose blob or layout is inconsistent.
type FormatError struct {
	MeshID string // Owning mesh, filled in by callers that know it
	Reason string
	Want   int // Expected value (byte length, count), when meaningful
	Got    int
}

func (e *FormatError) Error() string {
	prefix := "mesh"
	if e.MeshID != "" {
		prefix = "mesh " + e.MeshID
	}
	if e.Want != 0 || e.Got != 0 {
		return fmt.Sprintf("%s: %s (want %d, got %d)", prefix, e.Reason, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Is makes errors.Is(err, ErrFormat) true for any FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// MaxElements caps the total vertex count and the total index count of one
// mesh. Indices are 32-bit in the blob, so larger meshes cannot be addressed.
const MaxElements = stdmath.MaxInt32

// Layout describes how a mesh blob partitions into groups.
type Layout struct {
	VLyt  []int           // Vertex count per group
	ILyt  []int           // Index count per group
	TLyt  json.RawMessage // Texture layout, carried but not interpreted
	HasUV bool            // Blob carries a UV pair per vertex
}

// ParseLayout builds a Layout from the JSON columns of a mesh row.
func ParseLayout(vlyt, ilyt, tlyt string, hasUV bool) (Layout, error) {
	l := Layout{HasUV: hasUV}
	if err := json.Unmarshal([]byte(vlyt), &l.VLyt); err != nil {
		return Layout{}, &FormatError{Reason: "VLyt: " + err.Error()}
	}
	if err := json.Unmarshal([]byte(ilyt), &l.ILyt); err != nil {
		return Layout{}, &FormatError{Reason: "ILyt: " + err.Error()}
	}
	if tlyt != "" {
		l.TLyt = json.RawMessage(tlyt)
	}
	return l, l.Validate()
}

// Validate checks that the group arrays are usable.
func (l Layout) Validate() error {
	if len(l.VLyt) == 0 {
		return &FormatError{Reason: "empty VLyt"}
	}
	if len(l.VLyt) != len(l.ILyt) {
		return &FormatError{Reason: "VLyt and ILyt group counts differ", Want: len(l.VLyt), Got: len(l.ILyt)}
	}
	vertices, indices := 0, 0
	for i := range l.VLyt {
		if l.VLyt[i] < 0 || l.ILyt[i] < 0 {
			return &FormatError{Reason: fmt.Sprintf("negative count in group %d", i)}
		}
		// Counts are checked one group at a time so the sums cannot wrap.
		if l.VLyt[i] > MaxElements-vertices {
			return &FormatError{Reason: fmt.Sprintf("vertex count too large at group %d", i), Want: MaxElements, Got: l.VLyt[i]}
		}
		if l.ILyt[i] > MaxElements-indices {
			return &FormatError{Reason: fmt.Sprintf("index count too large at group %d", i), Want: MaxElements, Got: l.ILyt[i]}
		}
		vertices += l.VLyt[i]
		indices += l.ILyt[i]
	}
	return nil
}

// VertexCount returns sum(VLyt).
func (l Layout) VertexCount() int {
	n := 0
	for _, c := range l.VLyt {
		n += c
	}
	return n
}

// IndexCount returns sum(ILyt).
func (l Layout) IndexCount() int {
	n := 0
	for _, c := range l.ILyt {
		n += c
	}
	return n
}

// ByteSize returns the exact blob length the layout implies. It is only
// meaningful for a layout that passes Validate.
func (l Layout) ByteSize() int {
	v := l.VertexCount()
	floats := 3*v + 3*v // positions + normals
	if l.HasUV {
		floats += 2 * v
	}
	return 4 * (floats + l.IndexCount())
}

// Group is one disjoint vertex/index partition of a mesh.
type Group struct {
	VertexOffset int
	VertexCount  int
	IndexOffset  int
	IndexCount   int
}

// Groups derives group boundaries as prefix sums of VLyt and ILyt.
func (l Layout) Groups() []Group {
	groups := make([]Group, len(l.VLyt))
	vOff, iOff := 0, 0
	for i := range l.VLyt {
		groups[i] = Group{
			VertexOffset: vOff,
			VertexCount:  l.VLyt[i],
			IndexOffset:  iOff,
			IndexCount:   l.ILyt[i],
		}
		vOff += l.VLyt[i]
		iOff += l.ILyt[i]
	}
	return groups
}
