// Package scene serializes wireframe entities into output files.
package scene

import (
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/modeledge/pkg/wireframe"
)

// Encoder writes a list of entities to w.
type Encoder interface {
	Encode(w io.Writer, entities []wireframe.Entity) error
}

// Output formats.
const (
	FormatGLB  = "glb"
	FormatCBOR = "cbor"
)

// ForFormat returns the encoder for a format name.
func ForFormat(name string) (Encoder, error) {
	switch strings.ToLower(name) {
	case "", FormatGLB:
		return GLB{}, nil
	case FormatCBOR:
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", name)
	}
}

func positionArrays(e wireframe.Entity) [][3]float32 {
	g := e.Geometry
	out := make([][3]float32, 0, 2*g.Segments())
	for i := 0; i < g.Segments(); i++ {
		a, b := g.Segment(i)
		out = append(out, a.Array(), b.Array())
	}
	return out
}
