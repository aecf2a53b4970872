package scene

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/Faultbox/modeledge/pkg/math"
	"github.com/Faultbox/modeledge/pkg/wireframe"
)

// cborEntity is the on-disk shape of one entity.
type cborEntity struct {
	Name      string       `cbor:"name"`
	Mesh      string       `cbor:"mesh"`
	Positions [][3]float32 `cbor:"positions"`
}

// encMode uses Core Deterministic Encoding so equal input gives equal bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("scene: CBOR encoder initialization failed: " + err.Error())
	}
}

// CBOR writes entities as a CBOR array of {name, mesh, positions} maps,
// two positions per segment.
type CBOR struct{}

// Encode implements Encoder.
func (CBOR) Encode(w io.Writer, entities []wireframe.Entity) error {
	out := make([]cborEntity, len(entities))
	for i, e := range entities {
		out[i] = cborEntity{Name: e.Name, Mesh: e.MeshID, Positions: positionArrays(e)}
	}
	if err := encMode.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encoding cbor: %w", err)
	}
	return nil
}

// DecodeCBOR reads entity names, mesh ids and segment endpoints back from a
// CBOR export.
func DecodeCBOR(r io.Reader) ([]wireframe.Entity, error) {
	var in []cborEntity
	if err := cbor.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding cbor: %w", err)
	}
	entities := make([]wireframe.Entity, len(in))
	for i, e := range in {
		entities[i] = wireframe.Entity{Name: e.Name, MeshID: e.Mesh}
		for _, p := range e.Positions {
			entities[i].Geometry.Positions = append(entities[i].Geometry.Positions, math.FromArray(p))
		}
	}
	return entities, nil
}
