package scene

import (
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/modeledge/pkg/wireframe"
)

// edgeColor is the flat grey applied to every line primitive (0xbbbbbb).
var edgeColor = [4]float64{0xbb / 255.0, 0xbb / 255.0, 0xbb / 255.0, 1}

// GLB writes a binary glTF scene: one LINES mesh per distinct mesh id and
// one node per entity, named after it.
type GLB struct{}

// Encode implements Encoder.
func (GLB) Encode(w io.Writer, entities []wireframe.Entity) error {
	doc, err := BuildDocument(entities)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding glb: %w", err)
	}
	return nil
}

// BuildDocument lays the entities out as a glTF document. Entities without
// segments are left out.
func BuildDocument(entities []wireframe.Entity) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "edges",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &edgeColor,
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
	})

	meshes := make(map[string]int)
	for _, e := range entities {
		if e.Geometry.IsEmpty() {
			continue
		}

		meshIndex, ok := meshes[e.MeshID]
		if !ok {
			position := modeler.WritePosition(doc, positionArrays(e))
			doc.Meshes = append(doc.Meshes, &gltf.Mesh{
				Name: e.MeshID,
				Primitives: []*gltf.Primitive{{
					Mode:       gltf.PrimitiveLines,
					Attributes: map[string]int{gltf.POSITION: position},
					Material:   gltf.Index(0),
				}},
			})
			meshIndex = len(doc.Meshes) - 1
			meshes[e.MeshID] = meshIndex
		}

		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: e.Name, Mesh: gltf.Index(meshIndex)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	return doc, nil
}
