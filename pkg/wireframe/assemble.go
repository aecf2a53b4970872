package wireframe

import "github.com/Faultbox/modeledge/pkg/edges"

// ObjectRecord binds a displayed instance to a mesh.
type ObjectRecord struct {
	UUID   string
	MeshID string
}

// Entity is a named piece of edge geometry ready for serialization.
type Entity struct {
	Name     string
	MeshID   string
	Geometry edges.Geometry
}

// GeometrySource looks up cached edge geometry by mesh id.
type GeometrySource interface {
	Lookup(meshID string) (edges.Geometry, bool)
}

// MapSource adapts a plain map to GeometrySource.
type MapSource map[string]edges.Geometry

// Lookup implements GeometrySource.
func (m MapSource) Lookup(meshID string) (edges.Geometry, bool) {
	g, ok := m[meshID]
	return g, ok
}

// AssembleStats counts how object records resolved.
type AssembleStats struct {
	Objects int
	Emitted int
	Missing int
}

// Assemble emits one entity per object record whose mesh is in cache,
// preserving record order. Records with no cached mesh are skipped.
func Assemble(cache GeometrySource, objects []ObjectRecord) ([]Entity, AssembleStats) {
	stats := AssembleStats{Objects: len(objects)}
	entities := make([]Entity, 0, len(objects))
	for _, obj := range objects {
		geom, ok := cache.Lookup(obj.MeshID)
		if !ok {
			stats.Missing++
			continue
		}
		entities = append(entities, Entity{Name: obj.UUID, MeshID: obj.MeshID, Geometry: geom})
	}
	stats.Emitted = len(entities)
	return entities, stats
}
