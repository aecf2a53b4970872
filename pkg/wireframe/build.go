package wireframe

import (
	"errors"

	"github.com/Faultbox/modeledge/pkg/edges"
	"github.com/Faultbox/modeledge/pkg/meshdata"
)

// ErrAllGroupsDropped reports a partitioned mesh with no group under the
// group index limit. Such a mesh has no geometry and is left out of exports.
var ErrAllGroupsDropped = errors.New("every group exceeds the group index limit")

// Builder runs decode, flatten and edge extraction for one mesh record,
// switching to per-group partitioning for meshes over PartitionIndexLimit.
type Builder struct {
	PartitionIndexLimit int
	Partitioner         Partitioner
}

// NewBuilder returns a Builder with the default size limits.
func NewBuilder(thresholdDeg float64, workers int) Builder {
	return Builder{
		PartitionIndexLimit: DefaultPartitionIndexLimit,
		Partitioner: Partitioner{
			GroupIndexLimit: DefaultGroupIndexLimit,
			ThresholdDeg:    thresholdDeg,
			Workers:         workers,
		},
	}
}

// BuildStats describes how a mesh was turned into edges.
type BuildStats struct {
	Vertices    int
	Indices     int
	Segments    int
	Partitioned bool
	Partition   PartitionStats
}

// Build decodes raw with layout and returns its edge geometry.
func (b Builder) Build(raw []byte, layout meshdata.Layout) (edges.Geometry, BuildStats, error) {
	mesh, err := meshdata.Decode(raw, layout)
	if err != nil {
		return edges.Geometry{}, BuildStats{}, err
	}
	return b.BuildMesh(mesh)
}

// BuildMesh returns the edge geometry of a decoded mesh. Meshes over
// PartitionIndexLimit are extracted group by group from their group-local
// indices, without building a flattened index buffer. A partitioned mesh
// whose groups were all dropped returns ErrAllGroupsDropped along with its
// stats.
func (b Builder) BuildMesh(mesh *meshdata.Mesh) (edges.Geometry, BuildStats, error) {
	stats := BuildStats{Vertices: mesh.VertexCount(), Indices: mesh.IndexCount()}
	limit := b.PartitionIndexLimit
	if limit <= 0 {
		limit = DefaultPartitionIndexLimit
	}

	if mesh.IndexCount() > limit {
		stats.Partitioned = true
		geom, ps, err := b.Partitioner.Partition(mesh)
		stats.Partition = ps
		if err != nil {
			return edges.Geometry{}, stats, err
		}
		if ps.Kept == 0 {
			return edges.Geometry{}, stats, ErrAllGroupsDropped
		}
		stats.Segments = geom.Segments()
		return geom, stats, nil
	}

	flat, err := meshdata.Flatten(mesh)
	if err != nil {
		return edges.Geometry{}, stats, err
	}
	geom := edges.Extract(flat.Positions, flat.Indices, b.Partitioner.ThresholdDeg)
	stats.Segments = geom.Segments()
	return geom, stats, nil
}
