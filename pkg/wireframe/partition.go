// Package wireframe turns decoded mesh records into edge geometry and binds
// that geometry to object records for export.
package wireframe

import (
	"runtime"
	"sync"

	"github.com/Faultbox/modeledge/pkg/edges"
	"github.com/Faultbox/modeledge/pkg/meshdata"
)

// Size limits applied to oversized meshes.
const (
	DefaultPartitionIndexLimit = 10_000_000 // Above this a mesh is split by group
	DefaultGroupIndexLimit     = 5_000_000  // Groups above this are dropped when splitting
)

// Partitioner extracts edges group by group and merges the results. Groups
// whose index count exceeds GroupIndexLimit are left out of the result.
type Partitioner struct {
	GroupIndexLimit int
	ThresholdDeg    float64
	Workers         int // 0 means runtime.NumCPU()
}

// PartitionStats describes one partitioned extraction.
type PartitionStats struct {
	Groups  int
	Kept    int
	Dropped []int // Group positions left out for exceeding the limit
}

// Partition extracts the edges of every group that fits the limit and merges
// them in group order. m may be flattened or still group-local. Kept groups
// are range-checked before extraction; dropped groups are never read.
func (p Partitioner) Partition(m *meshdata.Mesh) (edges.Geometry, PartitionStats, error) {
	stats := PartitionStats{Groups: len(m.Groups)}
	limit := p.GroupIndexLimit
	if limit <= 0 {
		limit = DefaultGroupIndexLimit
	}

	var todo []int
	for g, group := range m.Groups {
		if group.IndexCount > limit {
			stats.Dropped = append(stats.Dropped, g)
			continue
		}
		if err := m.ValidateGroup(g); err != nil {
			return edges.Geometry{}, stats, err
		}
		todo = append(todo, g)
	}
	stats.Kept = len(todo)

	results := make([]edges.Geometry, len(m.Groups))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workerCount(len(todo)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range jobs {
				sub := m.Group(g)
				results[g] = edges.Extract(sub.Positions, sub.Indices, p.ThresholdDeg)
			}
		}()
	}
	for _, g := range todo {
		jobs <- g
	}
	close(jobs)
	wg.Wait()

	kept := make([]edges.Geometry, 0, len(todo))
	for _, g := range todo {
		kept = append(kept, results[g])
	}
	return edges.Merge(kept...), stats, nil
}

func (p Partitioner) workerCount(jobs int) int {
	n := p.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > jobs {
		n = jobs
	}
	return n
}
