// Package pipeline runs an export: it streams mesh rows from a model
// database through a worker pool, caches the resulting edge geometry by mesh
// id and binds it to object records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/modeledge/internal/logger"
	"github.com/Faultbox/modeledge/pkg/edges"
	"github.com/Faultbox/modeledge/pkg/meshdata"
	"github.com/Faultbox/modeledge/pkg/modeldb"
	"github.com/Faultbox/modeledge/pkg/wireframe"
)

// Source supplies mesh and object rows. *modeldb.DB implements it.
type Source interface {
	Schema() (modeldb.Schema, error)
	EachMesh(ctx context.Context, schema modeldb.Schema, fn func(modeldb.MeshRow) error) error
	Objects(schema modeldb.Schema) ([]wireframe.ObjectRecord, error)
}

// Options controls edge extraction for a run.
type Options struct {
	ThresholdDeg        float64
	PartitionIndexLimit int // 0 = wireframe.DefaultPartitionIndexLimit
	GroupIndexLimit     int // 0 = wireframe.DefaultGroupIndexLimit
	Workers             int // 0 = runtime.NumCPU()
}

// DefaultOptions returns options with the default threshold and limits.
func DefaultOptions() Options {
	return Options{
		ThresholdDeg:        edges.DefaultThreshold,
		PartitionIndexLimit: wireframe.DefaultPartitionIndexLimit,
		GroupIndexLimit:     wireframe.DefaultGroupIndexLimit,
	}
}

// Stats summarizes a run.
type Stats struct {
	SchemaVersion int
	Meshes        int // Rows read
	Built         int // Meshes extracted from scratch
	Deduplicated  int // Meshes reusing geometry of identical content
	Failed        int // Meshes skipped for format errors
	Partitioned   int
	Omitted       int // Partitioned meshes with every group dropped
	DroppedGroups int
	Segments      int
	Assemble      wireframe.AssembleStats
}

// Result is the outcome of a run.
type Result struct {
	Entities []wireframe.Entity
	Cache    *EdgeCache
	Stats    Stats
}

type job struct {
	seq int
	row modeldb.MeshRow
}

// built is the outcome of one row. An absent row removes its mesh id from
// the cache, even if an earlier row with the same id succeeded.
type built struct {
	meshID string
	geom   edges.Geometry
	absent bool
}

// runner holds the shared state of one Run.
type runner struct {
	builder wireframe.Builder
	digests *Cache[Digest]
	log     *zap.Logger

	mu    sync.Mutex
	done  map[int]built
	stats Stats
}

// Run exports every mesh in src. An unsupported schema version or a
// database error fails the run; malformed meshes are logged and skipped.
func Run(ctx context.Context, opts Options, src Source) (*Result, error) {
	log := logger.Named("pipeline")

	schema, err := src.Schema()
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	log.Debug("schema selected", zap.Int("version", schema.Version()))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	builder := wireframe.NewBuilder(opts.ThresholdDeg, workers)
	if opts.PartitionIndexLimit > 0 {
		builder.PartitionIndexLimit = opts.PartitionIndexLimit
	}
	if opts.GroupIndexLimit > 0 {
		builder.Partitioner.GroupIndexLimit = opts.GroupIndexLimit
	}

	r := &runner{
		builder: builder,
		digests: NewCache[Digest](),
		log:     log,
		done:    make(map[int]built),
	}
	r.stats.SchemaVersion = schema.Version()

	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r.process(j)
			}
		}()
	}

	seq := 0
	readErr := src.EachMesh(ctx, schema, func(row modeldb.MeshRow) error {
		select {
		case jobs <- job{seq: seq, row: row}:
			seq++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(jobs)
	wg.Wait()

	if readErr != nil {
		return nil, readErr
	}
	r.stats.Meshes = seq

	// Table order, so a repeated mesh id resolves to its last row.
	cache := NewCache[string]()
	order := make([]int, 0, len(r.done))
	for s := range r.done {
		order = append(order, s)
	}
	sort.Ints(order)
	for _, s := range order {
		b := r.done[s]
		if b.absent {
			cache.Delete(b.meshID)
			continue
		}
		cache.Set(b.meshID, b.geom)
	}

	objects, err := src.Objects(schema)
	if err != nil {
		return nil, fmt.Errorf("reading objects: %w", err)
	}
	entities, assembleStats := wireframe.Assemble(cache, objects)
	r.stats.Assemble = assembleStats

	log.Info("export assembled",
		zap.Int("meshes", r.stats.Meshes),
		zap.Int("built", r.stats.Built),
		zap.Int("deduplicated", r.stats.Deduplicated),
		zap.Int("failed", r.stats.Failed),
		zap.Int("omitted", r.stats.Omitted),
		zap.Int("objects", assembleStats.Objects),
		zap.Int("entities", assembleStats.Emitted),
		zap.Int("missing", assembleStats.Missing))

	return &Result{Entities: entities, Cache: cache, Stats: r.stats}, nil
}

// process builds one mesh row and records the result.
func (r *runner) process(j job) {
	row := j.row
	if row.Err != nil {
		r.fail(j.seq, row.MeshID, row.Err)
		return
	}

	digest := contentDigest(row.Layout, row.Raw)
	if geom, ok := r.digests.Lookup(digest); ok {
		r.log.Debug("mesh reused", zap.String("mesh", row.MeshID))
		r.record(j.seq, built{meshID: row.MeshID, geom: geom}, func(s *Stats) { s.Deduplicated++ })
		return
	}

	geom, bs, err := r.builder.Build(row.Raw, row.Layout)
	if errors.Is(err, wireframe.ErrAllGroupsDropped) {
		r.log.Warn("mesh omitted, every group over the limit",
			zap.String("mesh", row.MeshID),
			zap.Int("groups", bs.Partition.Groups),
			zap.Int("indices", bs.Indices))
		r.record(j.seq, built{meshID: row.MeshID, absent: true}, func(s *Stats) {
			s.Omitted++
			s.Partitioned++
			s.DroppedGroups += len(bs.Partition.Dropped)
		})
		return
	}
	if err != nil {
		r.fail(j.seq, row.MeshID, err)
		return
	}
	r.digests.Set(digest, geom)

	if len(bs.Partition.Dropped) > 0 {
		r.log.Warn("oversized groups dropped",
			zap.String("mesh", row.MeshID),
			zap.Ints("groups", bs.Partition.Dropped),
			zap.Int("indices", bs.Indices))
	}
	r.log.Debug("mesh built",
		zap.String("mesh", row.MeshID),
		zap.Int("vertices", bs.Vertices),
		zap.Int("indices", bs.Indices),
		zap.Int("segments", bs.Segments),
		zap.Bool("partitioned", bs.Partitioned))

	r.record(j.seq, built{meshID: row.MeshID, geom: geom}, func(s *Stats) {
		s.Built++
		s.Segments += bs.Segments
		s.DroppedGroups += len(bs.Partition.Dropped)
		if bs.Partitioned {
			s.Partitioned++
		}
	})
}

func (r *runner) record(seq int, b built, update func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done[seq] = b
	update(&r.stats)
}

func (r *runner) fail(seq int, meshID string, err error) {
	var fe *meshdata.FormatError
	if errors.As(err, &fe) {
		r.log.Warn("mesh skipped",
			zap.String("mesh", meshID),
			zap.String("reason", fe.Reason),
			zap.Int("want", fe.Want),
			zap.Int("got", fe.Got))
	} else {
		r.log.Warn("mesh skipped", zap.String("mesh", meshID), zap.Error(err))
	}

	r.record(seq, built{meshID: meshID, absent: true}, func(s *Stats) { s.Failed++ })
}
