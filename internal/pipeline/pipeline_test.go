package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Faultbox/modeledge/pkg/edges"
	"github.com/Faultbox/modeledge/pkg/math"
	"github.com/Faultbox/modeledge/pkg/meshdata"
	"github.com/Faultbox/modeledge/pkg/modeldb"
	"github.com/Faultbox/modeledge/pkg/modeldb/modeldbtest"
)

func openDB(t *testing.T, version int, meshes []modeldbtest.Mesh, objects []modeldbtest.Object) *modeldb.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.db")
	if err := modeldbtest.Write(path, version, meshes, objects); err != nil {
		t.Fatalf("failed to write test database: %v", err)
	}
	db, err := modeldb.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun(t *testing.T) {
	db := openDB(t, 2,
		[]modeldbtest.Mesh{
			modeldbtest.Triangle("1", 0),
			modeldbtest.Triangle("2", 10),
			modeldbtest.Triangle("3", 0), // same content as "1"
		},
		[]modeldbtest.Object{
			{UUID: "u1", MeshID: "1"},
			{UUID: "u2", MeshID: "3"},
			{UUID: "u3", MeshID: "99"},
			{UUID: "u4", MeshID: "2"},
		},
	)

	opts := DefaultOptions()
	opts.Workers = 1
	res, err := Run(context.Background(), opts, db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s := res.Stats
	if s.SchemaVersion != 2 || s.Meshes != 3 {
		t.Errorf("version/meshes = %d/%d, want 2/3", s.SchemaVersion, s.Meshes)
	}
	if s.Built != 2 || s.Deduplicated != 1 || s.Failed != 0 {
		t.Errorf("built/dedup/failed = %d/%d/%d, want 2/1/0", s.Built, s.Deduplicated, s.Failed)
	}
	if s.Assemble.Objects != 4 || s.Assemble.Emitted != 3 || s.Assemble.Missing != 1 {
		t.Errorf("unexpected assemble stats %+v", s.Assemble)
	}

	wantNames := []string{"u1", "u2", "u4"}
	if len(res.Entities) != len(wantNames) {
		t.Fatalf("expected %d entities, got %d", len(wantNames), len(res.Entities))
	}
	for i, e := range res.Entities {
		if e.Name != wantNames[i] {
			t.Errorf("entity %d = %q, want %q", i, e.Name, wantNames[i])
		}
		if e.Geometry.Segments() != 3 {
			t.Errorf("entity %s: expected 3 boundary segments, got %d", e.Name, e.Geometry.Segments())
		}
	}
	if res.Cache.Len() != 3 {
		t.Errorf("expected 3 cached meshes, got %d", res.Cache.Len())
	}
}

func TestRun_SkipsMalformedMeshes(t *testing.T) {
	truncated := modeldbtest.Triangle("bad", 0)
	truncated.Raw = truncated.Blob()[:20]

	badLayout := modeldbtest.Triangle("badlayout", 0)
	badLayout.VLyt = []int{3, 3}

	db := openDB(t, 1,
		[]modeldbtest.Mesh{truncated, badLayout, modeldbtest.Triangle("ok", 1)},
		[]modeldbtest.Object{{UUID: "a", MeshID: "bad"}, {UUID: "b", MeshID: "ok"}},
	)

	res, err := Run(context.Background(), DefaultOptions(), db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.Failed != 2 {
		t.Errorf("expected 2 failed meshes, got %d", res.Stats.Failed)
	}
	if _, ok := res.Cache.Lookup("bad"); ok {
		t.Error("malformed mesh must stay absent from the cache")
	}
	if len(res.Entities) != 1 || res.Entities[0].Name != "b" {
		t.Errorf("unexpected entities %+v", res.Entities)
	}
}

func TestRun_UnsupportedVersion(t *testing.T) {
	db := openDB(t, 3, nil, nil)
	if _, err := Run(context.Background(), DefaultOptions(), db); !errors.Is(err, modeldb.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	db := openDB(t, 1, []modeldbtest.Mesh{modeldbtest.Triangle("1", 0)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, DefaultOptions(), db); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_RepeatedMeshIDLastRowWins(t *testing.T) {
	db := openDB(t, 1,
		[]modeldbtest.Mesh{modeldbtest.Triangle("5", 0), modeldbtest.Triangle("5", 7)},
		[]modeldbtest.Object{{UUID: "x", MeshID: "5"}},
	)

	opts := DefaultOptions()
	opts.Workers = 4
	res, err := Run(context.Background(), opts, db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	geom, ok := res.Cache.Lookup("5")
	if !ok {
		t.Fatal("mesh 5 missing from cache")
	}
	if geom.Positions[0].X != 7 {
		t.Errorf("expected geometry of the last row (x=7), got x=%v", geom.Positions[0].X)
	}
}

func TestRun_PartitionDropsOversizedGroup(t *testing.T) {
	twoGroups := modeldbtest.Mesh{
		ID:   "big",
		VLyt: []int{3, 4},
		ILyt: []int{3, 6},
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{5, 0, 0}, {6, 0, 0}, {6, 1, 0}, {5, 1, 0},
		},
		Indices: []int32{0, 1, 2, 0, 1, 2, 0, 2, 3},
	}
	db := openDB(t, 2, []modeldbtest.Mesh{twoGroups}, []modeldbtest.Object{{UUID: "o", MeshID: "big"}})

	opts := DefaultOptions()
	opts.PartitionIndexLimit = 4
	opts.GroupIndexLimit = 4
	res, err := Run(context.Background(), opts, db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.Partitioned != 1 || res.Stats.DroppedGroups != 1 {
		t.Errorf("partitioned/dropped = %d/%d, want 1/1", res.Stats.Partitioned, res.Stats.DroppedGroups)
	}
	if len(res.Entities) != 1 || res.Entities[0].Geometry.Segments() != 3 {
		t.Errorf("expected only the small triangle's 3 edges")
	}
}

func TestRun_AllGroupsDroppedOmitsMesh(t *testing.T) {
	db := openDB(t, 2,
		[]modeldbtest.Mesh{modeldbtest.Triangle("big", 0)},
		[]modeldbtest.Object{{UUID: "o", MeshID: "big"}},
	)

	opts := DefaultOptions()
	opts.PartitionIndexLimit = 1
	opts.GroupIndexLimit = 1
	res, err := Run(context.Background(), opts, db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Entities) != 0 {
		t.Errorf("expected no entities, got %d", len(res.Entities))
	}
	if _, ok := res.Cache.Lookup("big"); ok {
		t.Error("mesh with every group dropped must stay out of the cache")
	}
	s := res.Stats
	if s.Omitted != 1 || s.Partitioned != 1 || s.DroppedGroups != 1 || s.Failed != 0 {
		t.Errorf("omitted/partitioned/dropped/failed = %d/%d/%d/%d, want 1/1/1/0",
			s.Omitted, s.Partitioned, s.DroppedGroups, s.Failed)
	}
	if s.Assemble.Missing != 1 {
		t.Errorf("expected 1 missing reference, got %d", s.Assemble.Missing)
	}
}

func TestRun_LaterMalformedRowRemovesMesh(t *testing.T) {
	bad := modeldbtest.Triangle("5", 0)
	bad.Raw = bad.Blob()[:12]

	db := openDB(t, 1,
		[]modeldbtest.Mesh{modeldbtest.Triangle("5", 3), bad, modeldbtest.Triangle("6", 9)},
		[]modeldbtest.Object{{UUID: "x", MeshID: "5"}, {UUID: "y", MeshID: "6"}},
	)

	opts := DefaultOptions()
	opts.Workers = 4
	res, err := Run(context.Background(), opts, db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, ok := res.Cache.Lookup("5"); ok {
		t.Error("a malformed last row must leave its mesh id absent")
	}
	if len(res.Entities) != 1 || res.Entities[0].Name != "y" {
		t.Errorf("unexpected entities %+v", res.Entities)
	}
	if res.Stats.Failed != 1 {
		t.Errorf("expected 1 failed mesh, got %d", res.Stats.Failed)
	}
}

func TestRun_LaterGoodRowRestoresMesh(t *testing.T) {
	bad := modeldbtest.Triangle("5", 0)
	bad.Raw = bad.Blob()[:12]

	db := openDB(t, 1,
		[]modeldbtest.Mesh{bad, modeldbtest.Triangle("5", 3)},
		[]modeldbtest.Object{{UUID: "x", MeshID: "5"}},
	)

	res, err := Run(context.Background(), DefaultOptions(), db)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Entities) != 1 || res.Entities[0].Geometry.Positions[0].X < 3 {
		t.Errorf("expected the last row's geometry, got %+v", res.Entities)
	}
}

func TestCache(t *testing.T) {
	c := NewCache[string]()
	g := edges.Geometry{Positions: []math.Vec3{{}, {X: 1}}}

	if _, ok := c.Lookup("a"); ok {
		t.Error("empty cache should miss")
	}
	c.Set("a", g)
	if got, ok := c.Lookup("a"); !ok || got.Segments() != 1 {
		t.Error("expected cached geometry")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", hits, misses)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	c.Set("b", g)
	c.Delete("b")
	if _, ok := c.Lookup("b"); ok {
		t.Error("deleted key should miss")
	}
	c.Delete("never-set")

	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear should empty the cache")
	}
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Error("Clear should reset stats")
	}
}

func TestContentDigest(t *testing.T) {
	m := modeldbtest.Triangle("1", 0)
	layout, err := meshdata.ParseLayout("[3]", "[3]", "[]", true)
	if err != nil {
		t.Fatalf("ParseLayout failed: %v", err)
	}
	raw := m.Blob()

	a := contentDigest(layout, raw)
	if b := contentDigest(layout, append([]byte(nil), raw...)); a != b {
		t.Error("equal content should give equal digests")
	}

	noUV := layout
	noUV.HasUV = false
	if contentDigest(noUV, raw) == a {
		t.Error("UV flag should change the digest")
	}

	moved := modeldbtest.Triangle("1", 2)
	if contentDigest(layout, moved.Blob()) == a {
		t.Error("different positions should change the digest")
	}
}
