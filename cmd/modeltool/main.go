// modeltool is a CLI utility for inspecting model database containers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Faultbox/modeledge/pkg/container"
	"github.com/Faultbox/modeledge/pkg/edges"
	"github.com/Faultbox/modeledge/pkg/modeldb"
	"github.com/Faultbox/modeledge/pkg/wireframe"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(os.Stdout, args)
	case "list", "ls":
		err = cmdList(os.Stdout, args)
	case "unpack", "x":
		err = cmdUnpack(os.Stdout, args)
	case "edges":
		err = cmdEdges(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `modeltool - model database container utility

Usage:
  modeltool <command> [options]

Commands:
  info <file>                   Show container and mesh statistics
  list <file> [pattern]         List mesh rows (optional id pattern)
  unpack <file> [output]        Write the decompressed SQLite database
  edges <file> <meshId>         Extract edges for one mesh

Common options:
  --encrypted                   Input .osdz carries a 16-byte header

Examples:
  modeltool info scene.osdz
  modeltool list scene.zstd "12*"
  modeltool unpack scene.osdz scene.sqlite
  modeltool edges scene.osdz 42 --angle 30`)
}

// openModel decodes a container and opens its database.
func openModel(path string, encrypted bool) (*container.Container, *modeldb.DB, error) {
	c, err := container.Open(path, container.Options{Encrypted: encrypted})
	if err != nil {
		return nil, nil, err
	}
	db, err := modeldb.Open(c.Data)
	if err != nil {
		return nil, nil, err
	}
	return c, db, nil
}

func usageError(w io.Writer, usage string) error {
	fmt.Fprintln(w, "Usage: "+usage)
	return errUsage
}

func cmdInfo(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
	encrypted := fs.Bool("encrypted", false, "Input carries an encryption header")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError(w, "modeltool info <file>")
	}

	c, db, err := openModel(fs.Arg(0), *encrypted)
	if err != nil {
		return err
	}
	defer db.Close()

	schema, err := db.Schema()
	if err != nil {
		return err
	}

	var meshes, malformed, vertices, indices, groups, oversized int
	largestID, largest := "", 0
	err = db.EachMesh(context.Background(), schema, func(row modeldb.MeshRow) error {
		meshes++
		if row.Err != nil {
			malformed++
			return nil
		}
		n := row.Layout.IndexCount()
		vertices += row.Layout.VertexCount()
		indices += n
		groups += len(row.Layout.VLyt)
		if n > wireframe.DefaultPartitionIndexLimit {
			oversized++
		}
		if n > largest {
			largestID, largest = row.MeshID, n
		}
		return nil
	})
	if err != nil {
		return err
	}

	objects, err := db.Objects(schema)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Container: %s (%s)\n", fs.Arg(0), c.Kind)
	fmt.Fprintf(w, "Size:      %.2f MB compressed, %.2f MB database\n",
		float64(c.CompressedSize)/(1024*1024), float64(len(c.Data))/(1024*1024))
	fmt.Fprintf(w, "Schema:    version %d\n", schema.Version())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Meshes:    %d (%d malformed, %d over partition limit)\n", meshes, malformed, oversized)
	fmt.Fprintf(w, "Groups:    %d\n", groups)
	fmt.Fprintf(w, "Vertices:  %d\n", vertices)
	fmt.Fprintf(w, "Indices:   %d\n", indices)
	if largestID != "" {
		fmt.Fprintf(w, "Largest:   mesh %s (%d indices)\n", largestID, largest)
	}
	fmt.Fprintf(w, "Objects:   %d\n", len(objects))
	return nil
}

func cmdList(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	encrypted := fs.Bool("encrypted", false, "Input carries an encryption header")
	limit := fs.IntP("limit", "n", 0, "Limit output to N meshes (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError(w, "modeltool list <file> [pattern]")
	}

	_, db, err := openModel(fs.Arg(0), *encrypted)
	if err != nil {
		return err
	}
	defer db.Close()

	schema, err := db.Schema()
	if err != nil {
		return err
	}

	pattern := ""
	if fs.NArg() > 1 {
		pattern = fs.Arg(1)
	}

	type meshStat struct {
		id               string
		groups, vertices int
		indices          int
		uv               bool
		err              error
	}
	var stats []meshStat
	err = db.EachMesh(context.Background(), schema, func(row modeldb.MeshRow) error {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, row.MeshID)
			if !matched && !strings.Contains(row.MeshID, pattern) {
				return nil
			}
		}
		stats = append(stats, meshStat{
			id:       row.MeshID,
			groups:   len(row.Layout.VLyt),
			vertices: row.Layout.VertexCount(),
			indices:  row.Layout.IndexCount(),
			uv:       row.Layout.HasUV,
			err:      row.Err,
		})
		return nil
	})
	if err != nil {
		return err
	}

	// Largest first
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].indices > stats[j].indices
	})

	fmt.Fprintf(w, "%-12s %6s %10s %10s %3s\n", "MESH", "GROUPS", "VERTICES", "INDICES", "UV")
	for i, s := range stats {
		if *limit > 0 && i >= *limit {
			break
		}
		if s.err != nil {
			fmt.Fprintf(w, "%-12s %v\n", s.id, s.err)
			continue
		}
		uv := "no"
		if s.uv {
			uv = "yes"
		}
		fmt.Fprintf(w, "%-12s %6d %10d %10d %3s\n", s.id, s.groups, s.vertices, s.indices, uv)
	}
	return nil
}

func cmdUnpack(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("unpack", pflag.ContinueOnError)
	encrypted := fs.Bool("encrypted", false, "Input carries an encryption header")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError(w, "modeltool unpack <file> [output]")
	}

	input := fs.Arg(0)
	c, err := container.Open(input, container.Options{Encrypted: *encrypted})
	if err != nil {
		return err
	}

	output := strings.TrimSuffix(input, filepath.Ext(input)) + ".sqlite"
	if fs.NArg() > 1 {
		output = fs.Arg(1)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(output, c.Data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	fmt.Fprintf(w, "Unpacked: %s (%d bytes)\n", output, len(c.Data))
	return nil
}

func cmdEdges(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("edges", pflag.ContinueOnError)
	encrypted := fs.Bool("encrypted", false, "Input carries an encryption header")
	angle := fs.Float64("angle", edges.DefaultThreshold, "Edge threshold in degrees")
	workers := fs.Int("workers", 0, "Partition workers (0 = one per CPU)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError(w, "modeltool edges <file> <meshId>")
	}

	_, db, err := openModel(fs.Arg(0), *encrypted)
	if err != nil {
		return err
	}
	defer db.Close()

	schema, err := db.Schema()
	if err != nil {
		return err
	}

	meshID := fs.Arg(1)
	var row *modeldb.MeshRow
	err = db.EachMesh(context.Background(), schema, func(r modeldb.MeshRow) error {
		if r.MeshID == meshID {
			row = &r
		}
		return nil
	})
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("mesh not found: %s", meshID)
	}
	if row.Err != nil {
		return row.Err
	}

	geom, stats, err := wireframe.NewBuilder(*angle, *workers).Build(row.Raw, row.Layout)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Mesh:      %s\n", meshID)
	fmt.Fprintf(w, "Vertices:  %d\n", stats.Vertices)
	fmt.Fprintf(w, "Indices:   %d\n", stats.Indices)
	fmt.Fprintf(w, "Segments:  %d (angle %.1f)\n", geom.Segments(), *angle)
	if stats.Partitioned {
		fmt.Fprintf(w, "Groups:    %d (dropped %v)\n", stats.Partition.Groups, stats.Partition.Dropped)
	}
	return nil
}
