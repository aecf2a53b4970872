// Package modeldbtest writes small model databases for tests.
package modeldbtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Mesh is one DB_Mesh row. Indices are group-local.
type Mesh struct {
	ID        string
	VLyt      []int
	ILyt      []int
	Positions [][3]float32
	Indices   []int32
	NoUV      bool // Version 2 only: write HasUV = 0 and omit UVs
	Raw       []byte
}

// Object is one DB_Object row.
type Object struct {
	UUID   string
	MeshID string
}

// Blob encodes the mesh as positions, indices, UVs and normals, or returns
// Raw when set.
func (m Mesh) Blob() []byte {
	if m.Raw != nil {
		return m.Raw
	}
	buf := new(bytes.Buffer)
	for _, p := range m.Positions {
		binary.Write(buf, binary.LittleEndian, p)
	}
	for _, i := range m.Indices {
		binary.Write(buf, binary.LittleEndian, i)
	}
	if !m.NoUV {
		for range m.Positions {
			binary.Write(buf, binary.LittleEndian, [2]float32{0, 0})
		}
	}
	for range m.Positions {
		binary.Write(buf, binary.LittleEndian, [3]float32{0, 0, 1})
	}
	return buf.Bytes()
}

// Write creates a version 1 or 2 database at path.
func Write(path string, version int, meshes []Mesh, objects []Object) error {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return err
	}
	defer conn.Close()

	script := `
CREATE TABLE DB_MetaData (Version INTEGER);
CREATE TABLE DB_Mesh (Id INTEGER, VLyt TEXT, ILyt TEXT, TLyt TEXT, Raw BLOB);
CREATE TABLE DB_Object (Id INTEGER, Uuid TEXT, Name TEXT, Matrix BLOB, Color INTEGER, MeshId INTEGER);
`
	if version == 2 {
		script = `
CREATE TABLE DB_MetaData (Version INTEGER);
CREATE TABLE DB_Mesh (Id INTEGER, VLyt TEXT, ILyt TEXT, TLyt TEXT, HasUV INTEGER, Raw BLOB);
CREATE TABLE DB_Object (Id INTEGER, Uuid TEXT, Name TEXT, Matrix BLOB, Color INTEGER, Layer INTEGER, MeshId INTEGER);
`
	}
	if err := sqlitex.ExecuteScript(conn, script, nil); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	if err := sqlitex.Execute(conn, "INSERT INTO DB_MetaData (Version) VALUES (?)", &sqlitex.ExecOptions{
		Args: []any{version},
	}); err != nil {
		return err
	}

	for _, m := range meshes {
		args := []any{m.ID, jsonInts(m.VLyt), jsonInts(m.ILyt), "[]"}
		query := "INSERT INTO DB_Mesh VALUES (?, ?, ?, ?, ?)"
		if version == 2 {
			hasUV := 1
			if m.NoUV {
				hasUV = 0
			}
			args = append(args, hasUV)
			query = "INSERT INTO DB_Mesh VALUES (?, ?, ?, ?, ?, ?)"
		}
		args = append(args, m.Blob())
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return fmt.Errorf("inserting mesh %s: %w", m.ID, err)
		}
	}

	for i, o := range objects {
		args := []any{i, o.UUID, "object", []byte{}, 0}
		query := "INSERT INTO DB_Object VALUES (?, ?, ?, ?, ?, ?)"
		if version == 2 {
			args = append(args, 0)
			query = "INSERT INTO DB_Object VALUES (?, ?, ?, ?, ?, ?, ?)"
		}
		args = append(args, o.MeshID)
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return fmt.Errorf("inserting object %s: %w", o.UUID, err)
		}
	}
	return nil
}

// jsonInts formats counts the way layout columns store them.
func jsonInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Triangle returns a single-triangle mesh offset along X.
func Triangle(id string, x float32) Mesh {
	return Mesh{
		ID:        id,
		VLyt:      []int{3},
		ILyt:      []int{3},
		Positions: [][3]float32{{x, 0, 0}, {x + 1, 0, 0}, {x, 1, 0}},
		Indices:   []int32{0, 1, 2},
	}
}
