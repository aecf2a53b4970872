package modeldb

import (
	"context"
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/Faultbox/modeledge/pkg/encoding"
	"github.com/Faultbox/modeledge/pkg/wireframe"
)

const (
	versionQuery = "SELECT Version FROM DB_MetaData"
	meshQuery    = "SELECT * FROM DB_Mesh"
	objectQuery  = "SELECT * FROM DB_Object"
)

// DB is a read-only model database. A DB is not safe for concurrent use.
type DB struct {
	conn     *sqlite.Conn
	path     string
	tempFile bool

	// Text decodes object uuid columns. Defaults to UTF-8 pass-through.
	Text encoding.Decoder
}

// Open spills a database image to a temporary file and opens it. Close
// removes the file.
func Open(image []byte) (*DB, error) {
	f, err := os.CreateTemp("", "modeldb-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("creating temp database: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(image); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing temp database: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing temp database: %w", err)
	}

	db, err := OpenFile(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	db.tempFile = true
	return db, nil
}

// OpenFile opens an on-disk database read-only.
func OpenFile(path string) (*DB, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("opening model database %s: %w", path, err)
	}
	text, _ := encoding.NewDecoder("")
	return &DB{conn: conn, path: path, Text: text}, nil
}

// Close closes the connection and removes any temporary file.
func (db *DB) Close() error {
	err := db.conn.Close()
	if db.tempFile {
		if rmErr := os.Remove(db.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// Version returns the schema version from DB_MetaData.
func (db *DB) Version() (int, error) {
	version, found := 0, false
	err := sqlitex.ExecuteTransient(db.conn, versionQuery, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if !found {
				version = int(stmt.ColumnInt64(0))
				found = true
			}
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("reading metadata: %w", err)
	}
	if !found {
		return 0, ErrNoMetadata
	}
	return version, nil
}

// Schema reads the version and returns its row schema.
func (db *DB) Schema() (Schema, error) {
	version, err := db.Version()
	if err != nil {
		return nil, err
	}
	return SchemaFor(version)
}

// EachMesh calls fn for every DB_Mesh row in table order. Rows with bad
// layout JSON are still passed to fn with Err set. Returning an error from
// fn, or cancelling ctx, stops iteration.
func (db *DB) EachMesh(ctx context.Context, schema Schema, fn func(MeshRow) error) error {
	defer db.conn.SetInterrupt(db.conn.SetInterrupt(ctx.Done()))

	err := sqlitex.ExecuteTransient(db.conn, meshQuery, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row, err := schema.decodeMesh(stmt)
			if err != nil {
				return err
			}
			return fn(row)
		},
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("reading meshes: %w", err)
	}
	return nil
}

// Objects returns every DB_Object row in table order.
func (db *DB) Objects(schema Schema) ([]wireframe.ObjectRecord, error) {
	var objects []wireframe.ObjectRecord
	err := sqlitex.ExecuteTransient(db.conn, objectQuery, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			obj, err := schema.decodeObject(stmt)
			if err != nil {
				return err
			}
			obj.UUID = db.Text.Decode(obj.UUID)
			objects = append(objects, obj)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading objects: %w", err)
	}
	return objects, nil
}
