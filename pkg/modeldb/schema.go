// Package modeldb reads mesh and object rows out of model database images.
package modeldb

import (
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"

	"github.com/Faultbox/modeledge/pkg/meshdata"
	"github.com/Faultbox/modeledge/pkg/wireframe"
)

// Row source errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported model database version")
	ErrNoMetadata         = errors.New("model database has no metadata row")
	ErrRowShape           = errors.New("row has too few columns for schema")
)

// MeshRow is one decoded DB_Mesh row. Err holds a layout FormatError for
// rows whose JSON columns could not be parsed.
type MeshRow struct {
	MeshID string
	Layout meshdata.Layout
	Raw    []byte
	Err    error
}

// Schema decodes rows for one database version. The row shape is fixed
// per version and chosen once, when the version is read.
type Schema interface {
	Version() int
	decodeMesh(stmt *sqlite.Stmt) (MeshRow, error)
	decodeObject(stmt *sqlite.Stmt) (wireframe.ObjectRecord, error)
}

// SchemaFor returns the row schema for a database version.
func SchemaFor(version int) (Schema, error) {
	switch version {
	case 1:
		return SchemaV1{}, nil
	case 2:
		return SchemaV2{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// SchemaV1 rows: DB_Mesh(meshId, VLyt, ILyt, TLyt, Raw) with UVs always
// present; DB_Object carries uuid in column 1 and meshId in column 5.
type SchemaV1 struct{}

// Version implements Schema.
func (SchemaV1) Version() int { return 1 }

func (SchemaV1) decodeMesh(stmt *sqlite.Stmt) (MeshRow, error) {
	if err := requireColumns(stmt, 5); err != nil {
		return MeshRow{}, err
	}
	return meshRow(stmt, true, 4), nil
}

func (SchemaV1) decodeObject(stmt *sqlite.Stmt) (wireframe.ObjectRecord, error) {
	return objectRow(stmt, 1, 5)
}

// SchemaV2 rows: DB_Mesh(meshId, VLyt, ILyt, TLyt, HasUV, Raw);
// DB_Object carries uuid in column 1 and meshId in column 6.
type SchemaV2 struct{}

// Version implements Schema.
func (SchemaV2) Version() int { return 2 }

func (SchemaV2) decodeMesh(stmt *sqlite.Stmt) (MeshRow, error) {
	if err := requireColumns(stmt, 6); err != nil {
		return MeshRow{}, err
	}
	hasUV := stmt.ColumnType(4) != sqlite.TypeNull && stmt.ColumnInt64(4) == 1
	return meshRow(stmt, hasUV, 5), nil
}

func (SchemaV2) decodeObject(stmt *sqlite.Stmt) (wireframe.ObjectRecord, error) {
	return objectRow(stmt, 1, 6)
}

func requireColumns(stmt *sqlite.Stmt, n int) error {
	if got := stmt.ColumnCount(); got < n {
		return fmt.Errorf("%w: want %d, got %d", ErrRowShape, n, got)
	}
	return nil
}

func meshRow(stmt *sqlite.Stmt, hasUV bool, rawCol int) MeshRow {
	row := MeshRow{MeshID: stmt.ColumnText(0)}

	layout, err := meshdata.ParseLayout(stmt.ColumnText(1), stmt.ColumnText(2), stmt.ColumnText(3), hasUV)
	if err != nil {
		row.Err = withMeshID(err, row.MeshID)
		return row
	}
	row.Layout = layout

	row.Raw = make([]byte, stmt.ColumnLen(rawCol))
	stmt.ColumnBytes(rawCol, row.Raw)
	return row
}

func objectRow(stmt *sqlite.Stmt, uuidCol, meshCol int) (wireframe.ObjectRecord, error) {
	if err := requireColumns(stmt, meshCol+1); err != nil {
		return wireframe.ObjectRecord{}, err
	}
	return wireframe.ObjectRecord{
		UUID:   stmt.ColumnText(uuidCol),
		MeshID: stmt.ColumnText(meshCol),
	}, nil
}

func withMeshID(err error, meshID string) error {
	var fe *meshdata.FormatError
	if errors.As(err, &fe) {
		fe.MeshID = meshID
	}
	return err
}
