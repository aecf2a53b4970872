// Package container opens model database containers: plain SQLite files,
// LZMA-compressed .osdz files and zstd-compressed .zstd files.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// sqliteMagic opens every SQLite database image.
const sqliteMagic = "SQLite format 3\x00"

// encryptedHeaderSize is the prefix carried by encrypted .osdz files.
const encryptedHeaderSize = 16

// Container errors.
var (
	ErrTruncated   = errors.New("truncated container")
	ErrNotDatabase = errors.New("payload is not an SQLite database")
)

// Kind identifies how a container payload is compressed.
type Kind int

const (
	KindRaw  Kind = iota // Plain SQLite image
	KindLZMA             // LZMA (.osdz)
	KindZstd             // zstd (.zstd)
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindLZMA:
		return "lzma"
	case KindZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// KindFromPath picks the container kind from the file extension.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".osdz":
		return KindLZMA
	case ".zstd":
		return KindZstd
	default:
		return KindRaw
	}
}

// Options controls container decoding.
type Options struct {
	Encrypted bool // Strip the 16-byte header of encrypted .osdz files
}

// Container is an opened container with its decompressed database image.
type Container struct {
	Path           string
	Kind           Kind
	CompressedSize int
	Data           []byte
}

// Open reads and decodes the container at path.
func Open(path string, opts Options) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}

	kind := KindFromPath(path)
	image, err := Decode(data, kind, opts)
	if err != nil {
		return nil, fmt.Errorf("decoding %s container %s: %w", kind, path, err)
	}

	return &Container{
		Path:           path,
		Kind:           kind,
		CompressedSize: len(data),
		Data:           image,
	}, nil
}

// Decode returns the SQLite image held in data.
func Decode(data []byte, kind Kind, opts Options) ([]byte, error) {
	var (
		image []byte
		err   error
	)

	switch kind {
	case KindRaw:
		image = data
	case KindLZMA:
		if opts.Encrypted {
			if len(data) < encryptedHeaderSize {
				return nil, ErrTruncated
			}
			data = data[encryptedHeaderSize:]
		}
		image, err = decompressLZMA(data)
	case KindZstd:
		image, err = decompressZstd(data)
	default:
		return nil, fmt.Errorf("unsupported container kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(image, []byte(sqliteMagic)) {
		return nil, ErrNotDatabase
	}
	return image, nil
}

func decompressLZMA(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma header: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzma decompress: %w", err)
	}
	return out, nil
}

// zstdDecoder is shared; zstd.Decoder is safe for concurrent DecodeAll.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("container: zstd decoder initialization failed: " + err.Error())
	}
}

func decompressZstd(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
