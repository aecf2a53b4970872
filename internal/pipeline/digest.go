package pipeline

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/Faultbox/modeledge/pkg/meshdata"
)

// Digest identifies mesh content independent of its id.
type Digest [32]byte

// contentDigest hashes the layout counts, the UV flag and the raw blob.
// The threshold is fixed for a run, so it is left out.
func contentDigest(layout meshdata.Layout, raw []byte) Digest {
	h := blake3.New()
	var buf [4]byte
	writeInt := func(n int) {
		binary.LittleEndian.PutUint32(buf[:], uint32(n))
		h.Write(buf[:])
	}

	writeInt(len(layout.VLyt))
	for _, n := range layout.VLyt {
		writeInt(n)
	}
	writeInt(len(layout.ILyt))
	for _, n := range layout.ILyt {
		writeInt(n)
	}
	if layout.HasUV {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write(raw)

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
