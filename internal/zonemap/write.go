package zonemap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/compress"
	"github.com/Faultbox/azone/pkg/scene"
)

// Version is the map file format version.
const Version = 0x02000000

// compressSlack is the headroom added to the deflate buffer.
const compressSlack = 128

// fileMode is the permission of written map files.
const fileMode = 0o644

var deflate = compress.Deflate

// Write serializes the map to path. The file is written to a temporary file
// in the same directory and renamed into place only once complete, so a
// failed Write leaves any existing file untouched. An empty map returns
// ErrEmptyMap and creates nothing.
func (m *Map) Write(path string) error {
	if m.Empty() {
		return ErrEmptyMap
	}

	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return err
	}

	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}

	m.log.Info("wrote map",
		append([]zap.Field{zap.String("zone", m.zone), zap.String("path", path), zap.Int("bytes", buf.Len())},
			m.Stats().Fields()...)...)
	return nil
}

// Encode writes the complete map file (header and compressed payload) to w.
func (m *Map) Encode(w io.Writer) error {
	if m.Empty() {
		return ErrEmptyMap
	}

	payload, err := m.payload()
	if err != nil {
		return err
	}

	out := make([]byte, len(payload)+compressSlack)
	n, err := deflate(out, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if n == 0 || n > len(out) {
		return fmt.Errorf("%w: %d compressed bytes", ErrCompression, n)
	}

	header := [3]uint32{Version, uint32(n), uint32(len(payload))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err = w.Write(out[:n])
	return err
}

// payload builds the uncompressed body.
func (m *Map) payload() ([]byte, error) {
	var buf bytes.Buffer

	var tileCount, quads uint32
	var units float32
	if m.Terrain != nil {
		tileCount = uint32(len(m.Terrain.Tiles))
		quads = m.Terrain.QuadsPerTile
		units = m.Terrain.UnitsPerVertex
	}

	le := binary.LittleEndian
	binary.Write(&buf, le, [6]uint32{
		uint32(len(m.Collide.Vertices)),
		uint32(len(m.Collide.Indices)),
		uint32(len(m.NonCollide.Vertices)),
		uint32(len(m.NonCollide.Indices)),
		tileCount,
		quads,
	})
	binary.Write(&buf, le, units)

	// mgl32.Vec3 is a [3]float32, so the slices encode as packed x,y,z.
	binary.Write(&buf, le, m.Collide.Vertices)
	binary.Write(&buf, le, m.Collide.Indices)
	binary.Write(&buf, le, m.NonCollide.Vertices)
	binary.Write(&buf, le, m.NonCollide.Indices)

	if m.Terrain != nil {
		for i, tile := range m.Terrain.Tiles {
			if err := writeTile(&buf, m.Terrain, tile); err != nil {
				return nil, fmt.Errorf("tile %d: %w", i, err)
			}
		}
	}
	return buf.Bytes(), nil
}

func writeTile(buf *bytes.Buffer, t *scene.Terrain, tile *scene.TerrainTile) error {
	le := binary.LittleEndian
	if tile.Flat {
		if len(tile.Heights) < 1 {
			return fmt.Errorf("%w: flat tile without height", ErrInvalidTile)
		}
		buf.WriteByte(1)
		binary.Write(buf, le, [3]float32{tile.X, tile.Y, tile.Heights[0]})
		return nil
	}

	if len(tile.Flags) != t.QuadCount() || len(tile.Heights) != t.VertexCount() {
		return fmt.Errorf("%w: %d flags, %d heights for %d quads per tile",
			ErrInvalidTile, len(tile.Flags), len(tile.Heights), t.QuadsPerTile)
	}
	buf.WriteByte(0)
	binary.Write(buf, le, [2]float32{tile.X, tile.Y})
	buf.Write(tile.Flags)
	binary.Write(buf, le, tile.Heights)
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path.
func writeFileAtomic(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		err = multierr.Append(fmt.Errorf("writing map: %w", err), f.Close())
		return err
	}
	if err = f.Chmod(fileMode); err != nil {
		err = multierr.Append(fmt.Errorf("setting map permissions: %w", err), f.Close())
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing map: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming map: %w", err)
	}
	return nil
}
