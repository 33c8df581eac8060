package zonemap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/azone/internal/compress"
	"github.com/Faultbox/azone/pkg/scene"
)

// Errors returned when reading map files.
var (
	ErrUnsupportedVersion = errors.New("unsupported map version")
	ErrCorruptMap         = errors.New("corrupt map file")
)

// maxDeflateRatio bounds the declared uncompressed size relative to the
// compressed size; zlib cannot expand beyond roughly 1032:1.
const maxDeflateRatio = 1032

// File is a decoded map file.
type File struct {
	Version          uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Collide          Buffer
	NonCollide       Buffer
	Terrain          *scene.Terrain // nil when the map has no tiles
}

// ReadFile decodes the map file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a complete map file from r.
func Decode(r io.Reader) (*File, error) {
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorruptMap, err)
	}
	if header[0] != Version {
		return nil, fmt.Errorf("%w: 0x%08X", ErrUnsupportedVersion, header[0])
	}

	file := &File{Version: header[0], CompressedSize: header[1], UncompressedSize: header[2]}
	if uint64(file.UncompressedSize) > uint64(file.CompressedSize)*maxDeflateRatio+1024 {
		return nil, fmt.Errorf("%w: %d bytes cannot inflate to %d", ErrCorruptMap, file.CompressedSize, file.UncompressedSize)
	}

	compressed := make([]byte, file.CompressedSize)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrCorruptMap, err)
	}

	payload, err := compress.Inflate(compressed, int(file.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptMap, err)
	}

	if err := file.decodePayload(payload); err != nil {
		return nil, err
	}
	return file, nil
}

func (f *File) decodePayload(payload []byte) error {
	r := bytes.NewReader(payload)
	le := binary.LittleEndian

	var counts [6]uint32
	var units float32
	if err := binary.Read(r, le, &counts); err != nil {
		return fmt.Errorf("%w: counts", ErrCorruptMap)
	}
	if err := binary.Read(r, le, &units); err != nil {
		return fmt.Errorf("%w: counts", ErrCorruptMap)
	}

	cv, ci, nv, ni, tiles, quads := counts[0], counts[1], counts[2], counts[3], counts[4], counts[5]
	need := (uint64(cv)+uint64(nv))*12 + (uint64(ci)+uint64(ni))*4
	if need > uint64(r.Len()) {
		return fmt.Errorf("%w: buffers need %d bytes, %d left", ErrCorruptMap, need, r.Len())
	}

	var err error
	if f.Collide, err = readBuffer(r, cv, ci); err != nil {
		return fmt.Errorf("collide buffer: %w", err)
	}
	if f.NonCollide, err = readBuffer(r, nv, ni); err != nil {
		return fmt.Errorf("non-collide buffer: %w", err)
	}

	if tiles > 0 {
		f.Terrain = &scene.Terrain{QuadsPerTile: quads, UnitsPerVertex: units}
		if err := readTiles(r, f.Terrain, tiles); err != nil {
			return err
		}
	}

	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptMap, r.Len())
	}
	return nil
}

func readBuffer(r *bytes.Reader, vertCount, indexCount uint32) (Buffer, error) {
	b := Buffer{
		Vertices: make([]mgl32.Vec3, vertCount),
		Indices:  make([]uint32, indexCount),
	}
	binary.Read(r, binary.LittleEndian, b.Vertices)
	binary.Read(r, binary.LittleEndian, b.Indices)

	for i, idx := range b.Indices {
		if idx >= vertCount {
			return b, fmt.Errorf("%w: index %d is %d, only %d vertices", ErrCorruptMap, i, idx, vertCount)
		}
	}
	return b, nil
}

func readTiles(r *bytes.Reader, t *scene.Terrain, count uint32) error {
	le := binary.LittleEndian
	quadCount, vertCount := t.QuadCount(), t.VertexCount()

	// A flat tile is the smallest record at 13 bytes.
	if uint64(count)*13 > uint64(r.Len()) {
		return fmt.Errorf("%w: %d tiles", ErrCorruptMap, count)
	}

	t.Tiles = make([]*scene.TerrainTile, count)
	for i := range t.Tiles {
		flat, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: tile %d", ErrCorruptMap, i)
		}

		var xy [2]float32
		if err := binary.Read(r, le, &xy); err != nil {
			return fmt.Errorf("%w: tile %d origin", ErrCorruptMap, i)
		}
		tile := &scene.TerrainTile{X: xy[0], Y: xy[1], Flat: flat != 0}

		if tile.Flat {
			tile.Heights = make([]float32, 1)
		} else {
			if quadCount+vertCount*4 > r.Len() {
				return fmt.Errorf("%w: tile %d samples", ErrCorruptMap, i)
			}
			tile.Flags = make([]uint8, quadCount)
			tile.Heights = make([]float32, vertCount)
			r.Read(tile.Flags)
		}
		if err := binary.Read(r, le, tile.Heights); err != nil {
			return fmt.Errorf("%w: tile %d heights", ErrCorruptMap, i)
		}
		t.Tiles[i] = tile
	}
	return nil
}
