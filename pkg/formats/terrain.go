package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/azone/pkg/scene"
)

// EQG v4 terrain errors.
var (
	ErrInvalidTerrainZone   = errors.New("invalid terrain zone header: expected 'EQTZP'")
	ErrMalformedTerrainZone = errors.New("malformed terrain zone property")
	ErrTruncatedTerrainData = errors.New("truncated terrain tile data")
)

const (
	terrainZoneMagic = "EQTZP"

	// tileCoordBase is the bias applied to stored tile coordinates.
	tileCoordBase = 100000
)

// TerrainZone is the text header of an EQG v4 zone.
type TerrainZone struct {
	Name           string
	Version        int
	MinLng, MaxLng int32
	MinLat, MaxLat int32
	MinExtents     mgl32.Vec3
	MaxExtents     mgl32.Vec3
	UnitsPerVertex float32
	QuadsPerTile   uint32
}

// ParseTerrainZone parses the text .zon header of an EQG v4 zone.
func ParseTerrainZone(data []byte) (*TerrainZone, error) {
	tz := &TerrainZone{}
	scanner := bufio.NewScanner(bytes.NewReader(data))

	sawMagic := false
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if !sawMagic {
			if text != terrainZoneMagic {
				return nil, ErrInvalidTerrainZone
			}
			sawMagic = true
			continue
		}

		fields := strings.Fields(text)
		if !strings.HasPrefix(fields[0], "*") {
			continue
		}
		if err := tz.setProperty(strings.ToUpper(fields[0][1:]), fields[1:]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading terrain zone: %w", err)
	}
	if !sawMagic {
		return nil, ErrInvalidTerrainZone
	}
	if tz.QuadsPerTile == 0 {
		return nil, fmt.Errorf("%w: QUADSPERTILE missing or zero", ErrMalformedTerrainZone)
	}
	return tz, nil
}

func (tz *TerrainZone) setProperty(key string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s has no value", ErrMalformedTerrainZone, key)
	}

	var err error
	switch key {
	case "NAME":
		tz.Name = args[0]
	case "VERSION":
		tz.Version, err = strconv.Atoi(args[0])
	case "MINLNG":
		tz.MinLng, err = parseInt32(args[0])
	case "MAXLNG":
		tz.MaxLng, err = parseInt32(args[0])
	case "MINLAT":
		tz.MinLat, err = parseInt32(args[0])
	case "MAXLAT":
		tz.MaxLat, err = parseInt32(args[0])
	case "MIN_EXTENTS":
		tz.MinExtents, err = parseVec3(args)
	case "MAX_EXTENTS":
		tz.MaxExtents, err = parseVec3(args)
	case "UNITSPERVERT":
		var f float64
		f, err = strconv.ParseFloat(args[0], 32)
		tz.UnitsPerVertex = float32(f)
	case "QUADSPERTILE":
		var n uint64
		n, err = strconv.ParseUint(args[0], 10, 32)
		tz.QuadsPerTile = uint32(n)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedTerrainZone, key, err)
	}
	return nil
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	return int32(n), err
}

func parseVec3(args []string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	if len(args) < 3 {
		return v, fmt.Errorf("expected 3 values, got %d", len(args))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

// TileSize returns the byte size of one tile record in the .dat stream.
func (tz *TerrainZone) TileSize() int {
	q := int(tz.QuadsPerTile)
	verts := (q + 1) * (q + 1)
	return 12 + verts*4*3 + q*q + 4
}

// ParseTerrainTiles decodes the .dat tile stream of an EQG v4 zone.
// A tile whose heights are all equal and whose flags are all zero is flat.
func ParseTerrainTiles(tz *TerrainZone, data []byte) (*scene.Terrain, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: tile count", ErrTruncatedTerrainData)
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]

	size := tz.TileSize()
	if uint64(count)*uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d tiles of %d bytes", ErrTruncatedTerrainData, count, size)
	}

	q := int(tz.QuadsPerTile)
	verts := (q + 1) * (q + 1)
	tileUnits := tz.UnitsPerVertex * float32(tz.QuadsPerTile)

	terrain := &scene.Terrain{
		QuadsPerTile:   tz.QuadsPerTile,
		UnitsPerVertex: tz.UnitsPerVertex,
		Tiles:          make([]*scene.TerrainTile, count),
	}

	for i := range terrain.Tiles {
		rec := data[i*size : (i+1)*size]
		lng := int32(binary.LittleEndian.Uint32(rec[0:]))
		lat := int32(binary.LittleEndian.Uint32(rec[4:]))
		off := 12

		heights := make([]float32, verts)
		for j := range heights {
			heights[j] = math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))
			off += 4
		}
		off += verts * 4 * 2 // vertex colors

		flags := make([]uint8, q*q)
		copy(flags, rec[off:off+q*q])

		tile := &scene.TerrainTile{
			X: tz.MinExtents[0] + float32(lng-tileCoordBase-tz.MinLng)*tileUnits,
			Y: tz.MinExtents[1] + float32(lat-tileCoordBase-tz.MinLat)*tileUnits,
		}
		if isFlatTile(heights, flags) {
			tile.Flat = true
			tile.Heights = []float32{heights[0]}
		} else {
			tile.Flags = flags
			tile.Heights = heights
		}
		terrain.Tiles[i] = tile
	}

	return terrain, nil
}

func isFlatTile(heights []float32, flags []uint8) bool {
	for _, h := range heights {
		if h != heights[0] {
			return false
		}
	}
	for _, f := range flags {
		if f != 0 {
			return false
		}
	}
	return true
}
