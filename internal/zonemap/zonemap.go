// Package zonemap compiles zone scenes into deduplicated collision meshes
// and reads and writes the compressed map file format.
//
// A Map holds the state of one compilation. Build picks the first archive
// family that loads for a zone, compiles it into two independent mesh
// buffers (collidable and non-collidable) plus an optional terrain reference,
// and Write serializes the result.
package zonemap

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/assets"
	"github.com/Faultbox/azone/internal/ingest"
	"github.com/Faultbox/azone/pkg/scene"
)

// Errors returned by Build and Write.
var (
	ErrNoZoneData  = errors.New("no loadable zone data")
	ErrEmptyMap    = errors.New("map has no geometry and no terrain")
	ErrCompression = errors.New("map compression failed")
	ErrInvalidTile = errors.New("terrain tile has the wrong number of samples")
)

// EQGLoader loads EQG v1-3 zones.
type EQGLoader interface {
	Load(zone string) (*scene.EQGZone, error)
}

// EQG4Loader loads EQG v4 heightfield zones.
type EQG4Loader interface {
	Load(zone string) (*scene.Terrain, error)
}

// S3DLoader loads S3D zones.
type S3DLoader interface {
	Load(zone string) (*ingest.S3DZone, error)
}

// Loaders are tried in field order by Build. A nil loader is skipped.
type Loaders struct {
	EQG  EQGLoader
	EQG4 EQG4Loader
	S3D  S3DLoader
}

// DefaultLoaders returns archive-backed loaders reading through m.
func DefaultLoaders(m *assets.Manager, log *zap.Logger) Loaders {
	return Loaders{
		EQG:  &ingest.EQGLoader{Assets: m, Logger: log},
		EQG4: &ingest.EQG4Loader{Assets: m},
		S3D:  &ingest.S3DLoader{Assets: m},
	}
}

// Options configures a Map.
type Options struct {
	// SwapXY exchanges the X and Y coordinates of every emitted vertex.
	SwapXY  bool
	Loaders Loaders
	Logger  *zap.Logger
}

// Buffer is a deduplicated triangle buffer. Indices holds three entries per
// triangle, each less than len(Vertices).
type Buffer struct {
	Vertices []mgl32.Vec3
	Indices  []uint32

	lookup map[mgl32.Vec3]uint32
}

// Map is the compiler state for one zone.
type Map struct {
	Collide    Buffer
	NonCollide Buffer
	Terrain    *scene.Terrain

	swapXY  bool
	loaders Loaders
	log     *zap.Logger
	zone    string
}

// New creates an empty map.
func New(opts Options) *Map {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := &Map{
		swapXY:  opts.SwapXY,
		loaders: opts.Loaders,
		log:     log,
	}
	m.reset()
	return m
}

// reset clears every buffer and the terrain reference.
func (m *Map) reset() {
	m.Collide = Buffer{lookup: make(map[mgl32.Vec3]uint32)}
	m.NonCollide = Buffer{lookup: make(map[mgl32.Vec3]uint32)}
	m.Terrain = nil
}

// Empty reports whether Write would refuse the map.
func (m *Map) Empty() bool {
	return len(m.Collide.Indices) == 0 && len(m.NonCollide.Indices) == 0 && m.Terrain == nil
}

// Stats summarizes the compiled buffers.
type Stats struct {
	CollideVertices    int
	CollideIndices     int
	NonCollideVertices int
	NonCollideIndices  int
	Tiles              int
}

// Stats returns the current buffer sizes.
func (m *Map) Stats() Stats {
	s := Stats{
		CollideVertices:    len(m.Collide.Vertices),
		CollideIndices:     len(m.Collide.Indices),
		NonCollideVertices: len(m.NonCollide.Vertices),
		NonCollideIndices:  len(m.NonCollide.Indices),
	}
	if m.Terrain != nil {
		s.Tiles = len(m.Terrain.Tiles)
	}
	return s
}

// Fields returns the stats as zap fields.
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("collide_verts", s.CollideVertices),
		zap.Int("collide_indices", s.CollideIndices),
		zap.Int("non_collide_verts", s.NonCollideVertices),
		zap.Int("non_collide_indices", s.NonCollideIndices),
		zap.Int("tiles", s.Tiles),
	}
}
