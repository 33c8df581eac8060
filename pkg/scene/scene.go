// Package scene defines the decoded zone scene graph shared by the archive
// loaders and the map compiler.
//
// Nodes are immutable once a loader returns them. A single *Geometry may be
// referenced by many placements and bones.
package scene

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// TerrainPrefix marks EQG placements that carry world-space terrain geometry.
const TerrainPrefix = "TER"

// Polygon is a triangle referencing three vertices of its Geometry.
type Polygon struct {
	Verts [3]uint32
	Flags uint32
}

// Geometry is a named triangle mesh.
type Geometry struct {
	Name     string
	Vertices []mgl32.Vec3
	Polygons []Polygon
}

// Triangle returns the three vertex positions of polygon i.
// ok is false when any index is out of range.
func (g *Geometry) Triangle(i int) (v1, v2, v3 mgl32.Vec3, ok bool) {
	p := g.Polygons[i]
	n := uint32(len(g.Vertices))
	if p.Verts[0] >= n || p.Verts[1] >= n || p.Verts[2] >= n {
		return v1, v2, v3, false
	}
	return g.Vertices[p.Verts[0]], g.Vertices[p.Verts[1]], g.Vertices[p.Verts[2]], true
}

// Placeable is an instance of a model placed in the world.
type Placeable struct {
	Name     string     // instance name
	FileName string     // referenced model name
	Position mgl32.Vec3 // world position
	Rotation mgl32.Vec3 // Euler angles in degrees
	Scale    mgl32.Vec3
}

// IsTerrain reports whether the placement carries world-space terrain.
func (p *Placeable) IsTerrain() bool {
	return strings.HasPrefix(p.Name, TerrainPrefix) || strings.HasPrefix(p.FileName, TerrainPrefix)
}

// BoneOrientation is a bone's local transform as rational numbers.
// A zero denominator means the corresponding component is zero.
type BoneOrientation struct {
	RotateDenom int16
	RotateX     int16
	RotateY     int16
	RotateZ     int16
	ShiftDenom  int16
	ShiftX      int16
	ShiftY      int16
	ShiftZ      int16
}

// Offset returns the local translation.
func (o *BoneOrientation) Offset() mgl32.Vec3 {
	if o == nil || o.ShiftDenom == 0 {
		return mgl32.Vec3{}
	}
	d := float32(o.ShiftDenom)
	return mgl32.Vec3{float32(o.ShiftX) / d, float32(o.ShiftY) / d, float32(o.ShiftZ) / d}
}

// Rotation returns the local rotation in degrees.
func (o *BoneOrientation) Rotation() mgl32.Vec3 {
	if o == nil || o.RotateDenom == 0 {
		return mgl32.Vec3{}
	}
	d := float32(o.RotateDenom)
	return mgl32.Vec3{float32(o.RotateX) / d, float32(o.RotateY) / d, float32(o.RotateZ) / d}
}

// Bone is a node of a skeleton tree.
type Bone struct {
	Name        string
	Orientation *BoneOrientation // nil when the bone has no track
	Model       *Geometry        // nil when nothing is attached
	Children    []*Bone
}

// Skeleton is a bone tree. Bones[0] is the root.
type Skeleton struct {
	Name  string
	Bones []*Bone
}

// Region is an EQG area volume.
type Region struct {
	Name    string
	Center  mgl32.Vec3
	Extents mgl32.Vec3
	Flags   [2]uint32
}

// Light is an EQG point light.
type Light struct {
	Name     string
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Radius   float32
}

// TerrainTile is one heightfield patch.
type TerrainTile struct {
	X, Y    float32
	Flat    bool
	Flags   []uint8   // quads_per_tile², empty when flat
	Heights []float32 // (quads_per_tile+1)², or a single value when flat
}

// Height returns the single height of a flat tile, or the first vertex height.
func (t *TerrainTile) Height() float32 {
	if len(t.Heights) == 0 {
		return 0
	}
	return t.Heights[0]
}

// Terrain is a decoded heightfield.
type Terrain struct {
	QuadsPerTile   uint32
	UnitsPerVertex float32
	Tiles          []*TerrainTile
}

// QuadCount returns the number of quads per tile.
func (t *Terrain) QuadCount() int {
	return int(t.QuadsPerTile * t.QuadsPerTile)
}

// VertexCount returns the number of height samples per tile.
func (t *Terrain) VertexCount() int {
	return int((t.QuadsPerTile + 1) * (t.QuadsPerTile + 1))
}

// EQGZone is the result of loading an EQG v1-3 zone.
type EQGZone struct {
	Models     []*Geometry
	Placeables []*Placeable
	Regions    []*Region
	Lights     []*Light
}
