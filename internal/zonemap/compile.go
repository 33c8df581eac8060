package zonemap

import (
	"github.com/go-gl/mathgl/mgl32"

	zmath "github.com/Faultbox/azone/pkg/math"
	"github.com/Faultbox/azone/pkg/scene"
)

// classifier decides whether a polygon is collidable from its raw flags.
type classifier func(flags uint32) bool

// s3dCollidable: only flags exactly 0x10 marks a passable polygon.
func s3dCollidable(flags uint32) bool {
	return flags != 0x10
}

// eqgCollidable: bit 0 marks a solid polygon.
func eqgCollidable(flags uint32) bool {
	return flags&0x01 != 0
}

// placementTransform converts a placement to a vertex transform.
func placementTransform(position, rotationDeg, scale mgl32.Vec3) zmath.Transform {
	return zmath.Transform{
		Translation: position,
		Rotation:    zmath.EulerToRadians(rotationDeg),
		Scale:       scale,
	}
}

// emitGeometry transforms every triangle of g, classifies it and adds it to
// the matching buffer. A nil transform emits vertices unchanged. Triangles
// with out of range vertex indices are counted and skipped.
func (m *Map) emitGeometry(g *scene.Geometry, tr *zmath.Transform, collidable classifier) (skipped int) {
	for i, p := range g.Polygons {
		v1, v2, v3, ok := g.Triangle(i)
		if !ok {
			skipped++
			continue
		}
		if tr != nil {
			v1, v2, v3 = tr.Apply(v1), tr.Apply(v2), tr.Apply(v3)
		}
		if m.swapXY {
			v1, v2, v3 = zmath.SwapXY(v1), zmath.SwapXY(v2), zmath.SwapXY(v3)
		}
		m.AddFace(v1, v2, v3, collidable(p.Flags))
	}
	return skipped
}
