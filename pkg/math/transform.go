// Package math provides the vertex transforms used when placing zone geometry.
package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// degToRad uses the truncated pi existing map files were built with, so
// recompiled zones stay bit-identical to older output.
const degToRad = 3.14159

// DegreesToRadians converts an Euler angle from degrees to radians.
func DegreesToRadians(deg float32) float32 {
	return deg * degToRad / 180.0
}

// EulerToRadians converts each component of a degree rotation to radians.
func EulerToRadians(deg mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		DegreesToRadians(deg[0]),
		DegreesToRadians(deg[1]),
		DegreesToRadians(deg[2]),
	}
}

// RotateVertex rotates v around X, then Y, then Z. Angles are in radians.
func RotateVertex(v mgl32.Vec3, rx, ry, rz float32) mgl32.Vec3 {
	cx, sx := float32(math.Cos(float64(rx))), float32(math.Sin(float64(rx)))
	cy, sy := float32(math.Cos(float64(ry))), float32(math.Sin(float64(ry)))
	cz, sz := float32(math.Cos(float64(rz))), float32(math.Sin(float64(rz)))

	nv := v
	nv[1] = cx*v[1] - sx*v[2]
	nv[2] = sx*v[1] + cx*v[2]
	v = nv

	nv[0] = cy*v[0] + sy*v[2]
	nv[2] = -(sy * v[0]) + cy*v[2]
	v = nv

	nv[0] = cz*v[0] - sz*v[1]
	nv[1] = sz*v[0] + cz*v[1]
	return nv
}

// ScaleVertex multiplies v component-wise by s.
func ScaleVertex(v, s mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0] * s[0], v[1] * s[1], v[2] * s[2]}
}

// TranslateVertex offsets v by t.
func TranslateVertex(v, t mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0] + t[0], v[1] + t[1], v[2] + t[2]}
}

// SwapXY exchanges the X and Y components.
func SwapXY(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[1], v[0], v[2]}
}

// Transform is a placement: rotation (radians), then scale, then translation.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
}

// Identity returns a transform that leaves vertices unchanged.
func Identity() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Apply transforms v.
func (t Transform) Apply(v mgl32.Vec3) mgl32.Vec3 {
	v = RotateVertex(v, t.Rotation[0], t.Rotation[1], t.Rotation[2])
	v = ScaleVertex(v, t.Scale)
	return TranslateVertex(v, t.Translation)
}
