package zonemap

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	zmath "github.com/Faultbox/azone/pkg/math"
	"github.com/Faultbox/azone/pkg/scene"
)

// boneFrame is a pending bone with its parent's world translation,
// accumulated rotation (radians) and depth below the root.
type boneFrame struct {
	bone        *scene.Bone
	translation mgl32.Vec3
	rotation    mgl32.Vec3
	depth       int
}

// traverseSkeleton emits every mesh attached to skel, starting at bone 0 with
// the placement transform. Rotations accumulate by addition down the tree;
// the placement scale applies unchanged at every level. A bone listed under
// several parents is emitted once per parent; a bone that is its own
// ancestor is skipped.
func (m *Map) traverseSkeleton(skel *scene.Skeleton, tr zmath.Transform) {
	if skel == nil || len(skel.Bones) == 0 {
		return
	}

	var path []*scene.Bone // ancestors of the frame being visited
	stack := []boneFrame{{bone: skel.Bones[0], translation: tr.Translation, rotation: tr.Rotation}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.bone == nil {
			continue
		}
		path = path[:f.depth]
		if slices.Contains(path, f.bone) {
			m.log.Warn("bone cycle, skipping",
				zap.String("zone", m.zone),
				zap.String("skeleton", skel.Name),
				zap.String("bone", f.bone.Name))
			continue
		}
		path = append(path, f.bone)

		offset := f.bone.Orientation.Offset()
		local := zmath.EulerToRadians(f.bone.Orientation.Rotation())

		world := zmath.Transform{
			Translation: zmath.RotateVertex(offset, f.rotation[0], f.rotation[1], f.rotation[2]).Add(f.translation),
			Rotation:    local.Add(f.rotation),
			Scale:       tr.Scale,
		}

		if f.bone.Model != nil {
			m.emitGeometry(f.bone.Model, &world, s3dCollidable)
		}

		// Push in reverse so children are visited in declaration order.
		for i := len(f.bone.Children) - 1; i >= 0; i-- {
			stack = append(stack, boneFrame{
				bone:        f.bone.Children[i],
				translation: world.Translation,
				rotation:    world.Rotation,
				depth:       f.depth + 1,
			})
		}
	}
}
