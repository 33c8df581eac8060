package zonemap

import (
	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/ingest"
	"github.com/Faultbox/azone/pkg/formats"
	zmath "github.com/Faultbox/azone/pkg/math"
	"github.com/Faultbox/azone/pkg/scene"
)

type staticPlacement struct {
	mesh *scene.Geometry
	tr   zmath.Transform
}

type skeletonPlacement struct {
	skel *scene.Skeleton
	tr   zmath.Transform
}

// CompileS3D compiles an S3D zone: zone meshes in world space, then static
// object placements, then skeleton placements.
func (m *Map) CompileS3D(z *ingest.S3DZone) {
	m.reset()

	for _, mesh := range z.Geometry.Meshes() {
		if n := m.emitGeometry(mesh, nil, s3dCollidable); n > 0 {
			m.log.Warn("zone mesh has invalid triangles",
				zap.String("zone", m.zone), zap.String("mesh", mesh.Name), zap.Int("skipped", n))
		}
	}

	var statics []staticPlacement
	var skeletons []skeletonPlacement

	for _, frag := range z.Placements.FragmentsOfKind(formats.FragmentInstance) {
		if frag.Instance == nil {
			m.log.Warn("placeable entry was not found", zap.String("zone", m.zone))
			continue
		}

		actor := z.Objects.FindActor(frag.Name)
		if actor == nil || actor.Actor == nil {
			m.log.Warn("could not find the model for placeable",
				zap.String("zone", m.zone), zap.String("placeable", frag.Name))
			continue
		}

		inst := frag.Instance
		tr := placementTransform(inst.Position, inst.Rotation, inst.Scale)

		for _, ref := range actor.Actor.Refs {
			target := z.Objects.Fragment(ref)
			if target == nil {
				continue
			}
			switch target.Kind {
			case formats.FragmentMeshRef:
				if mesh := z.Objects.MeshByRef(ref); mesh != nil {
					statics = append(statics, staticPlacement{mesh, tr})
				}
			case formats.FragmentSkeletonRef:
				if skel := z.Objects.SkeletonByRef(ref); skel != nil {
					skeletons = append(skeletons, skeletonPlacement{skel, tr})
				}
			}
		}
	}

	for i := range statics {
		m.emitGeometry(statics[i].mesh, &statics[i].tr, s3dCollidable)
	}
	for _, p := range skeletons {
		m.traverseSkeleton(p.skel, p.tr)
	}

	m.log.Debug("compiled S3D zone",
		zap.String("zone", m.zone),
		zap.Int("static_placements", len(statics)),
		zap.Int("skeleton_placements", len(skeletons)))
}
