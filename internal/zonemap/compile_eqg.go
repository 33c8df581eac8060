package zonemap

import (
	"go.uber.org/zap"

	"github.com/Faultbox/azone/pkg/scene"
)

// CompileEQG compiles an EQG v1-3 zone. Terrain placements are already in
// world space and are emitted untransformed; every other placement is
// rotated, scaled and translated into place.
func (m *Map) CompileEQG(z *scene.EQGZone) {
	m.reset()

	models := make(map[string]*scene.Geometry, len(z.Models))
	for _, g := range z.Models {
		if _, dup := models[g.Name]; !dup {
			models[g.Name] = g
		}
	}

	placed := 0
	for _, p := range z.Placeables {
		model, ok := models[p.FileName]
		if !ok {
			m.log.Warn("could not find eqg placeable",
				zap.String("zone", m.zone),
				zap.String("placeable", p.Name),
				zap.String("model", p.FileName))
			continue
		}

		if p.IsTerrain() {
			m.emitGeometry(model, nil, eqgCollidable)
		} else {
			tr := placementTransform(p.Position, p.Rotation, p.Scale)
			m.emitGeometry(model, &tr, eqgCollidable)
		}
		placed++
	}

	m.log.Debug("compiled EQG zone",
		zap.String("zone", m.zone),
		zap.Int("placed", placed),
		zap.Int("unresolved", len(z.Placeables)-placed),
		zap.Int("regions", len(z.Regions)),
		zap.Int("lights", len(z.Lights)))
}

// CompileEQGv4 clears the mesh buffers and keeps terrain as the only output.
func (m *Map) CompileEQGv4(t *scene.Terrain) {
	m.reset()
	m.Terrain = t
}
