// Package ingest loads zone scenes out of PFS archives in a data directory.
//
// Each loader handles one archive family and returns a decoded scene graph;
// format detection and fallback between them happens in the map compiler.
package ingest

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/assets"
	"github.com/Faultbox/azone/pkg/formats"
	"github.com/Faultbox/azone/pkg/scene"
)

// S3DZone holds the three WLD files that make up an S3D zone.
type S3DZone struct {
	Zone       string
	Geometry   *formats.WLD // <zone>.s3d / <zone>.wld
	Placements *formats.WLD // <zone>.s3d / objects.wld
	Objects    *formats.WLD // <zone>_obj.s3d / <zone>_obj.wld
}

// S3DLoader loads S3D zones.
type S3DLoader struct {
	Assets *assets.Manager
}

// Load parses the zone geometry, object placement and object definition
// files. All three must decode.
func (l *S3DLoader) Load(zone string) (*S3DZone, error) {
	z := &S3DZone{Zone: zone}

	parts := []struct {
		archive, member string
		dst             **formats.WLD
	}{
		{zone + ".s3d", zone + ".wld", &z.Geometry},
		{zone + ".s3d", "objects.wld", &z.Placements},
		{zone + "_obj.s3d", zone + "_obj.wld", &z.Objects},
	}

	for _, p := range parts {
		data, err := l.Assets.Load(p.archive, p.member)
		if err != nil {
			return nil, err
		}
		wld, err := formats.ParseWLD(data)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", p.archive, p.member, err)
		}
		*p.dst = wld
	}
	return z, nil
}

// EQGLoader loads EQG v1-3 zones: a binary .zon scene plus .mod/.ter models.
type EQGLoader struct {
	Assets *assets.Manager
	Logger *zap.Logger
}

// Load parses <zone>.eqg/<zone>.zon and every model it references.
// Models that fail to load are logged and left out; placements referencing
// them are reported by the compiler.
func (l *EQGLoader) Load(zone string) (*scene.EQGZone, error) {
	archive := zone + ".eqg"
	data, err := l.Assets.Load(archive, zone+".zon")
	if err != nil {
		return nil, err
	}

	zon, err := formats.ParseZON(data)
	if err != nil {
		return nil, fmt.Errorf("%s/%s.zon: %w", archive, zone, err)
	}

	log := l.logger()
	z := &scene.EQGZone{
		Placeables: zon.Placeables,
		Regions:    zon.Regions,
		Lights:     zon.Lights,
	}

	for _, name := range zon.Models {
		raw, err := l.Assets.Load(archive, name)
		if err != nil {
			log.Warn("model not found", zap.String("zone", zone), zap.String("model", name), zap.Error(err))
			continue
		}
		model, err := formats.ParseEQGModel(name, raw)
		if err != nil {
			log.Warn("model failed to decode", zap.String("zone", zone), zap.String("model", name), zap.Error(err))
			continue
		}
		z.Models = append(z.Models, model.Geometry)
	}

	log.Debug("loaded EQG zone",
		zap.String("zone", zone),
		zap.Uint32("version", zon.Version),
		zap.Int("models", len(z.Models)),
		zap.Int("placeables", len(z.Placeables)))
	return z, nil
}

func (l *EQGLoader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// EQG4Loader loads EQG v4 heightfield zones: a text .zon header plus a .dat
// tile stream.
type EQG4Loader struct {
	Assets *assets.Manager
}

// Load parses <zone>.eqg/<zone>.zon as a terrain header, then the tile
// stream named after the zone's *NAME property.
func (l *EQG4Loader) Load(zone string) (*scene.Terrain, error) {
	archive := zone + ".eqg"
	data, err := l.Assets.Load(archive, zone+".zon")
	if err != nil {
		return nil, err
	}

	tz, err := formats.ParseTerrainZone(data)
	if err != nil {
		return nil, fmt.Errorf("%s/%s.zon: %w", archive, zone, err)
	}

	name := tz.Name
	if name == "" {
		name = zone
	}
	datName := strings.ToLower(name) + ".dat"

	tiles, err := l.Assets.Load(archive, datName)
	if err != nil {
		return nil, err
	}

	terrain, err := formats.ParseTerrainTiles(tz, tiles)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", archive, datName, err)
	}
	return terrain, nil
}
