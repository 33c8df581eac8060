package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/assets"
	"github.com/Faultbox/azone/internal/ingest"
	"github.com/Faultbox/azone/internal/zonemap"
	"github.com/Faultbox/azone/pkg/formats"
	"github.com/Faultbox/azone/pkg/scene"
)

var errMissing = errors.New("zone archive missing")

// fakeS3D serves a one-triangle zone for every name except "missing".
type fakeS3D struct{}

func (fakeS3D) Load(zone string) (*ingest.S3DZone, error) {
	if zone == "missing" {
		return nil, errMissing
	}
	mesh := &scene.Geometry{
		Name:     "ZONE_DMSPRITEDEF",
		Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Polygons: []scene.Polygon{{Verts: [3]uint32{0, 1, 2}}},
	}
	return &ingest.S3DZone{
		Zone:       zone,
		Geometry:   &formats.WLD{Fragments: []formats.WLDFragment{{Kind: formats.FragmentMesh, Mesh: mesh}}},
		Placements: &formats.WLD{},
		Objects:    &formats.WLD{},
	}, nil
}

func fakeLoaders(*assets.Manager, *zap.Logger) zonemap.Loaders {
	return zonemap.Loaders{S3D: fakeS3D{}}
}

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "maps")
	zones := []string{"qeynos", "missing", "FREPORTE", "gfaydark"}

	results := Run(context.Background(), zones, Options{
		OutputDir:        out,
		Workers:          3,
		Loaders:          fakeLoaders,
		ProgressInterval: time.Millisecond,
	})

	if len(results) != len(zones) {
		t.Fatalf("got %d results, want %d", len(results), len(zones))
	}

	wantZones := []string{"qeynos", "missing", "freporte", "gfaydark"}
	for i, r := range results {
		if r.Zone != wantZones[i] {
			t.Errorf("result %d zone = %q, want %q", i, r.Zone, wantZones[i])
		}
	}

	failed := Failed(results)
	if len(failed) != 1 || failed[0].Zone != "missing" {
		t.Fatalf("Failed() = %+v", failed)
	}
	if !errors.Is(failed[0].Err, zonemap.ErrNoZoneData) || !errors.Is(failed[0].Err, errMissing) {
		t.Errorf("failure error = %v", failed[0].Err)
	}
	if _, err := os.Stat(OutputPath(out, "missing")); !os.IsNotExist(err) {
		t.Error("failed zone should not produce a map file")
	}

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if r.Output != filepath.Join(out, r.Zone+".map") {
			t.Errorf("%s output = %q", r.Zone, r.Output)
		}
		if r.Stats.CollideIndices != 3 {
			t.Errorf("%s stats = %+v", r.Zone, r.Stats)
		}
		f, err := zonemap.ReadFile(r.Output)
		if err != nil {
			t.Errorf("%s: ReadFile failed: %v", r.Zone, err)
			continue
		}
		if len(f.Collide.Vertices) != 3 {
			t.Errorf("%s: decoded %d collide vertices", r.Zone, len(f.Collide.Vertices))
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := t.TempDir()
	results := Run(ctx, []string{"a", "b", "c"}, Options{OutputDir: out, Workers: 2, Loaders: fakeLoaders})

	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s error = %v, want context.Canceled", r.Zone, r.Err)
		}
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("cancelled run wrote %d files", len(entries))
	}
}

func TestRunDefaultLoaders(t *testing.T) {
	results := Run(context.Background(), []string{"nozone"}, Options{
		DataDir:   t.TempDir(),
		OutputDir: t.TempDir(),
	})

	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if !errors.Is(results[0].Err, zonemap.ErrNoZoneData) {
		t.Errorf("error = %v, want ErrNoZoneData", results[0].Err)
	}
	if !errors.Is(results[0].Err, assets.ErrArchiveNotFound) {
		t.Errorf("error = %v, should report the missing archive", results[0].Err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("out", "QeYnOs"); got != filepath.Join("out", "qeynos.map") {
		t.Errorf("OutputPath() = %q", got)
	}
}
