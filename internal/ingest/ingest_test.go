package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/azone/internal/assets"
	"github.com/Faultbox/azone/pkg/encoding"
	"github.com/Faultbox/azone/pkg/formats"
	"github.com/Faultbox/azone/pkg/pfs"
)

func writeArchive(t *testing.T, dir, name string, files map[string][]byte) {
	t.Helper()
	w := pfs.NewWriter()
	for member, data := range files {
		w.Add(member, data)
	}
	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("building %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// meshWLD returns a WLD file holding a single one-triangle mesh.
func meshWLD(name string) []byte {
	hash := append([]byte{0}, append([]byte(name), 0)...)

	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, int32(-1))
	binary.Write(&body, binary.LittleEndian, make([]byte, 72)) // flags..max
	binary.Write(&body, binary.LittleEndian, []uint16{3, 0, 0, 0, 1, 0, 0, 0, 0})
	binary.Write(&body, binary.LittleEndian, int16(0)) // scale
	binary.Write(&body, binary.LittleEndian, [][3]int16{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	binary.Write(&body, binary.LittleEndian, [4]uint16{0, 0, 1, 2})

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, []uint32{0x54503D02, formats.WLDVersionNew, 1, 0, 0, uint32(len(hash)), 0})
	out.Write(encoding.EncodeStringHash(hash))
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(formats.FragmentMesh))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestS3DLoader(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "qeynos.s3d", map[string][]byte{
		"qeynos.wld":  meshWLD("ZONE_DMSPRITEDEF"),
		"objects.wld": meshWLD("UNUSED"),
	})
	writeArchive(t, dir, "qeynos_obj.s3d", map[string][]byte{
		"qeynos_obj.wld": meshWLD("BOX_DMSPRITEDEF"),
	})

	m := assets.NewManager(dir)
	defer m.Close()

	z, err := (&S3DLoader{Assets: m}).Load("qeynos")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if z.Zone != "qeynos" || z.Geometry == nil || z.Placements == nil || z.Objects == nil {
		t.Fatalf("incomplete zone: %+v", z)
	}
	meshes := z.Geometry.Meshes()
	if len(meshes) != 1 || meshes[0].Name != "ZONE_DMSPRITEDEF" {
		t.Errorf("zone meshes = %v", meshes)
	}
	if z.Objects.Meshes()[0].Name != "BOX_DMSPRITEDEF" {
		t.Errorf("object mesh = %q", z.Objects.Meshes()[0].Name)
	}
}

func TestS3DLoader_RequiresAllParts(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "qeynos.s3d", map[string][]byte{
		"qeynos.wld":  meshWLD("Z"),
		"objects.wld": meshWLD("O"),
	})

	m := assets.NewManager(dir)
	defer m.Close()

	if _, err := (&S3DLoader{Assets: m}).Load("qeynos"); !errors.Is(err, assets.ErrArchiveNotFound) {
		t.Errorf("Load() error = %v, want ErrArchiveNotFound", err)
	}
}

func TestS3DLoader_BadWLD(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "qeynos.s3d", map[string][]byte{
		"qeynos.wld":  []byte("not a wld file at all, too short?"),
		"objects.wld": meshWLD("O"),
	})
	writeArchive(t, dir, "qeynos_obj.s3d", map[string][]byte{"qeynos_obj.wld": meshWLD("B")})

	m := assets.NewManager(dir)
	defer m.Close()

	if _, err := (&S3DLoader{Assets: m}).Load("qeynos"); !errors.Is(err, formats.ErrInvalidWLDMagic) {
		t.Errorf("Load() error = %v, want ErrInvalidWLDMagic", err)
	}
}

func eqgStrings(names ...string) ([]byte, []uint32) {
	var buf bytes.Buffer
	var offs []uint32
	for _, n := range names {
		offs = append(offs, uint32(buf.Len()))
		buf.WriteString(n)
		buf.WriteByte(0)
	}
	return buf.Bytes(), offs
}

func testZON() []byte {
	strs, off := eqgStrings("obj_rock.mod", "missing.mod", "ROCK01", "GHOST")

	var buf bytes.Buffer
	buf.WriteString("EQGZ")
	binary.Write(&buf, binary.LittleEndian, []uint32{1, uint32(len(strs)), 2, 2, 0, 0})
	buf.Write(strs)
	binary.Write(&buf, binary.LittleEndian, []uint32{off[0], off[1]})

	obj := func(model int32, name uint32, pos [3]float32) {
		binary.Write(&buf, binary.LittleEndian, model)
		binary.Write(&buf, binary.LittleEndian, name)
		binary.Write(&buf, binary.LittleEndian, pos)
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
		binary.Write(&buf, binary.LittleEndian, float32(1))
	}
	obj(0, off[2], [3]float32{5, 6, 7})
	obj(1, off[3], [3]float32{})
	return buf.Bytes()
}

func testMOD() []byte {
	var buf bytes.Buffer
	buf.WriteString("EQGM")
	binary.Write(&buf, binary.LittleEndian, []uint32{1, 0, 0, 3, 1, 0})
	for _, v := range [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		binary.Write(&buf, binary.LittleEndian, v)
		binary.Write(&buf, binary.LittleEndian, [5]float32{})
	}
	binary.Write(&buf, binary.LittleEndian, []uint32{0, 1, 2, 0, 1})
	return buf.Bytes()
}

func TestEQGLoader(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "dranik.eqg", map[string][]byte{
		"dranik.zon":   testZON(),
		"obj_rock.mod": testMOD(),
	})

	m := assets.NewManager(dir)
	defer m.Close()

	z, err := (&EQGLoader{Assets: m}).Load("dranik")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// missing.mod is skipped; its placement stays for the compiler to report.
	if len(z.Models) != 1 || z.Models[0].Name != "obj_rock.mod" {
		t.Fatalf("models = %+v", z.Models)
	}
	if len(z.Models[0].Polygons) != 1 || z.Models[0].Polygons[0].Flags != 1 {
		t.Errorf("model polygons = %+v", z.Models[0].Polygons)
	}
	if len(z.Placeables) != 2 {
		t.Fatalf("expected 2 placeables, got %d", len(z.Placeables))
	}
	if z.Placeables[0].Position != (mgl32.Vec3{5, 6, 7}) || z.Placeables[0].FileName != "obj_rock.mod" {
		t.Errorf("placeable = %+v", z.Placeables[0])
	}
}

const v4Zone = "EQTZP\n*NAME Tile\n*MINLNG 0\n*MINLAT 0\n*MIN_EXTENTS 0 0 0\n*UNITSPERVERT 2\n*QUADSPERTILE 1\n"

func v4Tiles() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, []int32{100000, 100000, 0})
	binary.Write(&buf, binary.LittleEndian, []float32{3, 3, 3, 3})
	buf.Write(make([]byte, 4*4*2))
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, float32(0))
	return buf.Bytes()
}

func TestEQG4Loader(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "tile.eqg", map[string][]byte{
		"tile.zon": []byte(v4Zone),
		"tile.dat": v4Tiles(),
	})

	m := assets.NewManager(dir)
	defer m.Close()

	terrain, err := (&EQG4Loader{Assets: m}).Load("tile")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if terrain.QuadsPerTile != 1 || len(terrain.Tiles) != 1 {
		t.Fatalf("terrain = %+v", terrain)
	}
	if !terrain.Tiles[0].Flat || terrain.Tiles[0].Height() != 3 {
		t.Errorf("tile = %+v", terrain.Tiles[0])
	}

	// The binary loader rejects the text header, which is what lets the
	// compiler fall through to the v4 loader.
	if _, err := (&EQGLoader{Assets: m}).Load("tile"); !errors.Is(err, formats.ErrInvalidZONMagic) {
		t.Errorf("EQGLoader on v4 zone: error = %v, want ErrInvalidZONMagic", err)
	}
}
