package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/azone/pkg/encoding"
	"github.com/Faultbox/azone/pkg/scene"
)

// ZON format errors.
var (
	ErrInvalidZONMagic       = errors.New("invalid ZON magic: expected 'EQGZ'")
	ErrUnsupportedZONVersion = errors.New("unsupported ZON version")
	ErrTruncatedZONData      = errors.New("truncated ZON data")
)

const zonMagic = "EQGZ"

// ZON represents a parsed EQG v1-3 zone scene file.
type ZON struct {
	Version    uint32
	Models     []string // model file names referenced by placements
	Placeables []*scene.Placeable
	Regions    []*scene.Region
	Lights     []*scene.Light
}

type zonHeader struct {
	Magic       [4]byte
	Version     uint32
	ListLength  uint32
	ModelCount  uint32
	ObjectCount uint32
	RegionCount uint32
	LightCount  uint32
}

type zonObject struct {
	Model    int32
	Name     uint32
	Position [3]float32
	Rotation [3]float32
	Scale    float32
}

type zonRegion struct {
	Name    uint32
	Center  [3]float32
	Unknown float32
	Flag1   uint32
	Flag2   uint32
	Extents [3]float32
}

type zonLight struct {
	Name     uint32
	Position [3]float32
	Color    [3]float32
	Radius   float32
}

// ParseZON parses an EQG zone scene file from raw bytes.
func ParseZON(data []byte) (*ZON, error) {
	r := bytes.NewReader(data)

	var header zonHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, ErrTruncatedZONData
	}

	if string(header.Magic[:]) != zonMagic {
		return nil, ErrInvalidZONMagic
	}
	if header.Version < 1 || header.Version > 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedZONVersion, header.Version)
	}

	if uint64(header.ListLength) > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: string list", ErrTruncatedZONData)
	}
	strs := make([]byte, header.ListLength)
	r.Read(strs)

	need := uint64(header.ModelCount)*4 + uint64(header.ObjectCount)*36 +
		uint64(header.RegionCount)*40 + uint64(header.LightCount)*32
	if need > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d models, %d objects, %d regions, %d lights",
			ErrTruncatedZONData, header.ModelCount, header.ObjectCount, header.RegionCount, header.LightCount)
	}

	zon := &ZON{Version: header.Version}

	modelRefs := make([]uint32, header.ModelCount)
	binary.Read(r, binary.LittleEndian, modelRefs)
	zon.Models = make([]string, len(modelRefs))
	for i, off := range modelRefs {
		zon.Models[i] = encoding.CString(strs, int(off))
	}

	objects := make([]zonObject, header.ObjectCount)
	binary.Read(r, binary.LittleEndian, objects)
	zon.Placeables = make([]*scene.Placeable, 0, len(objects))
	for _, obj := range objects {
		p := &scene.Placeable{
			Name:     encoding.CString(strs, int(obj.Name)),
			Position: mgl32.Vec3(obj.Position),
			Rotation: mgl32.Vec3(obj.Rotation),
			Scale:    mgl32.Vec3{obj.Scale, obj.Scale, obj.Scale},
		}
		// An out of range model index leaves FileName empty; the compiler
		// reports it as unresolved.
		if obj.Model >= 0 && int(obj.Model) < len(zon.Models) {
			p.FileName = zon.Models[obj.Model]
		}
		zon.Placeables = append(zon.Placeables, p)
	}

	regions := make([]zonRegion, header.RegionCount)
	binary.Read(r, binary.LittleEndian, regions)
	for _, reg := range regions {
		zon.Regions = append(zon.Regions, &scene.Region{
			Name:    encoding.CString(strs, int(reg.Name)),
			Center:  mgl32.Vec3(reg.Center),
			Extents: mgl32.Vec3(reg.Extents),
			Flags:   [2]uint32{reg.Flag1, reg.Flag2},
		})
	}

	lights := make([]zonLight, header.LightCount)
	binary.Read(r, binary.LittleEndian, lights)
	for _, l := range lights {
		zon.Lights = append(zon.Lights, &scene.Light{
			Name:     encoding.CString(strs, int(l.Name)),
			Position: mgl32.Vec3(l.Position),
			Color:    mgl32.Vec3(l.Color),
			Radius:   l.Radius,
		})
	}

	return zon, nil
}

// ParseZONFile parses a ZON file from disk.
func ParseZONFile(path string) (*ZON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ZON file: %w", err)
	}
	return ParseZON(data)
}
