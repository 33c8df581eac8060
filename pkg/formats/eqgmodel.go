package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/azone/pkg/encoding"
	"github.com/Faultbox/azone/pkg/scene"
)

// EQG model format errors.
var (
	ErrInvalidModelMagic       = errors.New("invalid EQG model magic: expected 'EQGM' or 'EQGT'")
	ErrUnsupportedModelVersion = errors.New("unsupported EQG model version")
	ErrTruncatedModelData      = errors.New("truncated EQG model data")
)

const (
	modelMagic   = "EQGM"
	terrainMagic = "EQGT"
)

// EQGProperty is a material shader parameter.
type EQGProperty struct {
	Name  string
	Type  uint32
	Value uint32 // raw bits; a float or a string offset depending on Type
}

// EQGMaterial is a material of an EQG model.
type EQGMaterial struct {
	Index      uint32
	Name       string
	Shader     string
	Properties []EQGProperty
}

// EQGModel represents a parsed .mod or .ter geometry file.
type EQGModel struct {
	Version   uint32
	Terrain   bool // .ter file
	BoneCount uint32
	Materials []EQGMaterial
	Geometry  *scene.Geometry
}

type eqgModelHeader struct {
	Magic         [4]byte
	Version       uint32
	ListLength    uint32
	MaterialCount uint32
	VertexCount   uint32
	TriangleCount uint32
}

type eqgTriangle struct {
	Verts    [3]uint32
	Material int32
	Flags    uint32
}

// ParseEQGModel parses an EQG model (.mod) or terrain mesh (.ter) from raw
// bytes. The geometry is named name.
func ParseEQGModel(name string, data []byte) (*EQGModel, error) {
	r := bytes.NewReader(data)

	var header eqgModelHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, ErrTruncatedModelData
	}

	model := &EQGModel{Version: header.Version}
	switch string(header.Magic[:]) {
	case modelMagic:
		if err := binary.Read(r, binary.LittleEndian, &model.BoneCount); err != nil {
			return nil, fmt.Errorf("%w: bone count", ErrTruncatedModelData)
		}
	case terrainMagic:
		model.Terrain = true
	default:
		return nil, ErrInvalidModelMagic
	}

	if header.Version < 1 || header.Version > 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedModelVersion, header.Version)
	}

	if uint64(header.ListLength) > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: string list", ErrTruncatedModelData)
	}
	strs := make([]byte, header.ListLength)
	r.Read(strs)

	var err error
	model.Materials, err = parseEQGMaterials(r, strs, header.MaterialCount)
	if err != nil {
		return nil, err
	}

	vertexSize := uint64(32)
	if header.Version >= 3 {
		vertexSize = 36 // adds a packed color
	}
	need := uint64(header.VertexCount)*vertexSize + uint64(header.TriangleCount)*20
	if need > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d vertices, %d triangles",
			ErrTruncatedModelData, header.VertexCount, header.TriangleCount)
	}

	geom := &scene.Geometry{
		Name:     name,
		Vertices: make([]mgl32.Vec3, header.VertexCount),
		Polygons: make([]scene.Polygon, header.TriangleCount),
	}

	for i := range geom.Vertices {
		var pos [3]float32
		binary.Read(r, binary.LittleEndian, &pos)
		geom.Vertices[i] = mgl32.Vec3(pos)
		// Normal, optional color and texture coordinate are not needed.
		r.Seek(int64(vertexSize-12), io.SeekCurrent)
	}

	tris := make([]eqgTriangle, header.TriangleCount)
	binary.Read(r, binary.LittleEndian, tris)
	for i, t := range tris {
		geom.Polygons[i] = scene.Polygon{Verts: t.Verts, Flags: t.Flags}
	}

	model.Geometry = geom
	return model, nil
}

func parseEQGMaterials(r *bytes.Reader, strs []byte, count uint32) ([]EQGMaterial, error) {
	// A material is at least 16 bytes.
	if uint64(count)*16 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d materials", ErrTruncatedModelData, count)
	}

	materials := make([]EQGMaterial, count)
	for i := range materials {
		var raw struct {
			Index     uint32
			Name      uint32
			Shader    uint32
			PropCount uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("%w: material %d", ErrTruncatedModelData, i)
		}
		if uint64(raw.PropCount)*12 > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: material %d properties", ErrTruncatedModelData, i)
		}

		props := make([]struct {
			Name  uint32
			Type  uint32
			Value uint32
		}, raw.PropCount)
		binary.Read(r, binary.LittleEndian, props)

		m := EQGMaterial{
			Index:      raw.Index,
			Name:       encoding.CString(strs, int(raw.Name)),
			Shader:     encoding.CString(strs, int(raw.Shader)),
			Properties: make([]EQGProperty, len(props)),
		}
		for j, p := range props {
			m.Properties[j] = EQGProperty{
				Name:  encoding.CString(strs, int(p.Name)),
				Type:  p.Type,
				Value: p.Value,
			}
		}
		materials[i] = m
	}
	return materials, nil
}

// ParseEQGModelFile parses a .mod or .ter file from disk.
func ParseEQGModelFile(path string) (*EQGModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading EQG model: %w", err)
	}
	return ParseEQGModel(filepath.Base(path), data)
}
