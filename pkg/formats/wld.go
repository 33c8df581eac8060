package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/azone/pkg/encoding"
	"github.com/Faultbox/azone/pkg/scene"
)

// WLD format errors.
var (
	ErrInvalidWLDMagic       = errors.New("invalid WLD magic")
	ErrUnsupportedWLDVersion = errors.New("unsupported WLD version")
	ErrTruncatedWLDData      = errors.New("truncated WLD data")
)

const (
	wldMagic      = 0x54503D02
	WLDVersionOld = 0x00015500
	WLDVersionNew = 0x1000C800

	wldHeaderSize = 28
)

// WLDFragmentKind is the type tag of a WLD fragment.
type WLDFragmentKind uint32

// Decoded fragment kinds.
const (
	FragmentSkeleton    WLDFragmentKind = 0x10
	FragmentSkeletonRef WLDFragmentKind = 0x11
	FragmentTrack       WLDFragmentKind = 0x12
	FragmentTrackRef    WLDFragmentKind = 0x13
	FragmentActor       WLDFragmentKind = 0x14
	FragmentInstance    WLDFragmentKind = 0x15
	FragmentMeshRef     WLDFragmentKind = 0x2D
	FragmentMesh        WLDFragmentKind = 0x36
)

// String returns a human-readable fragment kind name.
func (k WLDFragmentKind) String() string {
	switch k {
	case FragmentSkeleton:
		return "Skeleton"
	case FragmentSkeletonRef:
		return "SkeletonRef"
	case FragmentTrack:
		return "Track"
	case FragmentTrackRef:
		return "TrackRef"
	case FragmentActor:
		return "Actor"
	case FragmentInstance:
		return "Instance"
	case FragmentMeshRef:
		return "MeshRef"
	case FragmentMesh:
		return "Mesh"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint32(k))
	}
}

// WLDRef points at another fragment by 1-based index.
type WLDRef struct {
	Ref int32
}

// WLDTrackRef points at a track definition.
type WLDTrackRef struct {
	Ref   int32
	Flags uint32
}

// WLDTrack is a bone animation track. Frame 0 is the rest pose.
type WLDTrack struct {
	Flags  uint32
	Frames []scene.BoneOrientation
}

// WLDActor is an object definition listing the fragments it is built from.
type WLDActor struct {
	Flags uint32
	Refs  []int32 // 1-based fragment references
}

// WLDInstance is a placed object. The fragment name is the actor it places.
type WLDInstance struct {
	Flags    uint32
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // degrees
	Scale    mgl32.Vec3
}

// WLDSkeletonTrack is one bone entry of a skeleton definition.
type WLDSkeletonTrack struct {
	Name     string
	Flags    uint32
	TrackRef int32   // 0x13 fragment, 0 when none
	ModelRef int32   // 0x2D fragment, 0 when none
	Children []int32 // 0-based indices into the skeleton's tracks
}

// WLDSkeleton is a hierarchical bone definition.
type WLDSkeleton struct {
	Flags  uint32
	Tracks []WLDSkeletonTrack
}

// WLDFragment is one record of a WLD file. Exactly one payload field matching
// Kind is set; fragments of other kinds carry no payload.
type WLDFragment struct {
	Kind        WLDFragmentKind
	Name        string
	Mesh        *scene.Geometry // FragmentMesh
	MeshRef     *WLDRef         // FragmentMeshRef
	Actor       *WLDActor       // FragmentActor
	Instance    *WLDInstance    // FragmentInstance
	Skeleton    *WLDSkeleton    // FragmentSkeleton
	SkeletonRef *WLDRef         // FragmentSkeletonRef
	Track       *WLDTrack       // FragmentTrack
	TrackRef    *WLDTrackRef    // FragmentTrackRef
}

// WLD represents a parsed WLD file.
type WLD struct {
	Version   uint32
	Old       bool
	Fragments []WLDFragment

	skeletons map[int32]*scene.Skeleton
}

type wldHeader struct {
	Magic          uint32
	Version        uint32
	FragmentCount  uint32
	RegionCount    uint32
	MaxObjectBytes uint32
	HashSize       uint32
	Unknown        uint32
}

// ParseWLD parses a WLD file from raw bytes.
func ParseWLD(data []byte) (*WLD, error) {
	if len(data) < wldHeaderSize {
		return nil, ErrTruncatedWLDData
	}

	var header wldHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, ErrTruncatedWLDData
	}

	if header.Magic != wldMagic {
		return nil, ErrInvalidWLDMagic
	}
	if header.Version != WLDVersionOld && header.Version != WLDVersionNew {
		return nil, fmt.Errorf("%w: 0x%08X", ErrUnsupportedWLDVersion, header.Version)
	}

	offset := wldHeaderSize
	if uint64(header.HashSize) > uint64(len(data)-offset) {
		return nil, fmt.Errorf("%w: string hash", ErrTruncatedWLDData)
	}
	hash := encoding.DecodeStringHash(data[offset : offset+int(header.HashSize)])
	offset += int(header.HashSize)

	// Every fragment needs at least its 8 byte header.
	if uint64(header.FragmentCount)*8 > uint64(len(data)-offset) {
		return nil, fmt.Errorf("%w: %d fragments", ErrTruncatedWLDData, header.FragmentCount)
	}

	wld := &WLD{
		Version:   header.Version,
		Old:       header.Version == WLDVersionOld,
		Fragments: make([]WLDFragment, header.FragmentCount),
		skeletons: make(map[int32]*scene.Skeleton),
	}

	for i := uint32(0); i < header.FragmentCount; i++ {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("%w: fragment %d header", ErrTruncatedWLDData, i)
		}
		size := binary.LittleEndian.Uint32(data[offset:])
		kind := WLDFragmentKind(binary.LittleEndian.Uint32(data[offset+4:]))
		offset += 8

		if uint64(size) > uint64(len(data)-offset) {
			return nil, fmt.Errorf("%w: fragment %d body", ErrTruncatedWLDData, i)
		}
		body := data[offset : offset+int(size)]
		offset += int(size)

		frag, err := parseWLDFragment(kind, body, hash, wld.Old)
		if err != nil {
			return nil, fmt.Errorf("parsing fragment %d (%s): %w", i+1, kind, err)
		}
		wld.Fragments[i] = frag
	}

	return wld, nil
}

// ParseWLDFile parses a WLD file from disk.
func ParseWLDFile(path string) (*WLD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading WLD file: %w", err)
	}
	return ParseWLD(data)
}

func hashString(hash []byte, ref int32) string {
	if ref >= 0 {
		return ""
	}
	return encoding.CString(hash, int(-ref))
}

func parseWLDFragment(kind WLDFragmentKind, body []byte, hash []byte, old bool) (WLDFragment, error) {
	frag := WLDFragment{Kind: kind}

	r := bytes.NewReader(body)
	var nameRef int32
	if err := binary.Read(r, binary.LittleEndian, &nameRef); err != nil {
		// Unknown fragments may legitimately be empty.
		if isDecodedKind(kind) {
			return frag, fmt.Errorf("%w: name reference", ErrTruncatedWLDData)
		}
		return frag, nil
	}
	frag.Name = hashString(hash, nameRef)

	var err error
	switch kind {
	case FragmentMesh:
		frag.Mesh, err = parseWLDMesh(r, old)
		if frag.Mesh != nil {
			frag.Mesh.Name = frag.Name
		}
	case FragmentMeshRef:
		frag.MeshRef, err = parseWLDRef(r)
	case FragmentSkeletonRef:
		frag.SkeletonRef, err = parseWLDRef(r)
	case FragmentTrackRef:
		frag.TrackRef, err = parseWLDTrackRef(r)
	case FragmentTrack:
		frag.Track, err = parseWLDTrack(r)
	case FragmentActor:
		frag.Actor, err = parseWLDActor(r)
	case FragmentInstance:
		frag.Instance, err = parseWLDInstance(r)
	case FragmentSkeleton:
		frag.Skeleton, err = parseWLDSkeleton(r, hash)
	}
	return frag, err
}

func isDecodedKind(kind WLDFragmentKind) bool {
	switch kind {
	case FragmentSkeleton, FragmentSkeletonRef, FragmentTrack, FragmentTrackRef,
		FragmentActor, FragmentInstance, FragmentMeshRef, FragmentMesh:
		return true
	}
	return false
}

func parseWLDRef(r *bytes.Reader) (*WLDRef, error) {
	var ref WLDRef
	if err := binary.Read(r, binary.LittleEndian, &ref.Ref); err != nil {
		return nil, fmt.Errorf("%w: reference", ErrTruncatedWLDData)
	}
	return &ref, nil
}

func parseWLDTrackRef(r *bytes.Reader) (*WLDTrackRef, error) {
	var ref WLDTrackRef
	if err := binary.Read(r, binary.LittleEndian, &ref.Ref); err != nil {
		return nil, fmt.Errorf("%w: track reference", ErrTruncatedWLDData)
	}
	// Flags are optional in short fragments.
	binary.Read(r, binary.LittleEndian, &ref.Flags)
	return &ref, nil
}

// wldFrame is the on-disk order of a track frame.
type wldFrame struct {
	RotateDenom int16
	RotateX     int16
	RotateY     int16
	RotateZ     int16
	ShiftX      int16
	ShiftY      int16
	ShiftZ      int16
	ShiftDenom  int16
}

func parseWLDTrack(r *bytes.Reader) (*WLDTrack, error) {
	var hdr struct {
		Flags      uint32
		FrameCount uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: track header", ErrTruncatedWLDData)
	}
	if uint64(hdr.FrameCount)*16 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d track frames", ErrTruncatedWLDData, hdr.FrameCount)
	}

	frames := make([]wldFrame, hdr.FrameCount)
	if err := binary.Read(r, binary.LittleEndian, frames); err != nil {
		return nil, fmt.Errorf("%w: track frames", ErrTruncatedWLDData)
	}

	track := &WLDTrack{Flags: hdr.Flags, Frames: make([]scene.BoneOrientation, len(frames))}
	for i, f := range frames {
		track.Frames[i] = scene.BoneOrientation{
			RotateDenom: f.RotateDenom,
			RotateX:     f.RotateX,
			RotateY:     f.RotateY,
			RotateZ:     f.RotateZ,
			ShiftDenom:  f.ShiftDenom,
			ShiftX:      f.ShiftX,
			ShiftY:      f.ShiftY,
			ShiftZ:      f.ShiftZ,
		}
	}
	return track, nil
}

func parseWLDActor(r *bytes.Reader) (*WLDActor, error) {
	var hdr struct {
		Flags       uint32
		CallbackRef int32
		ActionCount uint32
		RefCount    uint32
		BoundsRef   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: actor header", ErrTruncatedWLDData)
	}

	skip := 0
	if hdr.Flags&0x1 != 0 {
		skip += 4 // current action
	}
	if hdr.Flags&0x2 != 0 {
		skip += 28 // bounding location
	}
	if skip > r.Len() {
		return nil, fmt.Errorf("%w: actor params", ErrTruncatedWLDData)
	}
	r.Seek(int64(skip), io.SeekCurrent)

	for i := uint32(0); i < hdr.ActionCount; i++ {
		var action struct {
			LODCount uint32
			Unknown  uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &action); err != nil {
			return nil, fmt.Errorf("%w: actor action %d", ErrTruncatedWLDData, i)
		}
		if uint64(action.LODCount)*4 > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: actor action %d distances", ErrTruncatedWLDData, i)
		}
		r.Seek(int64(action.LODCount)*4, io.SeekCurrent)
	}

	if uint64(hdr.RefCount)*4 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d actor references", ErrTruncatedWLDData, hdr.RefCount)
	}
	actor := &WLDActor{Flags: hdr.Flags, Refs: make([]int32, hdr.RefCount)}
	if err := binary.Read(r, binary.LittleEndian, actor.Refs); err != nil {
		return nil, fmt.Errorf("%w: actor references", ErrTruncatedWLDData)
	}
	return actor, nil
}

// instanceRotationUnit converts 512ths of a turn to degrees.
const instanceRotationUnit = 360.0 / 512.0

func parseWLDInstance(r *bytes.Reader) (*WLDInstance, error) {
	var raw struct {
		Flags     uint32
		SphereRef uint32
		Position  [3]float32
		Rotation  [3]float32
		Radius    float32
		ScaleY    float32
		ScaleX    float32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("%w: instance", ErrTruncatedWLDData)
	}

	return &WLDInstance{
		Flags:    raw.Flags,
		Position: mgl32.Vec3(raw.Position),
		Rotation: mgl32.Vec3{
			raw.Rotation[0] * instanceRotationUnit,
			raw.Rotation[1] * instanceRotationUnit,
			raw.Rotation[2] * instanceRotationUnit,
		},
		// There is no separate Z scale; it follows Y.
		Scale: mgl32.Vec3{raw.ScaleX, raw.ScaleY, raw.ScaleY},
	}, nil
}

type wldMeshHeader struct {
	Flags            uint32
	MaterialListRef  uint32
	AnimVertRef      uint32
	Unknown1         uint32
	Unknown2         uint32
	Center           [3]float32
	Params2          [3]uint32
	MaxDistance      float32
	Min              [3]float32
	Max              [3]float32
	VertexCount      uint16
	TexCoordCount    uint16
	NormalCount      uint16
	ColorCount       uint16
	PolygonCount     uint16
	VertexPieceCount uint16
	PolygonTexCount  uint16
	VertexTexCount   uint16
	Size9            uint16
	Scale            int16
}

func parseWLDMesh(r *bytes.Reader, old bool) (*scene.Geometry, error) {
	var hdr wldMeshHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: mesh header", ErrTruncatedWLDData)
	}

	texCoordSize := 8
	if old {
		texCoordSize = 4
	}
	need := int(hdr.VertexCount)*6 + int(hdr.TexCoordCount)*texCoordSize +
		int(hdr.NormalCount)*3 + int(hdr.ColorCount)*4 + int(hdr.PolygonCount)*8
	if need > r.Len() {
		return nil, fmt.Errorf("%w: mesh data", ErrTruncatedWLDData)
	}

	raw := make([][3]int16, hdr.VertexCount)
	binary.Read(r, binary.LittleEndian, raw)

	scale := 1.0 / float32(int32(1)<<uint(hdr.Scale&31))
	geom := &scene.Geometry{Vertices: make([]mgl32.Vec3, len(raw))}
	for i, v := range raw {
		geom.Vertices[i] = mgl32.Vec3{
			hdr.Center[0] + float32(v[0])*scale,
			hdr.Center[1] + float32(v[1])*scale,
			hdr.Center[2] + float32(v[2])*scale,
		}
	}

	skip := int(hdr.TexCoordCount)*texCoordSize + int(hdr.NormalCount)*3 + int(hdr.ColorCount)*4
	r.Seek(int64(skip), io.SeekCurrent)

	polys := make([]struct {
		Flags uint16
		Verts [3]uint16
	}, hdr.PolygonCount)
	binary.Read(r, binary.LittleEndian, polys)

	geom.Polygons = make([]scene.Polygon, len(polys))
	for i, p := range polys {
		geom.Polygons[i] = scene.Polygon{
			Verts: [3]uint32{uint32(p.Verts[0]), uint32(p.Verts[1]), uint32(p.Verts[2])},
			Flags: uint32(p.Flags),
		}
	}

	return geom, nil
}

func parseWLDSkeleton(r *bytes.Reader, hash []byte) (*WLDSkeleton, error) {
	var hdr struct {
		Flags          uint32
		TrackCount     uint32
		PolygonAnimRef uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: skeleton header", ErrTruncatedWLDData)
	}

	skip := 0
	if hdr.Flags&0x1 != 0 {
		skip += 12
	}
	if hdr.Flags&0x2 != 0 {
		skip += 4 // bounding radius
	}
	if skip > r.Len() {
		return nil, fmt.Errorf("%w: skeleton params", ErrTruncatedWLDData)
	}
	r.Seek(int64(skip), io.SeekCurrent)

	// Each track needs at least 20 bytes.
	if uint64(hdr.TrackCount)*20 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d skeleton tracks", ErrTruncatedWLDData, hdr.TrackCount)
	}

	skel := &WLDSkeleton{Flags: hdr.Flags, Tracks: make([]WLDSkeletonTrack, hdr.TrackCount)}
	for i := range skel.Tracks {
		var raw struct {
			NameRef    int32
			Flags      uint32
			TrackRef   int32
			ModelRef   int32
			ChildCount uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("%w: skeleton track %d", ErrTruncatedWLDData, i)
		}
		if uint64(raw.ChildCount)*4 > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: skeleton track %d children", ErrTruncatedWLDData, i)
		}
		children := make([]int32, raw.ChildCount)
		binary.Read(r, binary.LittleEndian, children)

		skel.Tracks[i] = WLDSkeletonTrack{
			Name:     hashString(hash, raw.NameRef),
			Flags:    raw.Flags,
			TrackRef: raw.TrackRef,
			ModelRef: raw.ModelRef,
			Children: children,
		}
	}

	return skel, nil
}

// Fragment resolves a 1-based fragment reference. Returns nil when the
// reference is out of range or a name reference.
func (w *WLD) Fragment(ref int32) *WLDFragment {
	if ref < 1 || int(ref) > len(w.Fragments) {
		return nil
	}
	return &w.Fragments[ref-1]
}

// Meshes returns every mesh fragment's geometry in file order.
func (w *WLD) Meshes() []*scene.Geometry {
	var meshes []*scene.Geometry
	for i := range w.Fragments {
		if w.Fragments[i].Kind == FragmentMesh && w.Fragments[i].Mesh != nil {
			meshes = append(meshes, w.Fragments[i].Mesh)
		}
	}
	return meshes
}

// FragmentsOfKind returns pointers to every fragment of the given kind.
func (w *WLD) FragmentsOfKind(kind WLDFragmentKind) []*WLDFragment {
	var out []*WLDFragment
	for i := range w.Fragments {
		if w.Fragments[i].Kind == kind {
			out = append(out, &w.Fragments[i])
		}
	}
	return out
}

// FindActor returns the first actor definition with the given name.
func (w *WLD) FindActor(name string) *WLDFragment {
	for i := range w.Fragments {
		if w.Fragments[i].Kind == FragmentActor && w.Fragments[i].Name == name {
			return &w.Fragments[i]
		}
	}
	return nil
}

// MeshByRef follows a mesh reference (0x2D) fragment to its geometry.
func (w *WLD) MeshByRef(ref int32) *scene.Geometry {
	frag := w.Fragment(ref)
	if frag == nil || frag.Kind != FragmentMeshRef || frag.MeshRef == nil {
		return nil
	}
	mesh := w.Fragment(frag.MeshRef.Ref)
	if mesh == nil || mesh.Kind != FragmentMesh {
		return nil
	}
	return mesh.Mesh
}

// orientationByRef follows a track reference (0x13) to the rest pose of its
// track definition (0x12).
func (w *WLD) orientationByRef(ref int32) *scene.BoneOrientation {
	frag := w.Fragment(ref)
	if frag == nil || frag.Kind != FragmentTrackRef || frag.TrackRef == nil {
		return nil
	}
	track := w.Fragment(frag.TrackRef.Ref)
	if track == nil || track.Kind != FragmentTrack || track.Track == nil || len(track.Track.Frames) == 0 {
		return nil
	}
	o := track.Track.Frames[0]
	return &o
}

// SkeletonByRef follows a skeleton reference (0x11) to its skeleton
// definition (0x10) and builds the bone tree. Results are memoized, so every
// placement of the same skeleton shares one tree.
func (w *WLD) SkeletonByRef(ref int32) *scene.Skeleton {
	frag := w.Fragment(ref)
	if frag == nil || frag.Kind != FragmentSkeletonRef || frag.SkeletonRef == nil {
		return nil
	}

	defRef := frag.SkeletonRef.Ref
	if skel, ok := w.skeletons[defRef]; ok {
		return skel
	}

	def := w.Fragment(defRef)
	if def == nil || def.Kind != FragmentSkeleton || def.Skeleton == nil {
		return nil
	}

	skel := &scene.Skeleton{Name: def.Name, Bones: make([]*scene.Bone, len(def.Skeleton.Tracks))}
	for i, track := range def.Skeleton.Tracks {
		skel.Bones[i] = &scene.Bone{
			Name:        track.Name,
			Orientation: w.orientationByRef(track.TrackRef),
			Model:       w.MeshByRef(track.ModelRef),
		}
	}
	for i, track := range def.Skeleton.Tracks {
		for _, c := range track.Children {
			if c >= 0 && int(c) < len(skel.Bones) {
				skel.Bones[i].Children = append(skel.Bones[i].Children, skel.Bones[c])
			}
		}
	}

	if w.skeletons == nil {
		w.skeletons = make(map[int32]*scene.Skeleton)
	}
	w.skeletons[defRef] = skel
	return skel
}
