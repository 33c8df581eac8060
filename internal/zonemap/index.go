package zonemap

import "github.com/go-gl/mathgl/mgl32"

// add appends one triangle corner, reusing the index of an identical vertex.
// Vertices match only when all three float32 coordinates compare equal; there
// is no epsilon.
func (b *Buffer) add(v mgl32.Vec3) {
	if b.lookup == nil {
		b.lookup = make(map[mgl32.Vec3]uint32)
	}
	idx, ok := b.lookup[v]
	if !ok {
		idx = uint32(len(b.Vertices))
		b.lookup[v] = idx
		b.Vertices = append(b.Vertices, v)
	}
	b.Indices = append(b.Indices, idx)
}

// AddFace inserts a triangle into the collidable or non-collidable buffer.
func (m *Map) AddFace(v1, v2, v3 mgl32.Vec3, collidable bool) {
	b := &m.NonCollide
	if collidable {
		b = &m.Collide
	}
	b.add(v1)
	b.add(v2)
	b.add(v3)
}
