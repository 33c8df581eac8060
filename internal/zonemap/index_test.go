package zonemap

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAddFaceIndexInvariants(t *testing.T) {
	m := New(Options{})

	faces := []struct {
		v          [3]mgl32.Vec3
		collidable bool
	}{
		{[3]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, true},
		{[3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}}, true},
		{[3]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, false},
		{[3]mgl32.Vec3{{5, 5, 5}, {5, 5, 5}, {5, 5, 5}}, false},
		{[3]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, true},
	}

	collideCalls, nonCollideCalls := 0, 0
	for _, f := range faces {
		m.AddFace(f.v[0], f.v[1], f.v[2], f.collidable)
		if f.collidable {
			collideCalls++
		} else {
			nonCollideCalls++
		}
	}

	if got := len(m.Collide.Indices); got != 3*collideCalls {
		t.Errorf("collide indices = %d, want %d", got, 3*collideCalls)
	}
	if got := len(m.NonCollide.Indices); got != 3*nonCollideCalls {
		t.Errorf("non-collide indices = %d, want %d", got, 3*nonCollideCalls)
	}

	for name, b := range map[string]*Buffer{"collide": &m.Collide, "non-collide": &m.NonCollide} {
		for i, idx := range b.Indices {
			if int(idx) >= len(b.Vertices) {
				t.Errorf("%s index %d = %d out of range (%d vertices)", name, i, idx, len(b.Vertices))
			}
		}
	}

	// Four distinct collidable positions, and four distinct non-collidable
	// ones stored independently of the collidable buffer.
	if len(m.Collide.Vertices) != 4 {
		t.Errorf("collide vertices = %d, want 4", len(m.Collide.Vertices))
	}
	if len(m.NonCollide.Vertices) != 4 {
		t.Errorf("non-collide vertices = %d, want 4", len(m.NonCollide.Vertices))
	}
	if m.NonCollide.Indices[0] != 0 {
		t.Errorf("non-collide buffer should start its own index space, got %d", m.NonCollide.Indices[0])
	}
}

func TestAddFaceDedupIdempotent(t *testing.T) {
	m := New(Options{})
	a, b, c := mgl32.Vec3{1.5, 2.5, 3.5}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 7}

	m.AddFace(a, b, c, true)
	before := len(m.Collide.Vertices)
	for i := 0; i < 10; i++ {
		m.AddFace(c, a, b, true)
	}

	if len(m.Collide.Vertices) != before {
		t.Errorf("vertex buffer grew from %d to %d on repeated faces", before, len(m.Collide.Vertices))
	}
	want := []uint32{0, 1, 2, 2, 0, 1}
	for i, w := range want {
		if m.Collide.Indices[i] != w {
			t.Errorf("index %d = %d, want %d", i, m.Collide.Indices[i], w)
		}
	}
}

func TestAddFaceExactEquality(t *testing.T) {
	m := New(Options{})
	m.AddFace(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1.0000001}, mgl32.Vec3{1, 1, 1}, true)

	if len(m.Collide.Vertices) != 2 {
		t.Errorf("expected near-equal vertices to stay distinct, got %d vertices", len(m.Collide.Vertices))
	}
	if m.Collide.Indices[2] != 0 {
		t.Errorf("exact duplicate should reuse index 0, got %d", m.Collide.Indices[2])
	}
}

func TestStatsAndEmpty(t *testing.T) {
	m := New(Options{})
	if !m.Empty() {
		t.Error("new map should be empty")
	}

	m.AddFace(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, false)
	if m.Empty() {
		t.Error("map with a non-collidable face should not be empty")
	}

	s := m.Stats()
	if s.NonCollideVertices != 3 || s.NonCollideIndices != 3 || s.CollideIndices != 0 || s.Tiles != 0 {
		t.Errorf("Stats() = %+v", s)
	}
	if len(s.Fields()) != 5 {
		t.Errorf("Fields() = %d fields, want 5", len(s.Fields()))
	}
}
