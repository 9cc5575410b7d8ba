package cull

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookDownMinusZ() Frustum {
	// 90 deg FOV, aspect 1, near 1, far 100
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	return ExtractFrustum(proj.Mul4(view))
}

func lookDownPlusZ(near, far float32) Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1.0, near, far)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0})
	return ExtractFrustum(proj.Mul4(view))
}

func TestExtractFrustum_RowConvention(t *testing.T) {
	planes := lookDownMinusZ()
	// Near plane faces down the view direction at distance 1.
	assert.InDelta(t, 0, planes[4].X(), 1e-5)
	assert.InDelta(t, -1, planes[4].Z(), 1e-5)
	assert.InDelta(t, -1, planes[4].W(), 1e-5)
	// Far plane faces back at distance 100.
	assert.InDelta(t, 1, planes[5].Z(), 1e-5)
	assert.InDelta(t, 100, planes[5].W(), 1e-3)
	// Left plane normal points to +X.
	assert.Greater(t, planes[0].X(), float32(0))
	assert.Less(t, planes[1].X(), float32(0))
	for _, p := range planes {
		assert.InDelta(t, 1, p.Vec3().Len(), 1e-5)
	}

	// Extracting from the transpose gives different planes: columns are wrong.
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	transposed := ExtractFrustum(proj.Mul4(view).Transpose())
	assert.NotEqual(t, planes, transposed)
}

func TestAABBInFrustum(t *testing.T) {
	planes := lookDownMinusZ()

	tests := []struct {
		name     string
		aabbMin  mgl32.Vec3
		aabbMax  mgl32.Vec3
		expected bool
	}{
		{"Inside (center)", mgl32.Vec3{-1, -1, -10}, mgl32.Vec3{1, 1, -5}, true},
		{"Outside (Left)", mgl32.Vec3{-20, -1, -10}, mgl32.Vec3{-15, 1, -5}, false},
		{"Outside (Right)", mgl32.Vec3{15, -1, -10}, mgl32.Vec3{20, 1, -5}, false},
		{"Outside (Behind/Near)", mgl32.Vec3{-1, -1, 2}, mgl32.Vec3{1, 1, 5}, false},
		{"Outside (Far)", mgl32.Vec3{-1, -1, -200}, mgl32.Vec3{1, 1, -150}, false},
		{"Intersecting (Left Plane)", mgl32.Vec3{-15, -1, -10}, mgl32.Vec3{-5, 1, -5}, true},
		{"Encompassing (Huge box)", mgl32.Vec3{-1000, -1000, -1000}, mgl32.Vec3{1000, 1000, 1000}, true},
	}

	for _, tc := range tests {
		visible := AABBInFrustum([2]mgl32.Vec3{tc.aabbMin, tc.aabbMax}, planes)
		if visible != tc.expected {
			t.Errorf("Test %s failed: expected %v, got %v", tc.name, tc.expected, visible)
		}
		// The enclosing sphere is never stricter than the box.
		if tc.expected {
			assert.True(t, SphereInFrustum(BoundingSphere(tc.aabbMin, tc.aabbMax), planes), tc.name)
		}
	}
}

func TestSphereInFrustum_CameraLookingDownPlusZ(t *testing.T) {
	const near, far = 0.5, 200
	planes := lookDownPlusZ(near, far)

	// A sphere around the camera reaching past the near plane is visible.
	assert.True(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{}, Radius: near + 0.01}, planes))
	assert.True(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{}, Radius: 16}, planes))

	// On axis at moderate depth.
	assert.True(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{0, 0, 50}, Radius: 4}, planes))
	// Same depth, far outside the horizontal field of view.
	assert.False(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{500, 0, 50}, Radius: 4}, planes))
	assert.False(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{-500, 0, 50}, Radius: 4}, planes))
	// Beyond the far plane by more than the radius.
	assert.False(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{0, 0, far + 10}, Radius: 5}, planes))
	// Straddling the far plane.
	assert.True(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{0, 0, far + 2}, Radius: 5}, planes))
	// Behind the camera.
	assert.False(t, SphereInFrustum(Sphere{Center: mgl32.Vec3{0, 0, -20}, Radius: 5}, planes))
}

func TestBoundingSphere(t *testing.T) {
	s := BoundingSphere(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{16, 128, 16})
	assert.Equal(t, mgl32.Vec3{8, 64, 8}, s.Center)
	assert.InDelta(t, mgl32.Vec3{16, 128, 16}.Len()/2, s.Radius, 1e-4)
}

func randomRecords(n int, seed int64) []ChunkCullData {
	rng := rand.New(rand.NewSource(seed))
	out := make([]ChunkCullData, n)
	for i := range out {
		out[i] = ChunkCullData{
			Sphere: Sphere{
				Center: mgl32.Vec3{rng.Float32()*400 - 200, rng.Float32()*128 - 64, rng.Float32()*400 - 200},
				Radius: rng.Float32()*20 + 1,
			},
			IndexCount: uint32(rng.Intn(5000)+1) * 6,
			BaseVertex: int32(i * 1000),
			BaseIndex:  uint32(i * 1500),
		}
	}
	return out
}

func TestAppendVisible_MatchesCPU(t *testing.T) {
	records := randomRecords(1000, 7)
	planes := lookDownPlusZ(0.1, 256)

	cpu := FilterVisible(records, planes)
	require.NotEmpty(t, cpu)
	require.Less(t, len(cpu), len(records))

	want := make([]DrawIndexedIndirect, 0, len(cpu))
	for _, i := range cpu {
		want = append(want, records[i].Command())
	}
	got := AppendVisible(records, planes)

	byBase := func(cmds []DrawIndexedIndirect) {
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].BaseVertex < cmds[j].BaseVertex })
	}
	byBase(want)
	byBase(got)
	assert.Equal(t, want, got)
	for _, c := range got {
		assert.Equal(t, uint32(1), c.InstanceCount)
	}
}

func TestAppendVisible_Empty(t *testing.T) {
	assert.Empty(t, AppendVisible(nil, lookDownMinusZ()))
}

func TestRecordLayout(t *testing.T) {
	buf := make([]byte, ChunkCullDataSize)
	ChunkCullData{
		Sphere:     Sphere{Center: mgl32.Vec3{1, 2, 3}, Radius: 4},
		IndexCount: 36,
		BaseVertex: -5,
		BaseIndex:  99,
	}.Put(buf)

	cmd := make([]byte, DrawIndexedIndirectSize)
	d := DrawIndexedIndirect{IndexCount: 36, InstanceCount: 1, FirstIndex: 99, BaseVertex: -5}
	d.Put(cmd)
	assert.Equal(t, d, ReadDrawIndexedIndirect(cmd))
	assert.Equal(t, buf[16:28], append(append(cmd[0:4:4], cmd[12:16]...), cmd[8:12]...))

	params := ParamsBytes(lookDownMinusZ(), 42)
	assert.Len(t, params, ParamsSize)
	assert.Equal(t, byte(42), params[96])
}
