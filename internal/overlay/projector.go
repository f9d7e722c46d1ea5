package overlay

import (
	"math"
	"strconv"

	"github.com/freeeve/boardwatch/internal/board"
	"github.com/freeeve/boardwatch/internal/world"
)

// Camera field names on the viewer object in the feed.
const (
	fieldCamX   = "cam_x"
	fieldCamY   = "cam_y"
	fieldCamZ   = "cam_z"
	fieldLookX  = "look_x"
	fieldLookY  = "look_y"
	fieldLookZ  = "look_z"
	fieldFOV    = "fov"
	fieldAspect = "aspect"
)

// CameraProjector projects world positions through the viewer's camera
// as reported by the feed. A viewer without readable camera fields
// projects nothing, which the adapter treats as off-screen.
type CameraProjector struct {
	src  world.Source
	near float64
}

func NewCameraProjector(src world.Source) *CameraProjector {
	return &CameraProjector{src: src, near: 0.1}
}

// Project implements Projector. Output coordinates are normalized to
// [0,1] with the origin at the top-left of the screen.
func (cp *CameraProjector) Project(p board.Vec3) (Point, bool) {
	viewer, ok := cp.src.Viewer()
	if !ok {
		return Point{}, false
	}
	cam, ok := readVec(viewer, fieldCamX, fieldCamY, fieldCamZ)
	if !ok {
		return Point{}, false
	}
	look, ok := readVec(viewer, fieldLookX, fieldLookY, fieldLookZ)
	if !ok {
		return Point{}, false
	}

	fov := readFloat(viewer, fieldFOV, 90)
	aspect := readFloat(viewer, fieldAspect, 16.0/9.0)

	forward, ok := norm(look)
	if !ok {
		return Point{}, false
	}
	worldUp := board.Vec3{X: 0, Y: 0, Z: 1}
	right, ok := norm(cross(forward, worldUp))
	if !ok {
		// Camera looking straight up or down; no stable basis.
		return Point{}, false
	}
	up := cross(right, forward)

	d := board.Vec3{X: p.X - cam.X, Y: p.Y - cam.Y, Z: p.Z - cam.Z}
	depth := dot(d, forward)
	if depth <= cp.near {
		return Point{}, false
	}

	tanH := math.Tan(fov * math.Pi / 360)
	tanV := tanH / aspect
	ndcX := dot(d, right) / (depth * tanH)
	ndcY := dot(d, up) / (depth * tanV)
	if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 {
		return Point{}, false
	}

	return Point{X: (ndcX + 1) / 2, Y: (1 - ndcY) / 2}, true
}

func readVec(obj world.Object, fx, fy, fz string) (board.Vec3, bool) {
	x, okx := fieldFloat(obj, fx)
	y, oky := fieldFloat(obj, fy)
	z, okz := fieldFloat(obj, fz)
	if !okx || !oky || !okz {
		return board.Vec3{}, false
	}
	return board.Vec3{X: x, Y: y, Z: z}, true
}

func readFloat(obj world.Object, name string, def float64) float64 {
	if v, ok := fieldFloat(obj, name); ok && v > 0 {
		return v
	}
	return def
}

func fieldFloat(obj world.Object, name string) (float64, bool) {
	s, ok := obj.Field(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func dot(a, b board.Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func cross(a, b board.Vec3) board.Vec3 {
	return board.Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func norm(v board.Vec3) (board.Vec3, bool) {
	l := math.Sqrt(dot(v, v))
	if l < 1e-9 {
		return board.Vec3{}, false
	}
	return board.Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, true
}
