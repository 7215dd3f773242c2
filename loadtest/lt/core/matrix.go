package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FOVHalfAngle is half the vertical field of view, in degrees.
	FOVHalfAngle float32 = 30
	NearPlane    float32 = 0.1
	FarPlane     float32 = 200
	// CameraDistance is how far the orbit camera sits from the origin.
	CameraDistance float32 = 50
)

// ProjectionMatrix builds the perspective projection for a surface of the
// given size. A zero height is treated as 1.
func ProjectionMatrix(width, height int) mgl32.Mat4 {
	if height <= 0 {
		height = 1
	}
	aspect := float32(width) / float32(height)
	return mgl32.Perspective(mgl32.DegToRad(2*FOVHalfAngle), aspect, NearPlane, FarPlane)
}

// ViewMatrix is the orbit camera: rotate the world by -angleY about Y, then
// -angleX about X, then push it CameraDistance down -Z.
func ViewMatrix(angleX, angleY float32) mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -CameraDistance).
		Mul4(mgl32.HomogRotate3DX(-angleX)).
		Mul4(mgl32.HomogRotate3DY(-angleY))
}

// ModelMatrix is the rotation-only transform shared by every instance.
func ModelMatrix(angleX, angleY float32) mgl32.Mat4 {
	return mgl32.HomogRotate3DY(angleY).Mul4(mgl32.HomogRotate3DX(angleX))
}

// MultiplyMat4 returns a·b, out[row][col] = sum_k a[row][k]*b[k][col].
// mgl32 stores matrices column-major, the layout WGSL mat4x4<f32> expects.
func MultiplyMat4(a, b mgl32.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a.At(row, k) * b.At(k, col)
			}
			out.Set(row, col, sum)
		}
	}
	return out
}

// MVP composes projection and view for one frame.
func MVP(width, height int, angleX, angleY float32) mgl32.Mat4 {
	return MultiplyMat4(ProjectionMatrix(width, height), ViewMatrix(angleX, angleY))
}

// FillModelMatrices writes the same rotation into every slot of dst.
func FillModelMatrices(dst []mgl32.Mat4, angleX, angleY float32) {
	if len(dst) == 0 {
		return
	}
	m := ModelMatrix(angleX, angleY)
	for i := range dst {
		dst[i] = m
	}
}
