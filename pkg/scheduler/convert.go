package scheduler

import "stellarcore/pkg/mathx"

func vec3(x, y, z float64) mathx.Vec3 { return mathx.Vec3{X: x, Y: y, Z: z} }

func quat(x, y, z, w float64) mathx.Quat { return mathx.Quat{X: x, Y: y, Z: z, W: w} }

func quatIdentity() mathx.Quat { return mathx.Quat{W: 1} }
