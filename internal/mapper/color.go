package mapper

import "math"

// hsvToRGB converts hue [0,360), saturation [0,1], value [0,1] into 8-bit
// RGB channels.
func hsvToRGB(h, s, v float64) (r, g, b int) {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	s = clamp01(s)
	v = clamp01(v)

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return clampChannel((rf + m) * 255), clampChannel((gf + m) * 255), clampChannel((bf + m) * 255)
}
