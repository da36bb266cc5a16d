package device

import "golang.org/x/exp/rand"

func cleari32(a []int32) {
	for i := range a {
		a[i] = 0
	}
}

// noisei32 adds uniform noise of the given full-scale amplitude to a.
func noisei32(rng *rand.Rand, a []int32, amplitude float64) {
	if amplitude <= 0 {
		return
	}
	for i := range a {
		n := (rng.Float64()*2 - 1) * amplitude * 0x7fffffff
		a[i] = saturate(int64(a[i]) + int64(n))
	}
}

func sumi32(a, b, c []int32) {
	for i := range a {
		c[i] = saturate(int64(a[i]) + int64(b[i]))
	}
}

func saturate(sum int64) int32 {
	if sum > 0x7fffffff {
		return 0x7fffffff
	} else if sum < -0x80000000 {
		return -0x80000000
	}
	return int32(sum)
}

func alloci32(n int) []int32 {
	return make([]int32, n)
}
