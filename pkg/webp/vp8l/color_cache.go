package vp8l

// hashMul is the multiplier of the color cache hash (a Fibonacci-style
// scramble of the full ARGB value).
const hashMul = 0x1e35a7bd

// colorCache is a small direct-mapped cache of recently seen ARGB values,
// indexed by a hash of the pixel. Inserts overwrite unconditionally.
type colorCache struct {
	colors    []uint32
	hashShift uint
	hashBits  int
}

func (cc *colorCache) init(hashBits int) {
	cc.hashBits = hashBits
	cc.hashShift = 32 - uint(hashBits)
	cc.colors = make([]uint32, 1<<uint(hashBits))
}

func (cc *colorCache) lookup(key int) uint32 {
	return cc.colors[key]
}

func (cc *colorCache) insert(argb uint32) {
	key := (argb * hashMul) >> cc.hashShift
	cc.colors[key] = argb
}

// copyTo duplicates the cache contents into dst, which must have been
// initialized with the same number of hash bits.
func (cc *colorCache) copyTo(dst *colorCache) {
	copy(dst.colors, cc.colors)
}
