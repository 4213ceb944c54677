package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// Digest records one uint16 per item from concurrent workers and hashes them
// in item order, so the digest does not depend on scheduling.
type Digest struct {
	mut    sync.Mutex
	values []uint16
	set    []bool
}

// NewDigest creates a digest for n items.
func NewDigest(n int) *Digest {
	return &Digest{
		values: make([]uint16, n),
		set:    make([]bool, n),
	}
}

// MustPut stores value for item n. It panics when item n is out of range or
// was already stored.
func (d *Digest) MustPut(n int, value uint16) {
	d.mut.Lock()
	defer d.mut.Unlock()
	if n < 0 || n >= len(d.values) {
		panic("digest item out of range")
	}
	if d.set[n] {
		panic("duplicate digest write")
	}
	d.values[n] = value
	d.set[n] = true
}

// Sum hashes all stored values. Missing items hash as zero.
func (d *Digest) Sum() (ret [32]byte) {
	d.mut.Lock()
	defer d.mut.Unlock()
	h := sha256.New()
	var buf [2]byte
	for _, v := range d.values {
		binary.LittleEndian.PutUint16(buf[:], v)
		h.Write(buf[:])
	}
	copy(ret[:], h.Sum(nil))
	return
}
