// Package hashutil provides a small order-sensitive hash combiner used to derive stable
// hash codes and lock names from several values.
package hashutil

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Combiner accumulates values into a single 64-bit hash. The zero value is ready to use.
// Adding the same values in a different order yields a different result.
type Combiner struct {
	d       *xxhash.Digest
	scratch [8]byte
}

func (c *Combiner) digest() *xxhash.Digest {
	if c.d == nil {
		c.d = xxhash.New()
	}
	return c.d
}

// AddString mixes s into the hash. A length prefix keeps ("ab","c") and ("a","bc") apart.
func (c *Combiner) AddString(s string) *Combiner {
	c.AddUint64(uint64(len(s)))
	_, _ = c.digest().WriteString(s)
	return c
}

// AddStringIgnoreCase mixes the lower-cased form of s into the hash.
func (c *Combiner) AddStringIgnoreCase(s string) *Combiner {
	return c.AddString(strings.ToLower(s))
}

// AddUint64 mixes v into the hash.
func (c *Combiner) AddUint64(v uint64) *Combiner {
	binary.LittleEndian.PutUint64(c.scratch[:], v)
	_, _ = c.digest().Write(c.scratch[:])
	return c
}

// AddInt mixes v into the hash.
func (c *Combiner) AddInt(v int) *Combiner {
	return c.AddUint64(uint64(v))
}

// AddBool mixes b into the hash.
func (c *Combiner) AddBool(b bool) *Combiner {
	if b {
		return c.AddUint64(1)
	}
	return c.AddUint64(0)
}

// Sum returns the combined hash.
func (c *Combiner) Sum() uint64 {
	return c.digest().Sum64()
}

// String64 hashes a single string. It is used for short, filesystem safe names.
func String64(s string) uint64 {
	return xxhash.Sum64String(s)
}
