package fluxruntime

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSeed generates a random seed for image generation using crypto/rand.
func RandomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is extremely rare; a fixed seed still produces an image
		return 42
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// ResolveSeed returns *seed, or a fresh RandomSeed when seed is nil.
func ResolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return RandomSeed()
}
