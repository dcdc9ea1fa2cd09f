// Package random provides cryptographic seed generation helpers.
//
// It uses crypto/rand to generate high-entropy seeds for the story random
// number generator when the host does not fix one.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// storySeedRange bounds the seeds given to new story runs.
const storySeedRange = 100

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewStorySeed returns a seed in [0, 100) for a new story run.
func NewStorySeed() (int, error) {
	seed, err := NewSeed()
	if err != nil {
		return 0, err
	}
	n := int(seed % storySeedRange)
	if n < 0 {
		n = -n
	}
	return n, nil
}
