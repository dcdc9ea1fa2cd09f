package story

import (
	"math"
	"math/rand/v2"
)

func newRand(seed int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// nextRandom returns the first non-negative draw of a generator seeded with
// seed. The same seed always yields the same draw.
func nextRandom(seed int) int {
	return newRand(seed).IntN(math.MaxInt32)
}

// nextSequenceShuffleIndex pops the element count and visit count of a
// shuffle sequence and picks the element to show. Each loop through the
// sequence is a permutation determined by the sequence path, the loop
// number and the story seed.
func (s *Story) nextSequenceShuffleIndex() (int, error) {
	countV, err := s.popValue()
	if err != nil {
		return 0, err
	}
	numElements, err := countV.AsInt()
	if err != nil || numElements <= 0 {
		return 0, runtimeError("expected number of elements in sequence for shuffle index")
	}
	seqV, err := s.popValue()
	if err != nil {
		return 0, err
	}
	seqCount, err := seqV.AsInt()
	if err != nil {
		return 0, runtimeError("expected sequence count for shuffle index")
	}

	loop := seqCount / numElements
	iteration := seqCount % numElements

	hash := 0
	for _, r := range s.state.CurrentPointer().Container.Path().String() {
		hash += int(r)
	}
	rng := newRand(hash + loop + s.state.StorySeed)

	unpicked := make([]int, numElements)
	for i := range unpicked {
		unpicked[i] = i
	}
	for i := 0; ; i++ {
		chosen := rng.IntN(math.MaxInt32) % len(unpicked)
		idx := unpicked[chosen]
		unpicked = append(unpicked[:chosen], unpicked[chosen+1:]...)
		if i == iteration {
			return idx, nil
		}
	}
}
