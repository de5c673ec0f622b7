package authentication

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// UsernameFilter is a bloom filter over normalized usernames. MayContain may
// report a taken username that is free, never the other way round.
type UsernameFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func NewUsernameFilter(capacity uint, falsePositiveRate float64) *UsernameFilter {
	if capacity == 0 {
		capacity = 1
	}

	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	return &UsernameFilter{
		filter: bloom.NewWithEstimates(capacity, falsePositiveRate),
	}
}

func (f *UsernameFilter) Add(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filter.AddString(normalizeUsername(username))
}

// MayContain reports whether username may have been added. False is definite.
func (f *UsernameFilter) MayContain(username string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.filter.TestString(normalizeUsername(username))
}
