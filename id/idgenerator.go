// Package id generates identifiers for adapters and events.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// A Generator can generate IDs.
type Generator interface {
	// Generate an ID
	Generate() string
}

// NewSequentialGenerator returns a generator that produces deterministic IDs
// made of the prefix and a counter starting at 1.
func NewSequentialGenerator(prefix string) Generator {
	return &sequentialGenerator{prefix: prefix}
}

// NewParallelGenerator returns a generator that produces globally unique IDs.
// The IDs are not deterministic.
func NewParallelGenerator() Generator {
	return parallelGenerator{}
}

type sequentialGenerator struct {
	prefix string
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return g.prefix + strconv.FormatUint(idNumber, 10)
}

type parallelGenerator struct {
}

func (g parallelGenerator) Generate() string {
	return xid.New().String()
}
