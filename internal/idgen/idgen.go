// Package idgen produces unique, roughly time-ordered 63-bit transaction ids.
package idgen

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Epoch is the custom snowflake epoch in milliseconds (2022-11-23).
// Changing it would make new ids collide with already persisted ones.
const Epoch int64 = 1669205840566

var epochOnce sync.Once

// Generator hands out snowflake ids from a single node.
type Generator struct {
	node *snowflake.Node
}

// New creates a generator for the given node id. A negative node id picks a
// random node in [0, 1024), matching single-instance deployments where no
// stable node id is configured.
func New(nodeID int64) (*Generator, error) {
	epochOnce.Do(func() {
		snowflake.Epoch = Epoch
	})

	if nodeID < 0 {
		nodeID = rand.Int63n(1024)
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// Next returns the next id. Safe for concurrent use; the underlying
// generator blocks within a millisecond tick rather than reissuing ids.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
