package checkpoint

// Chain is an append-only sequence of linked checkpoints.
type Chain struct {
	head  uint32
	links []Checkpoint
}

func NewChain(genesis uint32) *Chain {
	return &Chain{head: genesis}
}

func (c *Chain) Head() uint32 { return c.head }

func (c *Chain) Len() int { return len(c.links) }

// Append creates a checkpoint for in and advances the head.
func (c *Chain) Append(in StateInput) Checkpoint {
	cp := Create(in, c.head)
	c.links = append(c.links, cp)
	c.head = cp.ChainHash
	return cp
}

// Detached creates a checkpoint linked to the current head without advancing it.
// Audit checkpoints use this so the linked chain does not depend on which ticks a
// verifier chose to audit.
func (c *Chain) Detached(in StateInput) Checkpoint {
	return Create(in, c.head)
}

// Links returns a copy of the linked checkpoints.
func (c *Chain) Links() []Checkpoint {
	return append([]Checkpoint(nil), c.links...)
}
