package engine

// maxNotables caps the notable-interaction list per cycle. Additions past the
// cap are dropped silently.
const maxNotables = 20

// NotableInteraction is one interaction worth carrying into reflection.
type NotableInteraction struct {
	PostID      string   `json:"post_id"`
	Submolt     string   `json:"submolt"`
	AgentHash   string   `json:"agent_hash"`
	AgentName   string   `json:"agent_name,omitempty"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"` // engaged, cataloged, deflected, skipped, replied
	ThreatLevel int      `json:"threat_level"`
	Shape       string   `json:"shape,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// CycleEvents accumulates one processing cycle's counters and notable
// interactions. It is passed by reference through the cycle's call chain and
// handed to Reflect once at cycle end; it is not safe for concurrent use.
type CycleEvents struct {
	PostsDiscovered int
	PostsEngaged    int
	PostsCataloged  int
	PostsFailed     int
	RepliesSent     int
	Notables        []NotableInteraction
}

// NewCycleEvents returns a zeroed accumulator.
func NewCycleEvents() *CycleEvents {
	return &CycleEvents{}
}

// RecordNotable appends an interaction while the capped list has room.
func (c *CycleEvents) RecordNotable(n NotableInteraction) {
	if len(c.Notables) >= maxNotables {
		return
	}
	c.Notables = append(c.Notables, n)
}

// Snapshot returns a defensive copy safe to read repeatedly without aliasing
// the live accumulator.
func (c *CycleEvents) Snapshot() CycleEvents {
	out := *c
	out.Notables = make([]NotableInteraction, len(c.Notables))
	copy(out.Notables, c.Notables)
	for i := range out.Notables {
		if len(c.Notables[i].Topics) > 0 {
			out.Notables[i].Topics = append([]string(nil), c.Notables[i].Topics...)
		}
	}
	return out
}
