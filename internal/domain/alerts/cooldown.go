package alerts

import "time"

// CooldownTable remembers when each kind last fired
type CooldownTable struct {
	last map[Kind]time.Time
}

// NewCooldownTable creates an empty table
func NewCooldownTable() *CooldownTable {
	return &CooldownTable{last: make(map[Kind]time.Time)}
}

// Ready reports whether kind may fire at now given its cooldown
func (c *CooldownTable) Ready(kind Kind, now time.Time, cooldown time.Duration) bool {
	last, ok := c.last[kind]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// Mark records that kind fired at now
func (c *CooldownTable) Mark(kind Kind, now time.Time) {
	c.last[kind] = now
}

// LastFired returns the last firing instant for kind
func (c *CooldownTable) LastFired(kind Kind) (time.Time, bool) {
	t, ok := c.last[kind]
	return t, ok
}

// Snapshot copies the table
func (c *CooldownTable) Snapshot() map[Kind]time.Time {
	out := make(map[Kind]time.Time, len(c.last))
	for k, v := range c.last {
		out[k] = v
	}
	return out
}
