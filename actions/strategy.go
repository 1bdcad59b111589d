// Package actions sequences the space making actions for a proposal run:
// mandatory deletions first, then optional deletions and shrinks ranked by a
// strategy until the caller has enough space.
package actions

import (
	"fmt"

	"machinerun.io/spacemaker"
)

// LVMHint describes a volume group the proposal is going to reuse.
type LVMHint struct {
	// ReusedVG is kept together with the physical volumes it is built on.
	ReusedVG spacemaker.SID
}

// Context is what the caller knows when optional actions are computed.
type Context struct {
	// Keep lists devices the proposal reuses. A device is never deleted if
	// it or anything built on it is kept.
	Keep []spacemaker.SID

	// LVM is set when a volume group is reused.
	LVM *LVMHint
}

func (c Context) keepSet() spacemaker.SIDSet {
	keep := spacemaker.NewSIDSet(c.Keep...)

	if c.LVM != nil && c.LVM.ReusedVG != 0 {
		keep[c.LVM.ReusedVG] = struct{}{}
	}

	return keep
}

func kept(g spacemaker.Graph, sid spacemaker.SID, keep spacemaker.SIDSet) bool {
	if len(keep) == 0 {
		return false
	}

	return keep.Has(sid) || keep.HasAny(g.Descendants(sid)...)
}

// Strategy decides which actions free space on the disks added to it.
// The implementations are AutoStrategy and ConfiguredStrategy.
type Strategy interface {
	// AddMandatoryActions queues the actions that run regardless of the
	// space still needed.
	AddMandatoryActions(g spacemaker.Graph, disk spacemaker.SID)

	// AddOptionalActions computes the actions that may run if space is still
	// needed. Calling it again for a disk replaces its optional actions.
	AddOptionalActions(g spacemaker.Graph, disk spacemaker.SID, ctx Context)

	// Next returns the next action without consuming it, nil when there is
	// nothing left.
	Next() spacemaker.Action

	// Done consumes the action returned by Next. deleted must hold every
	// sid that vanished while executing it.
	Done(deleted []spacemaker.SID)

	// MandatoryPending returns true while mandatory actions are queued.
	MandatoryPending() bool

	peekMandatory() (spacemaker.Action, bool)
	peekOptional() (spacemaker.Action, rank, bool)
	consume(mandatory bool)
	purge(deleted spacemaker.SIDSet)
}

// NewStrategy returns the strategy selected by the settings.
func NewStrategy(settings spacemaker.Settings, analyzer spacemaker.Analyzer) Strategy {
	switch settings.Strategy {
	case spacemaker.AutoStrategy:
		return NewAutoStrategy(settings, analyzer)
	case spacemaker.ConfiguredStrategy:
		return NewConfiguredStrategy(settings, analyzer)
	}

	panic(fmt.Sprintf("unknown strategy %s", settings.Strategy))
}

// rank orders optional actions, possibly from different strategies.
type rank struct {
	phase  int
	weight uint64
	class  int
	start  uint64
	name   string
}

// before returns true if r should be offered before o: lower phase, higher
// weight, lower class, later start, then name.
func (r rank) before(o rank) bool {
	if r.phase != o.phase {
		return r.phase < o.phase
	}

	if r.weight != o.weight {
		return r.weight > o.weight
	}

	if r.class != o.class {
		return r.class < o.class
	}

	if r.start != o.start {
		return r.start > o.start
	}

	return r.name < o.name
}

// entry is a queued action with what is needed to sort it.
type entry struct {
	action      spacemaker.Action
	disk        spacemaker.SID
	name        string
	start       uint64
	recoverable uint64
}

type queue []entry

func (q *queue) push(e entry) {
	*q = append(*q, e)
}

func (q queue) front() (entry, bool) {
	if len(q) == 0 {
		return entry{}, false
	}

	return q[0], true
}

func (q *queue) popFront() {
	if len(*q) == 0 {
		panic("pop from an empty queue")
	}

	*q = (*q)[1:]
}

func (q *queue) removeWhere(match func(entry) bool) {
	kept := (*q)[:0]

	for _, e := range *q {
		if !match(e) {
			kept = append(kept, e)
		}
	}

	*q = kept
}

func (q queue) has(sid spacemaker.SID) bool {
	for _, e := range q {
		if e.action.Target() == sid {
			return true
		}
	}

	return false
}

func (q *queue) purge(deleted spacemaker.SIDSet) {
	q.removeWhere(func(e entry) bool { return deleted.Has(e.action.Target()) })
}

// cursor tracks the action handed out by a strategy used on its own.
type cursor struct {
	pending   bool
	mandatory bool
}

func stepNext(s Strategy, c *cursor) spacemaker.Action {
	c.pending = false

	if a, ok := s.peekMandatory(); ok {
		c.pending, c.mandatory = true, true
		return a
	}

	if a, _, ok := s.peekOptional(); ok {
		c.pending, c.mandatory = true, false
		return a
	}

	return nil
}

func stepDone(s Strategy, c *cursor, deleted []spacemaker.SID) {
	if !c.pending {
		panic("Done called without a pending action")
	}

	c.pending = false
	s.consume(c.mandatory)
	s.purge(spacemaker.NewSIDSet(deleted...))
}

// deletablePartitions returns the partitions of the disk that can be
// deleted on their own, last first. Extended partitions go away with their
// logical partitions.
func deletablePartitions(g spacemaker.Graph, disk spacemaker.SID) []spacemaker.Device {
	parts := spacemaker.FilterDevices(g.Partitions(disk), func(p spacemaker.Device) bool {
		return p.PartitionType != spacemaker.Extended
	})

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	return parts
}
