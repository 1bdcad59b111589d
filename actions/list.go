package actions

import (
	"fmt"

	"machinerun.io/spacemaker"
)

// List sequences the actions of several disks. Every disk gets its own
// strategy. Mandatory actions of all disks come first in the order the disks
// were added, then the best optional action of any disk.
type List struct {
	settings   spacemaker.Settings
	analyzer   spacemaker.Analyzer
	disks      []spacemaker.SID
	strategies map[spacemaker.SID]Strategy

	pending   Strategy
	mandatory bool
}

// NewList returns an empty List using the strategy selected by settings.
func NewList(settings spacemaker.Settings, analyzer spacemaker.Analyzer) *List {
	return &List{
		settings:   settings,
		analyzer:   analyzer,
		strategies: map[spacemaker.SID]Strategy{},
	}
}

// AddMandatoryActions registers the disk and queues its mandatory actions.
// It panics if the disk was already added.
func (l *List) AddMandatoryActions(g spacemaker.Graph, disk spacemaker.SID) {
	if _, ok := l.strategies[disk]; ok {
		panic(fmt.Sprintf("disk %d added twice", disk))
	}

	s := NewStrategy(l.settings, l.analyzer)
	l.strategies[disk] = s
	l.disks = append(l.disks, disk)
	l.pending = nil

	s.AddMandatoryActions(g, disk)
}

// AddOptionalActions computes the optional actions of a disk added before
// with AddMandatoryActions.
func (l *List) AddOptionalActions(g spacemaker.Graph, disk spacemaker.SID, ctx Context) {
	s, ok := l.strategies[disk]
	if !ok {
		panic(fmt.Sprintf("disk %d was not added", disk))
	}

	l.pending = nil

	s.AddOptionalActions(g, disk, ctx)
}

// Disks returns the disks in the order they were added.
func (l *List) Disks() []spacemaker.SID {
	return append([]spacemaker.SID{}, l.disks...)
}

// Next returns the next action to execute, nil when there is none. Calling
// it again without Done returns the same action.
func (l *List) Next() spacemaker.Action {
	l.pending = nil

	for _, disk := range l.disks {
		s := l.strategies[disk]

		if a, ok := s.peekMandatory(); ok {
			l.pending, l.mandatory = s, true
			return a
		}
	}

	var (
		best     spacemaker.Action
		bestRank rank
	)

	for _, disk := range l.disks {
		s := l.strategies[disk]

		a, r, ok := s.peekOptional()
		if !ok {
			continue
		}

		if best == nil || r.before(bestRank) {
			best, bestRank = a, r
			l.pending, l.mandatory = s, false
		}
	}

	return best
}

// Done consumes the action returned by Next. deleted holds every sid that
// vanished while executing it, the actions on those devices are dropped
// from every disk. It panics if Next did not return an action.
func (l *List) Done(deleted []spacemaker.SID) {
	if l.pending == nil {
		panic("Done called without a pending action")
	}

	s := l.pending
	l.pending = nil

	s.consume(l.mandatory)

	set := spacemaker.NewSIDSet(deleted...)
	for _, disk := range l.disks {
		l.strategies[disk].purge(set)
	}
}

// MandatoryPending returns true while any disk has mandatory actions queued.
func (l *List) MandatoryPending() bool {
	for _, s := range l.strategies {
		if s.MandatoryPending() {
			return true
		}
	}

	return false
}
