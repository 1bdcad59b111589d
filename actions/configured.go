package actions

import (
	"sort"

	"machinerun.io/spacemaker"
)

type queueID int

const (
	mandatoryQueue queueID = iota
	resizeQueue
	deleteQueue
)

// ConfiguredStrategy runs exactly the actions configured for explicit
// devices: force deletions first, then resizes from the one recovering the
// most space down, then deletions from the end of the disks.
type ConfiguredStrategy struct {
	settings          spacemaker.Settings
	analyzer          spacemaker.Analyzer
	toDeleteMandatory queue
	toResize          queue
	toDeleteOptional  queue
	cur               cursor
}

// NewConfiguredStrategy returns a ConfiguredStrategy with nothing queued.
func NewConfiguredStrategy(settings spacemaker.Settings,
	analyzer spacemaker.Analyzer) *ConfiguredStrategy {
	return &ConfiguredStrategy{settings: settings, analyzer: analyzer}
}

func (s *ConfiguredStrategy) configured(name string, d spacemaker.Disposition) (spacemaker.DeviceAction, bool) {
	a, ok := s.settings.ActionFor(name)
	if !ok || a.Action != d {
		return spacemaker.DeviceAction{}, false
	}

	return a, true
}

func deleteAction(p spacemaker.Device) spacemaker.Action {
	return spacemaker.Delete{SID: p.SID, RelatedPartitions: p.PartitionType == spacemaker.Extended}
}

// AddMandatoryActions queues the force deletions of the disk. A disk that
// is itself force deleted is wiped.
func (s *ConfiguredStrategy) AddMandatoryActions(g spacemaker.Graph, disk spacemaker.SID) {
	s.cur.pending = false

	dev, ok := g.FindDevice(disk)
	if !ok {
		return
	}

	if _, ok := s.configured(dev.Name, spacemaker.ForceDelete); ok {
		if len(g.Holders(disk)) != 0 && !s.toDeleteMandatory.has(disk) {
			s.toDeleteMandatory.push(entry{action: spacemaker.Wipe{SID: disk}, disk: disk, name: dev.Name})
		}

		return
	}

	for _, p := range s.partitions(g, disk) {
		if _, ok := s.configured(p.Name, spacemaker.ForceDelete); !ok || s.toDeleteMandatory.has(p.SID) {
			continue
		}

		s.toDeleteMandatory.push(entry{action: deleteAction(p), disk: disk, name: p.Name, start: p.Start})
	}
}

// partitions returns the partitions of the disk last first. A configured
// extended partition is deleted with its logical partitions, so those are
// left out unless they are force deleted or resized on their own.
func (s *ConfiguredStrategy) partitions(g spacemaker.Graph, disk spacemaker.SID) []spacemaker.Device {
	all := g.Partitions(disk)
	withExtended := false

	for _, p := range all {
		if p.PartitionType != spacemaker.Extended {
			continue
		}

		if a, ok := s.settings.ActionFor(p.Name); ok && a.Action != spacemaker.Keep {
			withExtended = true
		}
	}

	parts := []spacemaker.Device{}

	for i := len(all) - 1; i >= 0; i-- {
		if withExtended && all[i].PartitionType == spacemaker.Logical && !s.ownAction(all[i].Name) {
			continue
		}

		parts = append(parts, all[i])
	}

	return parts
}

// ownAction returns true if the device has an action the deletion of its
// extended partition does not cover.
func (s *ConfiguredStrategy) ownAction(name string) bool {
	a, ok := s.settings.ActionFor(name)

	return ok && (a.Action == spacemaker.ForceDelete || a.Action == spacemaker.Resize)
}

// AddOptionalActions queues the configured resizes and deletions of the
// disk. Kept devices are never deleted. Resizes are queued even when the
// device cannot be resized, Execute reports those.
func (s *ConfiguredStrategy) AddOptionalActions(g spacemaker.Graph, disk spacemaker.SID, ctx Context) {
	s.cur.pending = false

	onDisk := func(e entry) bool { return e.disk == disk }
	s.toResize.removeWhere(onDisk)
	s.toDeleteOptional.removeWhere(onDisk)

	dev, ok := g.FindDevice(disk)
	if !ok {
		return
	}

	keep := ctx.keepSet()

	for _, p := range s.partitions(g, disk) {
		if s.toDeleteMandatory.has(p.SID) {
			continue
		}

		if a, ok := s.configured(p.Name, spacemaker.Resize); ok {
			s.addResize(g, disk, p, a)
			continue
		}

		if _, ok := s.configured(p.Name, spacemaker.DeleteDevice); ok && !kept(g, p.SID, keep) {
			s.toDeleteOptional.push(entry{action: deleteAction(p), disk: disk, name: p.Name, start: p.Start})
		}
	}

	if _, ok := s.configured(dev.Name, spacemaker.DeleteDevice); ok &&
		len(g.Holders(disk)) != 0 && !kept(g, disk, keep) {
		s.toDeleteOptional.push(entry{action: spacemaker.Wipe{SID: disk}, disk: disk, name: dev.Name})
	}

	sort.SliceStable(s.toResize, func(i, j int) bool {
		a, b := s.toResize[i], s.toResize[j]
		if a.recoverable != b.recoverable {
			return a.recoverable > b.recoverable
		}

		return a.name < b.name
	})

	sort.SliceStable(s.toDeleteOptional, func(i, j int) bool {
		a, b := s.toDeleteOptional[i], s.toDeleteOptional[j]
		if a.start != b.start {
			return a.start > b.start
		}

		return a.name < b.name
	})
}

func (s *ConfiguredStrategy) addResize(g spacemaker.Graph, disk spacemaker.SID,
	p spacemaker.Device, a spacemaker.DeviceAction) {
	rec := s.analyzer.RecoverableSize(g, p.SID)

	s.toResize.push(entry{
		action: spacemaker.Shrink{
			SID:        p.SID,
			MinSize:    a.MinSize.Bytes(),
			MaxSize:    a.MaxSize.Bytes(),
			TargetSize: p.Size - rec,
		},
		disk:        disk,
		name:        p.Name,
		start:       p.Start,
		recoverable: rec,
	})
}

// Next returns the next force deletion, else resize, else deletion.
func (s *ConfiguredStrategy) Next() spacemaker.Action {
	return stepNext(s, &s.cur)
}

// Done pops the queue that supplied the last action and forgets deleted
// devices in every queue.
func (s *ConfiguredStrategy) Done(deleted []spacemaker.SID) {
	stepDone(s, &s.cur, deleted)
}

// MandatoryPending returns true while force deletions are queued.
func (s *ConfiguredStrategy) MandatoryPending() bool {
	return len(s.toDeleteMandatory) != 0
}

func (s *ConfiguredStrategy) peekMandatory() (spacemaker.Action, bool) {
	e, ok := s.toDeleteMandatory.front()
	return e.action, ok
}

func (s *ConfiguredStrategy) optionalQueue() (queueID, entry, bool) {
	if e, ok := s.toResize.front(); ok {
		return resizeQueue, e, true
	}

	if e, ok := s.toDeleteOptional.front(); ok {
		return deleteQueue, e, true
	}

	return mandatoryQueue, entry{}, false
}

func (s *ConfiguredStrategy) peekOptional() (spacemaker.Action, rank, bool) {
	id, e, ok := s.optionalQueue()
	if !ok {
		return nil, rank{}, false
	}

	if id == resizeQueue {
		return e.action, rank{phase: 0, weight: e.recoverable, name: e.name}, true
	}

	return e.action, rank{phase: 1, weight: e.start, name: e.name}, true
}

func (s *ConfiguredStrategy) consume(mandatory bool) {
	if mandatory {
		s.toDeleteMandatory.popFront()
		return
	}

	switch id, _, _ := s.optionalQueue(); id {
	case resizeQueue:
		s.toResize.popFront()
	case deleteQueue:
		s.toDeleteOptional.popFront()
	default:
		panic("no optional action was offered")
	}
}

func (s *ConfiguredStrategy) purge(deleted spacemaker.SIDSet) {
	s.toDeleteMandatory.purge(deleted)
	s.toResize.purge(deleted)
	s.toDeleteOptional.purge(deleted)
}
