package actions

import (
	"machinerun.io/spacemaker"
)

type prospectKind int

const (
	shrinkProspect prospectKind = iota
	deleteProspect
	wipeProspect
	// pvProspect deletes a partition backing a volume group, taking the
	// volume group down with it.
	pvProspect
)

// order among prospects of equal recoverable size, least harmful first.
//nolint:gochecknoglobals
var kindOrder = map[prospectKind]int{
	shrinkProspect: 0,
	deleteProspect: 1,
	wipeProspect:   1,
	pvProspect:     2,
}

//nolint:gochecknoglobals
var categoryOrder = map[spacemaker.Category]int{
	spacemaker.LinuxCategory:   0,
	spacemaker.OtherCategory:   1,
	spacemaker.WindowsCategory: 2,
}

// prospect is an optional action the auto strategy may offer.
type prospect struct {
	kind        prospectKind
	sid         spacemaker.SID
	disk        spacemaker.SID
	vg          spacemaker.SID
	name        string
	category    spacemaker.Category
	start       uint64
	recoverable uint64
	target      uint64
	available   bool
}

func (p *prospect) action() spacemaker.Action {
	switch p.kind {
	case shrinkProspect:
		return spacemaker.Shrink{SID: p.sid, TargetSize: p.target}
	case deleteProspect, pvProspect:
		return spacemaker.Delete{SID: p.sid}
	case wipeProspect:
		return spacemaker.Wipe{SID: p.sid}
	}

	panic("unknown prospect kind")
}

func (p *prospect) rank() rank {
	return rank{
		weight: p.recoverable,
		class:  kindOrder[p.kind]*len(categoryOrder) + categoryOrder[p.category],
		start:  p.start,
		name:   p.name,
	}
}

// prospectList holds the prospects of the auto strategy and hands out the
// best available one.
type prospectList struct {
	items []*prospect
}

func (l *prospectList) add(p *prospect) {
	p.available = true
	l.items = append(l.items, p)
}

// dropDisk forgets every prospect of the disk.
func (l *prospectList) dropDisk(disk spacemaker.SID) {
	l.keepOnly(func(p *prospect) bool { return p.disk != disk })
}

func (l *prospectList) keepOnly(keep func(*prospect) bool) {
	items := l.items[:0]

	for _, p := range l.items {
		if keep(p) {
			items = append(items, p)
		}
	}

	l.items = items
}

// shrinkPending returns true if a shrink of sid is still available.
func (l *prospectList) shrinkPending(sid spacemaker.SID) bool {
	for _, p := range l.items {
		if p.kind == shrinkProspect && p.available && p.sid == sid {
			return true
		}
	}

	return false
}

// best returns the available prospect with the best rank. A partition is
// not deleted while its shrink has not been offered yet.
func (l *prospectList) best() (*prospect, bool) {
	var found *prospect

	for _, p := range l.items {
		if !p.available {
			continue
		}

		if p.kind != shrinkProspect && l.shrinkPending(p.sid) {
			continue
		}

		if found == nil || p.rank().before(found.rank()) {
			found = p
		}
	}

	return found, found != nil
}

// nextAvailable returns the best available prospect. There must be one.
func (l *prospectList) nextAvailable() *prospect {
	p, ok := l.best()
	if !ok {
		panic("no available prospect")
	}

	return p
}

// markDeleted invalidates the prospects on vanished devices and drops them.
// A pv prospect is also dropped as soon as its volume group is gone.
func (l *prospectList) markDeleted(deleted spacemaker.SIDSet) {
	if len(deleted) == 0 {
		return
	}

	l.keepOnly(func(p *prospect) bool {
		gone := deleted.Has(p.sid) || (p.kind == pvProspect && deleted.Has(p.vg))
		if gone {
			p.available = false
		}

		return !gone
	})
}
