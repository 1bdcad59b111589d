package actions

import (
	"machinerun.io/spacemaker"
)

// AutoStrategy deletes the partitions of the categories configured to be
// always deleted, then offers deletions and Windows shrinks from the one
// freeing the most space down.
type AutoStrategy struct {
	settings  spacemaker.Settings
	analyzer  spacemaker.Analyzer
	mandatory queue
	prospects prospectList
	offered   *prospect
	cur       cursor
}

// NewAutoStrategy returns an AutoStrategy with nothing queued.
func NewAutoStrategy(settings spacemaker.Settings, analyzer spacemaker.Analyzer) *AutoStrategy {
	return &AutoStrategy{settings: settings, analyzer: analyzer}
}

// AddMandatoryActions queues a Delete for every partition of the disk whose
// category delete mode is DeleteAll, last partition first.
func (s *AutoStrategy) AddMandatoryActions(g spacemaker.Graph, disk spacemaker.SID) {
	s.cur.pending = false

	for _, p := range deletablePartitions(g, disk) {
		if s.mandatory.has(p.SID) {
			continue
		}

		if s.settings.DeleteMode(s.analyzer.Category(g, p.SID)) != spacemaker.DeleteAll {
			continue
		}

		s.mandatory.push(entry{
			action: spacemaker.Delete{SID: p.SID},
			disk:   disk,
			name:   p.Name,
			start:  p.Start,
		})
	}
}

// AddOptionalActions computes the prospects of the disk.
func (s *AutoStrategy) AddOptionalActions(g spacemaker.Graph, disk spacemaker.SID, ctx Context) {
	s.cur.pending = false
	s.offered = nil
	s.prospects.dropDisk(disk)

	keep := ctx.keepSet()

	if !g.HasPartitionTable(disk) {
		s.addWipeProspect(g, disk, keep)
		return
	}

	for _, p := range deletablePartitions(g, disk) {
		if s.mandatory.has(p.SID) || kept(g, p.SID, keep) {
			continue
		}

		category := s.analyzer.Category(g, p.SID)

		if category == spacemaker.WindowsCategory && s.settings.ResizeWindows {
			if rec := s.analyzer.RecoverableSize(g, p.SID); rec > 0 {
				s.prospects.add(&prospect{
					kind:        shrinkProspect,
					sid:         p.SID,
					disk:        disk,
					name:        p.Name,
					category:    category,
					start:       p.Start,
					recoverable: rec,
					target:      p.Size - rec,
				})
			}
		}

		if s.settings.DeleteMode(category) != spacemaker.DeleteOnDemand {
			continue
		}

		pr := &prospect{
			kind:        deleteProspect,
			sid:         p.SID,
			disk:        disk,
			name:        p.Name,
			category:    category,
			start:       p.Start,
			recoverable: p.Size,
		}

		if vgs := spacemaker.VGsOn(g, p.SID); len(vgs) != 0 {
			pr.kind = pvProspect
			pr.vg = vgs[0].SID
		}

		s.prospects.add(pr)
	}
}

func (s *AutoStrategy) addWipeProspect(g spacemaker.Graph, disk spacemaker.SID, keep spacemaker.SIDSet) {
	dev, ok := g.FindDevice(disk)
	if !ok || len(g.Holders(disk)) == 0 || kept(g, disk, keep) {
		return
	}

	category := s.analyzer.Category(g, disk)
	if s.settings.DeleteMode(category) == spacemaker.DeleteNone {
		return
	}

	s.prospects.add(&prospect{
		kind:        wipeProspect,
		sid:         disk,
		disk:        disk,
		name:        dev.Name,
		category:    category,
		recoverable: dev.Size,
	})
}

// NextAvailableProspect returns the action of the best available prospect
// and marks it as consumed. It panics if no prospect is available.
func (s *AutoStrategy) NextAvailableProspect() spacemaker.Action {
	p := s.prospects.nextAvailable()
	p.available = false

	return p.action()
}

// MarkDeleted invalidates the prospects on the vanished devices.
func (s *AutoStrategy) MarkDeleted(sids []spacemaker.SID) {
	s.purge(spacemaker.NewSIDSet(sids...))
}

// Next returns the next mandatory action, else the best prospect.
func (s *AutoStrategy) Next() spacemaker.Action {
	return stepNext(s, &s.cur)
}

// Done consumes the action returned by Next and forgets deleted devices.
func (s *AutoStrategy) Done(deleted []spacemaker.SID) {
	stepDone(s, &s.cur, deleted)
}

// MandatoryPending returns true while mandatory deletions are queued.
func (s *AutoStrategy) MandatoryPending() bool {
	return len(s.mandatory) != 0
}

func (s *AutoStrategy) peekMandatory() (spacemaker.Action, bool) {
	e, ok := s.mandatory.front()
	return e.action, ok
}

func (s *AutoStrategy) peekOptional() (spacemaker.Action, rank, bool) {
	p, ok := s.prospects.best()
	s.offered = p

	if !ok {
		return nil, rank{}, false
	}

	return p.action(), p.rank(), true
}

func (s *AutoStrategy) consume(mandatory bool) {
	if mandatory {
		s.mandatory.popFront()
		return
	}

	if s.offered == nil || !s.offered.available {
		panic("no prospect was offered")
	}

	s.offered.available = false
	s.offered = nil
}

func (s *AutoStrategy) purge(deleted spacemaker.SIDSet) {
	s.mandatory.purge(deleted)
	s.prospects.markDeleted(deleted)

	if s.offered != nil && !s.offered.available {
		s.offered = nil
	}
}
