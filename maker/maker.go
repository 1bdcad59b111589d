// Package maker drives the action list against a device graph until the
// candidate disks have enough free space.
package maker

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/actions"
)

// ErrNotEnoughSpace is returned when every allowed action ran and the
// candidate disks are still short of space.
var ErrNotEnoughSpace = errors.New("not enough space")

// Request describes the space a proposal needs.
type Request struct {
	// Disks are the candidate disks, in order of preference.
	Disks []spacemaker.SID

	// NeededSize is the free space wanted across Disks.
	NeededSize uint64

	// Keep lists devices reused by the proposal.
	Keep []spacemaker.SID

	// LVM is set when the proposal reuses a volume group.
	LVM *actions.LVMHint
}

// Result reports what was done to the graph.
type Result struct {
	// Executed lists the actions that succeeded, in order.
	Executed []spacemaker.Action

	// Deleted holds every sid that vanished.
	Deleted []spacemaker.SID

	// FreeSpace is the free space of the candidate disks at the end.
	FreeSpace uint64
}

// SpaceMaker frees space on disks following the settings.
type SpaceMaker struct {
	settings spacemaker.Settings
	analyzer spacemaker.Analyzer
	log      *zap.Logger
}

// New returns a SpaceMaker. A nil logger discards the log.
func New(settings spacemaker.Settings, analyzer spacemaker.Analyzer, log *zap.Logger) *SpaceMaker {
	if log == nil {
		log = zap.NewNop()
	}

	return &SpaceMaker{settings: settings, analyzer: analyzer, log: log}
}

type run struct {
	*SpaceMaker
	g      spacemaker.Graph
	req    spacemaker.SIDSet
	list   *actions.List
	result Result
}

// ProvideSpace runs the mandatory actions of every disk, then optional
// actions until NeededSize bytes are free. The graph is modified in place.
// What the analyzer learned in earlier runs is dropped first.
// When space is still missing the partial Result is returned together with
// ErrNotEnoughSpace.
func (m *SpaceMaker) ProvideSpace(g spacemaker.Graph, req Request) (Result, error) {
	if len(req.Disks) == 0 {
		return Result{}, errors.New("no candidate disks")
	}

	for _, d := range req.Disks {
		if _, ok := g.FindDevice(d); !ok {
			return Result{}, errors.Wrapf(spacemaker.ErrDeviceNotFound, "disk sid %d", d)
		}
	}

	m.analyzer.Forget()

	r := &run{
		SpaceMaker: m,
		g:          g,
		req:        spacemaker.NewSIDSet(req.Disks...),
		list:       actions.NewList(m.settings, m.analyzer),
		result:     Result{Executed: []spacemaker.Action{}, Deleted: []spacemaker.SID{}},
	}

	m.log.Info("making space",
		zap.String("strategy", m.settings.Strategy.String()),
		zap.Int("disks", len(req.Disks)),
		zap.String("needed", spacemaker.HumanSize(req.NeededSize)))

	for _, d := range req.Disks {
		r.list.AddMandatoryActions(g, d)
	}

	for r.list.MandatoryPending() {
		r.step(req.NeededSize)
	}

	ctx := actions.Context{Keep: req.Keep, LVM: req.LVM}

	for {
		r.seed(req.Disks, ctx)

		deletedBefore := len(r.result.Deleted)

		for r.free() < req.NeededSize {
			if !r.step(req.NeededSize) {
				break
			}
		}

		if r.free() >= req.NeededSize || len(r.result.Deleted) == deletedBefore {
			break
		}

		m.log.Debug("devices vanished, computing actions again")
	}

	r.result.FreeSpace = r.free()

	if r.result.FreeSpace < req.NeededSize {
		m.log.Warn("not enough space",
			zap.String("free", spacemaker.HumanSize(r.result.FreeSpace)),
			zap.String("needed", spacemaker.HumanSize(req.NeededSize)))

		return r.result, errors.Wrapf(ErrNotEnoughSpace, "%s free, %s needed",
			spacemaker.HumanSize(r.result.FreeSpace), spacemaker.HumanSize(req.NeededSize))
	}

	m.log.Info("space made",
		zap.Int("actions", len(r.result.Executed)),
		zap.String("free", spacemaker.HumanSize(r.result.FreeSpace)))

	return r.result, nil
}

func (r *run) seed(disks []spacemaker.SID, ctx actions.Context) {
	for _, d := range disks {
		if _, ok := r.g.FindDevice(d); ok {
			r.list.AddOptionalActions(r.g, d, ctx)
		}
	}
}

func (r *run) free() uint64 {
	total := uint64(0)

	for d := range r.req {
		total += r.g.FreeSpace(d)
	}

	return total
}

// step executes the next action. It returns false when no action is left.
func (r *run) step(needed uint64) bool {
	action := r.list.Next()
	if action == nil {
		return false
	}

	if shrink, ok := action.(spacemaker.Shrink); ok {
		action = r.forMissing(shrink, needed)
	}

	deleted, err := spacemaker.Execute(r.g, action)
	if err != nil {
		r.log.Warn("action failed", zap.Stringer("action", action), zap.Error(err))
		r.list.Done(nil)

		return true
	}

	r.log.Info("executed", zap.Stringer("action", action), zap.Int("vanished", len(deleted)))

	r.result.Executed = append(r.result.Executed, action)
	r.result.Deleted = append(r.result.Deleted, deleted...)
	r.list.Done(deleted)

	return true
}

// forMissing relaxes a shrink so it only reclaims what is still missing.
func (r *run) forMissing(a spacemaker.Shrink, needed uint64) spacemaker.Shrink {
	dev, ok := r.g.FindDevice(a.SID)
	if !ok {
		return a
	}

	free := r.free()
	if free >= needed {
		return a
	}

	return a.ForMissing(dev.Size, needed-free)
}
