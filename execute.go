package spacemaker

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrDeviceNotFound is returned when an action targets a sid that is not in
// the graph.
var ErrDeviceNotFound = errors.New("device not found")

// ErrWrongKind is returned when an action targets a device it cannot act on.
var ErrWrongKind = errors.New("wrong device kind")

// ErrResizeNotPossible is returned when a shrink targets a device that
// cannot be resized.
var ErrResizeNotPossible = errors.New("resize not possible")

// Execute applies action to the graph and returns the sids of every device
// that vanished as a consequence, the target included.
func Execute(g Graph, action Action) ([]SID, error) {
	var err error

	before := g.SIDs()

	switch a := action.(type) {
	case Delete:
		err = executeDelete(g, a)
	case Wipe:
		err = executeWipe(g, a)
	case Shrink:
		err = executeShrink(g, a)
	default:
		panic(errors.Errorf("unknown action %#v", action))
	}

	if err != nil {
		return nil, err
	}

	return vanished(before, g), nil
}

func vanished(before []SID, g Graph) []SID {
	after := NewSIDSet(g.SIDs()...)
	gone := []SID{}

	for _, sid := range before {
		if !after.Has(sid) {
			gone = append(gone, sid)
		}
	}

	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })

	return gone
}

func findKind(g Graph, sid SID, accept func(DeviceKind) bool) (Device, error) {
	dev, ok := g.FindDevice(sid)
	if !ok {
		return Device{}, errors.Wrapf(ErrDeviceNotFound, "sid %d", sid)
	}

	if !accept(dev.Kind) {
		return Device{}, errors.Wrapf(ErrWrongKind, "%s", dev)
	}

	return dev, nil
}

func isPartition(k DeviceKind) bool {
	return k == PartitionKind
}

func executeDelete(g Graph, a Delete) error {
	dev, err := findKind(g, a.SID, isPartition)
	if err != nil {
		return err
	}

	if a.RelatedPartitions {
		for _, p := range relatedPartitions(g, dev) {
			if err := deletePartition(g, p.SID); err != nil {
				return err
			}
		}
	}

	// Removing the last logical partition may already have taken an
	// extended target with it.
	if _, ok := g.FindDevice(dev.SID); !ok {
		return nil
	}

	return deletePartition(g, dev.SID)
}

// relatedPartitions returns the logical partitions that go together with
// dev, last first.
func relatedPartitions(g Graph, dev Device) []Device {
	if dev.PartitionType != Logical && dev.PartitionType != Extended {
		return []Device{}
	}

	related := FilterDevices(g.Partitions(dev.Disk), func(p Device) bool {
		return p.PartitionType == Logical && p.SID != dev.SID
	})

	sort.Slice(related, func(i, j int) bool { return related[i].Start > related[j].Start })

	return related
}

// deletePartition removes one partition. An extended partition left without
// logical partitions is removed as well.
func deletePartition(g Graph, sid SID) error {
	dev, ok := g.FindDevice(sid)
	if !ok {
		return nil
	}

	if err := g.DeletePartition(sid); err != nil {
		return errors.Wrapf(err, "failed to delete %s", dev)
	}

	if dev.PartitionType != Logical {
		return nil
	}

	var extended *Device

	for _, p := range g.Partitions(dev.Disk) {
		switch p.PartitionType {
		case Logical:
			return nil
		case Extended:
			p := p
			extended = &p
		}
	}

	if extended == nil {
		return nil
	}

	if err := g.DeletePartition(extended.SID); err != nil {
		return errors.Wrapf(err, "failed to delete empty %s", extended)
	}

	return nil
}

func executeWipe(g Graph, a Wipe) error {
	dev, err := findKind(g, a.SID, DeviceKind.IsDiskLike)
	if err != nil {
		return err
	}

	if err := g.RemoveDescendants(dev.SID); err != nil {
		return errors.Wrapf(err, "failed to wipe %s", dev)
	}

	return nil
}

func executeShrink(g Graph, a Shrink) error {
	dev, err := findKind(g, a.SID, isPartition)
	if err != nil {
		return err
	}

	info := g.ResizeInfo(dev.SID)
	if !info.ResizeOK {
		return errors.Wrapf(ErrResizeNotPossible, "%s", dev)
	}

	target := a.AdjustedTargetSize()
	if target < info.MinSize {
		target = info.MinSize
	}

	if target >= dev.Size {
		return nil
	}

	if err := g.Resize(dev.SID, target); err != nil {
		return errors.Wrapf(err, "failed to shrink %s to %s", dev, HumanSize(target))
	}

	return nil
}
