package spacemaker

import "fmt"

// Action is one space making operation against a single device. The set of
// actions is closed: Delete, Wipe and Shrink.
type Action interface {
	// Target returns the sid of the device the action operates on.
	Target() SID

	fmt.Stringer

	isAction()
}

// Delete removes a partition from its partition table.
type Delete struct {
	SID SID

	// RelatedPartitions also removes the logical siblings of a logical
	// partition, or the logical partitions of an extended one.
	RelatedPartitions bool
}

// Target returns the partition to delete.
func (a Delete) Target() SID { return a.SID }

func (a Delete) String() string {
	if a.RelatedPartitions {
		return fmt.Sprintf("Delete(sid=%d, related)", a.SID)
	}

	return fmt.Sprintf("Delete(sid=%d)", a.SID)
}

func (Delete) isAction() {}

// Wipe removes everything built on a disk-like device, leaving the device
// itself in place.
type Wipe struct {
	SID SID
}

// Target returns the device to wipe.
func (a Wipe) Target() SID { return a.SID }

func (a Wipe) String() string {
	return fmt.Sprintf("Wipe(sid=%d)", a.SID)
}

func (Wipe) isAction() {}

// Shrink reduces the size of a partition. MinSize and MaxSize are optional
// limits set by the user, zero means unset.
type Shrink struct {
	SID        SID
	MinSize    uint64
	MaxSize    uint64
	TargetSize uint64
}

// Target returns the partition to shrink.
func (a Shrink) Target() SID { return a.SID }

func (a Shrink) String() string {
	return fmt.Sprintf("Shrink(sid=%d, target=%s)", a.SID, HumanSize(a.AdjustedTargetSize()))
}

func (Shrink) isAction() {}

// AdjustedTargetSize returns TargetSize clamped to MinSize and MaxSize. The
// floor wins when both limits would be violated.
func (a Shrink) AdjustedTargetSize() uint64 {
	if a.MinSize != 0 && a.TargetSize < a.MinSize {
		return a.MinSize
	}

	if a.MaxSize != 0 && a.TargetSize > a.MaxSize {
		return a.MaxSize
	}

	return a.TargetSize
}

// ForMissing returns a copy whose target only reclaims missing bytes out of
// a partition currently of size current. The target never drops below the
// one already set.
func (a Shrink) ForMissing(current, missing uint64) Shrink {
	if missing >= current {
		return a
	}

	if wanted := current - missing; wanted > a.TargetSize {
		a.TargetSize = wanted
	}

	return a
}
