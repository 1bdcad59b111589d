package spacemaker

// ResizeInfo describes how far a device can be resized.
type ResizeInfo struct {
	// ResizeOK is false when the device cannot be resized at all.
	ResizeOK bool `json:"resizeOk"`

	// MinSize is the smallest size the device can be shrunk to.
	MinSize uint64 `json:"minSize"`

	// MaxSize is the largest size the device can grow to, 0 if unknown.
	MaxSize uint64 `json:"maxSize"`
}

// Graph is the device graph the planner works against. All devices are
// addressed by SID, lookups return snapshots.
type Graph interface {
	// FindDevice returns the device with the given sid.
	FindDevice(sid SID) (Device, bool)

	// SIDs returns the sids of every device in the graph.
	SIDs() []SID

	// Partitions returns the partitions on the disk sorted by start offset,
	// logical partitions included.
	Partitions(disk SID) []Device

	// HasPartitionTable returns true if the disk holds a partition table.
	HasPartitionTable(disk SID) bool

	// Holders returns the devices built directly on sid.
	Holders(sid SID) []Device

	// Descendants returns the sids of every device built on sid, directly or
	// indirectly.
	Descendants(sid SID) []SID

	// FreeSpace returns the unused bytes on the disk that a new partition
	// could be created in.
	FreeSpace(disk SID) uint64

	// ResizeInfo returns the resize limits of a device.
	ResizeInfo(sid SID) ResizeInfo

	// DeletePartition removes a partition and everything built on it.
	DeletePartition(sid SID) error

	// RemoveDescendants removes everything built on sid but not sid itself.
	RemoveDescendants(sid SID) error

	// Resize sets the size of a partition. No alignment is applied.
	Resize(sid SID, size uint64) error
}

// Filter is a filter function that returns true if the matching device is
// accepted, false otherwise.
type Filter func(Device) bool

// FilterDevices returns the devices accepted by filter.
func FilterDevices(devs []Device, filter Filter) []Device {
	found := []Device{}

	for _, d := range devs {
		if filter(d) {
			found = append(found, d)
		}
	}

	return found
}

// VGsOn returns the volume groups built directly on sid.
func VGsOn(g Graph, sid SID) []Device {
	return FilterDevices(g.Holders(sid), func(d Device) bool { return d.Kind == VGKind })
}
