package spacemaker

import (
	"fmt"
	"sort"

	"github.com/rekby/mbr"
)

// SID is the stable handle of a device inside one device graph. A SID is
// never reused while the graph that issued it exists, so it is safe to keep
// across graph mutations where device values are not.
type SID uint64

// SIDSet is a set of device handles.
type SIDSet map[SID]struct{}

// NewSIDSet returns a set holding sids.
func NewSIDSet(sids ...SID) SIDSet {
	set := SIDSet{}

	for _, s := range sids {
		set[s] = struct{}{}
	}

	return set
}

// Has returns true if sid is in the set.
func (s SIDSet) Has(sid SID) bool {
	_, ok := s[sid]
	return ok
}

// HasAny returns true if any of sids is in the set.
func (s SIDSet) HasAny(sids ...SID) bool {
	for _, sid := range sids {
		if s.Has(sid) {
			return true
		}
	}

	return false
}

// Sorted returns the members of the set in ascending order.
func (s SIDSet) Sorted() []SID {
	sids := make([]SID, 0, len(s))
	for sid := range s {
		sids = append(sids, sid)
	}

	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })

	return sids
}

// DeviceKind enumerates the kinds of nodes in the device graph.
type DeviceKind int

const (
	// DiskKind - a whole disk.
	DiskKind DeviceKind = iota

	// PartitionTableKind - the partition table written on a disk.
	PartitionTableKind

	// PartitionKind - a partition inside a partition table.
	PartitionKind

	// FilesystemKind - a filesystem on a block device.
	FilesystemKind

	// VGKind - an LVM volume group.
	VGKind

	// LVKind - an LVM logical volume.
	LVKind

	// RAIDKind - an MD RAID built from other block devices.
	RAIDKind
)

var kindNames = map[DeviceKind]string{
	DiskKind:           "disk",
	PartitionTableKind: "ptable",
	PartitionKind:      "partition",
	FilesystemKind:     "filesystem",
	VGKind:             "vg",
	LVKind:             "lv",
	RAIDKind:           "raid",
}

func (k DeviceKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("DeviceKind(%d)", int(k))
}

// IsDiskLike returns true for devices that can be wiped as a whole.
func (k DeviceKind) IsDiskLike() bool {
	return k == DiskKind || k == RAIDKind
}

// PartitionType is the role of a partition in its table.
type PartitionType int

const (
	// Primary - a regular partition.
	Primary PartitionType = iota

	// Extended - an msdos container partition for logical partitions.
	Extended

	// Logical - a partition inside an extended partition.
	Logical
)

func (t PartitionType) String() string {
	switch t {
	case Primary:
		return "primary"
	case Extended:
		return "extended"
	case Logical:
		return "logical"
	}

	return fmt.Sprintf("PartitionType(%d)", int(t))
}

// Device is a snapshot of one node of the device graph. Device values are
// not kept across graph mutations, only their SID.
type Device struct {
	// SID is the stable handle of the device.
	SID SID `json:"sid"`

	// Name is the device name, for block devices the path (/dev/sda1).
	Name string `json:"name"`

	// Kind is the kind of device.
	Kind DeviceKind `json:"kind"`

	// Disk is the disk that holds a partition table or partition.
	Disk SID `json:"disk,omitempty"`

	// PartitionType is only meaningful for partitions.
	PartitionType PartitionType `json:"partitionType,omitempty"`

	// Start is the offset in bytes of a partition on its disk.
	Start uint64 `json:"start,omitempty"`

	// Size is the size of the device in bytes.
	Size uint64 `json:"size"`

	// Type is the GPT partition type.
	Type GUID `json:"type"`

	// ID is the unique GPT partition id.
	ID GUID `json:"id"`

	// MBRType is the msdos partition type.
	MBRType mbr.PartitionType `json:"mbrType,omitempty"`

	// Label is the partition table type (gpt, msdos).
	Label string `json:"label,omitempty"`

	// FSType is the filesystem type (ext4, ntfs, swap...).
	FSType string `json:"fsType,omitempty"`
}

// Last returns the last byte of a partition.
func (d Device) Last() uint64 {
	return d.Start + d.Size - 1
}

func (d Device) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s(%s sid=%d)", d.Name, d.Kind, d.SID)
	}

	return fmt.Sprintf("%s(sid=%d)", d.Kind, d.SID)
}
