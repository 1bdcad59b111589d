// Package analyzer classifies the existing devices of a graph for the space
// maker strategies.
package analyzer

import (
	"strconv"

	"github.com/patrickmn/go-cache"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/partid"
)

//nolint:gochecknoglobals
var linuxFilesystems = map[string]bool{
	"ext2":  true,
	"ext3":  true,
	"ext4":  true,
	"xfs":   true,
	"btrfs": true,
	"swap":  true,
	"jfs":   true,
	"f2fs":  true,
}

//nolint:gochecknoglobals
var windowsFilesystems = map[string]bool{
	"ntfs":  true,
	"vfat":  true,
	"exfat": true,
}

// Analyzer is the disk analyzer. Categories are cached per sid of a single
// graph, call Forget before looking at another graph or after the content
// of a device changed.
type Analyzer struct {
	categories *cache.Cache
}

// New returns an Analyzer with an empty cache.
func New() *Analyzer {
	return &Analyzer{
		categories: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func cacheKey(sid spacemaker.SID) string {
	return strconv.FormatUint(uint64(sid), 10)
}

// Category returns the category of the device. Partitions are classified by
// their type and content, unpartitioned disks by their content only.
func (a *Analyzer) Category(g spacemaker.Graph, sid spacemaker.SID) spacemaker.Category {
	key := cacheKey(sid)

	if cached, found := a.categories.Get(key); found {
		return cached.(spacemaker.Category)
	}

	c := classify(g, sid)
	a.categories.Set(key, c, cache.NoExpiration)

	return c
}

// RecoverableSize returns how many bytes a shrink of the device frees. It
// is zero for devices that cannot be resized.
func (a *Analyzer) RecoverableSize(g spacemaker.Graph, sid spacemaker.SID) uint64 {
	dev, ok := g.FindDevice(sid)
	if !ok {
		return 0
	}

	info := g.ResizeInfo(sid)
	if !info.ResizeOK || info.MinSize >= dev.Size {
		return 0
	}

	return dev.Size - info.MinSize
}

// WindowsPartitions returns the partitions of the disk holding Windows.
func (a *Analyzer) WindowsPartitions(g spacemaker.Graph, disk spacemaker.SID) []spacemaker.Device {
	return a.partitionsOf(g, disk, spacemaker.WindowsCategory)
}

// LinuxPartitions returns the Linux partitions of the disk.
func (a *Analyzer) LinuxPartitions(g spacemaker.Graph, disk spacemaker.SID) []spacemaker.Device {
	return a.partitionsOf(g, disk, spacemaker.LinuxCategory)
}

func (a *Analyzer) partitionsOf(g spacemaker.Graph, disk spacemaker.SID,
	c spacemaker.Category) []spacemaker.Device {
	return spacemaker.FilterDevices(g.Partitions(disk), func(p spacemaker.Device) bool {
		return a.Category(g, p.SID) == c
	})
}

// Forget drops the cached classification of every device.
func (a *Analyzer) Forget() {
	a.categories.Flush()
}

func typeID(dev spacemaker.Device) ([16]byte, bool) {
	if !dev.Type.IsZero() {
		return dev.Type, true
	}

	return partid.FromMBR(dev.MBRType)
}

func classify(g spacemaker.Graph, sid spacemaker.SID) spacemaker.Category {
	dev, ok := g.FindDevice(sid)
	if !ok {
		return spacemaker.OtherCategory
	}

	content := contentCategory(g, sid)

	if dev.Kind != spacemaker.PartitionKind {
		return content
	}

	id, known := typeID(dev)

	switch {
	case known && partid.IsWindows(id) && content == spacemaker.WindowsCategory:
		return spacemaker.WindowsCategory
	case known && partid.IsLinux(id):
		return spacemaker.LinuxCategory
	case content == spacemaker.LinuxCategory:
		return spacemaker.LinuxCategory
	}

	return spacemaker.OtherCategory
}

// contentCategory looks at what is built directly on the device.
func contentCategory(g spacemaker.Graph, sid spacemaker.SID) spacemaker.Category {
	for _, h := range g.Holders(sid) {
		switch h.Kind {
		case spacemaker.VGKind, spacemaker.RAIDKind:
			return spacemaker.LinuxCategory
		case spacemaker.FilesystemKind:
			if linuxFilesystems[h.FSType] {
				return spacemaker.LinuxCategory
			}

			if windowsFilesystems[h.FSType] {
				return spacemaker.WindowsCategory
			}
		}
	}

	return spacemaker.OtherCategory
}
