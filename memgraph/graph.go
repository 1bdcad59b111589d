// Package memgraph is an in-memory implementation of spacemaker.Graph. It
// backs the tests and the demo, and can be loaded from a json layout.
package memgraph

import (
	"fmt"
	"path"
	"sort"

	"github.com/pkg/errors"
	"github.com/rekby/mbr"
	"machinerun.io/spacemaker"
)

type node struct {
	dev     spacemaker.Device
	parents []spacemaker.SID
	resize  spacemaker.ResizeInfo
}

// Graph is an in-memory device graph. Removing a device removes every
// device built on it, so a volume group goes away with any of its physical
// volumes.
type Graph struct {
	last  spacemaker.SID
	nodes map[spacemaker.SID]*node
}

// Partition describes a partition to add to a disk.
type Partition struct {
	Name    string
	Role    spacemaker.PartitionType
	Start   uint64
	Size    uint64
	Type    spacemaker.GUID
	ID      spacemaker.GUID
	MBRType mbr.PartitionType
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: map[spacemaker.SID]*node{}}
}

func (g *Graph) add(dev spacemaker.Device, parents ...spacemaker.SID) spacemaker.SID {
	g.last++
	dev.SID = g.last
	g.nodes[dev.SID] = &node{dev: dev, parents: parents}

	return dev.SID
}

func (g *Graph) get(sid spacemaker.SID, kinds ...spacemaker.DeviceKind) (*node, error) {
	n, ok := g.nodes[sid]
	if !ok {
		return nil, errors.Wrapf(spacemaker.ErrDeviceNotFound, "sid %d", sid)
	}

	if len(kinds) == 0 {
		return n, nil
	}

	for _, k := range kinds {
		if n.dev.Kind == k {
			return n, nil
		}
	}

	return nil, errors.Wrapf(spacemaker.ErrWrongKind, "%s", n.dev)
}

// AddDisk adds an empty disk.
func (g *Graph) AddDisk(name string, size uint64) spacemaker.SID {
	return g.add(spacemaker.Device{Name: name, Kind: spacemaker.DiskKind, Size: size})
}

// AddPartitionTable writes a partition table of the given label (gpt or
// msdos) on an empty disk.
func (g *Graph) AddPartitionTable(disk spacemaker.SID, label string) (spacemaker.SID, error) {
	d, err := g.get(disk, spacemaker.DiskKind)
	if err != nil {
		return 0, err
	}

	if label != "gpt" && label != "msdos" {
		return 0, errors.Errorf("unknown partition table type '%s'", label)
	}

	if len(g.Holders(disk)) != 0 {
		return 0, errors.Errorf("disk %s is in use", d.dev.Name)
	}

	return g.add(spacemaker.Device{
		Name:  d.dev.Name,
		Kind:  spacemaker.PartitionTableKind,
		Disk:  disk,
		Label: label,
		Size:  d.dev.Size,
	}, disk), nil
}

func (g *Graph) partitionTable(disk spacemaker.SID) (*node, bool) {
	for _, h := range g.Holders(disk) {
		if h.Kind == spacemaker.PartitionTableKind {
			return g.nodes[h.SID], true
		}
	}

	return nil, false
}

func overlaps(aStart, aSize, bStart, bSize uint64) bool {
	return aStart < bStart+bSize && bStart < aStart+aSize
}

// AddPartition adds a partition to the partition table of disk. Logical
// partitions must fit inside the extended partition.
func (g *Graph) AddPartition(disk spacemaker.SID, p Partition) (spacemaker.SID, error) {
	d, err := g.get(disk, spacemaker.DiskKind)
	if err != nil {
		return 0, err
	}

	pt, ok := g.partitionTable(disk)
	if !ok {
		return 0, errors.Errorf("disk %s has no partition table", d.dev.Name)
	}

	if p.Size == 0 || p.Start+p.Size > d.dev.Size {
		return 0, errors.Errorf("partition %s does not fit on %s", p.Name, d.dev.Name)
	}

	if p.Role != spacemaker.Primary && pt.dev.Label != "msdos" {
		return 0, errors.Errorf("%s partition %s needs an msdos table", p.Role, p.Name)
	}

	parent := pt.dev.SID
	existing := g.Partitions(disk)

	if p.Role == spacemaker.Logical {
		ext, found := findExtended(existing)
		if !found || p.Start < ext.Start || p.Start+p.Size > ext.Start+ext.Size {
			return 0, errors.Errorf("logical partition %s is outside an extended partition", p.Name)
		}

		parent = ext.SID
	}

	for _, e := range existing {
		if (e.PartitionType == spacemaker.Logical) != (p.Role == spacemaker.Logical) {
			continue
		}

		if overlaps(p.Start, p.Size, e.Start, e.Size) {
			return 0, errors.Errorf("partition %s overlaps %s", p.Name, e.Name)
		}

		if p.Role == spacemaker.Extended && e.PartitionType == spacemaker.Extended {
			return 0, errors.Errorf("disk %s already has an extended partition", d.dev.Name)
		}
	}

	if p.Name == "" {
		p.Name = fmt.Sprintf("%s%d", d.dev.Name, len(existing)+1)
	}

	if p.ID.IsZero() {
		p.ID = spacemaker.GenGUID()
	}

	return g.add(spacemaker.Device{
		Name:          p.Name,
		Kind:          spacemaker.PartitionKind,
		Disk:          disk,
		PartitionType: p.Role,
		Start:         p.Start,
		Size:          p.Size,
		Type:          p.Type,
		ID:            p.ID,
		MBRType:       p.MBRType,
	}, parent), nil
}

func findExtended(parts []spacemaker.Device) (spacemaker.Device, bool) {
	for _, p := range parts {
		if p.PartitionType == spacemaker.Extended {
			return p, true
		}
	}

	return spacemaker.Device{}, false
}

// AddFilesystem creates a filesystem on a block device.
func (g *Graph) AddFilesystem(on spacemaker.SID, fsType string) (spacemaker.SID, error) {
	n, err := g.get(on, spacemaker.DiskKind, spacemaker.PartitionKind,
		spacemaker.LVKind, spacemaker.RAIDKind)
	if err != nil {
		return 0, err
	}

	if len(g.Holders(on)) != 0 {
		return 0, errors.Errorf("%s is in use", n.dev.Name)
	}

	return g.add(spacemaker.Device{
		Name:   n.dev.Name,
		Kind:   spacemaker.FilesystemKind,
		Size:   n.dev.Size,
		FSType: fsType,
	}, on), nil
}

// AddVG creates a volume group on the given physical volumes.
func (g *Graph) AddVG(name string, pvs ...spacemaker.SID) (spacemaker.SID, error) {
	if len(pvs) == 0 {
		return 0, errors.Errorf("vg %s needs at least one pv", name)
	}

	size := uint64(0)

	for _, pv := range pvs {
		n, err := g.get(pv, spacemaker.DiskKind, spacemaker.PartitionKind, spacemaker.RAIDKind)
		if err != nil {
			return 0, err
		}

		if len(g.Holders(pv)) != 0 {
			return 0, errors.Errorf("pv %s already in use", n.dev.Name)
		}

		size += n.dev.Size
	}

	return g.add(spacemaker.Device{
		Name: path.Join("/dev", name),
		Kind: spacemaker.VGKind,
		Size: size,
	}, pvs...), nil
}

// AddLV creates a logical volume in a volume group.
func (g *Graph) AddLV(vg spacemaker.SID, name string, size uint64) (spacemaker.SID, error) {
	n, err := g.get(vg, spacemaker.VGKind)
	if err != nil {
		return 0, err
	}

	used := uint64(0)
	for _, lv := range g.Holders(vg) {
		used += lv.Size
	}

	if used+size > n.dev.Size {
		return 0, errors.Errorf("vg %s does not have enough space", n.dev.Name)
	}

	return g.add(spacemaker.Device{
		Name: path.Join(n.dev.Name, name),
		Kind: spacemaker.LVKind,
		Size: size,
	}, vg), nil
}

// AddRAID creates an MD RAID over the member devices.
func (g *Graph) AddRAID(name string, members ...spacemaker.SID) (spacemaker.SID, error) {
	if len(members) < 2 {
		return 0, errors.Errorf("raid %s needs at least two members", name)
	}

	size := uint64(0)

	for _, m := range members {
		n, err := g.get(m, spacemaker.DiskKind, spacemaker.PartitionKind)
		if err != nil {
			return 0, err
		}

		if len(g.Holders(m)) != 0 {
			return 0, errors.Errorf("raid member %s already in use", n.dev.Name)
		}

		if size == 0 || n.dev.Size < size {
			size = n.dev.Size
		}
	}

	return g.add(spacemaker.Device{
		Name: name,
		Kind: spacemaker.RAIDKind,
		Size: size,
	}, members...), nil
}

// SetResizeInfo sets the resize limits of a device.
func (g *Graph) SetResizeInfo(sid spacemaker.SID, info spacemaker.ResizeInfo) error {
	n, err := g.get(sid)
	if err != nil {
		return err
	}

	n.resize = info

	return nil
}

// Lookup returns the block device with the given name. Filesystems and
// partition tables share the name of their device and are skipped.
func (g *Graph) Lookup(name string) (spacemaker.Device, bool) {
	for _, sid := range g.SIDs() {
		d := g.nodes[sid].dev
		if d.Name != name {
			continue
		}

		if d.Kind == spacemaker.FilesystemKind || d.Kind == spacemaker.PartitionTableKind {
			continue
		}

		return d, true
	}

	return spacemaker.Device{}, false
}

// Disks returns every disk of the graph in sid order.
func (g *Graph) Disks() []spacemaker.Device {
	disks := []spacemaker.Device{}

	for _, sid := range g.SIDs() {
		if d := g.nodes[sid].dev; d.Kind == spacemaker.DiskKind {
			disks = append(disks, d)
		}
	}

	return disks
}

// FindDevice returns the device with the given sid.
func (g *Graph) FindDevice(sid spacemaker.SID) (spacemaker.Device, bool) {
	n, ok := g.nodes[sid]
	if !ok {
		return spacemaker.Device{}, false
	}

	return n.dev, true
}

// SIDs returns every sid in ascending order.
func (g *Graph) SIDs() []spacemaker.SID {
	sids := make([]spacemaker.SID, 0, len(g.nodes))
	for sid := range g.nodes {
		sids = append(sids, sid)
	}

	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })

	return sids
}

// Partitions returns the partitions of a disk sorted by start.
func (g *Graph) Partitions(disk spacemaker.SID) []spacemaker.Device {
	parts := []spacemaker.Device{}

	for _, n := range g.nodes {
		if n.dev.Kind == spacemaker.PartitionKind && n.dev.Disk == disk {
			parts = append(parts, n.dev)
		}
	}

	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Start != parts[j].Start {
			return parts[i].Start < parts[j].Start
		}

		return parts[i].SID < parts[j].SID
	})

	return parts
}

// HasPartitionTable returns true if the disk holds a partition table.
func (g *Graph) HasPartitionTable(disk spacemaker.SID) bool {
	_, ok := g.partitionTable(disk)
	return ok
}

// Holders returns the devices built directly on sid, in sid order.
func (g *Graph) Holders(sid spacemaker.SID) []spacemaker.Device {
	holders := []spacemaker.Device{}

	for _, hsid := range g.SIDs() {
		n := g.nodes[hsid]
		for _, p := range n.parents {
			if p == sid {
				holders = append(holders, n.dev)
				break
			}
		}
	}

	return holders
}

// Descendants returns every device built on sid, directly or not.
func (g *Graph) Descendants(sid spacemaker.SID) []spacemaker.SID {
	found := spacemaker.SIDSet{}
	todo := []spacemaker.SID{sid}

	for len(todo) > 0 {
		cur := todo[0]
		todo = todo[1:]

		for _, h := range g.Holders(cur) {
			if !found.Has(h.SID) {
				found[h.SID] = struct{}{}
				todo = append(todo, h.SID)
			}
		}
	}

	return found.Sorted()
}

// FreeSpace returns the unpartitioned bytes of a disk. An empty disk is
// free as a whole, a disk used directly by a filesystem or pv has none.
func (g *Graph) FreeSpace(disk spacemaker.SID) uint64 {
	n, ok := g.nodes[disk]
	if !ok {
		return 0
	}

	used := []spacemaker.Range{}

	if len(g.Holders(disk)) != 0 {
		if !g.HasPartitionTable(disk) {
			return 0
		}

		for _, p := range g.Partitions(disk) {
			if p.PartitionType != spacemaker.Logical {
				used = append(used, spacemaker.Range{Start: p.Start, End: p.Last()})
			}
		}
	}

	free := uint64(0)
	for _, gap := range spacemaker.UsableGaps(used, n.dev.Size, spacemaker.Mebibyte) {
		free += gap.Size()
	}

	return free
}

// ResizeInfo returns the resize limits of the device. Devices without
// limits set cannot be resized.
func (g *Graph) ResizeInfo(sid spacemaker.SID) spacemaker.ResizeInfo {
	if n, ok := g.nodes[sid]; ok {
		return n.resize
	}

	return spacemaker.ResizeInfo{}
}

func (g *Graph) remove(sid spacemaker.SID) {
	for _, d := range g.Descendants(sid) {
		delete(g.nodes, d)
	}

	delete(g.nodes, sid)
}

// DeletePartition removes a partition and everything built on it.
func (g *Graph) DeletePartition(sid spacemaker.SID) error {
	if _, err := g.get(sid, spacemaker.PartitionKind); err != nil {
		return err
	}

	g.remove(sid)

	return nil
}

// RemoveDescendants removes everything built on sid.
func (g *Graph) RemoveDescendants(sid spacemaker.SID) error {
	if _, err := g.get(sid); err != nil {
		return err
	}

	for _, d := range g.Descendants(sid) {
		delete(g.nodes, d)
	}

	return nil
}

// Resize changes the size of a partition within its resize limits. The
// size is used as is, without alignment.
func (g *Graph) Resize(sid spacemaker.SID, size uint64) error {
	n, err := g.get(sid, spacemaker.PartitionKind)
	if err != nil {
		return err
	}

	if !n.resize.ResizeOK {
		return errors.Wrapf(spacemaker.ErrResizeNotPossible, "%s", n.dev)
	}

	if size == 0 || size < n.resize.MinSize {
		return errors.Errorf("%s cannot be resized below %s",
			n.dev.Name, spacemaker.HumanSize(n.resize.MinSize))
	}

	if n.resize.MaxSize != 0 && size > n.resize.MaxSize {
		return errors.Errorf("%s cannot be resized above %s",
			n.dev.Name, spacemaker.HumanSize(n.resize.MaxSize))
	}

	if size > n.dev.Size {
		for _, p := range g.Partitions(n.dev.Disk) {
			if p.SID == sid || (p.PartitionType == spacemaker.Logical) != (n.dev.PartitionType == spacemaker.Logical) {
				continue
			}

			if overlaps(n.dev.Start, size, p.Start, p.Size) {
				return errors.Errorf("%s cannot grow into %s", n.dev.Name, p.Name)
			}
		}
	}

	n.dev.Size = size

	for _, h := range g.Holders(sid) {
		if h.Kind == spacemaker.FilesystemKind {
			g.nodes[h.SID].dev.Size = size
		}
	}

	return nil
}
