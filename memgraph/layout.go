package memgraph

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rekby/mbr"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/partid"
)

type resizeLayout struct {
	Min spacemaker.Size `json:"min"`
	Max spacemaker.Size `json:"max"`
}

type partLayout struct {
	Name       string          `json:"name"`
	Role       string          `json:"role"`
	Start      spacemaker.Size `json:"start"`
	Size       spacemaker.Size `json:"size"`
	Type       string          `json:"type"`
	ID         spacemaker.GUID `json:"id"`
	MBRType    uint8           `json:"mbrType"`
	Filesystem string          `json:"filesystem"`
	Resize     *resizeLayout   `json:"resize"`
}

type diskLayout struct {
	Name       string          `json:"name"`
	Size       spacemaker.Size `json:"size"`
	Label      string          `json:"label"`
	Filesystem string          `json:"filesystem"`
	Partitions []partLayout    `json:"partitions"`
}

type lvLayout struct {
	Name       string          `json:"name"`
	Size       spacemaker.Size `json:"size"`
	Filesystem string          `json:"filesystem"`
}

type vgLayout struct {
	Name string     `json:"name"`
	PVs  []string   `json:"pvs"`
	LVs  []lvLayout `json:"lvs"`
}

type raidLayout struct {
	Name       string   `json:"name"`
	Devices    []string `json:"devices"`
	Filesystem string   `json:"filesystem"`
}

// Layout is the json description of a device graph.
type Layout struct {
	Disks []diskLayout `json:"disks"`
	RAIDs []raidLayout `json:"raids"`
	VGs   []vgLayout   `json:"vgs"`
}

// Load reads a json layout file and builds the graph it describes.
func Load(file string) (*Graph, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read layout '%s'", file)
	}

	g, err := New(content)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load layout '%s'", file)
	}

	return g, nil
}

// MustLoad is Load that panics on error.
func MustLoad(file string) *Graph {
	g, err := Load(file)
	if err != nil {
		panic(err)
	}

	return g
}

// New builds a graph from json layout content.
func New(content []byte) (*Graph, error) {
	var l Layout

	if err := json.Unmarshal(content, &l); err != nil {
		return nil, err
	}

	return l.Build()
}

// Build creates the graph described by the layout.
func (l Layout) Build() (*Graph, error) {
	g := NewGraph()

	for _, d := range l.Disks {
		if err := g.buildDisk(d); err != nil {
			return nil, err
		}
	}

	for _, r := range l.RAIDs {
		members, err := g.lookupAll(r.Devices)
		if err != nil {
			return nil, errors.Wrapf(err, "raid %s", r.Name)
		}

		sid, err := g.AddRAID(r.Name, members...)
		if err != nil {
			return nil, err
		}

		if err := g.maybeFilesystem(sid, r.Filesystem); err != nil {
			return nil, err
		}
	}

	for _, v := range l.VGs {
		pvs, err := g.lookupAll(v.PVs)
		if err != nil {
			return nil, errors.Wrapf(err, "vg %s", v.Name)
		}

		vg, err := g.AddVG(v.Name, pvs...)
		if err != nil {
			return nil, err
		}

		for _, lv := range v.LVs {
			sid, err := g.AddLV(vg, lv.Name, lv.Size.Bytes())
			if err != nil {
				return nil, err
			}

			if err := g.maybeFilesystem(sid, lv.Filesystem); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func (g *Graph) buildDisk(d diskLayout) error {
	if d.Name == "" || d.Size == 0 {
		return errors.New("disks need a name and a size")
	}

	disk := g.AddDisk(d.Name, d.Size.Bytes())

	if d.Label == "" {
		if len(d.Partitions) != 0 {
			return errors.Errorf("disk %s has partitions but no label", d.Name)
		}

		return g.maybeFilesystem(disk, d.Filesystem)
	}

	if d.Filesystem != "" {
		return errors.Errorf("disk %s has a label and a filesystem", d.Name)
	}

	if _, err := g.AddPartitionTable(disk, d.Label); err != nil {
		return err
	}

	for _, p := range d.Partitions {
		part, err := toPartition(p)
		if err != nil {
			return errors.Wrapf(err, "partition %s", p.Name)
		}

		sid, err := g.AddPartition(disk, part)
		if err != nil {
			return err
		}

		if p.Resize != nil {
			info := spacemaker.ResizeInfo{
				ResizeOK: true,
				MinSize:  p.Resize.Min.Bytes(),
				MaxSize:  p.Resize.Max.Bytes(),
			}

			if err := g.SetResizeInfo(sid, info); err != nil {
				return err
			}
		}

		if err := g.maybeFilesystem(sid, p.Filesystem); err != nil {
			return err
		}
	}

	return nil
}

func toPartition(p partLayout) (Partition, error) {
	part := Partition{
		Name:  p.Name,
		Start: p.Start.Bytes(),
		Size:  p.Size.Bytes(),
		ID:    p.ID,
	}

	part.MBRType = mbr.PartitionType(p.MBRType)

	switch strings.ToLower(p.Role) {
	case "", "primary":
		part.Role = spacemaker.Primary
		if partid.IsExtendedMBR(part.MBRType) {
			part.Role = spacemaker.Extended
		}
	case "extended":
		part.Role = spacemaker.Extended
	case "logical":
		part.Role = spacemaker.Logical
	default:
		return part, errors.Errorf("unknown role '%s'", p.Role)
	}

	if p.Type == "" {
		return part, nil
	}

	if id, ok := partid.ByText(p.Type); ok {
		part.Type = id
		return part, nil
	}

	t, err := spacemaker.StringToGUID(p.Type)
	if err != nil {
		return part, errors.Wrapf(err, "bad partition type '%s'", p.Type)
	}

	part.Type = t

	return part, nil
}

func (g *Graph) maybeFilesystem(sid spacemaker.SID, fsType string) error {
	if fsType == "" {
		return nil
	}

	_, err := g.AddFilesystem(sid, fsType)

	return err
}

func (g *Graph) lookupAll(names []string) ([]spacemaker.SID, error) {
	sids := []spacemaker.SID{}

	for _, n := range names {
		d, ok := g.Lookup(n)
		if !ok {
			return nil, errors.Errorf("device %s not found", n)
		}

		sids = append(sids, d.SID)
	}

	return sids, nil
}
