package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/analyzer"
	"machinerun.io/spacemaker/memgraph"
	"machinerun.io/spacemaker/partid"
)

//nolint:gochecknoglobals
var showCommand = cli.Command{
	Name:      "show",
	Usage:     "Show the disks of a json layout",
	ArgsUsage: "layout.json",
	Action:    layoutShow,
}

func layoutShow(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("need exactly one layout file")
	}

	g, err := memgraph.Load(c.Args().First())
	if err != nil {
		return err
	}

	showGraph(g, analyzer.New())

	return nil
}

func typeName(d spacemaker.Device) string {
	if s, ok := partid.Text[d.Type]; ok {
		return s
	}

	if !d.Type.IsZero() {
		return d.Type.String()
	}

	if d.MBRType != 0 {
		return fmt.Sprintf("0x%02x", byte(d.MBRType))
	}

	return ""
}

func contentOf(g spacemaker.Graph, sid spacemaker.SID) string {
	for _, h := range g.Holders(sid) {
		switch h.Kind {
		case spacemaker.FilesystemKind:
			return h.FSType
		case spacemaker.PartitionTableKind:
			return h.Label
		default:
			return h.Name
		}
	}

	return ""
}

func showGraph(g *memgraph.Graph, a *analyzer.Analyzer) {
	for _, d := range g.Disks() {
		fmt.Printf("%s %s free=%s %s\n", d.Name, spacemaker.HumanSize(d.Size),
			spacemaker.HumanSize(g.FreeSpace(d.SID)), contentOf(g, d.SID))

		parts := g.Partitions(d.SID)
		if len(parts) == 0 {
			continue
		}

		data := [][]string{{"Name", "Role", "Start", "Size", "Type", "Category", "Content", "Shrinkable"}}

		for _, p := range parts {
			data = append(data, []string{
				p.Name,
				p.PartitionType.String(),
				spacemaker.HumanSize(p.Start),
				spacemaker.HumanSize(p.Size),
				typeName(p),
				a.Category(g, p.SID).String(),
				contentOf(g, p.SID),
				spacemaker.HumanSize(a.RecoverableSize(g, p.SID)),
			})
		}

		printTextTable(data)
		fmt.Println()
	}
}
