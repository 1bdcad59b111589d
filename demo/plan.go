package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/actions"
	"machinerun.io/spacemaker/analyzer"
	"machinerun.io/spacemaker/maker"
	"machinerun.io/spacemaker/memgraph"
)

//nolint:gochecknoglobals
var planCommand = cli.Command{
	Name:  "plan",
	Usage: "Make space on a layout and show what was done",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "layout",
			Usage:    "json layout of the existing devices",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "settings",
			Usage: "yaml settings, defaults when empty",
		},
		&cli.StringFlag{
			Name:  "need",
			Usage: "space to make",
			Value: "20GiB",
		},
		&cli.StringSliceFlag{
			Name:  "disk",
			Usage: "candidate disk, all disks when not given",
		},
		&cli.StringSliceFlag{
			Name:  "keep",
			Usage: "device reused by the proposal",
		},
		&cli.StringFlag{
			Name:  "reuse-vg",
			Usage: "volume group reused by the proposal",
		},
	},
	Action: layoutPlan,
}

func loadSettings(path string) (spacemaker.Settings, error) {
	if path == "" {
		return spacemaker.DefaultSettings(), nil
	}

	return spacemaker.LoadSettings(path)
}

func lookupSIDs(g *memgraph.Graph, names []string) ([]spacemaker.SID, error) {
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

func planRequest(c *cli.Context, g *memgraph.Graph) (maker.Request, error) {
	var req maker.Request

	need, err := spacemaker.ParseSize(c.String("need"))
	if err != nil {
		return req, err
	}

	req.NeededSize = need.Bytes()

	if len(c.StringSlice("disk")) == 0 {
		for _, d := range g.Disks() {
			req.Disks = append(req.Disks, d.SID)
		}
	} else if req.Disks, err = lookupSIDs(g, c.StringSlice("disk")); err != nil {
		return req, err
	}

	if req.Keep, err = lookupSIDs(g, c.StringSlice("keep")); err != nil {
		return req, err
	}

	if vg := c.String("reuse-vg"); vg != "" {
		sids, err := lookupSIDs(g, []string{vg})
		if err != nil {
			return req, err
		}

		req.LVM = &actions.LVMHint{ReusedVG: sids[0]}
	}

	return req, nil
}

func describe(g spacemaker.Graph, names map[spacemaker.SID]string, a spacemaker.Action) []string {
	name := names[a.Target()]

	switch act := a.(type) {
	case spacemaker.Delete:
		if act.RelatedPartitions {
			return []string{"delete", name, "with logical partitions"}
		}

		return []string{"delete", name, ""}
	case spacemaker.Wipe:
		return []string{"wipe", name, ""}
	case spacemaker.Shrink:
		if d, ok := g.FindDevice(act.SID); ok {
			return []string{"shrink", name, "to " + spacemaker.HumanSize(d.Size)}
		}

		return []string{"shrink", name, ""}
	}

	return []string{a.String(), name, ""}
}

func layoutPlan(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	settings, err := loadSettings(c.String("settings"))
	if err != nil {
		return err
	}

	g, err := memgraph.Load(c.String("layout"))
	if err != nil {
		return err
	}

	req, err := planRequest(c, g)
	if err != nil {
		return err
	}

	names := map[spacemaker.SID]string{}
	for _, sid := range g.SIDs() {
		d, _ := g.FindDevice(sid)
		names[sid] = d.Name
	}

	a := analyzer.New()
	result, err := maker.New(settings, a, log).ProvideSpace(g, req)

	if len(result.Executed) != 0 {
		data := [][]string{{"Action", "Device", "Detail"}}
		for _, act := range result.Executed {
			data = append(data, describe(g, names, act))
		}

		printTextTable(data)
		fmt.Println()
	}

	fmt.Printf("free: %s of %s needed\n\n",
		spacemaker.HumanSize(result.FreeSpace), spacemaker.HumanSize(req.NeededSize))

	showGraph(g, a)

	return err
}
