package actions_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/actions"
	"machinerun.io/spacemaker/analyzer"
)

const configuredLayout = `{"disks": [
  {"name": "/dev/sda", "size": "200GiB", "label": "gpt",
   "partitions": [
     {"name": "/dev/sda1", "start": "1MiB", "size": "10GiB", "type": "Linux-FS", "filesystem": "ext4"},
     {"name": "/dev/sda2", "start": "11GiB", "size": "100GiB", "type": "MS-Basic-Data", "filesystem": "ntfs",
      "resize": {"min": "40GiB"}},
     {"name": "/dev/sda3", "start": "111GiB", "size": "20GiB", "type": "Linux-FS", "filesystem": "ext4"},
     {"name": "/dev/sda4", "start": "131GiB", "size": "20GiB", "type": "Linux-FS", "filesystem": "ext4"},
     {"name": "/dev/sda5", "start": "151GiB", "size": "20GiB", "type": "Linux-FS", "filesystem": "xfs",
      "resize": {"min": "5GiB"}}
   ]},
  {"name": "/dev/sdb", "size": "100GiB", "label": "msdos",
   "partitions": [
     {"name": "/dev/sdb1", "start": "1MiB", "size": "20GiB", "mbrType": 131, "filesystem": "ext4"},
     {"name": "/dev/sdb2", "start": "21GiB", "size": "60GiB", "mbrType": 15},
     {"name": "/dev/sdb5", "role": "logical", "start": "22GiB", "size": "20GiB", "mbrType": 131},
     {"name": "/dev/sdb6", "role": "logical", "start": "43GiB", "size": "30GiB", "mbrType": 131}
   ]},
  {"name": "/dev/sdc", "size": "50GiB", "filesystem": "ext4"}
]}`

func configuredSettings(actions ...spacemaker.DeviceAction) spacemaker.Settings {
	s := spacemaker.DefaultSettings()
	s.Strategy = spacemaker.ConfiguredStrategy
	s.Actions = actions

	return s
}

func TestConfiguredOrder(t *testing.T) {
	g := load(t, configuredLayout)
	sda, sdb, sdc := sid(t, g, "/dev/sda"), sid(t, g, "/dev/sdb"), sid(t, g, "/dev/sdc")

	settings := configuredSettings(
		spacemaker.DeviceAction{Device: "/dev/sda1", Action: spacemaker.ForceDelete},
		spacemaker.DeviceAction{Device: "/dev/sda2", Action: spacemaker.Resize, MinSize: spacemaker.Size(50 * gib)},
		spacemaker.DeviceAction{Device: "/dev/sda3", Action: spacemaker.DeleteDevice},
		spacemaker.DeviceAction{Device: "/dev/sda4", Action: spacemaker.Keep},
		spacemaker.DeviceAction{Device: "/dev/sda5", Action: spacemaker.Resize},
		spacemaker.DeviceAction{Device: "/dev/sdb2", Action: spacemaker.DeleteDevice},
		spacemaker.DeviceAction{Device: "/dev/sdc", Action: spacemaker.DeleteDevice},
	)

	l := newList(g, settings, actions.Context{}, sda, sdb, sdc)

	expected := []spacemaker.Action{
		spacemaker.Delete{SID: sid(t, g, "/dev/sda1")},
		spacemaker.Shrink{SID: sid(t, g, "/dev/sda2"), MinSize: 50 * gib, TargetSize: 40 * gib},
		spacemaker.Shrink{SID: sid(t, g, "/dev/sda5"), TargetSize: 5 * gib},
		spacemaker.Delete{SID: sid(t, g, "/dev/sda3")},
		spacemaker.Delete{SID: sid(t, g, "/dev/sdb2"), RelatedPartitions: true},
		spacemaker.Wipe{SID: sdc},
	}

	if diff := cmp.Diff(expected, drain(t, g, l)); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%s", diff)
	}

	d, _ := g.FindDevice(sid(t, g, "/dev/sda2"))
	assert.Equal(t, 50*gib, d.Size)
	assert.Len(t, g.Partitions(sdb), 1)
}

func TestConfiguredForceDelete(t *testing.T) {
	assert := assert.New(t)
	g := load(t, configuredLayout)
	sda, sda1 := sid(t, g, "/dev/sda"), sid(t, g, "/dev/sda1")

	s := actions.NewConfiguredStrategy(configuredSettings(
		spacemaker.DeviceAction{Device: "/dev/sda1", Action: spacemaker.ForceDelete},
	), analyzer.New())

	s.AddMandatoryActions(g, sda)
	assert.True(s.MandatoryPending())
	assert.Equal(spacemaker.Delete{SID: sda1}, s.Next())

	deleted, err := spacemaker.Execute(g, s.Next())
	assert.NoError(err)
	s.Done(deleted)

	assert.False(s.MandatoryPending())
	assert.Nil(s.Next())
}

func TestConfiguredForceDeleteDisk(t *testing.T) {
	assert := assert.New(t)
	g := load(t, configuredLayout)
	sdb, sdc := sid(t, g, "/dev/sdb"), sid(t, g, "/dev/sdc")

	settings := configuredSettings(
		spacemaker.DeviceAction{Device: "/dev/sdb", Action: spacemaker.ForceDelete},
		spacemaker.DeviceAction{Device: "/dev/sdb1", Action: spacemaker.ForceDelete},
		spacemaker.DeviceAction{Device: "/dev/sdc", Action: spacemaker.ForceDelete},
	)

	l := newList(g, settings, actions.Context{}, sdb, sdc)

	expected := []spacemaker.Action{spacemaker.Wipe{SID: sdb}, spacemaker.Wipe{SID: sdc}}
	if diff := cmp.Diff(expected, drain(t, g, l)); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%s", diff)
	}

	assert.False(g.HasPartitionTable(sdb))
}

func TestConfiguredLogical(t *testing.T) {
	g := load(t, configuredLayout)
	sdb := sid(t, g, "/dev/sdb")

	settings := configuredSettings(
		spacemaker.DeviceAction{Device: "/dev/sdb5", Action: spacemaker.DeleteDevice},
		spacemaker.DeviceAction{Device: "/dev/sdb6", Action: spacemaker.DeleteDevice},
	)

	l := newList(g, settings, actions.Context{}, sdb)

	expected := []spacemaker.Action{
		spacemaker.Delete{SID: sid(t, g, "/dev/sdb6")},
		spacemaker.Delete{SID: sid(t, g, "/dev/sdb5")},
	}

	if diff := cmp.Diff(expected, drain(t, g, l)); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%s", diff)
	}

	_, found := g.Lookup("/dev/sdb2")
	assert.False(t, found)
}

func TestConfiguredKeepAndResizeLimits(t *testing.T) {
	assert := assert.New(t)
	g := load(t, configuredLayout)
	sda := sid(t, g, "/dev/sda")

	settings := configuredSettings(
		spacemaker.DeviceAction{Device: "/dev/sda3", Action: spacemaker.DeleteDevice},
		spacemaker.DeviceAction{Device: "/dev/sda4", Action: spacemaker.Resize},
		spacemaker.DeviceAction{Device: "/dev/sda5", Action: spacemaker.Resize,
			MinSize: spacemaker.Size(8 * gib), MaxSize: spacemaker.Size(15 * gib)},
	)

	l := newList(g, settings, actions.Context{Keep: []spacemaker.SID{sid(t, g, "/dev/sda3")}}, sda)

	// sda3 is kept.
	shrink, ok := l.Next().(spacemaker.Shrink)
	assert.True(ok)
	assert.Equal(8*gib, shrink.AdjustedTargetSize())
	l.Done(nil)

	// sda4 cannot be resized, executing the shrink reports it.
	sda4 := sid(t, g, "/dev/sda4")
	next := l.Next()
	assert.Equal(spacemaker.Shrink{SID: sda4, TargetSize: 20 * gib}, next)

	_, err := spacemaker.Execute(g, next)
	assert.Equal(spacemaker.ErrResizeNotPossible, errors.Cause(err))

	l.Done(nil)
	assert.Nil(l.Next())
}

func TestConfiguredForceDeleteLogical(t *testing.T) {
	for _, extended := range []spacemaker.Disposition{spacemaker.DeleteDevice, spacemaker.Keep} {
		g := load(t, configuredLayout)
		sdb, sdb2, sdb6 := sid(t, g, "/dev/sdb"), sid(t, g, "/dev/sdb2"), sid(t, g, "/dev/sdb6")

		settings := configuredSettings(
			spacemaker.DeviceAction{Device: "/dev/sdb2", Action: extended},
			spacemaker.DeviceAction{Device: "/dev/sdb6", Action: spacemaker.ForceDelete},
		)

		s := actions.NewConfiguredStrategy(settings, analyzer.New())
		s.AddMandatoryActions(g, sdb)
		assert.True(t, s.MandatoryPending(), "extended %s", extended)

		s.AddOptionalActions(g, sdb, actions.Context{})

		expected := []spacemaker.Action{spacemaker.Delete{SID: sdb6}}
		if extended == spacemaker.DeleteDevice {
			expected = append(expected, spacemaker.Delete{SID: sdb2, RelatedPartitions: true})
		}

		if diff := cmp.Diff(expected, drain(t, g, s)); diff != "" {
			t.Errorf("unexpected actions with extended %s (-want +got):\n%s", extended, diff)
		}
	}
}

func TestConfiguredRecompute(t *testing.T) {
	assert := assert.New(t)
	g := load(t, configuredLayout)
	sda := sid(t, g, "/dev/sda")

	s := actions.NewConfiguredStrategy(configuredSettings(
		spacemaker.DeviceAction{Device: "/dev/sda3", Action: spacemaker.DeleteDevice},
		spacemaker.DeviceAction{Device: "/dev/sda4", Action: spacemaker.DeleteDevice},
	), analyzer.New())

	s.AddMandatoryActions(g, sda)
	s.AddOptionalActions(g, sda, actions.Context{})
	s.AddOptionalActions(g, sda, actions.Context{})

	expected := []spacemaker.Action{
		spacemaker.Delete{SID: sid(t, g, "/dev/sda4")},
		spacemaker.Delete{SID: sid(t, g, "/dev/sda3")},
	}

	if diff := cmp.Diff(expected, drain(t, g, s)); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%s", diff)
	}

	assert.Panics(func() { s.Done(nil) })
}
