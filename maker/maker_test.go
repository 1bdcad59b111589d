package maker_test

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"machinerun.io/spacemaker"
	"machinerun.io/spacemaker/actions"
	"machinerun.io/spacemaker/analyzer"
	"machinerun.io/spacemaker/maker"
	"machinerun.io/spacemaker/memgraph"
)

const (
	mib = spacemaker.Mebibyte
	gib = spacemaker.Gibibyte
)

const layout = `{"disks": [
  {"name": "/dev/sda", "size": "100GiB", "label": "gpt",
   "partitions": [
     {"name": "/dev/sda1", "start": "1MiB", "size": "60GiB", "type": "MS-Basic-Data", "filesystem": "ntfs",
      "resize": {"min": "20GiB"}},
     {"name": "/dev/sda2", "start": "61GiB", "size": "30GiB", "type": "Linux-FS", "filesystem": "ext4"},
     {"name": "/dev/sda3", "start": "91GiB", "size": "9GiB", "type": "Linux-FS", "filesystem": "swap"}
   ]},
  {"name": "/dev/sdb", "size": "50GiB", "label": "gpt",
   "partitions": [
     {"name": "/dev/sdb1", "start": "1MiB", "size": "20GiB", "type": "LVM"},
     {"name": "/dev/sdb2", "start": "21GiB", "size": "10GiB", "type": "LVM"}
   ]}
],
"vgs": [{"name": "data", "pvs": ["/dev/sdb1", "/dev/sdb2"],
         "lvs": [{"name": "home", "size": "25GiB", "filesystem": "ext4"}]}]}`

func load(t *testing.T) *memgraph.Graph {
	t.Helper()

	g, err := memgraph.New([]byte(layout))
	if err != nil {
		t.Fatalf("bad layout: %s", err)
	}

	return g
}

func sid(g *memgraph.Graph, name string) spacemaker.SID {
	d, _ := g.Lookup(name)
	return d.SID
}

func TestProvideSpaceStopsWhenEnough(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sda := sid(g, "/dev/sda")

	m := maker.New(spacemaker.DefaultSettings(), analyzer.New(), zaptest.NewLogger(t))

	result, err := m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{sda}, NeededSize: 10 * gib})
	assert.NoError(err)

	// shrinking windows is enough, it is not deleted.
	assert.Equal([]spacemaker.Action{
		spacemaker.Shrink{SID: sid(g, "/dev/sda1"), TargetSize: 50*gib + 1023*mib},
	}, result.Executed)
	assert.Equal(10*gib, result.FreeSpace)
	assert.Equal(result.FreeSpace, g.FreeSpace(sda))

	for _, name := range []string{"/dev/sda1", "/dev/sda2", "/dev/sda3"} {
		_, found := g.Lookup(name)
		assert.True(found, name)
	}
}

func TestProvideSpaceShrinksOnlyWhatIsMissing(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sda, sda1 := sid(g, "/dev/sda"), sid(g, "/dev/sda1")

	settings := spacemaker.DefaultSettings()
	settings.WindowsDeleteMode = spacemaker.DeleteNone
	settings.LinuxDeleteMode = spacemaker.DeleteNone

	m := maker.New(settings, analyzer.New(), nil)

	result, err := m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{sda}, NeededSize: 15 * gib})
	assert.NoError(err)
	assert.Len(result.Executed, 1)
	assert.Empty(result.Deleted)

	// the gap in front of sda2 was already free.
	d, _ := g.FindDevice(sda1)
	assert.Equal(45*gib+1023*mib, d.Size)
	assert.Equal(15*gib, result.FreeSpace)
}

func TestProvideSpaceMandatory(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sda := sid(g, "/dev/sda")

	settings := spacemaker.DefaultSettings()
	settings.LinuxDeleteMode = spacemaker.DeleteAll

	core, logs := observer.New(zapcore.InfoLevel)
	m := maker.New(settings, analyzer.New(), zap.New(core))

	result, err := m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{sda}, NeededSize: gib})
	assert.NoError(err)

	// both Linux partitions go even though a single one would be enough.
	assert.Equal([]spacemaker.Action{
		spacemaker.Delete{SID: sid(g, "/dev/sda3")},
		spacemaker.Delete{SID: sid(g, "/dev/sda2")},
	}, result.Executed)

	assert.Equal(2, logs.FilterMessage("executed").Len())
	assert.Equal(1, logs.FilterMessage("space made").Len())
}

func TestProvideSpaceReseeds(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sdb, sdb1, sdb2 := sid(g, "/dev/sdb"), sid(g, "/dev/sdb1"), sid(g, "/dev/sdb2")

	m := maker.New(spacemaker.DefaultSettings(), analyzer.New(), zaptest.NewLogger(t))

	result, err := m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{sdb}, NeededSize: 40 * gib})
	assert.NoError(err)

	// deleting sdb1 takes the volume group down and drops the pv prospect
	// of sdb2, which comes back as a plain partition.
	assert.Equal([]spacemaker.Action{
		spacemaker.Delete{SID: sdb1},
		spacemaker.Delete{SID: sdb2},
	}, result.Executed)
	assert.Contains(result.Deleted, sid(g, "/dev/data"))
	assert.Equal(50*gib-mib, result.FreeSpace)
}

func TestProvideSpaceKeep(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sdb := sid(g, "/dev/sdb")

	m := maker.New(spacemaker.DefaultSettings(), analyzer.New(), zaptest.NewLogger(t))

	result, err := m.ProvideSpace(g, maker.Request{
		Disks:      []spacemaker.SID{sdb},
		NeededSize: 40 * gib,
		LVM:        &actions.LVMHint{ReusedVG: sid(g, "/dev/data")},
	})

	assert.Equal(maker.ErrNotEnoughSpace, errors.Cause(err))
	assert.Empty(result.Executed)
	assert.Equal(20*gib-mib, result.FreeSpace)
}

func TestProvideSpaceNotEnough(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sda, sdb, sda1 := sid(g, "/dev/sda"), sid(g, "/dev/sdb"), sid(g, "/dev/sda1")

	core, logs := observer.New(zapcore.WarnLevel)
	m := maker.New(spacemaker.DefaultSettings(), analyzer.New(), zap.New(core))

	result, err := m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{sda, sdb}, NeededSize: 500 * gib})
	assert.Equal(maker.ErrNotEnoughSpace, errors.Cause(err))

	// windows is shrunk first, then deleted.
	assert.Len(result.Executed, 6)
	assert.Equal(spacemaker.Shrink{SID: sda1, TargetSize: 20 * gib}, result.Executed[0])
	assert.Equal(spacemaker.Delete{SID: sda1}, result.Executed[1])
	assert.Equal(150*gib-2*mib, result.FreeSpace)
	assert.Equal(1, logs.FilterMessage("not enough space").Len())
}

func TestProvideSpaceConfigured(t *testing.T) {
	assert := assert.New(t)
	g := load(t)
	sda := sid(g, "/dev/sda")

	settings, err := spacemaker.ParseSettings([]byte(`
strategy: configured
actions:
  - device: /dev/sda1
    action: resize
    minSize: 50GiB
  - device: /dev/sda3
    action: delete
`))
	assert.NoError(err)

	m := maker.New(settings, analyzer.New(), zaptest.NewLogger(t))

	result, err := m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{sda}, NeededSize: 15 * gib})
	assert.NoError(err)

	assert.Equal([]spacemaker.Action{
		spacemaker.Shrink{SID: sid(g, "/dev/sda1"), MinSize: 50 * gib, TargetSize: 45*gib + 1023*mib},
		spacemaker.Delete{SID: sid(g, "/dev/sda3")},
	}, result.Executed)
}

func TestProvideSpaceForgetsEarlierGraphs(t *testing.T) {
	assert := assert.New(t)
	a := analyzer.New()

	g := load(t)
	sda1 := sid(g, "/dev/sda1")
	assert.Equal(spacemaker.WindowsCategory, a.Category(g, sda1))

	// same sids, but sda1 holds linux now.
	other, err := memgraph.New([]byte(strings.Replace(layout,
		`"type": "MS-Basic-Data", "filesystem": "ntfs"`, `"type": "Linux-FS", "filesystem": "ext4"`, 1)))
	assert.NoError(err)
	assert.Equal(sda1, sid(other, "/dev/sda1"))

	settings := spacemaker.DefaultSettings()
	settings.LinuxDeleteMode = spacemaker.DeleteAll

	result, err := maker.New(settings, a, nil).ProvideSpace(other, maker.Request{
		Disks:      []spacemaker.SID{sid(other, "/dev/sda")},
		NeededSize: gib,
	})
	assert.NoError(err)
	assert.Contains(result.Executed, spacemaker.Delete{SID: sda1})
}

func TestProvideSpaceInvalid(t *testing.T) {
	assert := assert.New(t)
	g := load(t)

	m := maker.New(spacemaker.DefaultSettings(), analyzer.New(), nil)

	_, err := m.ProvideSpace(g, maker.Request{NeededSize: gib})
	assert.Error(err)

	_, err = m.ProvideSpace(g, maker.Request{Disks: []spacemaker.SID{999}, NeededSize: gib})
	assert.Equal(spacemaker.ErrDeviceNotFound, errors.Cause(err))
}
