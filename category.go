package spacemaker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category classifies existing partitions for the delete mode settings.
type Category int

const (
	// OtherCategory - anything neither Windows nor Linux.
	OtherCategory Category = iota

	// LinuxCategory - Linux filesystems, swap, LVM and RAID members.
	LinuxCategory

	// WindowsCategory - partitions holding a Windows installation.
	WindowsCategory
)

//nolint:gochecknoglobals
var categoryNames = map[Category]string{
	OtherCategory:   "other",
	LinuxCategory:   "linux",
	WindowsCategory: "windows",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}

	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText writes the category name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText reads a category name.
func (c *Category) UnmarshalText(text []byte) error {
	for k, v := range categoryNames {
		if strings.EqualFold(v, string(text)) {
			*c = k
			return nil
		}
	}

	return errors.Errorf("unknown category '%s'", string(text))
}

// Analyzer provides facts about the existing devices that the strategies
// need for scoring.
type Analyzer interface {
	// Category returns the classification of the device.
	Category(g Graph, sid SID) Category

	// RecoverableSize returns the bytes a shrink of the device could free.
	RecoverableSize(g Graph, sid SID) uint64

	// Forget drops anything remembered about the devices seen so far.
	Forget()
}
