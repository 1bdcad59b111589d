package spacemaker

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DeleteMode tells what may happen to the existing partitions of one
// category.
type DeleteMode int

const (
	// DeleteNone - never delete partitions of the category.
	DeleteNone DeleteMode = iota

	// DeleteOnDemand - delete partitions of the category if space is needed.
	DeleteOnDemand

	// DeleteAll - always delete every partition of the category.
	DeleteAll
)

//nolint:gochecknoglobals
var deleteModeNames = []string{"none", "ondemand", "all"}

func (m DeleteMode) String() string {
	return enumName(deleteModeNames, int(m), "DeleteMode")
}

// MarshalText writes the mode name.
func (m DeleteMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText reads a mode name.
func (m *DeleteMode) UnmarshalText(text []byte) error {
	v, err := parseEnum(deleteModeNames, string(text), "delete mode")
	*m = DeleteMode(v)

	return err
}

// UnmarshalJSON reads a mode name or its number.
func (m *DeleteMode) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnumJSON(deleteModeNames, b, "delete mode")
	*m = DeleteMode(v)

	return err
}

// UnmarshalYAML reads a mode name.
func (m *DeleteMode) UnmarshalYAML(value *yaml.Node) error {
	return m.UnmarshalText([]byte(value.Value))
}

// Disposition is what the user configured for one explicit device.
type Disposition int

const (
	// Keep - never touch the device.
	Keep Disposition = iota

	// DeleteDevice - delete the device if space is needed.
	DeleteDevice

	// ForceDelete - always delete the device.
	ForceDelete

	// Resize - shrink the device if space is needed.
	Resize
)

//nolint:gochecknoglobals
var dispositionNames = []string{"keep", "delete", "force_delete", "resize"}

func (d Disposition) String() string {
	return enumName(dispositionNames, int(d), "Disposition")
}

// MarshalText writes the disposition name.
func (d Disposition) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText reads a disposition name.
func (d *Disposition) UnmarshalText(text []byte) error {
	v, err := parseEnum(dispositionNames, string(text), "action")
	*d = Disposition(v)

	return err
}

// UnmarshalJSON reads a disposition name or its number.
func (d *Disposition) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnumJSON(dispositionNames, b, "action")
	*d = Disposition(v)

	return err
}

// UnmarshalYAML reads a disposition name.
func (d *Disposition) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// StrategyKind selects how space is made.
type StrategyKind int

const (
	// AutoStrategy - heuristic deletion and resizing driven by delete modes.
	AutoStrategy StrategyKind = iota

	// ConfiguredStrategy - only the actions listed for explicit devices.
	ConfiguredStrategy
)

//nolint:gochecknoglobals
var strategyNames = []string{"auto", "configured"}

func (k StrategyKind) String() string {
	return enumName(strategyNames, int(k), "StrategyKind")
}

// MarshalText writes the strategy name.
func (k StrategyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reads a strategy name.
func (k *StrategyKind) UnmarshalText(text []byte) error {
	v, err := parseEnum(strategyNames, string(text), "strategy")
	*k = StrategyKind(v)

	return err
}

// UnmarshalJSON reads a strategy name or its number.
func (k *StrategyKind) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnumJSON(strategyNames, b, "strategy")
	*k = StrategyKind(v)

	return err
}

// UnmarshalYAML reads a strategy name.
func (k *StrategyKind) UnmarshalYAML(value *yaml.Node) error {
	return k.UnmarshalText([]byte(value.Value))
}

// DeviceAction is the configured disposition of one device, addressed by
// its name.
type DeviceAction struct {
	// Device is the device name, /dev/sda1.
	Device string `json:"device" yaml:"device"`

	// Action is what may happen to the device.
	Action Disposition `json:"action" yaml:"action"`

	// MinSize is the smallest size a resize may leave, 0 for no limit.
	MinSize Size `json:"minSize,omitempty" yaml:"minSize,omitempty"`

	// MaxSize is the largest size a resize may leave, 0 for no limit.
	MaxSize Size `json:"maxSize,omitempty" yaml:"maxSize,omitempty"`
}

// Settings configures the space maker for one proposal run. Settings are
// read only once handed to the planner.
type Settings struct {
	// Strategy selects between automatic and configured space making.
	Strategy StrategyKind `json:"strategy" yaml:"strategy"`

	// WindowsDeleteMode applies to partitions holding Windows.
	WindowsDeleteMode DeleteMode `json:"windowsDeleteMode" yaml:"windowsDeleteMode"`

	// LinuxDeleteMode applies to Linux partitions.
	LinuxDeleteMode DeleteMode `json:"linuxDeleteMode" yaml:"linuxDeleteMode"`

	// OtherDeleteMode applies to every other partition.
	OtherDeleteMode DeleteMode `json:"otherDeleteMode" yaml:"otherDeleteMode"`

	// ResizeWindows allows shrinking Windows partitions.
	ResizeWindows bool `json:"resizeWindows" yaml:"resizeWindows"`

	// Actions lists explicit dispositions for the configured strategy.
	Actions []DeviceAction `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Strategy:          AutoStrategy,
		WindowsDeleteMode: DeleteOnDemand,
		LinuxDeleteMode:   DeleteOnDemand,
		OtherDeleteMode:   DeleteOnDemand,
		ResizeWindows:     true,
	}
}

// LoadSettings reads settings from a yaml file. Missing keys keep their
// default value.
func LoadSettings(path string) (Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to read settings '%s'", path)
	}

	s, err := ParseSettings(content)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to load settings '%s'", path)
	}

	return s, nil
}

// ParseSettings parses yaml settings and validates them.
func ParseSettings(content []byte) (Settings, error) {
	s := DefaultSettings()

	if err := yaml.Unmarshal(content, &s); err != nil {
		return Settings{}, err
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Validate checks the explicit device actions.
func (s Settings) Validate() error {
	seen := map[string]bool{}

	for i, a := range s.Actions {
		if a.Device == "" {
			return errors.Errorf("action %d has no device", i)
		}

		if seen[a.Device] {
			return errors.Errorf("device %s is configured more than once", a.Device)
		}

		seen[a.Device] = true

		if a.Action != Resize && (a.MinSize != 0 || a.MaxSize != 0) {
			return errors.Errorf("device %s: size limits only apply to resize", a.Device)
		}
	}

	return nil
}

// DeleteMode returns the delete mode configured for the category.
func (s Settings) DeleteMode(c Category) DeleteMode {
	switch c {
	case WindowsCategory:
		return s.WindowsDeleteMode
	case LinuxCategory:
		return s.LinuxDeleteMode
	}

	return s.OtherDeleteMode
}

// ActionFor returns the explicit action configured for the named device.
func (s Settings) ActionFor(name string) (DeviceAction, bool) {
	for _, a := range s.Actions {
		if a.Device == name {
			return a, true
		}
	}

	return DeviceAction{}, false
}

func enumName(names []string, v int, typeName string) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}

	return fmt.Sprintf("%s(%d)", typeName, v)
}

func parseEnum(names []string, s string, what string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return i, nil
		}
	}

	return 0, errors.Errorf("unknown %s '%s'", what, s)
}

func unmarshalEnumJSON(names []string, b []byte, what string) (int, error) {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		return parseEnum(names, str, what)
	}

	v, err := strconv.Atoi(string(b))
	if err != nil || v < 0 || v >= len(names) {
		return 0, errors.Errorf("invalid %s %s", what, string(b))
	}

	return v, nil
}
