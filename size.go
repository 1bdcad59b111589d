package spacemaker

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// Kibibyte is 1024 bytes.
	Kibibyte uint64 = 1024

	// Mebibyte is 1024 Kibibytes.
	Mebibyte = Kibibyte * 1024

	// Gibibyte is 1024 Mebibytes.
	Gibibyte = Mebibyte * 1024

	// Tebibyte is 1024 Gibibytes.
	Tebibyte = Gibibyte * 1024
)

// Size is a byte count that reads from "8GiB" style strings as well as plain
// numbers in settings and layout files.
type Size uint64

// ParseSize parses a human readable size. Plain numbers are bytes.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size '%s'", s)
	}

	return Size(n), nil
}

// Bytes returns the size as a uint64.
func (s Size) Bytes() uint64 {
	return uint64(s)
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// UnmarshalText parses a human readable size.
func (s *Size) UnmarshalText(text []byte) error {
	v, err := ParseSize(string(text))
	if err != nil {
		return err
	}

	*s = v

	return nil
}

// UnmarshalJSON accepts a number of bytes or a human readable string.
func (s *Size) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		return s.UnmarshalText([]byte(str))
	}

	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid size %s", string(b))
	}

	*s = Size(n)

	return nil
}

// UnmarshalYAML accepts a number of bytes or a human readable string.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	return s.UnmarshalText([]byte(value.Value))
}

// HumanSize formats a byte count for logs and tables.
func HumanSize(n uint64) string {
	return humanize.IBytes(n)
}
