package spacemaker

import (
	"github.com/rekby/gpt"
	uuid "github.com/satori/go.uuid"
)

// GUID - a 16 byte Globally Unique ID
type GUID [16]byte

// GenGUID - generate a random uuid and return it
func GenGUID() GUID {
	return GUID(uuid.NewV4())
}

func (g GUID) String() string {
	return GUIDToString(g)
}

// IsZero returns true for the all zero GUID.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// MarshalText writes the GUID in its canonical string form.
func (g GUID) MarshalText() ([]byte, error) {
	if g.IsZero() {
		return []byte{}, nil
	}

	return []byte(g.String()), nil
}

// UnmarshalText reads a GUID in its canonical string form.
func (g *GUID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*g = GUID{}
		return nil
	}

	parsed, err := StringToGUID(string(text))
	if err != nil {
		return err
	}

	*g = parsed

	return nil
}

// StringToGUID - convert a string to a GUID
func StringToGUID(sguid string) (GUID, error) {
	g, err := gpt.StringToGuid(sguid)
	return GUID(g), err
}

// GUIDToString - turn a Guid into a string.
func GUIDToString(bguid GUID) string {
	return gpt.Guid(bguid).String()
}
