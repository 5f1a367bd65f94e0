package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Mode scopes a role permission and names the context a user operates in.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeTaskDoer  Mode = "taskDoer"
	ModeTaskGiver Mode = "taskGiver"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAll, ModeTaskDoer, ModeTaskGiver:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ParseOperatingMode accepts only the modes a user can actually be in.
func ParseOperatingMode(s string) (Mode, error) {
	m, err := ParseMode(s)
	if err != nil {
		return "", err
	}
	if !m.IsOperating() {
		return "", fmt.Errorf("%w: %q is not an operating mode", ErrInvalidMode, s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	_, err := ParseMode(string(m))
	return err == nil
}

func (m Mode) IsOperating() bool {
	return m == ModeTaskDoer || m == ModeTaskGiver
}

func (m Mode) String() string { return string(m) }

func (m *Mode) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidMode)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidMode, src)
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
	}
	return string(m), nil
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
