package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// RunnerID identifies a runner within a contest. Zero is a valid id.
type RunnerID uint64

func (id RunnerID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseRunnerID parses a base-10 runner id.
func ParseRunnerID(s string) (RunnerID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid runner id %q: %w", s, err)
	}
	return RunnerID(v), nil
}

// Value stores the id as text so the full uint64 range fits a NUMERIC column.
func (id RunnerID) Value() (driver.Value, error) {
	return id.String(), nil
}

func (id *RunnerID) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("negative runner id %d", v)
		}
		*id = RunnerID(v)
		return nil
	case []byte:
		parsed, err := ParseRunnerID(string(v))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case string:
		parsed, err := ParseRunnerID(v)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into RunnerID", src)
	}
}
