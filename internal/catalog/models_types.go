package catalog

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Value/Scan persist CommaList as a single comma-joined text column.
func (c CommaList) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "", nil
	}
	return strings.Join(c, ","), nil
}

func (c *CommaList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("catalog: unsupported CommaList scan source %T", src)
	}
	if s == "" {
		*c = nil
		return nil
	}
	*c = strings.Split(s, ",")
	return nil
}
