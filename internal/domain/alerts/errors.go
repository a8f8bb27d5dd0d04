package alerts

import (
	"errors"
	"fmt"
)

// ErrAlertNotFound is returned when acknowledging an index or id that is not active
var ErrAlertNotFound = errors.New("alert not found")

// ConfigError reports a malformed rule table
type ConfigError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("alert config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("alert config: %s.%s: %s", e.Kind, e.Field, e.Reason)
}
