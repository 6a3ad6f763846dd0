package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/scriptexec/assets"
)

// Config holds the configuration for a Manager.
type Config struct {
	// Engine compiles and runs source text.
	// Required.
	Engine Engine

	// Assets is handed to every executed unit as the Assets global.
	// If nil, an empty asset manager is used.
	Assets *assets.Manager

	// Logger backs the Logger and Console globals and the Manager's own
	// debug output. If nil, output is discarded.
	Logger Logger

	// DefaultTimeout bounds each call. Zero means no deadline beyond the
	// caller's context.
	DefaultTimeout time.Duration
}

// Validate checks that all required fields are set.
// Returns ErrConfiguration if any required field is missing.
func (c *Config) Validate() error {
	var missing []string

	if c.Engine == nil {
		missing = append(missing, "Engine")
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("%w: DefaultTimeout must not be negative", ErrConfiguration)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// applyDefaults sets default values for optional fields.
func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = NopLogger()
	}
	if c.Assets == nil {
		c.Assets = assets.NewManager()
	}
}
