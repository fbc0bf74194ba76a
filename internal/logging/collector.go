package logging

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Collector accumulates warnings during a pipeline run so they can be
// surfaced together at the end instead of interleaved with progress output.
// Messages are still written at debug level as they occur.
type Collector struct {
	warnings []string
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.warnings = append(c.warnings, msg)
	log.Debug().Str("warning", msg).Msg("recorded warning")
}

func (c *Collector) Warnings() []string {
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Report writes all recorded warnings at warn level in recording order.
func (c *Collector) Report() {
	for _, msg := range c.warnings {
		log.Warn().Msg(msg)
	}
}
