// Package mcp wires the text utility tools into an MCP server
// and exposes it over streamable HTTP and stdio.
package mcp

import (
	"fmt"
	"strconv"
	"strings"

	gconfig "github.com/Laisky/go-config/v2"
)

// Configuration keys read by LoadSettingsFromConfig.
const (
	KeyStateless              = "settings.mcp.stateless"
	KeyThrottlePerSecond      = "settings.mcp.throttle.per_second"
	KeyThrottleBurst          = "settings.mcp.throttle.burst"
	KeyThrottleTotalPerSecond = "settings.mcp.throttle.total_per_second"
)

// ToolEnabledKey returns the configuration key toggling one tool.
func ToolEnabledKey(tool string) string {
	return fmt.Sprintf("settings.mcp.tools.%s.enabled", tool)
}

// ThrottleSettings configures per-caller rate limiting. PerSecond <= 0 disables it.
type ThrottleSettings struct {
	PerSecond      float64
	Burst          int
	TotalPerSecond float64
}

// Enabled reports whether throttling is active.
func (t ThrottleSettings) Enabled() bool {
	return t.PerSecond > 0
}

// Settings captures runtime configuration of the MCP server.
type Settings struct {
	// DisabledTools lists tools switched off in configuration.
	DisabledTools map[string]bool
	Stateless     bool
	Throttle      ThrottleSettings
}

// ToolEnabled reports whether tool should be registered. Tools are enabled unless disabled explicitly.
func (s Settings) ToolEnabled(tool string) bool {
	return !s.DisabledTools[tool]
}

// LoadSettingsFromConfig reads MCP settings from the shared configuration.
// toolNames lists the tools whose enable flag should be consulted.
func LoadSettingsFromConfig(toolNames []string) Settings {
	settings := Settings{
		DisabledTools: map[string]bool{},
		Stateless:     boolFromConfig(KeyStateless, false),
		Throttle: ThrottleSettings{
			PerSecond:      floatFromConfig(KeyThrottlePerSecond, 0),
			Burst:          int(floatFromConfig(KeyThrottleBurst, 0)),
			TotalPerSecond: floatFromConfig(KeyThrottleTotalPerSecond, 0),
		},
	}

	for _, name := range toolNames {
		if !boolFromConfig(ToolEnabledKey(name), true) {
			settings.DisabledTools[name] = true
		}
	}

	return settings
}

// boolFromConfig retrieves a boolean configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	v, ok := ParseBool(gconfig.S.Get(key))
	if !ok {
		return def
	}
	return v
}

// floatFromConfig retrieves a numeric configuration value with a default fallback.
func floatFromConfig(key string, def float64) float64 {
	v, ok := ParseFloat(gconfig.S.Get(key))
	if !ok {
		return def
	}
	return v
}

// ParseBool interprets a configuration value as a boolean. ok is false when the value is
// absent or not recognizable.
func ParseBool(value any) (v bool, ok bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}

	return false, false
}

// ParseFloat interprets a configuration value as a number.
func ParseFloat(value any) (v float64, ok bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}

	return 0, false
}
