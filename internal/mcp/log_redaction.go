package mcp

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

const redactedValue = "***"

// sensitiveKeys are JSON keys and query parameters whose values never reach logs.
var sensitiveKeys = map[string]struct{}{
	strings.ToLower(sessionconfig.KeyAPIKey):      {},
	strings.ToLower(sessionconfig.KeyServerToken): {},
	strings.ToLower(sessionconfig.QueryParam):     {},
	"api_key":       {},
	"authorization": {},
}

func isSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// redactMCPBody masks token-bearing fields in a JSON payload.
// Non-JSON input is returned unchanged.
func redactMCPBody(raw string) string {
	if raw == "" {
		return raw
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return raw
	}
	out, err := json.Marshal(redactMCPValue(payload))
	if err != nil {
		return raw
	}
	return string(out)
}

// redactMCPValue recursively masks sensitive keys.
func redactMCPValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return redactArguments(v)
	case []any:
		result := make([]any, 0, len(v))
		for _, item := range v {
			result = append(result, redactMCPValue(item))
		}
		return result
	default:
		return value
	}
}

// redactArguments returns a copy of args with sensitive values masked.
func redactArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	output := make(map[string]any, len(args))
	for key, value := range args {
		if isSensitiveKey(key) {
			output[key] = redactedValue
			continue
		}
		output[key] = redactMCPValue(value)
	}
	return output
}

// redactHookPayload renders a redacted JSON string for hook logging.
func redactHookPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return redactMCPBody(string(data))
}

// redactQuery masks sensitive query parameters in a raw query string.
func redactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redactedValue
	}
	for key := range values {
		if isSensitiveKey(key) {
			values[key] = []string{redactedValue}
		}
	}
	return values.Encode()
}
