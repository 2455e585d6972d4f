package sessionconfig

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/smithery-ai/smithery-cookbook/library/log"
)

const (
	// QueryParam carries the base64(JSON) session configuration.
	QueryParam = "config"
	// LegacyAPIKeyParam carries a raw token for clients predating QueryParam.
	LegacyAPIKeyParam = "apiKey"
)

// ErrConfigDecode marks a malformed config query parameter.
var ErrConfigDecode = errors.New("invalid session config")

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeQuery extracts the session configuration from a raw query string.
//
// An absent parameter yields an empty Config and a nil error. A malformed
// parameter yields an empty Config and an error wrapping ErrConfigDecode.
// When only the legacy apiKey parameter is present its raw value becomes the token.
func DecodeQuery(rawQuery string) (Config, error) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	if strings.TrimSpace(rawQuery) == "" {
		return Config{}, nil
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil && len(values) == 0 {
		return Config{}, errors.Wrapf(ErrConfigDecode, "parse query: %s", err.Error())
	}

	if encoded, ok := firstValue(values, QueryParam); ok {
		cfg, err := decodeBlob(encoded)
		if err != nil {
			return Config{}, err
		}

		return cfg, nil
	}

	if token, ok := firstValue(values, LegacyAPIKeyParam); ok {
		return Config{KeyAPIKey: token}, nil
	}

	return Config{}, nil
}

// FromQuery is the pre-request hook: it never fails, and a decode failure is
// logged and treated as "no configuration supplied".
func FromQuery(rawQuery string, logger logSDK.Logger) Config {
	if logger == nil {
		logger = log.Logger.Named("session_config")
	}

	cfg, err := DecodeQuery(rawQuery)
	if err != nil {
		logger.Warn("ignore malformed session config", zap.Error(err))
		return Config{}
	}

	if len(cfg) > 0 {
		logger.Debug("extracted session config", zap.Strings("keys", cfg.Keys()))
	}

	return cfg
}

// Encode renders cfg in the wire form accepted by DecodeQuery, without URL escaping.
func Encode(cfg Config) (string, error) {
	if cfg == nil {
		cfg = Config{}
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, "marshal session config")
	}

	return base64.StdEncoding.EncodeToString(payload), nil
}

// EncodeQuery renders cfg as a `config=...` query fragment, URL escaped.
func EncodeQuery(cfg Config) (string, error) {
	encoded, err := Encode(cfg)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return url.Values{QueryParam: []string{encoded}}.Encode(), nil
}

// firstValue returns the first occurrence of key. Empty values count as absent.
func firstValue(values url.Values, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vs[0])
	if v == "" {
		return "", false
	}

	return v, true
}

func decodeBlob(encoded string) (Config, error) {
	// some clients escape the blob twice; base64 never contains '%'
	if strings.Contains(encoded, "%") {
		unescaped, err := url.PathUnescape(encoded)
		if err != nil {
			return nil, errors.Wrapf(ErrConfigDecode, "url decode: %s", err.Error())
		}
		encoded = unescaped
	}

	// form decoding turns an unescaped '+' into a space
	encoded = strings.ReplaceAll(strings.TrimSpace(encoded), " ", "+")

	payload, err := decodeBase64(encoded)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, errors.Wrapf(ErrConfigDecode, "parse json: %s", err.Error())
	}
	if cfg == nil {
		return nil, errors.Wrap(ErrConfigDecode, "config must be a JSON object")
	}

	return cfg, nil
}

func decodeBase64(encoded string) ([]byte, error) {
	var lastErr error
	for _, enc := range base64Encodings {
		payload, err := enc.DecodeString(encoded)
		if err == nil {
			return payload, nil
		}
		lastErr = err
	}

	return nil, errors.Wrapf(ErrConfigDecode, "base64 decode: %s", lastErr.Error())
}
