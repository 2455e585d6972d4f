package sessionconfig

import (
	"context"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/ctxkeys"
)

// WithContext attaches cfg to ctx. It is called once per request, before any
// tool handler runs. A nil cfg is stored as an empty Config.
func WithContext(ctx context.Context, cfg Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = Config{}
	}

	return context.WithValue(ctx, ctxkeys.SessionConfig, cfg)
}

// FromContext returns the configuration attached to ctx by WithContext.
// The boolean is false when the request carried no configuration hook at all.
func FromContext(ctx context.Context) (Config, bool) {
	if ctx == nil {
		return Config{}, false
	}

	cfg, ok := ctx.Value(ctxkeys.SessionConfig).(Config)
	if !ok || cfg == nil {
		return Config{}, false
	}

	return cfg, true
}

// Get reads key from the configuration of the current request, or returns def.
func Get(ctx context.Context, key string, def any) any {
	cfg, _ := FromContext(ctx)
	return cfg.Get(key, def)
}
