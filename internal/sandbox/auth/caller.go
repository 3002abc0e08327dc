package auth

import "context"

// Caller types recorded in the audit log.
const (
	CallerAPIKey = "api_key"
	CallerUser   = "user"
	CallerAgent  = "agent"
	CallerSystem = "system"
)

// Caller identifies who made a request.
type Caller struct {
	Type string
	// ID is an operator ID, or a key fingerprint for API keys.
	ID string
	IP string
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the Caller stored by WithCaller, or a system caller.
func CallerFrom(ctx context.Context) Caller {
	if c, ok := ctx.Value(callerKey{}).(Caller); ok {
		return c
	}
	return Caller{Type: CallerSystem, ID: "system"}
}

// fingerprint shortens a key hash for display.
func fingerprint(keyHash string) string {
	if len(keyHash) > 12 {
		return keyHash[:12]
	}
	return keyHash
}
