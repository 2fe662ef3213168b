package contextkey

// Key is the type used for the context keys injected by the server middleware.
// A dedicated type avoids collisions with context keys from other packages.
type Key string

const (
	// UserIDKey holds the hex user id extracted from a valid JWT.
	UserIDKey Key = "userID"
	// JwtErrorKey holds the error encountered while parsing an invalid JWT.
	JwtErrorKey Key = "jwtError"
)
