package values

type contextKey string

const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	SystemErr      = "system_error"
	BadRequestBody = "bad_request_body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not_allowed"
	Conflict       = "conflict"
	NotFound       = "not_found"
	NotAuthorised  = "not_authorised"
	TokenExpired   = "token_expired"
	ActiveLogin    = "active_login"
	Upstream       = "upstream_error"
	RateLimited    = "rate_limited"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
)

// ContextTracingKey keys the tracing.Context stored on request contexts.
const ContextTracingKey contextKey = "tracing-context"
