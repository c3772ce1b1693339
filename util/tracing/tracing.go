package tracing

import "fmt"

// Context identifies a single inbound request across log lines and
// outbound calls to the places API.
type Context struct {
	RequestID     string
	RequestSource string
}

func (c Context) String() string {
	return fmt.Sprintf("request_id=%s source=%s", c.RequestID, c.RequestSource)
}
