package httpapi

import "time"

// maxBodyBytes caps the request body of JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes configures the maximum request body size. Non-positive
// values restore the 1 MiB default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// replyTimeout bounds a single /chat generation. Zero means no limit beyond
// the server and connection timeouts.
var replyTimeout time.Duration

// SetReplyTimeout sets the /chat timeout (0 disables).
func SetReplyTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	replyTimeout = d
}

// pageTitle is shown in the chat page header and document title.
var pageTitle = "Reddit Chatbot"

// SetPageTitle overrides the chat page title. Blank keeps the current one.
func SetPageTitle(title string) {
	if title != "" {
		pageTitle = title
	}
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
