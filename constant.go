package ripext

import "time"

// RequestMethod http verb of a request
type RequestMethod string

// Request method constant definition
const (
	GET    RequestMethod = "GET"
	POST   RequestMethod = "POST"
	PUT    RequestMethod = "PUT"
	PATCH  RequestMethod = "PATCH"
	DELETE RequestMethod = "DELETE"
)

// SupportedMethods verbs accepted by NewRequest
var SupportedMethods = []string{string(GET), string(POST), string(PUT), string(PATCH), string(DELETE)}

const (
	// ConnectTimeout fixed connect timeout applied to every exchange
	ConnectTimeout time.Duration = 10 * time.Second
	// TransferTimeout fixed overall timeout applied to every exchange
	TransferTimeout time.Duration = 30 * time.Second
	// DefaultCABundlePath trust bundle location relative to the data directory
	DefaultCABundlePath string = "configs/ripext/ca-bundle.crt"
	// DefaultUserAgent user agent sent when settings do not override it
	DefaultUserAgent string = "ripext/1.0"
)
