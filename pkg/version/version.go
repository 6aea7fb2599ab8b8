package version

// Version is the current version of the call analyzer
const Version = "0.3.0"

// Name is the service name used in headers and logs
const Name = "call-analyzer"

// UserAgent returns the User-Agent string for outbound HTTP requests
func UserAgent() string {
	return Name + "/" + Version
}

// ServerHeader returns the Server header value for HTTP responses
func ServerHeader() string {
	return Name + "/" + Version
}
