package constants

import "errors"

// Configuration errors.
var (
	ErrNoEndpointConfigured = errors.New("no API endpoint configured, use --endpoint or RESTPIPE_ENDPOINT")
	ErrNoDescriptorFile     = errors.New("no descriptor table configured, use --methods or RESTPIPE_METHODS")
	ErrUnknownOutputFormat  = errors.New("unknown output format")
	ErrInvalidArgument      = errors.New("invalid argument, expected name=value")
	ErrSkipTLSOnlyInDev     = errors.New("skipSSL is only allowed in development environments (set RESTPIPE_DEV_MODE=true)")
)
