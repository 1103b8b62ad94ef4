// Floodgate is a request-admission sidecar and library.
//
// Per API endpoint and per caller identity it decides whether an
// inbound request may proceed, based on a configurable quota over a
// trailing time window.
//
// Usage:
//
//	# Start the admission server with default configuration
//	floodgate run
//
//	# Start with a custom configuration file
//	floodgate run --config /etc/floodgate/config.yaml
//
//	# Validate a configuration file without starting
//	floodgate validate --config config.yaml
//
//	# Show version information
//	floodgate version
package main

func main() {
	Execute()
}
