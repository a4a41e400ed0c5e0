package ports

// EmailGateway defines the interface for the front-ends that feed emails
// into the guard service (HTTP API, SMTP relay).
type EmailGateway interface {
	// Start starts the gateway
	Start() error

	// Stop stops the gateway
	Stop() error
}
