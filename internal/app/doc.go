// Package app wires the rainflow service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config file and environment
//	2. Initialize logging and OpenTelemetry providers
//	3. Start the analysis event hub
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM: the server stops accepting requests and
// drains active ones, the event hub closes every stream, and telemetry
// providers flush before exit.
//
// The package never calls os.Exit; errors are returned to main.
package app
