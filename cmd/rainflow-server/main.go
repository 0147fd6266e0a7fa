// Command rainflow-server serves the rainflow analysis API and the
// analysis event stream.
package main

import (
	"log/slog"
	"os"

	"github.com/djangbahevans/RainflowCycleCounting/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
