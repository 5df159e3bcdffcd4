package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON handler whose records are shipped to a
// Graylog input at addr over UDP. Close the returned closer on shutdown.
func NewGELFHandler(addr, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to graylog at %s: %w", addr, err)
	}
	w.Facility = otelScope
	return slog.NewJSONHandler(w, handlerOptions(parseLevel(level))), w, nil
}
