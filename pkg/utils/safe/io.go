package safe

import (
	"context"
	"io"

	"github.com/secmon-lab/babbell/pkg/utils/logging"
)

// Close closes c and logs a failure instead of returning it. A nil closer is
// ignored, so it can be deferred right after a constructor that may fail.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Error("failed to close", "error", err.Error())
	}
}
