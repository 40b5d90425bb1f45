package bus

import (
	"context"

	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.WorkEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.WorkEvent)) error
	Close() error
}
