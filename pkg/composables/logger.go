package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/formsync/pkg/constants"
	"github.com/iota-uz/formsync/pkg/logging"
)

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context, or a discarding logger when none is set.
func UseLogger(ctx context.Context) *logrus.Entry {
	switch typed := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return typed
	case *logrus.Logger:
		return logrus.NewEntry(typed)
	default:
		return logging.Nop()
	}
}
