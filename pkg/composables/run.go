package composables

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/formsync/pkg/constants"
)

func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.RunIDKey, id)
}

func UseRunID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(constants.RunIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
