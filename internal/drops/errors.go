package drops

import (
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

var (
	// ErrAlreadyUndone marks an undo against a drop that was already reversed.
	ErrAlreadyUndone = errors.New("drop already undone")
	// ErrUndoWindowExpired marks an undo attempted at or after undoExpiresAt.
	ErrUndoWindowExpired = errors.New("undo window expired")
)

func errDropNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "drop not found").
		WithDetails(map[string]any{"dropId": id})
}

func errAlreadyUndone(id uuid.UUID, undoneAt *time.Time) error {
	details := map[string]any{"dropId": id, "reason": "already_undone"}
	if undoneAt != nil {
		details["undoneAt"] = undoneAt.UTC()
	}
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrAlreadyUndone, "drop has already been undone").
		WithDetails(details)
}

func errUndoWindowExpired(id uuid.UUID, expiresAt time.Time) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrUndoWindowExpired, "undo window has expired").
		WithDetails(map[string]any{
			"dropId":        id,
			"reason":        "undo_window_expired",
			"undoExpiresAt": expiresAt.UTC(),
		})
}
