package domain

import (
	"github.com/google/uuid"

	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

// Owned is a resource with an immutable owner reference.
type Owned interface {
	OwnerRef() uuid.UUID
}

// AuthorizeMutation checks that actor may update or delete res. It must run
// after res is loaded and before any write. A nil res means the resource does
// not exist and yields NotFound; a resource owned by someone else yields
// Forbidden.
func AuthorizeMutation[T Owned](kind, id string, res *T, actor uuid.UUID) error {
	if res == nil {
		return apperrors.NotFound(kind, id)
	}
	if (*res).OwnerRef() != actor {
		return apperrors.Forbidden("you are not the owner of this " + kind)
	}
	return nil
}
