package usecase

import (
	"context"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
)

// Membership admits a view while its owner still belongs to the workspace
// the view is scoped to. Recipient-scoped views only ever show the owner's
// own rows and are always admitted for the owner.
func Membership(members repository.Table[domain.Member]) realtime.Admission {
	return func(ctx context.Context, owner string, scope domain.Scope) error {
		switch scope.Column {
		case domain.ColumnRecipientID:
			if scope.Value == owner {
				return nil
			}
			return domain.ErrScopeRevoked
		case domain.ColumnWorkspaceID, domain.ColumnID:
			member, err := members.Get(ctx, owner)
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return domain.ErrScopeRevoked
			}
			if err != nil {
				return err
			}
			if member.WorkspaceID == nil || *member.WorkspaceID != scope.Value {
				return domain.ErrScopeRevoked
			}
			return nil
		default:
			return domain.ErrScopeRevoked
		}
	}
}
