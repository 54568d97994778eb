package profile

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// Input is the profile form. Blank fields are stored as NULL.
type Input struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
}

type UseCase struct {
	members repository.Table[domain.Member]
	blobs   repository.BlobStore
	logger  *zap.Logger
}

func New(members repository.Table[domain.Member], blobs repository.BlobStore, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		members: members,
		blobs:   blobs,
		logger:  logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, actor domain.Actor) (*domain.Member, error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.members.Get(ctx, actor.MemberID)
}

func (uc *UseCase) UpdateProfile(ctx context.Context, actor domain.Actor, in Input) (*domain.Member, error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("Name is required.")
	}
	return uc.members.Update(ctx, actor.MemberID, domain.Fields{
		"name":       name,
		"title":      domain.NullableString(domain.NullIfBlank(in.Title)),
		"department": domain.NullableString(domain.NullIfBlank(in.Department)),
		"phone":      domain.NullableString(domain.NullIfBlank(in.Phone)),
		"location":   domain.NullableString(domain.NullIfBlank(in.Location)),
	})
}

// AvatarPath is the storage path of a member's avatar. Uploads overwrite it.
func AvatarPath(memberID, fileName string) string {
	return fmt.Sprintf("avatars/%s_%s", memberID, domain.SafeFileName(fileName))
}

// UploadAvatar stores the image and points the profile at it. A profile
// update that fails leaves the image in place; the next upload overwrites it.
func (uc *UseCase) UploadAvatar(ctx context.Context, actor domain.Actor, fileName, contentType string, body io.Reader) (*domain.Member, error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.Invalid("Avatar must be an image.")
	}
	path := AvatarPath(actor.MemberID, fileName)
	if err := uc.blobs.Upload(ctx, path, body, contentType); err != nil {
		return nil, err
	}
	member, err := uc.members.Update(ctx, actor.MemberID, domain.Fields{"avatar_url": path})
	if err != nil {
		uc.logger.Warn("avatar stored but profile not updated", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return member, nil
}
