package profile_test

import (
	"context"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/repository/memory"
	"github.com/fastygo/teamspace/usecase/profile"
)

// countingBlobs records uploads and can be told to fail them.
type countingBlobs struct {
	repository.BlobStore
	uploads  int
	uploadFn func(path string) error
}

func (b *countingBlobs) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	b.uploads++
	if b.uploadFn != nil {
		if err := b.uploadFn(path); err != nil {
			return err
		}
	}
	return b.BlobStore.Upload(ctx, path, body, contentType)
}

var _ = Describe("UseCase", func() {
	var (
		ctx     context.Context
		backend *memory.Backend
		blobs   *countingBlobs
		uc      *profile.UseCase
		actor   domain.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = memory.New()
		blobs = &countingBlobs{BlobStore: backend.Blobs}
		uc = profile.New(backend.Store.Members, blobs, nil)

		title, phone := "Engineer", "555-0100"
		m, err := backend.Store.Members.Insert(ctx, &domain.Member{
			Email: "ada@example.com",
			Name:  "Ada",
			Title: &title,
			Phone: &phone,
		})
		Expect(err).NotTo(HaveOccurred())
		actor = domain.ActorFor(m)
	})

	Describe("UpdateProfile", func() {
		It("stores blank fields as NULL and trims the rest", func() {
			updated, err := uc.UpdateProfile(ctx, actor, profile.Input{
				Name:       "  Ada Lovelace ",
				Title:      "   ",
				Department: " Research ",
				Phone:      "",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Ada Lovelace"))
			Expect(updated.Title).To(BeNil())
			Expect(updated.Phone).To(BeNil())
			Expect(updated.Location).To(BeNil())
			Expect(domain.Deref(updated.Department)).To(Equal("Research"))

			stored, err := uc.GetProfile(ctx, actor)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Title).To(BeNil())
			Expect(stored.Phone).To(BeNil())
		})

		It("requires a name", func() {
			_, err := uc.UpdateProfile(ctx, actor, profile.Input{Name: " ", Title: "CTO"})
			Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())

			stored, err := uc.GetProfile(ctx, actor)
			Expect(err).NotTo(HaveOccurred())
			Expect(domain.Deref(stored.Title)).To(Equal("Engineer"))
		})

		It("rejects a request without a member", func() {
			_, err := uc.UpdateProfile(ctx, domain.Actor{}, profile.Input{Name: "Ada"})
			Expect(err).To(MatchError(domain.ErrUnauthorized))
		})
	})

	Describe("UploadAvatar", func() {
		It("stores an image and points the profile at it", func() {
			updated, err := uc.UploadAvatar(ctx, actor, "me photo.png", "image/png", strings.NewReader("png"))
			Expect(err).NotTo(HaveOccurred())

			path := profile.AvatarPath(actor.MemberID, "me photo.png")
			Expect(path).To(Equal("avatars/" + actor.MemberID + "_me_photo.png"))
			Expect(domain.Deref(updated.AvatarURL)).To(Equal(path))
			Expect(backend.Blobs.Has(path)).To(BeTrue())
		})

		It("refuses anything that is not an image before storing it", func() {
			for _, contentType := range []string{"application/pdf", "text/plain", "", "imagery/png"} {
				_, err := uc.UploadAvatar(ctx, actor, "cv.pdf", contentType, strings.NewReader("%PDF"))
				Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue(), contentType)
			}
			Expect(blobs.uploads).To(BeZero())

			stored, err := uc.GetProfile(ctx, actor)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.AvatarURL).To(BeNil())
		})

		It("leaves the profile alone when the upload fails", func() {
			blobs.uploadFn = func(string) error { return errors.New("bucket unavailable") }

			_, err := uc.UploadAvatar(ctx, actor, "me.png", "image/png", strings.NewReader("png"))
			Expect(err).To(MatchError("bucket unavailable"))

			stored, err := uc.GetProfile(ctx, actor)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.AvatarURL).To(BeNil())
		})
	})
})
