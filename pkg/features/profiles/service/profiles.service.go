package profileservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationservice "github.com/Gamequic/ProfileDirectory/pkg/features/notifications/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/profiles/store"
	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
	"github.com/Gamequic/ProfileDirectory/utils"

	"go.uber.org/zap"
)

var ErrProfileNotFound = store.ErrProfileNotFound

// ValidationError carries a message per failing draft field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profile: %d field(s) failed validation", len(e.Fields))
}

// Images turns the image reference of a draft into one the saved profile
// owns alone, and deletes files no profile needs anymore.
type Images interface {
	Claim(ref string) (string, error)
	Discard(ref string)
}

type Service struct {
	store     *store.ProfileStore
	images    Images
	publisher notificationservice.Publisher
	logger    *zap.Logger
}

func NewService(profiles *store.ProfileStore, images Images, publisher notificationservice.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = notificationservice.NewHub()
	}
	return &Service{store: profiles, images: images, publisher: publisher, logger: logger}
}

// CRUD Operations

func (s *Service) List(ctx context.Context) []profilestruct.Profile {
	return s.store.List(ctx)
}

// Search filters the collection by name or address.
func (s *Service) Search(ctx context.Context, query string) []profilestruct.Profile {
	return Filter(s.store.List(ctx), query)
}

// Stored reports whether a collection was ever saved, even an empty one.
func (s *Service) Stored(ctx context.Context) bool {
	return s.store.Stored(ctx)
}

func (s *Service) FindOne(ctx context.Context, id int64) (profilestruct.Profile, error) {
	return s.store.GetByID(ctx, id)
}

// Validate checks a draft the same way Create and Update do.
func Validate(draft profilestruct.ProfileDraft) error {
	if err := utils.Validate.Struct(draft); err != nil {
		if fields := utils.ValidationMessages(err); fields != nil {
			return &ValidationError{Fields: fields}
		}
		return err
	}
	return nil
}

func (s *Service) Create(ctx context.Context, draft profilestruct.ProfileDraft) (profilestruct.Profile, error) {
	if err := Validate(draft); err != nil {
		return profilestruct.Profile{}, err
	}

	image, err := s.claim(draft.ImageFile, "")
	if err != nil {
		return profilestruct.Profile{}, err
	}
	draft.ImageFile = image

	profile, err := s.store.Add(ctx, draft)
	if err != nil {
		s.release(ctx, image)
		return profilestruct.Profile{}, err
	}

	s.logger.Info("Profile created", zap.Int64("id", profile.ID))
	s.notify(ctx, notificationservice.ChangeCreated, profile.ID)
	return profile, nil
}

// Update replaces every field of profile id. The id itself never changes.
func (s *Service) Update(ctx context.Context, id int64, draft profilestruct.ProfileDraft) (profilestruct.Profile, error) {
	if err := Validate(draft); err != nil {
		return profilestruct.Profile{}, err
	}

	claimed := ""
	profile, previous, err := s.store.Update(ctx, id, func(current profilestruct.Profile) (profilestruct.Profile, error) {
		image, err := s.claim(draft.ImageFile, current.ImageFile)
		if err != nil {
			return profilestruct.Profile{}, err
		}
		claimed = image
		next := draft
		next.ImageFile = image
		return next.WithID(id), nil
	})
	if err != nil {
		if claimed != previous.ImageFile {
			s.release(ctx, claimed)
		}
		return profilestruct.Profile{}, err
	}

	if previous.ImageFile != profile.ImageFile {
		s.release(ctx, previous.ImageFile)
	}

	s.logger.Info("Profile updated", zap.Int64("id", id))
	s.notify(ctx, notificationservice.ChangeUpdated, id)
	return profile, nil
}

// Delete is idempotent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	removed, found, err := s.store.Remove(ctx, id)
	if err != nil {
		return err
	}

	if found {
		s.release(ctx, removed.ImageFile)
	}

	s.logger.Info("Profile deleted", zap.Int64("id", id))
	s.notify(ctx, notificationservice.ChangeDeleted, id)
	return nil
}

// claim keeps owned as is and hands every other reference to Images.Claim, so
// a durable file named by a client or a workbook is copied, never shared.
func (s *Service) claim(ref, owned string) (string, error) {
	if s.images == nil || (ref != "" && ref == owned) {
		return ref, nil
	}
	image, err := s.images.Claim(ref)
	if err != nil {
		return "", fmt.Errorf("save profile image: %w", err)
	}
	return image, nil
}

// release discards ref unless a stored profile still points at it. Collections
// written before images were claimed per profile may share files.
func (s *Service) release(ctx context.Context, ref string) {
	if s.images == nil || ref == "" {
		return
	}
	for _, p := range s.store.List(ctx) {
		if p.ImageFile == ref {
			s.logger.Debug("Image still in use", zap.String("ref", ref), zap.Int64("id", p.ID))
			return
		}
	}
	s.images.Discard(ref)
}

// notify never fails the mutation that triggered it.
func (s *Service) notify(ctx context.Context, kind string, id int64) {
	change := notificationservice.Change{Kind: kind, ProfileID: id, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.logger.Warn("Error publishing profile change", zap.String("kind", kind), zap.Error(err))
	}
}

// IsNotFound reports whether err means the profile does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}
