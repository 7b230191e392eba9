package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/models"
	"research_portal_api/storage"
)

// Attachments are the object references a client may send alongside a
// publication. Each is a key fragment (or a URL under the public base)
// resolved to a public URL before the row is saved.
type Attachments struct {
	ImagePath *string `json:"image_path"`
	FilePath  *string `json:"file_path"`
}

// PublicationService runs the owner-gated workflow for one publication
// type. P is *T.
type PublicationService[T any, P interface {
	*T
	models.Record
}] struct {
	kind    string
	store   PublicationStore[T]
	objects storage.ObjectStore
	log     *zap.Logger
	now     func() time.Time
}

func NewPublicationService[T any, P interface {
	*T
	models.Record
}](kind string, store PublicationStore[T], objects storage.ObjectStore, log *zap.Logger) *PublicationService[T, P] {
	return &PublicationService[T, P]{
		kind:    kind,
		store:   store,
		objects: objects,
		log:     log.With(zap.String("publication", kind)),
		now:     time.Now,
	}
}

func (s *PublicationService[T, P]) Kind() string { return s.kind }

// Create stores rec with the caller as owner.
func (s *PublicationService[T, P]) Create(ctx context.Context, p authz.Principal, rec *T, att Attachments) (*T, error) {
	if err := authz.Can(p, authz.CreatePublication); err != nil {
		return nil, err
	}
	b := P(rec).Base()
	b.ID = 0
	b.OwnerUID = p.UID
	b.ImageURL, b.FileURL = "", ""
	b.CreatedAt, b.UpdatedAt = time.Time{}, time.Time{}

	if _, err := s.attach(b, att); err != nil {
		return nil, err
	}
	if err := s.normalize(b); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info("publication created", zap.Uint("id", b.ID), zap.String("owner", p.UID))
	return rec, nil
}

func (s *PublicationService[T, P]) ListAll(ctx context.Context, p authz.Principal) ([]T, error) {
	if err := authz.Can(p, authz.ListAllPublications); err != nil {
		return nil, err
	}
	return s.store.List(ctx, "")
}

func (s *PublicationService[T, P]) ListMine(ctx context.Context, p authz.Principal) ([]T, error) {
	if err := authz.Can(p, authz.ListOwnPublications); err != nil {
		return nil, err
	}
	return s.store.List(ctx, p.UID)
}

func (s *PublicationService[T, P]) Get(ctx context.Context, p authz.Principal, id uint) (*T, error) {
	if err := authz.Can(p, authz.ReadPublication); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

// owned runs the role check for a, then loads the row and applies the
// owner gate. The row is only read once the role allows the action.
func (s *PublicationService[T, P]) owned(ctx context.Context, p authz.Principal, a authz.Action, id uint) (*T, error) {
	var (
		rec     *T
		loadErr error
	)
	err := authz.CanModify(p, a, func() string {
		if rec, loadErr = s.store.FindByID(ctx, id); loadErr != nil {
			return ""
		}
		return P(rec).Base().OwnerUID
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies a partial update. apply writes the client's fields onto
// the stored row; owner, id, attachment URLs and timestamps are kept. A
// replaced attachment's old object is deleted after the save succeeds,
// and a failure there is only logged.
func (s *PublicationService[T, P]) Update(ctx context.Context, p authz.Principal, id uint, apply func(rec *T) error, att Attachments) (*T, error) {
	rec, err := s.owned(ctx, p, authz.UpdatePublication, id)
	if err != nil {
		return nil, err
	}
	b := P(rec).Base()
	kept := *b
	if apply != nil {
		if err := apply(rec); err != nil {
			return nil, err
		}
	}
	b = P(rec).Base()
	b.ID = kept.ID
	b.OwnerUID = kept.OwnerUID
	b.ImageURL = kept.ImageURL
	b.FileURL = kept.FileURL
	b.CreatedAt = kept.CreatedAt

	stale, err := s.attach(b, att)
	if err != nil {
		return nil, err
	}
	if err := s.normalize(b); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	for _, u := range stale {
		dropObject(ctx, s.objects, s.log, u)
	}
	return rec, nil
}

// Delete removes the row, then its image and file objects best-effort.
func (s *PublicationService[T, P]) Delete(ctx context.Context, p authz.Principal, id uint) error {
	rec, err := s.owned(ctx, p, authz.DeletePublication, id)
	if err != nil {
		return err
	}
	b := P(rec).Base()
	image, file := b.ImageURL, b.FileURL
	if err := s.store.Delete(ctx, rec); err != nil {
		return err
	}
	dropObject(ctx, s.objects, s.log, image)
	dropObject(ctx, s.objects, s.log, file)
	s.log.Info("publication deleted", zap.Uint("id", id), zap.String("by", p.UID))
	return nil
}

func (s *PublicationService[T, P]) DetachImage(ctx context.Context, p authz.Principal, id uint) (*T, error) {
	return s.detach(ctx, p, id, "image", func(b *models.Publication) *string { return &b.ImageURL })
}

func (s *PublicationService[T, P]) DetachFile(ctx context.Context, p authz.Principal, id uint) (*T, error) {
	return s.detach(ctx, p, id, "file", func(b *models.Publication) *string { return &b.FileURL })
}

// detach deletes the referenced object first; if storage fails the row is
// left as it was.
func (s *PublicationService[T, P]) detach(ctx context.Context, p authz.Principal, id uint, what string, field func(*models.Publication) *string) (*T, error) {
	rec, err := s.owned(ctx, p, authz.UpdatePublication, id)
	if err != nil {
		return nil, err
	}
	ref := field(P(rec).Base())
	if *ref == "" {
		return nil, apperr.NotFound(what)
	}
	if key, ok := s.objects.KeyFromURL(*ref); ok {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.log.Error("delete "+what, zap.Uint("id", id), zap.String("key", key), zap.Error(err))
			return nil, err
		}
	}
	*ref = ""
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// attach resolves the supplied paths onto b and returns the URLs they
// replaced. An empty path leaves the current reference alone.
func (s *PublicationService[T, P]) attach(b *models.Publication, att Attachments) ([]string, error) {
	var stale []string
	set := func(field string, ref *string, dst *string) error {
		if ref == nil || strings.TrimSpace(*ref) == "" {
			return nil
		}
		u, err := s.objects.Resolve(*ref)
		if err != nil {
			return apperr.Validation(field, err.Error())
		}
		if u != *dst {
			if *dst != "" {
				stale = append(stale, *dst)
			}
			*dst = u
		}
		return nil
	}
	if err := set("image_path", att.ImagePath, &b.ImageURL); err != nil {
		return nil, err
	}
	if err := set("file_path", att.FilePath, &b.FileURL); err != nil {
		return nil, err
	}
	return stale, nil
}

func (s *PublicationService[T, P]) normalize(b *models.Publication) error {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return apperr.Validation("title", "is required")
	}
	b.Description = strings.TrimSpace(b.Description)
	b.Authors = cleanList(b.Authors)
	b.Tags = cleanList(b.Tags)
	if b.Year != 0 {
		if latest := s.now().Year() + 1; b.Year < 1900 || b.Year > latest {
			return apperr.Validation("year", "out of range")
		}
	}
	return nil
}

// cleanList trims entries and drops blanks, keeping order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
