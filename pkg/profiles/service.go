package profiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchpad/pkg/objectstore"
	"launchpad/pkg/session"
)

// imageLookups bounds concurrent object store lookups per request.
const imageLookups = 8

// LogoPath is where a profile's image is uploaded.
func LogoPath(id string) string {
	return "startupLogos/" + id
}

type ProfileService interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	UpdateProfile(ctx context.Context, s session.State, req UpdateRequest) (Profile, error)
	SearchByEmailPrefix(ctx context.Context, term string) ([]Profile, error)
	LoadByAccType(ctx context.Context, accType AccType) ([]Profile, error)
	UploadLogo(ctx context.Context, s session.State, contentType string, body io.Reader) (Profile, error)
	ImportSeries(ctx context.Context, s session.State, field string, csv io.Reader) ([]float64, error)
	ImportSeriesFor(ctx context.Context, profileID, field string, csv io.Reader) ([]float64, error)
}

type profileService struct {
	repo    ProfileRepository
	objects objectstore.Store
	logger  *zap.Logger
}

func NewProfileService(repo ProfileRepository, objects objectstore.Store, logger *zap.Logger) ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &profileService{repo: repo, objects: objects, logger: logger}
}

func (s *profileService) GetProfile(ctx context.Context, id string) (Profile, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	list := []Profile{p}
	s.attachImages(ctx, list)
	return list[0], nil
}

func (s *profileService) UpdateProfile(ctx context.Context, st session.State, req UpdateRequest) (Profile, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Profile{}, err
	}

	patch := map[string]any{}
	if req.AccType != nil {
		a, err := ParseAccType(*req.AccType)
		if err != nil {
			return Profile{}, err
		}
		patch["accType"] = string(a)
	}
	if req.Revenue != nil {
		patch["revenue"] = *req.Revenue
	}
	if req.Sector != nil {
		patch["startupDetails.sector"] = strings.TrimSpace(*req.Sector)
	}
	if req.Stage != nil {
		patch["startupDetails.stage"] = strings.TrimSpace(*req.Stage)
	}
	if req.Industry != nil {
		patch["startupDetails.industry"] = strings.TrimSpace(*req.Industry)
	}

	if len(patch) > 0 {
		if err := s.repo.Update(ctx, user.ID, patch); err != nil {
			return Profile{}, err
		}
	}
	return s.GetProfile(ctx, user.ID)
}

func (s *profileService) SearchByEmailPrefix(ctx context.Context, term string) ([]Profile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []Profile{}, nil
	}
	return s.repo.SearchByEmailPrefix(ctx, term)
}

func (s *profileService) LoadByAccType(ctx context.Context, accType AccType) ([]Profile, error) {
	list, err := s.repo.ListByAccType(ctx, accType)
	if err != nil {
		return nil, err
	}
	s.attachImages(ctx, list)
	return list, nil
}

func (s *profileService) UploadLogo(ctx context.Context, st session.State, contentType string, body io.Reader) (Profile, error) {
	user, err := st.RequireUser()
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.repo.Get(ctx, user.ID); err != nil {
		return Profile{}, err
	}
	if err := s.objects.Upload(ctx, LogoPath(user.ID), contentType, body); err != nil {
		return Profile{}, fmt.Errorf("upload logo: %w", err)
	}
	return s.GetProfile(ctx, user.ID)
}

func (s *profileService) ImportSeries(ctx context.Context, st session.State, field string, csv io.Reader) ([]float64, error) {
	user, err := st.RequireUser()
	if err != nil {
		return nil, err
	}
	return s.ImportSeriesFor(ctx, user.ID, field, csv)
}

func (s *profileService) ImportSeriesFor(ctx context.Context, profileID, field string, csv io.Reader) ([]float64, error) {
	if err := validateSeriesName(field); err != nil {
		return nil, err
	}
	values, err := ParseSeries(csv)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptySeries
	}
	if err := s.repo.Update(ctx, profileID, map[string]any{"startupDetails." + field: values}); err != nil {
		return nil, err
	}
	s.logger.Info("series imported",
		zap.String("profile_id", profileID),
		zap.String("field", field),
		zap.Int("points", len(values)),
	)
	return values, nil
}

// attachImages resolves every profile's logo in place. A missing or
// unresolvable logo leaves Image empty.
func (s *profileService) attachImages(ctx context.Context, list []Profile) {
	if s.objects == nil || len(list) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(imageLookups)
	for i := range list {
		i := i
		g.Go(func() error {
			url, err := s.objects.ResolveDownloadURL(ctx, LogoPath(list[i].ID))
			if err != nil {
				if !errors.Is(err, objectstore.ErrNotFound) {
					s.logger.Debug("logo lookup failed", zap.String("profile_id", list[i].ID), zap.Error(err))
				}
				return nil
			}
			list[i].Image = url
			return nil
		})
	}
	_ = g.Wait()
}

func validateSeriesName(field string) error {
	switch {
	case field == "", len(field) > 64:
		return fmt.Errorf("%w: %q", ErrInvalidSeriesName, field)
	case reservedDetailKeys[field]:
		return fmt.Errorf("%w: %q is a tag field", ErrInvalidSeriesName, field)
	case strings.ContainsAny(field, "./ "):
		return fmt.Errorf("%w: %q", ErrInvalidSeriesName, field)
	}
	return nil
}
