package directory

import (
	"context"

	"go.uber.org/zap"

	"launchpad/pkg/profiles"
)

// Loader is the one bulk fetch a listing needs.
type Loader interface {
	LoadByAccType(ctx context.Context, accType profiles.AccType) ([]profiles.Profile, error)
}

type Request struct {
	AccType profiles.AccType
	Search  string
	Filters FilterState
	Sort    Sort
}

type Result struct {
	Profiles []profiles.Profile `json:"profiles"`
	// Total counts the profiles of the account type before filtering.
	Total   int         `json:"total"`
	Search  string      `json:"search"`
	Filters FilterState `json:"filters"`
	Sort    Sort        `json:"sort"`
}

type DirectoryService interface {
	Browse(ctx context.Context, req Request) (Result, error)
}

type directoryService struct {
	loader Loader
	logger *zap.Logger
}

func NewDirectoryService(loader Loader, logger *zap.Logger) DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &directoryService{loader: loader, logger: logger}
}

func (s *directoryService) Browse(ctx context.Context, req Request) (Result, error) {
	all, err := s.loader.LoadByAccType(ctx, req.AccType)
	if err != nil {
		return Result{}, err
	}
	visible := Compute(all, req.Search, req.Filters, req.Sort)
	s.logger.Debug("directory computed",
		zap.String("acc_type", string(req.AccType)),
		zap.Int("total", len(all)),
		zap.Int("visible", len(visible)),
	)
	return Result{
		Profiles: visible,
		Total:    len(all),
		Search:   req.Search,
		Filters:  req.Filters,
		Sort:     req.Sort,
	}, nil
}
