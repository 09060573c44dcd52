package contenttype

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var ErrNotFound = core.NewNotFoundError("content type")

type (
	Repository interface {
		// EnsureContentType returns the content type of (appLabel, model), creating it if missing.
		EnsureContentType(ctx context.Context, appLabel, model string) (ContentType, error)
		QueryContentTypes(ctx context.Context) ([]ContentType, error)
		GetContentType(ctx context.Context, id int) (ContentType, error)
	}

	Service struct {
		repo     Repository
		registry *Registry
	}
)

func NewService(repo Repository, registry *Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

func (svc *Service) Registry() *Registry { return svc.registry }

// Sync makes sure every registered model has a persisted content type.
func (svc *Service) Sync(ctx context.Context) ([]ContentType, error) {
	models := svc.registry.Models()
	cts := make([]ContentType, 0, len(models))
	for _, m := range models {
		ct, err := svc.repo.EnsureContentType(ctx, m.AppLabel, m.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "syncing %s", m.Key())
		}
		cts = append(cts, ct)
	}
	return cts, nil
}

func (svc *Service) Query(ctx context.Context) ([]ContentType, error) {
	return svc.repo.QueryContentTypes(ctx)
}

func (svc *Service) Get(ctx context.Context, id int) (ContentType, error) {
	return svc.repo.GetContentType(ctx, id)
}

// Ensure returns the persisted content type of m.
func (svc *Service) Ensure(ctx context.Context, m Model) (ContentType, error) {
	return svc.repo.EnsureContentType(ctx, m.AppLabel, m.Name)
}

// ModelFor returns the registered model of ct; false for stale content types.
func (svc *Service) ModelFor(ct ContentType) (Model, bool) {
	return svc.registry.Lookup(ct.AppLabel, ct.Model)
}
