package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
)

const carStatsTop = 10

// Car operations work on the shared catalog. The principal, where taken, is
// only recorded in the audit trail.

func (s *PipelineService) CreateCar(ctx context.Context, principal domain.PrincipalID, in domain.CarInput) (domain.Car, error) {
	car, err := validCar(domain.Car{Brand: in.Brand, Model: in.Model, Version: in.Version, Year: in.Year})
	if err != nil {
		return domain.Car{}, err
	}

	now := s.now()
	car.CreatedAt, car.UpdatedAt = now, now
	var created domain.Car
	err = s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		if err := checkCarSpec(ctx, tx, car.Spec(), 0); err != nil {
			return err
		}
		s.invalidateCatalog(ctx)
		created, err = tx.CreateCar(ctx, car)
		return err
	})
	if err != nil {
		return domain.Car{}, s.fail(ctx, "car.create", principal, err)
	}

	s.invalidateCatalog(ctx)
	s.done(ctx, principal, "car.create", "car", created.ID, carLabel(created))
	return created, nil
}

func (s *PipelineService) ListCars(ctx context.Context, filter domain.CarFilter, params pagination.Params) (pagination.Page[domain.Car], error) {
	p, err := params.Normalize(pagination.DefaultLimit)
	if err != nil {
		return pagination.Page[domain.Car]{}, err
	}
	rows, err := s.repo.ListCars(ctx, filter, p.Window())
	if err != nil {
		return pagination.Page[domain.Car]{}, s.fail(ctx, "car.list", 0, err)
	}
	return pagination.Cut(rows, p.Limit, func(c domain.Car) int64 { return c.ID }), nil
}

func (s *PipelineService) GetCar(ctx context.Context, id int64) (domain.Car, error) {
	return s.repo.GetCar(ctx, id)
}

func (s *PipelineService) CarsByBrand(ctx context.Context, brand string) ([]domain.Car, error) {
	brand, err := requireText("brand", brand)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCarsByBrand(ctx, brand)
}

// Brands lists the distinct catalog brands, served from the catalog cache
// when it holds them.
func (s *PipelineService) Brands(ctx context.Context) ([]string, error) {
	brands, ok, err := s.cache.Brands(ctx)
	if err != nil {
		s.logger(ctx).Warn().Err(err).Msg("catalog cache read failed")
	}
	if ok {
		return brands, nil
	}

	brands, err = s.repo.ListBrands(ctx)
	if err != nil {
		return nil, s.fail(ctx, "car.brands", 0, err)
	}
	if err := s.cache.StoreBrands(ctx, brands); err != nil {
		s.logger(ctx).Warn().Err(err).Msg("catalog cache write failed")
	}
	return brands, nil
}

func (s *PipelineService) ModelsByBrand(ctx context.Context, brand string) ([]domain.Car, error) {
	brand, err := requireText("brand", brand)
	if err != nil {
		return nil, err
	}
	return s.repo.ListModelsByBrand(ctx, brand)
}

func (s *PipelineService) SearchCars(ctx context.Context, query string, limit int) ([]domain.Car, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InvalidInput("query is required")
	}
	n, err := pagination.Bounded(limit, 10, 20)
	if err != nil {
		return nil, err
	}
	return s.repo.SearchCars(ctx, query, n)
}

// UpdateCar re-checks uniqueness against the tuple the car will have after
// the change, not the one it has now.
func (s *PipelineService) UpdateCar(ctx context.Context, principal domain.PrincipalID, id int64, changes domain.CarChanges) (domain.Car, error) {
	var updated domain.Car
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		current, err := tx.GetCar(ctx, id)
		if err != nil {
			return err
		}

		next := current
		if changes.Brand != nil {
			next.Brand = *changes.Brand
		}
		if changes.Model != nil {
			next.Model = *changes.Model
		}
		next.Version = changes.Version.Apply(current.Version)
		next.Year = changes.Year.Apply(current.Year)
		if next, err = validCar(next); err != nil {
			return err
		}
		if err := checkCarSpec(ctx, tx, next.Spec(), id); err != nil {
			return err
		}

		s.invalidateCatalog(ctx)
		next.UpdatedAt = s.now()
		updated, err = tx.SaveCar(ctx, next)
		return err
	})
	if err != nil {
		return domain.Car{}, s.fail(ctx, "car.update", principal, err)
	}

	s.invalidateCatalog(ctx)
	s.done(ctx, principal, "car.update", "car", updated.ID, carLabel(updated))
	return updated, nil
}

func (s *PipelineService) DeleteCar(ctx context.Context, principal domain.PrincipalID, id int64) error {
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		if _, err := tx.GetCar(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountOpportunitiesByCar(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict("cannot delete car: %d opportunities linked", n)
		}
		s.invalidateCatalog(ctx)
		return tx.DeleteCar(ctx, id)
	})
	if err != nil {
		return s.fail(ctx, "car.delete", principal, err)
	}

	s.invalidateCatalog(ctx)
	s.done(ctx, principal, "car.delete", "car", id, "")
	return nil
}

func (s *PipelineService) CarStats(ctx context.Context) (domain.CarStats, error) {
	total, err := s.repo.CountCars(ctx)
	if err != nil {
		return domain.CarStats{}, s.fail(ctx, "car.stats", 0, err)
	}
	brands, err := s.repo.TopBrands(ctx, carStatsTop)
	if err != nil {
		return domain.CarStats{}, s.fail(ctx, "car.stats", 0, err)
	}
	used, err := s.repo.MostUsedCars(ctx, carStatsTop)
	if err != nil {
		return domain.CarStats{}, s.fail(ctx, "car.stats", 0, err)
	}
	return domain.CarStats{Total: total, ByBrand: brands, MostUsed: used}, nil
}

// invalidateCatalog drops the cached brand list. Catalog writes call it
// inside the transaction before the write and again after commit; a reader
// that loaded the old list before commit and stored it after the second
// drop keeps it for at most the cache TTL.
func (s *PipelineService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger(ctx).Warn().Err(err).Msg("catalog cache invalidate failed")
	}
}

func validCar(car domain.Car) (domain.Car, error) {
	var err error
	if car.Brand, err = requireText("brand", car.Brand); err != nil {
		return domain.Car{}, err
	}
	if car.Model, err = requireText("model", car.Model); err != nil {
		return domain.Car{}, err
	}
	car.Version = optionalText(car.Version)
	if err := validateYear(car.Year); err != nil {
		return domain.Car{}, err
	}
	return car, nil
}

func checkCarSpec(ctx context.Context, tx domain.PipelineRepository, spec domain.CarSpec, excludeID int64) error {
	taken, err := tx.CarSpecTaken(ctx, spec, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Conflict("this car model is already registered")
	}
	return nil
}

func carLabel(c domain.Car) string {
	label := c.Brand + " " + c.Model
	if c.Version != nil {
		label += " " + *c.Version
	}
	if c.Year != nil {
		label += fmt.Sprintf(" %d", *c.Year)
	}
	return label
}
