package sqlstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

// specKey encodes the identifying tuple of a car into one unique column. An
// absent field encodes differently from any present value, so two tuples
// collide only when every field matches, absent to absent.
func specKey(spec domain.CarSpec) string {
	version := "-"
	if spec.Version != nil {
		version = "+" + *spec.Version
	}
	year := "-"
	if spec.Year != nil {
		year = "+" + strconv.Itoa(*spec.Year)
	}
	return strings.Join([]string{spec.Brand, spec.Model, version, year}, "\x1f")
}

func (r *PipelineRepository) CreateCar(ctx context.Context, value domain.Car) (domain.Car, error) {
	m := CarModel{
		Brand:     value.Brand,
		Model:     value.Model,
		Version:   value.Version,
		Year:      value.Year,
		SpecKey:   specKey(value.Spec()),
		CreatedAt: value.CreatedAt,
		UpdatedAt: value.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Car{}, translate(err, "car model")
	}
	return toCar(m, 0), nil
}

func (r *PipelineRepository) GetCar(ctx context.Context, id int64) (domain.Car, error) {
	var m CarModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Car{}, translate(err, "car")
	}
	n, err := r.count(ctx, "opportunities", "car_model_id", m.ID)
	if err != nil {
		return domain.Car{}, err
	}
	return toCar(m, n), nil
}

func (r *PipelineRepository) ListCars(ctx context.Context, filter domain.CarFilter, window domain.Window) ([]domain.Car, error) {
	q := r.db.WithContext(ctx).Table("cars")
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		q = q.Where("cars.brand = ?", brand)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		like := containsPattern(term)
		q = q.Where("(LOWER(cars.brand) LIKE ? OR LOWER(cars.model) LIKE ? OR LOWER(cars.version) LIKE ?)", like, like, like)
	}

	rows := make([]CarModel, 0)
	if err := carOrder.page(q, window).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withCarUsage(ctx, rows)
}

// ListCarsByBrand matches brand as a case-insensitive substring.
func (r *PipelineRepository) ListCarsByBrand(ctx context.Context, brand string) ([]domain.Car, error) {
	rows := make([]CarModel, 0)
	if err := r.db.WithContext(ctx).
		Where("LOWER(brand) LIKE ?", containsPattern(brand)).
		Order("model ASC, COALESCE(year, 0) DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withCarUsage(ctx, rows)
}

// ListModelsByBrand matches brand exactly.
func (r *PipelineRepository) ListModelsByBrand(ctx context.Context, brand string) ([]domain.Car, error) {
	rows := make([]CarModel, 0)
	if err := r.db.WithContext(ctx).
		Where("brand = ?", brand).
		Order("model ASC, COALESCE(year, 0) DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCars(rows, nil), nil
}

func (r *PipelineRepository) SearchCars(ctx context.Context, query string, limit int) ([]domain.Car, error) {
	like := containsPattern(query)
	rows := make([]CarModel, 0)
	if err := r.db.WithContext(ctx).
		Where("(LOWER(brand) LIKE ? OR LOWER(model) LIKE ? OR LOWER(version) LIKE ?)", like, like, like).
		Order("brand ASC, model ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCars(rows, nil), nil
}

func (r *PipelineRepository) ListBrands(ctx context.Context) ([]string, error) {
	brands := make([]string, 0)
	if err := r.db.WithContext(ctx).
		Model(&CarModel{}).
		Distinct("brand").
		Order("brand ASC").
		Pluck("brand", &brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

func (r *PipelineRepository) CarSpecTaken(ctx context.Context, spec domain.CarSpec, excludeID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&CarModel{}).
		Where("spec_key = ? AND id <> ?", specKey(spec), excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *PipelineRepository) SaveCar(ctx context.Context, value domain.Car) (domain.Car, error) {
	res := r.db.WithContext(ctx).
		Model(&CarModel{}).
		Where("id = ?", value.ID).
		Updates(map[string]any{
			"brand":      value.Brand,
			"model":      value.Model,
			"version":    value.Version,
			"year":       value.Year,
			"spec_key":   specKey(value.Spec()),
			"updated_at": value.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Car{}, translate(res.Error, "car model")
	}
	if res.RowsAffected == 0 {
		return domain.Car{}, domain.NotFound("car not found")
	}
	return r.GetCar(ctx, value.ID)
}

func (r *PipelineRepository) DeleteCar(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&CarModel{})
	if res.Error != nil {
		return translate(res.Error, "car")
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("car not found")
	}
	return nil
}

func (r *PipelineRepository) CountCars(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&CarModel{}).Count(&n).Error
	return n, err
}

func (r *PipelineRepository) TopBrands(ctx context.Context, limit int) ([]domain.BrandCount, error) {
	type row struct {
		Brand string
		Total int64
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).
		Model(&CarModel{}).
		Select("brand, COUNT(*) AS total").
		Group("brand").
		Order("total DESC, brand ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.BrandCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.BrandCount{Brand: row.Brand, Count: row.Total})
	}
	return out, nil
}

// MostUsedCars ranks the catalog by how many opportunities reference each car.
func (r *PipelineRepository) MostUsedCars(ctx context.Context, limit int) ([]domain.Car, error) {
	type row struct {
		CarModel
		Total int64
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).
		Table("cars").
		Select("cars.*, (SELECT COUNT(*) FROM opportunities o WHERE o.car_model_id = cars.id) AS total").
		Order("total DESC, cars.id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Car, 0, len(rows))
	for _, row := range rows {
		result = append(result, toCar(row.CarModel, row.Total))
	}
	return result, nil
}

func (r *PipelineRepository) withCarUsage(ctx context.Context, rows []CarModel) ([]domain.Car, error) {
	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}
	counts, err := r.countGrouped(ctx, "opportunities", "car_model_id", ids)
	if err != nil {
		return nil, err
	}
	return toCars(rows, counts), nil
}

func toCars(rows []CarModel, counts map[int64]int64) []domain.Car {
	result := make([]domain.Car, 0, len(rows))
	for _, m := range rows {
		result = append(result, toCar(m, counts[m.ID]))
	}
	return result
}

func toCar(m CarModel, opportunities int64) domain.Car {
	return domain.Car{
		ID:               m.ID,
		Brand:            m.Brand,
		Model:            m.Model,
		Version:          m.Version,
		Year:             m.Year,
		OpportunityCount: opportunities,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
