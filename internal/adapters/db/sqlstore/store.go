package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type PipelineRepository struct {
	db *gorm.DB
}

var _ domain.PipelineRepository = (*PipelineRepository)(nil)

// Open connects to the relational store. For sqlite, dsn is a file path and
// foreign keys are switched on; for mysql it is a go-sql-driver DSN.
func Open(driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        sqliteDSN(dsn),
		}
	case DriverMySQL:
		cfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.ClientFoundRows = true
		dialector = mysql.Open(cfg.FormatDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newQueryLogger(log),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// one writer; a transaction holds the only connection until it ends
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func NewPipelineRepository(db *gorm.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

func (r *PipelineRepository) InTx(ctx context.Context, fn func(repo domain.PipelineRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PipelineRepository{db: tx})
	})
}

func (r *PipelineRepository) CreatePrincipal(ctx context.Context, value domain.Principal) (domain.Principal, error) {
	m := PrincipalModel{Email: value.Email, Name: value.Name, CreatedAt: value.CreatedAt, UpdatedAt: value.UpdatedAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Principal{}, translate(err, "principal")
	}
	return toPrincipal(m), nil
}

func (r *PipelineRepository) GetPrincipalByID(ctx context.Context, id domain.PrincipalID) (domain.Principal, error) {
	var m PrincipalModel
	if err := r.db.WithContext(ctx).First(&m, int64(id)).Error; err != nil {
		return domain.Principal{}, translate(err, "principal")
	}
	return toPrincipal(m), nil
}

func (r *PipelineRepository) GetPrincipalByEmail(ctx context.Context, email string) (domain.Principal, error) {
	var m PrincipalModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return domain.Principal{}, translate(err, "principal")
	}
	return toPrincipal(m), nil
}

func (r *PipelineRepository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{
		PrincipalID: int64(value.PrincipalID),
		Name:        value.Name,
		TokenHash:   value.TokenHash,
		ExpiresAt:   value.ExpiresAt,
		CreatedAt:   value.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIToken{}, translate(err, "api token")
	}
	return toAPIToken(m), nil
}

func (r *PipelineRepository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, translate(err, "api token")
	}
	return toAPIToken(m), nil
}

func (r *PipelineRepository) CreateAuditLog(ctx context.Context, value domain.AuditLog) error {
	m := AuditLogModel{
		Action:     value.Action,
		TargetType: value.TargetType,
		TargetID:   value.TargetID,
		Metadata:   value.Metadata,
		CreatedAt:  value.CreatedAt,
	}
	if value.ActorID != nil {
		actor := int64(*value.ActorID)
		m.ActorID = &actor
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *PipelineRepository) ListAuditLogs(ctx context.Context, actor domain.PrincipalID, limit int) ([]domain.AuditLog, error) {
	rows := make([]AuditLogModel, 0)
	if err := r.db.WithContext(ctx).
		Where("actor_id = ?", int64(actor)).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.AuditLog, 0, len(rows))
	for _, m := range rows {
		item := domain.AuditLog{
			ID:         m.ID,
			Action:     m.Action,
			TargetType: m.TargetType,
			TargetID:   m.TargetID,
			Metadata:   m.Metadata,
			CreatedAt:  m.CreatedAt,
		}
		if m.ActorID != nil {
			id := domain.PrincipalID(*m.ActorID)
			item.ActorID = &id
		}
		result = append(result, item)
	}
	return result, nil
}

// countGrouped counts rows of table per value of column, restricted to ids.
func (r *PipelineRepository) countGrouped(ctx context.Context, table, column string, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	type row struct {
		RefID int64
		Total int64
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).
		Table(table).
		Select(column+" AS ref_id, COUNT(*) AS total").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RefID] = row.Total
	}
	return out, nil
}

func (r *PipelineRepository) count(ctx context.Context, table, column string, id int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table(table).Where(column+" = ?", id).Count(&n).Error
	return n, err
}

// translate maps store errors onto the domain taxonomy. Unique and foreign
// key violations are the backstop for the integrity checks done before a write.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound("%s not found", what)
	case isDuplicate(err):
		return domain.Conflict("%s already exists", what)
	case isForeignKey(err):
		return domain.Conflict("%s is still referenced", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKey(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1451 || myErr.Number == 1452
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

func isConstraint(err error) bool {
	return isDuplicate(err) || isForeignKey(err)
}

func toPrincipal(m PrincipalModel) domain.Principal {
	return domain.Principal{
		ID:        domain.PrincipalID(m.ID),
		Email:     m.Email,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toAPIToken(m APITokenModel) domain.APIToken {
	return domain.APIToken{
		ID:          m.ID,
		PrincipalID: domain.PrincipalID(m.PrincipalID),
		Name:        m.Name,
		TokenHash:   m.TokenHash,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
	}
}
