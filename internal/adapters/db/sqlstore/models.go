package sqlstore

import "time"

// Timestamps are owned by the service clock, so gorm must not fill them.

type PrincipalModel struct {
	ID        int64     `gorm:"primaryKey"`
	Email     string    `gorm:"not null;uniqueIndex"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (PrincipalModel) TableName() string { return "principals" }

type APITokenModel struct {
	ID          int64  `gorm:"primaryKey"`
	PrincipalID int64  `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	TokenHash   string `gorm:"not null;uniqueIndex"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
}

func (APITokenModel) TableName() string { return "api_tokens" }

type ClientModel struct {
	ID        int64  `gorm:"primaryKey"`
	OwnerID   int64  `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	Email     *string
	Phone     *string
	Urgency   string    `gorm:"not null;default:'NORMAL'"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (ClientModel) TableName() string { return "clients" }

type OpportunityModel struct {
	ID         int64  `gorm:"primaryKey"`
	ClientID   int64  `gorm:"not null;index"`
	CarLabel   string `gorm:"not null"`
	CarModelID *int64
	Stage      string    `gorm:"not null;default:'LEAD'"`
	Urgency    string    `gorm:"not null;default:'NORMAL'"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (OpportunityModel) TableName() string { return "opportunities" }

type NoteModel struct {
	ID            int64     `gorm:"primaryKey"`
	OpportunityID int64     `gorm:"not null;index"`
	Title         string    `gorm:"not null"`
	Content       string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false"`
}

func (NoteModel) TableName() string { return "notes" }

type CarModel struct {
	ID        int64  `gorm:"primaryKey"`
	Brand     string `gorm:"not null"`
	Model     string `gorm:"not null"`
	Version   *string
	Year      *int
	SpecKey   string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (CarModel) TableName() string { return "cars" }

type AuditLogModel struct {
	ID         int64 `gorm:"primaryKey"`
	ActorID    *int64
	Action     string `gorm:"not null"`
	TargetType string `gorm:"not null"`
	TargetID   *int64
	Metadata   string    `gorm:"not null;default:''"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }
