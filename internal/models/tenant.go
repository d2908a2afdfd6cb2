package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is a registered workspace whose backend can be selected by id
// instead of by the per-request cookie.
type Tenant struct {
	ID            string         `json:"id" gorm:"primaryKey;size:64"`
	Name          string         `json:"name" gorm:"size:255"`
	DBType        string         `json:"db_type" gorm:"type:varchar(16);not null"`
	SpreadsheetID string         `json:"spreadsheet_id" gorm:"size:128"`
	ProjectID     string         `json:"project_id" gorm:"size:128"`
	APIKey        string         `json:"-" gorm:"size:128"`
	AuthDomain    string         `json:"auth_domain" gorm:"size:255"`
	StorageBucket string         `json:"storage_bucket" gorm:"size:255"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Tenant model
func (Tenant) TableName() string {
	return "tenants"
}
