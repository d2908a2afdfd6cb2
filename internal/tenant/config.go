// Package tenant selects the backend store for a request. A request names its
// backend either by an explicit tenant id or by a sealed config cookie; with
// neither it gets the unconfigured store.
package tenant

import (
	"errors"
	"fmt"
	"strings"

	"school_asset_server/internal/models"
)

// DB types a Config can select.
const (
	DBTypeSheets   = "sheets"
	DBTypeFirebase = "firebase"
	DBTypeMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid tenant config")

type SheetConfig struct {
	SpreadsheetID string `json:"spreadsheetId"`
}

type FirebaseConfig struct {
	APIKey        string `json:"apiKey"`
	ProjectID     string `json:"projectId"`
	AuthDomain    string `json:"authDomain,omitempty"`
	StorageBucket string `json:"storageBucket,omitempty"`
}

// Config is one tenant's backend selection.
type Config struct {
	DBType   string         `json:"dbType"`
	Sheet    SheetConfig    `json:"sheet"`
	Firebase FirebaseConfig `json:"firebase"`
}

// Key identifies the tenant's data: the spreadsheet id or the project id.
// Two configs with the same Key share one cached store.
func (c Config) Key() string {
	switch c.DBType {
	case DBTypeSheets:
		return DBTypeSheets + ":" + c.Sheet.SpreadsheetID
	case DBTypeFirebase:
		return DBTypeFirebase + ":" + c.Firebase.ProjectID
	case DBTypeMemory:
		return DBTypeMemory + ":" + c.Sheet.SpreadsheetID
	}
	return ""
}

func (c Config) Validate() error {
	switch c.DBType {
	case DBTypeSheets:
		if strings.TrimSpace(c.Sheet.SpreadsheetID) == "" {
			return fmt.Errorf("%w: spreadsheetId is required", ErrInvalidConfig)
		}
	case DBTypeFirebase:
		if strings.TrimSpace(c.Firebase.ProjectID) == "" {
			return fmt.Errorf("%w: projectId is required", ErrInvalidConfig)
		}
	case DBTypeMemory:
	default:
		return fmt.Errorf("%w: unknown dbType %q", ErrInvalidConfig, c.DBType)
	}
	return nil
}

// FromTenant converts a directory entry into a Config.
func FromTenant(t *models.Tenant) Config {
	return Config{
		DBType: t.DBType,
		Sheet:  SheetConfig{SpreadsheetID: t.SpreadsheetID},
		Firebase: FirebaseConfig{
			APIKey:        t.APIKey,
			ProjectID:     t.ProjectID,
			AuthDomain:    t.AuthDomain,
			StorageBucket: t.StorageBucket,
		},
	}
}

// ToTenant builds a directory entry for id from c.
func (c Config) ToTenant(id, name string) *models.Tenant {
	return &models.Tenant{
		ID:            id,
		Name:          name,
		DBType:        c.DBType,
		SpreadsheetID: c.Sheet.SpreadsheetID,
		ProjectID:     c.Firebase.ProjectID,
		APIKey:        c.Firebase.APIKey,
		AuthDomain:    c.Firebase.AuthDomain,
		StorageBucket: c.Firebase.StorageBucket,
	}
}
