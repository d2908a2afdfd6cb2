// Package repository exposes backend-agnostic entity CRUD over either the
// spreadsheet or the document-store adapter.
package repository

import (
	"context"
	"errors"
	"fmt"

	"school_asset_server/internal/backend/docstore"
	"school_asset_server/internal/backend/sheetstore"
	"school_asset_server/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrNotConfigured    = errors.New("no backend configured")
	ErrPermissionDenied = errors.New("permission denied")
)

// Backend names reported by Store.Backend.
const (
	BackendSheets   = "sheets"
	BackendFirebase = "firebase"
	BackendNone     = "none"
)

// Collection and sheet tab names.
const (
	Devices         = "Devices"
	DeviceInstances = "DeviceInstances"
	Locations       = "Locations"
	LocationNames   = "LocationNames"
	SoftwareTitles  = "Software"
	Accounts        = "Accounts"
	Loans           = "Loans"
	SystemConfig    = "SystemConfig"
)

type DeviceRepository interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	CreateDevices(ctx context.Context, devices []models.Device) error
	UpdateDevice(ctx context.Context, id string, patch *models.DevicePatch) (*models.Device, error)
	DeleteDevices(ctx context.Context, ids []string) (int, error)
	DeleteAllDevices(ctx context.Context) (int, error)
}

type InstanceRepository interface {
	ListInstances(ctx context.Context) ([]models.DeviceInstance, error)
	ListInstancesByDevice(ctx context.Context, deviceID string) ([]models.DeviceInstance, error)
	CreateInstances(ctx context.Context, instances []models.DeviceInstance) error
	DeleteInstances(ctx context.Context, ids []string) error
	// RenameInstanceLocation rewrites locationName on every instance that
	// references locationID and returns how many changed.
	RenameInstanceLocation(ctx context.Context, locationID, name string) (int, error)
	// ApplyDistribution patches the device, removes deleteIDs and creates the
	// given instances. Atomic where the backend allows it.
	ApplyDistribution(ctx context.Context, deviceID string, patch *models.DevicePatch, deleteIDs []string, create []models.DeviceInstance) error
}

type LocationRepository interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	SaveLocation(ctx context.Context, loc models.Location) error
	DeleteLocation(ctx context.Context, id string) error
	// ListLocationNames returns the display-name alias store, id -> name.
	ListLocationNames(ctx context.Context) (map[string]string, error)
	SetLocationName(ctx context.Context, id, name string) error
}

type MapRepository interface {
	SaveMapImage(ctx context.Context, mapID, image string) error
	// LoadMapImage reports found=false when no image was ever stored.
	LoadMapImage(ctx context.Context, mapID string) (image string, found bool, err error)
	SaveZoneList(ctx context.Context, mapID string, zones []models.Zone) error
	LoadZoneList(ctx context.Context, mapID string) (zones []models.Zone, found bool, err error)
}

type SoftwareRepository interface {
	ListSoftware(ctx context.Context) ([]models.Software, error)
	SaveSoftware(ctx context.Context, s models.Software) error
	DeleteSoftware(ctx context.Context, id string) error
}

type AccountRepository interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	SaveAccount(ctx context.Context, a models.Account) error
	DeleteAccount(ctx context.Context, id string) error
}

type LoanRepository interface {
	ListLoans(ctx context.Context) ([]models.Loan, error)
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	// CreateLoan stores the loan and sets the device status together.
	CreateLoan(ctx context.Context, loan models.Loan, status models.DeviceStatus) error
	// ReturnLoan deletes the loan and sets the device status together.
	ReturnLoan(ctx context.Context, loanID, deviceID string, status models.DeviceStatus) error
}

// Store is everything one tenant's backend offers. All application logic
// depends on this interface only.
type Store interface {
	Backend() string
	DeviceRepository
	InstanceRepository
	LocationRepository
	MapRepository
	SoftwareRepository
	AccountRepository
	LoanRepository
}

// IsConfigured reports whether s talks to a real backend.
func IsConfigured(s Store) bool {
	return s != nil && s.Backend() != BackendNone
}

// wrap annotates an adapter error and lifts adapter sentinels onto the
// repository ones so callers only need errors.Is against this package.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sheetstore.ErrPermissionDenied), errors.Is(err, docstore.ErrPermissionDenied):
		return fmt.Errorf("%s: %w: %w", op, ErrPermissionDenied, err)
	case errors.Is(err, sheetstore.ErrNotFound), errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
