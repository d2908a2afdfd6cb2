package repository

import (
	"context"

	"school_asset_server/internal/models"
)

// Unconfigured is the store used when a request carries no backend config.
// Reads come back empty, writes fail with ErrNotConfigured.
type Unconfigured struct{}

var _ Store = Unconfigured{}

func (Unconfigured) Backend() string { return BackendNone }

func (Unconfigured) ListDevices(context.Context) ([]models.Device, error) { return nil, nil }

func (Unconfigured) GetDevice(context.Context, string) (*models.Device, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreateDevices(context.Context, []models.Device) error { return ErrNotConfigured }

func (Unconfigured) UpdateDevice(context.Context, string, *models.DevicePatch) (*models.Device, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) DeleteDevices(context.Context, []string) (int, error) { return 0, ErrNotConfigured }
func (Unconfigured) DeleteAllDevices(context.Context) (int, error)        { return 0, ErrNotConfigured }

func (Unconfigured) ListInstances(context.Context) ([]models.DeviceInstance, error) { return nil, nil }

func (Unconfigured) ListInstancesByDevice(context.Context, string) ([]models.DeviceInstance, error) {
	return nil, nil
}

func (Unconfigured) CreateInstances(context.Context, []models.DeviceInstance) error {
	return ErrNotConfigured
}

func (Unconfigured) DeleteInstances(context.Context, []string) error { return ErrNotConfigured }

func (Unconfigured) RenameInstanceLocation(context.Context, string, string) (int, error) {
	return 0, ErrNotConfigured
}

func (Unconfigured) ApplyDistribution(context.Context, string, *models.DevicePatch, []string, []models.DeviceInstance) error {
	return ErrNotConfigured
}

func (Unconfigured) ListLocations(context.Context) ([]models.Location, error) { return nil, nil }

func (Unconfigured) GetLocation(context.Context, string) (*models.Location, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) SaveLocation(context.Context, models.Location) error { return ErrNotConfigured }
func (Unconfigured) DeleteLocation(context.Context, string) error        { return ErrNotConfigured }

func (Unconfigured) ListLocationNames(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (Unconfigured) SetLocationName(context.Context, string, string) error { return ErrNotConfigured }

func (Unconfigured) SaveMapImage(context.Context, string, string) error { return ErrNotConfigured }

func (Unconfigured) LoadMapImage(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (Unconfigured) SaveZoneList(context.Context, string, []models.Zone) error {
	return ErrNotConfigured
}

func (Unconfigured) LoadZoneList(context.Context, string) ([]models.Zone, bool, error) {
	return nil, false, nil
}

func (Unconfigured) ListSoftware(context.Context) ([]models.Software, error) { return nil, nil }
func (Unconfigured) SaveSoftware(context.Context, models.Software) error    { return ErrNotConfigured }
func (Unconfigured) DeleteSoftware(context.Context, string) error           { return ErrNotConfigured }

func (Unconfigured) ListAccounts(context.Context) ([]models.Account, error) { return nil, nil }
func (Unconfigured) SaveAccount(context.Context, models.Account) error     { return ErrNotConfigured }
func (Unconfigured) DeleteAccount(context.Context, string) error           { return ErrNotConfigured }

func (Unconfigured) ListLoans(context.Context) ([]models.Loan, error) { return nil, nil }

func (Unconfigured) GetLoan(context.Context, string) (*models.Loan, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreateLoan(context.Context, models.Loan, models.DeviceStatus) error {
	return ErrNotConfigured
}

func (Unconfigured) ReturnLoan(context.Context, string, string, models.DeviceStatus) error {
	return ErrNotConfigured
}
