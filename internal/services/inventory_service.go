package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"school_asset_server/internal/models"
	"school_asset_server/internal/repository"
	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"
)

// InventoryService keeps devices and their instances consistent.
type InventoryService struct {
	notifier Notifier
}

// NewInventoryService creates a new inventory service. notifier may be nil.
func NewInventoryService(notifier Notifier) *InventoryService {
	return &InventoryService{notifier: orNop(notifier)}
}

// Distribution places part of a device's quantity at one location.
type Distribution struct {
	LocationID   string `json:"locationId,omitempty"`
	LocationName string `json:"locationName,omitempty"`
	Quantity     int    `json:"quantity"`
}

// DeviceView is a device with its current placements.
type DeviceView struct {
	models.Device
	Instances []models.DeviceInstance `json:"instances"`
}

// ListDevices returns every device with installLocation derived from its
// instances when it has any.
func (s *InventoryService) ListDevices(ctx context.Context) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]DeviceView{})
	}

	var (
		devices   []models.Device
		instances []models.DeviceInstance
		ix        *locationIndex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		devices, err = store.ListDevices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		instances, err = store.ListInstances(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ix, err = loadLocationIndex(gctx, store)
		return err
	})
	if err := g.Wait(); err != nil {
		return failure(err)
	}

	byDevice := make(map[string][]models.DeviceInstance)
	for _, inst := range instances {
		inst.LocationName = ix.displayName(inst)
		byDevice[inst.DeviceID] = append(byDevice[inst.DeviceID], inst)
	}
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		placed := byDevice[d.ID]
		if len(placed) > 0 {
			d.InstallLocation = deriveInstallLocation(placed)
		}
		if placed == nil {
			placed = []models.DeviceInstance{}
		}
		views = append(views, DeviceView{Device: d, Instances: placed})
	}
	return success("Devices retrieved successfully", views, len(views))
}

func (s *InventoryService) GetDevice(ctx context.Context, id string) Response {
	store := tenant.StoreFrom(ctx)
	d, err := store.GetDevice(ctx, id)
	if err != nil {
		return failure(err)
	}
	instances, err := store.ListInstancesByDevice(ctx, id)
	if err != nil {
		return failure(err)
	}
	if len(instances) > 0 {
		d.InstallLocation = deriveInstallLocation(instances)
	}
	return success("Device retrieved successfully", DeviceView{Device: *d, Instances: instances}, 1)
}

func (s *InventoryService) ListDeviceInstances(ctx context.Context, deviceID string) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]models.DeviceInstance{})
	}
	instances, err := store.ListInstancesByDevice(ctx, deviceID)
	if err != nil {
		return failure(err)
	}
	return success("Instances retrieved successfully", instances, len(instances))
}

func (s *InventoryService) ListInstances(ctx context.Context) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]models.DeviceInstance{})
	}
	instances, err := store.ListInstances(ctx)
	if err != nil {
		return failure(err)
	}
	return success("Instances retrieved successfully", instances, len(instances))
}

// RegisterDevice registers a single device.
func (s *InventoryService) RegisterDevice(ctx context.Context, device models.Device) SyncResult {
	return s.BulkRegisterDevices(ctx, []models.Device{device})
}

// BulkRegisterDevices assigns missing ids, applies registration defaults and
// writes the devices in backend-sized chunks. Devices that arrive with an
// install location get one instance each as a follow-up step.
func (s *InventoryService) BulkRegisterDevices(ctx context.Context, devices []models.Device) SyncResult {
	store := tenant.StoreFrom(ctx)
	if len(devices) == 0 {
		return SyncResult{Primary: failure(invalid("no devices to register"))}
	}

	seen := make(map[string]bool, len(devices))
	prepared := make([]models.Device, 0, len(devices))
	for i, d := range devices {
		if strings.TrimSpace(d.Name) == "" && strings.TrimSpace(d.Model) == "" && strings.TrimSpace(d.Category) == "" {
			return SyncResult{Primary: failure(invalid("row %d: name, model or category is required", i+1))}
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if seen[d.ID] {
			return SyncResult{Primary: failure(invalid("row %d: duplicate id %s", i+1, d.ID))}
		}
		seen[d.ID] = true
		d.ApplyDefaults()
		prepared = append(prepared, d)
	}

	if err := store.CreateDevices(ctx, prepared); err != nil {
		return SyncResult{Primary: failure(err)}
	}
	colors.PrintSuccess("Registered %d devices", len(prepared))

	ids := make([]string, len(prepared))
	for i, d := range prepared {
		ids[i] = d.ID
	}
	result := SyncResult{Primary: success(fmt.Sprintf("Registered %d devices", len(prepared)), prepared, len(prepared))}

	placed := make([]models.Device, 0)
	for _, d := range prepared {
		if strings.TrimSpace(d.InstallLocation) != "" {
			placed = append(placed, d)
		}
	}
	if len(placed) > 0 {
		n, err := s.createInitialInstances(ctx, store, placed)
		result.record(StepInstances, n, err)
	}

	publish(ctx, s.notifier, "device", "created", ids...)
	return result
}

func (s *InventoryService) createInitialInstances(ctx context.Context, store repository.Store, devices []models.Device) (int, error) {
	ix, err := loadLocationIndex(ctx, store)
	if err != nil {
		return 0, fmt.Errorf("load locations: %w", err)
	}
	now := time.Now().UTC()
	instances := make([]models.DeviceInstance, 0, len(devices))
	for _, d := range devices {
		locID, locName := ix.byExactName(d.InstallLocation)
		instances = append(instances, models.DeviceInstance{
			ID:           uuid.NewString(),
			DeviceID:     d.ID,
			LocationID:   locID,
			LocationName: locName,
			Quantity:     positive(d.Quantity),
			Notes:        models.NoteInstallLocationSync,
			UpdatedAt:    now,
		})
	}
	if err := store.CreateInstances(ctx, instances); err != nil {
		return 0, err
	}
	return len(instances), nil
}

// UpdateDevice applies a partial patch. When the patch carries
// installLocation, even an empty one, the device's instances are replaced
// by a single instance at that location; that follow-up never affects
// Primary.
func (s *InventoryService) UpdateDevice(ctx context.Context, id string, patch *models.DevicePatch) SyncResult {
	store := tenant.StoreFrom(ctx)
	if id == "" || patch == nil {
		return SyncResult{Primary: failure(invalid("device id and patch are required"))}
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return SyncResult{Primary: failure(invalid("quantity must not be negative"))}
	}
	if err := normalizeStatus(patch); err != nil {
		return SyncResult{Primary: failure(err)}
	}

	device, err := store.UpdateDevice(ctx, id, patch)
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	result := SyncResult{Primary: success("Device updated successfully", device, 1)}

	if patch.InstallLocation != nil {
		n, err := s.replaceWithInstallLocation(ctx, store, device, patch)
		result.record(StepInstallLocation, n, err)
	}

	publish(ctx, s.notifier, "device", "updated", id)
	return result
}

// replaceWithInstallLocation deletes every instance of the device and, for a
// non-blank location, creates exactly one replacement.
func (s *InventoryService) replaceWithInstallLocation(ctx context.Context, store repository.Store, device *models.Device, patch *models.DevicePatch) (int, error) {
	existing, err := store.ListInstancesByDevice(ctx, device.ID)
	if err != nil {
		return 0, fmt.Errorf("load instances: %w", err)
	}
	if len(existing) > 0 {
		if err := store.DeleteInstances(ctx, instanceIDs(existing)); err != nil {
			return 0, fmt.Errorf("delete instances: %w", err)
		}
	}

	location := strings.TrimSpace(*patch.InstallLocation)
	if location == "" {
		return 0, nil
	}

	ix, err := loadLocationIndex(ctx, store)
	if err != nil {
		return 0, fmt.Errorf("load locations: %w", err)
	}
	locID, locName := ix.byExactName(location)

	quantity := positive(device.Quantity)
	if patch.Quantity != nil {
		quantity = *patch.Quantity
	}
	if quantity == 0 {
		// an explicit zero leaves nothing to place
		return 0, nil
	}

	inst := models.DeviceInstance{
		ID:           uuid.NewString(),
		DeviceID:     device.ID,
		LocationID:   locID,
		LocationName: locName,
		Quantity:     quantity,
		Notes:        models.NoteInstallLocationSync,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := store.CreateInstances(ctx, []models.DeviceInstance{inst}); err != nil {
		return 0, fmt.Errorf("create instance: %w", err)
	}
	return 1, nil
}

// UpdateDeviceWithDistribution patches the device and replaces its instances
// with one instance per distribution entry. A quantity sum that differs from
// the device quantity is reported in the message but still saved.
func (s *InventoryService) UpdateDeviceWithDistribution(ctx context.Context, id string, patch *models.DevicePatch, distribution []Distribution) Response {
	store := tenant.StoreFrom(ctx)
	if id == "" {
		return failure(invalid("device id is required"))
	}
	if patch == nil {
		patch = &models.DevicePatch{}
	}
	if err := normalizeStatus(patch); err != nil {
		return failure(err)
	}
	for i, d := range distribution {
		if d.LocationID == "" && strings.TrimSpace(d.LocationName) == "" && d.Quantity > 0 {
			return failure(invalid("distribution %d: location id or name is required", i+1))
		}
	}

	device, err := store.GetDevice(ctx, id)
	if err != nil {
		return failure(err)
	}
	existing, err := store.ListInstancesByDevice(ctx, id)
	if err != nil {
		return failure(err)
	}
	ix, err := loadLocationIndex(ctx, store)
	if err != nil {
		return failure(err)
	}

	now := time.Now().UTC()
	create := make([]models.DeviceInstance, 0, len(distribution))
	names := make([]string, 0, len(distribution))
	total := 0
	for _, d := range distribution {
		if d.Quantity <= 0 {
			continue
		}
		locID, locName := ix.resolve(d.LocationID, d.LocationName)
		create = append(create, models.DeviceInstance{
			ID:           uuid.NewString(),
			DeviceID:     id,
			LocationID:   locID,
			LocationName: locName,
			Quantity:     d.Quantity,
			Notes:        models.NoteDistribution,
			UpdatedAt:    now,
		})
		names = append(names, locName)
		total += d.Quantity
	}

	derived := joinNames(names)
	patch.InstallLocation = &derived
	patch.Apply(device)

	if err := store.ApplyDistribution(ctx, id, patch, instanceIDs(existing), create); err != nil {
		return failure(err)
	}

	message := "Device distribution saved successfully"
	if total != device.Quantity {
		message = fmt.Sprintf("Device distribution saved; %d of %d units distributed", total, device.Quantity)
		colors.PrintWarning("Device %s: distributed %d units but quantity is %d", id, total, device.Quantity)
	}

	publish(ctx, s.notifier, "device", "distributed", id)
	return success(message, DeviceView{Device: *device, Instances: create}, len(create))
}

// DeleteDevice removes a device and, as a follow-up, its instances.
func (s *InventoryService) DeleteDevice(ctx context.Context, id string) SyncResult {
	store := tenant.StoreFrom(ctx)
	n, err := store.DeleteDevices(ctx, []string{id})
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	if n == 0 {
		return SyncResult{Primary: failure(fmt.Errorf("device %q: %w", id, repository.ErrNotFound))}
	}
	result := SyncResult{Primary: success("Device deleted successfully", nil, 1)}
	removed, err := s.deleteInstancesOf(ctx, store, map[string]bool{id: true})
	result.record(StepInstances, removed, err)

	publish(ctx, s.notifier, "device", "deleted", id)
	return result
}

func (s *InventoryService) BulkDeleteDevices(ctx context.Context, ids []string) SyncResult {
	store := tenant.StoreFrom(ctx)
	if len(ids) == 0 {
		return SyncResult{Primary: failure(invalid("no device ids given"))}
	}
	n, err := store.DeleteDevices(ctx, ids)
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	result := SyncResult{Primary: success(fmt.Sprintf("Deleted %d devices", n), nil, n)}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	removed, err := s.deleteInstancesOf(ctx, store, set)
	result.record(StepInstances, removed, err)

	publish(ctx, s.notifier, "device", "deleted", ids...)
	return result
}

func (s *InventoryService) DeleteAllDevices(ctx context.Context) SyncResult {
	store := tenant.StoreFrom(ctx)
	n, err := store.DeleteAllDevices(ctx)
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	colors.PrintWarning("Deleted all %d devices", n)
	result := SyncResult{Primary: success(fmt.Sprintf("Deleted %d devices", n), nil, n)}
	removed, err := s.deleteInstancesOf(ctx, store, nil)
	result.record(StepInstances, removed, err)

	publish(ctx, s.notifier, "device", "cleared")
	return result
}

// deleteInstancesOf removes instances whose device is in ids; nil ids means
// every instance.
func (s *InventoryService) deleteInstancesOf(ctx context.Context, store repository.Store, ids map[string]bool) (int, error) {
	all, err := store.ListInstances(ctx)
	if err != nil {
		return 0, fmt.Errorf("load instances: %w", err)
	}
	doomed := make([]string, 0)
	for _, inst := range all {
		if ids == nil || ids[inst.DeviceID] {
			doomed = append(doomed, inst.ID)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := store.DeleteInstances(ctx, doomed); err != nil {
		return 0, fmt.Errorf("delete instances: %w", err)
	}
	return len(doomed), nil
}

// deriveInstallLocation renders instance placements as the display string:
// one location gives its name, several give their names joined.
func deriveInstallLocation(instances []models.DeviceInstance) string {
	names := make([]string, 0, len(instances))
	for _, inst := range instances {
		names = append(names, inst.LocationName)
	}
	return joinNames(names)
}

func joinNames(names []string) string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return strings.Join(out, ", ")
}

func instanceIDs(instances []models.DeviceInstance) []string {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	return ids
}

// normalizeStatus rewrites a patched status label to its canonical value.
func normalizeStatus(patch *models.DevicePatch) error {
	if patch.Status == nil {
		return nil
	}
	st, ok := models.LookupDeviceStatus(string(*patch.Status))
	if !ok {
		return invalid("unknown status %q", *patch.Status)
	}
	patch.Status = &st
	return nil
}

func positive(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
