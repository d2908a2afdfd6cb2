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

// DuplicateZoneDistance is the center distance, in percent of the image,
// below which a detected zone is treated as one that already exists.
const DuplicateZoneDistance = 1.0

// ZoneService manages locations, zone maps and name propagation.
type ZoneService struct {
	notifier Notifier
}

// NewZoneService creates a new zone service. notifier may be nil.
func NewZoneService(notifier Notifier) *ZoneService {
	return &ZoneService{notifier: orNop(notifier)}
}

// ListLocations returns locations with alias names merged in. An empty
// mapID returns every map.
func (s *ZoneService) ListLocations(ctx context.Context, mapID string) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]models.Location{})
	}
	ix, err := loadLocationIndex(ctx, store)
	if err != nil {
		return failure(err)
	}
	out := make([]models.Location, 0, len(ix.ordered))
	for _, l := range ix.ordered {
		if mapID == "" || l.MapID == mapID {
			out = append(out, l)
		}
	}
	return success("Locations retrieved successfully", out, len(out))
}

// SaveLocation creates or replaces a location. The map's zone list is
// refreshed as a follow-up.
func (s *ZoneService) SaveLocation(ctx context.Context, loc models.Location) SyncResult {
	store := tenant.StoreFrom(ctx)
	if err := validateLocation(&loc); err != nil {
		return SyncResult{Primary: failure(err)}
	}
	if loc.ID == "" {
		loc.ID = newLocationID()
	}
	if err := store.SaveLocation(ctx, loc); err != nil {
		return SyncResult{Primary: failure(err)}
	}
	result := SyncResult{Primary: success("Location saved successfully", loc, 1)}

	if loc.IsZone() {
		z := models.ZoneFromLocation(loc)
		err := s.editZoneList(ctx, store, loc.MapID, func(zones []models.Zone) []models.Zone {
			for i := range zones {
				if zones[i].ID == z.ID {
					zones[i] = z
					return zones
				}
			}
			return append(zones, z)
		})
		result.record(StepZoneBlob, 1, err)
	}

	publish(ctx, s.notifier, "location", "saved", loc.ID)
	return result
}

// DeleteLocation removes a location and its alias, then drops it from the
// map's zone list. Instances that referenced it keep their last name.
func (s *ZoneService) DeleteLocation(ctx context.Context, id string) SyncResult {
	store := tenant.StoreFrom(ctx)
	loc, err := store.GetLocation(ctx, id)
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	if err := store.DeleteLocation(ctx, id); err != nil {
		return SyncResult{Primary: failure(err)}
	}
	result := SyncResult{Primary: success("Location deleted successfully", nil, 1)}

	err = s.editZoneList(ctx, store, loc.MapID, func(zones []models.Zone) []models.Zone {
		kept := zones[:0]
		for _, z := range zones {
			if z.ID != id {
				kept = append(kept, z)
			}
		}
		return kept
	})
	result.record(StepZoneBlob, 0, err)

	publish(ctx, s.notifier, "location", "deleted", id)
	return result
}

// RenameZone changes a location's display name and propagates it to the
// instances referencing the location and to the map's zone list. Only the
// location record and its alias make up the primary result.
func (s *ZoneService) RenameZone(ctx context.Context, id, name string) SyncResult {
	store := tenant.StoreFrom(ctx)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return SyncResult{Primary: failure(invalid("location id and name are required"))}
	}

	loc, err := store.GetLocation(ctx, id)
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	previous := loc.Name
	if err := store.SetLocationName(ctx, id, name); err != nil {
		return SyncResult{Primary: failure(err)}
	}
	loc.Name = name
	if err := store.SaveLocation(ctx, *loc); err != nil {
		// aliases override record names on read, so put the old one back
		if rerr := store.SetLocationName(ctx, id, previous); rerr != nil {
			colors.PrintWarning("Location %s alias left at %q after failed rename: %v", id, name, rerr)
		}
		return SyncResult{Primary: failure(err)}
	}
	result := SyncResult{Primary: success("Location renamed successfully", loc, 1)}

	n, err := store.RenameInstanceLocation(ctx, id, name)
	result.record(StepInstances, n, err)

	err = s.editZoneList(ctx, store, loc.MapID, func(zones []models.Zone) []models.Zone {
		for i := range zones {
			if zones[i].ID == id {
				zones[i].Name = name
			}
		}
		return zones
	})
	if err != nil {
		// the zone list is rebuilt from Locations on read
		colors.PrintDebug("Zone list for map %s not updated after rename: %v", loc.MapID, err)
		result.Secondary = append(result.Secondary, StepResult{Step: StepZoneBlob, Error: err.Error()})
	} else {
		result.Secondary = append(result.Secondary, StepResult{Step: StepZoneBlob, Success: true})
	}

	publish(ctx, s.notifier, "location", "renamed", id)
	return result
}

// DetectionResult reports what MergeDetectedZones did.
type DetectionResult struct {
	Added   []models.Location `json:"added"`
	Skipped int               `json:"skipped"`
}

// MergeDetectedZones adds detected zones to a map, skipping any whose center
// lies within DuplicateZoneDistance of an existing zone or of a candidate
// accepted earlier in the same call.
func (s *ZoneService) MergeDetectedZones(ctx context.Context, mapID string, candidates []models.Zone) SyncResult {
	store := tenant.StoreFrom(ctx)
	if mapID == "" {
		mapID = models.DefaultMapID
	}
	if len(candidates) == 0 {
		return SyncResult{Primary: failure(invalid("no detected zones given"))}
	}

	var (
		locations []models.Location
		listed    []models.Zone
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		locations, err = store.ListLocations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		listed, _, err = store.LoadZoneList(gctx, mapID)
		return err
	})
	if err := g.Wait(); err != nil {
		return SyncResult{Primary: failure(err)}
	}

	known := make([]models.Zone, 0, len(locations)+len(listed))
	for _, l := range locations {
		if l.IsZone() && (l.MapID == mapID || (l.MapID == "" && mapID == models.DefaultMapID)) {
			known = append(known, models.ZoneFromLocation(l))
		}
	}
	known = append(known, listed...)

	added := make([]models.Location, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if isDuplicateZone(c, known) {
			skipped++
			continue
		}
		if c.ID == "" {
			c.ID = newLocationID()
		}
		if strings.TrimSpace(c.Name) == "" {
			c.Name = fmt.Sprintf("Zone %d", len(known)+1)
		}
		if c.Type == "" {
			c.Type = models.LocationTypeClassroom
		}
		loc := models.LocationFromZone(c, mapID)
		if err := store.SaveLocation(ctx, loc); err != nil {
			if len(added) == 0 {
				return SyncResult{Primary: failure(err)}
			}
			colors.PrintWarning("Stopped merging detected zones after %d: %v", len(added), err)
			break
		}
		known = append(known, c)
		added = append(added, loc)
	}

	message := fmt.Sprintf("Added %d zones, skipped %d duplicates", len(added), skipped)
	result := SyncResult{Primary: success(message, DetectionResult{Added: added, Skipped: skipped}, len(added))}

	if len(added) > 0 {
		err := s.editZoneList(ctx, store, mapID, func(zones []models.Zone) []models.Zone {
			for _, l := range added {
				zones = append(zones, models.ZoneFromLocation(l))
			}
			return zones
		})
		result.record(StepZoneBlob, len(added), err)

		ids := make([]string, len(added))
		for i, l := range added {
			ids[i] = l.ID
		}
		publish(ctx, s.notifier, "location", "detected", ids...)
	}
	return result
}

func isDuplicateZone(c models.Zone, known []models.Zone) bool {
	for _, k := range known {
		if models.CenterDistance(c, k) < DuplicateZoneDistance {
			return true
		}
	}
	return false
}

// SaveMapConfig stores a map's image and zone list, then upserts each zone
// as a location.
func (s *ZoneService) SaveMapConfig(ctx context.Context, cfg models.MapConfiguration) SyncResult {
	store := tenant.StoreFrom(ctx)
	if cfg.MapID == "" {
		cfg.MapID = models.DefaultMapID
	}
	for i := range cfg.Zones {
		if cfg.Zones[i].ID == "" {
			cfg.Zones[i].ID = newLocationID()
		}
	}

	if cfg.Image != "" {
		if err := store.SaveMapImage(ctx, cfg.MapID, cfg.Image); err != nil {
			return SyncResult{Primary: failure(err)}
		}
	}
	if err := store.SaveZoneList(ctx, cfg.MapID, cfg.Zones); err != nil {
		return SyncResult{Primary: failure(err)}
	}
	cfg.UpdatedAt = time.Now().UTC()
	result := SyncResult{Primary: success("Map saved successfully", cfg, len(cfg.Zones))}

	if len(cfg.Zones) > 0 {
		n, err := s.upsertZoneLocations(ctx, store, cfg)
		result.record(StepLocations, n, err)
	}

	publish(ctx, s.notifier, "map", "saved", cfg.MapID)
	return result
}

// upsertZoneLocations writes zone geometry to Locations, keeping the name of
// any location that already exists.
func (s *ZoneService) upsertZoneLocations(ctx context.Context, store repository.Store, cfg models.MapConfiguration) (int, error) {
	existing, err := store.ListLocations(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]models.Location, len(existing))
	for _, l := range existing {
		byID[l.ID] = l
	}
	written := 0
	for _, z := range cfg.Zones {
		loc := models.LocationFromZone(z, cfg.MapID)
		if prev, ok := byID[z.ID]; ok {
			loc.Name = prev.Name
			if loc.Color == "" {
				loc.Color = prev.Color
			}
			if loc.Type == "" {
				loc.Type = prev.Type
			}
		}
		if loc.Type == "" {
			loc.Type = models.LocationTypeClassroom
		}
		if err := store.SaveLocation(ctx, loc); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// LoadMapConfig returns a map's image and zones. Zone names are refreshed
// from Locations; a missing zone list is rebuilt from Locations.
func (s *ZoneService) LoadMapConfig(ctx context.Context, mapID string) Response {
	store := tenant.StoreFrom(ctx)
	if mapID == "" {
		mapID = models.DefaultMapID
	}
	empty := models.MapConfiguration{MapID: mapID, Zones: []models.Zone{}}
	if !repository.IsConfigured(store) {
		return notConfigured(empty)
	}

	var (
		image     string
		zones     []models.Zone
		zonesSeen bool
		ix        *locationIndex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		image, _, err = store.LoadMapImage(gctx, mapID)
		return err
	})
	g.Go(func() error {
		var err error
		zones, zonesSeen, err = store.LoadZoneList(gctx, mapID)
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

	if !zonesSeen {
		zones = []models.Zone{}
		for _, l := range ix.ordered {
			if l.MapID == mapID && l.IsZone() {
				zones = append(zones, models.ZoneFromLocation(l))
			}
		}
	}
	for i := range zones {
		if l, ok := ix.byID[zones[i].ID]; ok {
			zones[i].Name = l.Name
		}
	}

	cfg := models.MapConfiguration{MapID: mapID, Image: image, Zones: zones}
	return success("Map retrieved successfully", cfg, len(zones))
}

// editZoneList applies edit to a map's stored zone list. A map with no
// stored list is left alone.
func (s *ZoneService) editZoneList(ctx context.Context, store repository.Store, mapID string, edit func([]models.Zone) []models.Zone) error {
	if mapID == "" {
		mapID = models.DefaultMapID
	}
	zones, found, err := store.LoadZoneList(ctx, mapID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return store.SaveZoneList(ctx, mapID, edit(zones))
}

func validateLocation(l *models.Location) error {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return invalid("location name is required")
	}
	for _, v := range []float64{l.PinX, l.PinY} {
		if v < 0 || v > 100 {
			return invalid("coordinates must be between 0 and 100")
		}
	}
	if (l.Width == nil) != (l.Height == nil) {
		return invalid("width and height must be given together")
	}
	if l.Width != nil && (*l.Width <= 0 || *l.Height <= 0) {
		return invalid("width and height must be positive")
	}
	if l.MapID == "" {
		l.MapID = models.DefaultMapID
	}
	if l.Type == "" {
		l.Type = models.LocationTypeClassroom
	}
	return nil
}

// newLocationID returns a time-ordered id.
func newLocationID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
