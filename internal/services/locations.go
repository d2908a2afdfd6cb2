package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"school_asset_server/internal/models"
	"school_asset_server/internal/repository"
)

// locationIndex is the merged view of geometry records and display-name
// aliases. Aliases win for names; geometry comes from the Locations store.
type locationIndex struct {
	ordered []models.Location
	byID    map[string]models.Location
	byName  map[string]models.Location
}

func loadLocationIndex(ctx context.Context, store repository.Store) (*locationIndex, error) {
	var (
		locations []models.Location
		names     map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		locations, err = store.ListLocations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		names, err = store.ListLocationNames(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newLocationIndex(locations, names), nil
}

func newLocationIndex(locations []models.Location, names map[string]string) *locationIndex {
	ix := &locationIndex{
		ordered: make([]models.Location, 0, len(locations)),
		byID:    make(map[string]models.Location, len(locations)),
		byName:  make(map[string]models.Location, len(locations)),
	}
	for _, l := range locations {
		if alias, ok := names[l.ID]; ok && alias != "" {
			l.Name = alias
		}
		if l.MapID == "" {
			l.MapID = models.DefaultMapID
		}
		ix.ordered = append(ix.ordered, l)
		ix.byID[l.ID] = l
		if _, dup := ix.byName[l.Name]; !dup {
			ix.byName[l.Name] = l
		}
	}
	return ix
}

// byExactName resolves a free-text location name. Unmatched names map to the
// text-only sentinel and keep the text as the display name.
func (ix *locationIndex) byExactName(name string) (id, display string) {
	name = strings.TrimSpace(name)
	if l, ok := ix.byName[name]; ok {
		return l.ID, l.Name
	}
	return models.TextOnlyLocationID, name
}

// resolve prefers an id match, then a name match, then the text-only sentinel.
func (ix *locationIndex) resolve(id, name string) (string, string) {
	if id != "" && id != models.TextOnlyLocationID {
		if l, ok := ix.byID[id]; ok {
			return l.ID, l.Name
		}
	}
	return ix.byExactName(name)
}

// displayName is the current name for an instance's location.
func (ix *locationIndex) displayName(inst models.DeviceInstance) string {
	if l, ok := ix.byID[inst.LocationID]; ok {
		return l.Name
	}
	return inst.LocationName
}
