package repository

import (
	"encoding/json"
	"fmt"

	"school_asset_server/internal/mapimage"
	"school_asset_server/internal/models"
)

const (
	sheetChunkSize    = mapimage.SheetChunkSize
	documentChunkSize = mapimage.DocumentChunkSize
)

func normalizeMapID(mapID string) string {
	if mapID == "" {
		return models.DefaultMapID
	}
	return mapID
}

// imagePrefix is the chunk key prefix: chunk i lives under "MapImage_<map>_<i>".
func imagePrefix(mapID string) string {
	return "MapImage_" + normalizeMapID(mapID)
}

func imageCountKey(mapID string) string {
	return "MapImageCount_" + normalizeMapID(mapID)
}

func zoneListKey(mapID string) string {
	return "MapZones_" + normalizeMapID(mapID)
}

func chunkKey(prefix string, i int) string {
	return mapimage.Key(prefix, i)
}

func isImageChunkKey(prefix, key string) bool {
	_, ok := mapimage.Index(prefix, key)
	return ok
}

func splitImage(image string, size int) []string {
	return mapimage.Split(image, size)
}

// assembleImage joins chunk indexes below count, ignoring stale higher ones.
func assembleImage(prefix string, stored map[string]string, count int) (string, error) {
	current := make(map[string]string, count)
	for key, value := range stored {
		if i, ok := mapimage.Index(prefix, key); ok && i < count {
			current[key] = value
		}
	}
	if len(current) != count {
		return "", fmt.Errorf("%w: have %d of %d chunks for %s", mapimage.ErrMissingChunk, len(current), count, prefix)
	}
	return mapimage.Assemble(prefix, current)
}

func encodeZones(zones []models.Zone) (string, error) {
	if zones == nil {
		zones = []models.Zone{}
	}
	b, err := json.Marshal(zones)
	if err != nil {
		return "", fmt.Errorf("encode zone list: %w", err)
	}
	return string(b), nil
}

func decodeZones(blob string) ([]models.Zone, error) {
	if blob == "" {
		return []models.Zone{}, nil
	}
	var zones []models.Zone
	if err := json.Unmarshal([]byte(blob), &zones); err != nil {
		return nil, fmt.Errorf("decode zone list: %w", err)
	}
	return zones, nil
}
