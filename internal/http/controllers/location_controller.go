package controllers

import (
	"net/http"

	"school_asset_server/internal/models"
	"school_asset_server/internal/services"

	"github.com/gin-gonic/gin"
)

// LocationController handles locations and floor maps
type LocationController struct {
	baseController
	zones *services.ZoneService
}

// NewLocationController creates a new location controller
func NewLocationController(zones *services.ZoneService) *LocationController {
	return &LocationController{zones: zones}
}

// RenameRequest is the body of PUT /locations/:id/name
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// DetectedZonesRequest is the body of POST /maps/:mapId/detected-zones
type DetectedZonesRequest struct {
	Zones []models.Zone `json:"zones" binding:"required"`
}

// GetLocations lists locations, optionally for one map (?mapId=)
func (lc *LocationController) GetLocations(c *gin.Context) {
	lc.respondRead(c, lc.zones.ListLocations(c.Request.Context(), c.Query("mapId")))
}

// SaveLocation creates a location, or replaces it when the body carries an id
func (lc *LocationController) SaveLocation(c *gin.Context) {
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		lc.badRequest(c, "Invalid location data", err)
		return
	}
	lc.respondSync(c, http.StatusCreated, lc.zones.SaveLocation(c.Request.Context(), loc))
}

// RenameLocation renames a location and propagates the name to its instances
// and to the map
func (lc *LocationController) RenameLocation(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		lc.badRequest(c, "Location name is required", err)
		return
	}
	lc.respondSync(c, http.StatusOK, lc.zones.RenameZone(c.Request.Context(), c.Param("id"), req.Name))
}

func (lc *LocationController) DeleteLocation(c *gin.Context) {
	lc.respondSync(c, http.StatusOK, lc.zones.DeleteLocation(c.Request.Context(), c.Param("id")))
}

// GetMap returns a floor map's image and zones
func (lc *LocationController) GetMap(c *gin.Context) {
	lc.respondRead(c, lc.zones.LoadMapConfig(c.Request.Context(), c.Param("mapId")))
}

// SaveMap stores a floor map. The map id in the path wins over the body.
func (lc *LocationController) SaveMap(c *gin.Context) {
	var cfg models.MapConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		lc.badRequest(c, "Invalid map data", err)
		return
	}
	cfg.MapID = c.Param("mapId")
	lc.respondSync(c, http.StatusOK, lc.zones.SaveMapConfig(c.Request.Context(), cfg))
}

// MergeDetectedZones adds zones found by image analysis, skipping duplicates
func (lc *LocationController) MergeDetectedZones(c *gin.Context) {
	var req DetectedZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		lc.badRequest(c, "Invalid detected zones", err)
		return
	}
	lc.respondSync(c, http.StatusOK, lc.zones.MergeDetectedZones(c.Request.Context(), c.Param("mapId"), req.Zones))
}
