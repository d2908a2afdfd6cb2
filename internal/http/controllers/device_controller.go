package controllers

import (
	"net/http"
	"strings"

	"school_asset_server/internal/models"
	"school_asset_server/internal/services"

	"github.com/gin-gonic/gin"
)

// DeviceController handles device and instance requests
type DeviceController struct {
	baseController
	inventory *services.InventoryService
}

// NewDeviceController creates a new device controller
func NewDeviceController(inventory *services.InventoryService) *DeviceController {
	return &DeviceController{inventory: inventory}
}

// BulkRegisterRequest is the body of POST /devices/bulk
type BulkRegisterRequest struct {
	Devices []models.Device `json:"devices" binding:"required"`
}

// ImportRequest is the body of POST /devices/import. Rows are keyed by the
// header text of the source file.
type ImportRequest struct {
	Rows []services.ImportRow `json:"rows" binding:"required"`
}

// DistributionRequest is the body of PUT /devices/:id/distribution
type DistributionRequest struct {
	Device       *models.DevicePatch     `json:"device"`
	Distribution []services.Distribution `json:"distribution"`
}

// BulkDeleteRequest is the body of POST /devices/bulk-delete
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// GetDevices returns every device with its instances
func (dc *DeviceController) GetDevices(c *gin.Context) {
	dc.respondRead(c, dc.inventory.ListDevices(c.Request.Context()))
}

// GetDevice returns a single device by ID
func (dc *DeviceController) GetDevice(c *gin.Context) {
	dc.respond(c, http.StatusOK, dc.inventory.GetDevice(c.Request.Context(), c.Param("id")))
}

// CreateDevice registers one device
func (dc *DeviceController) CreateDevice(c *gin.Context) {
	var device models.Device
	if err := c.ShouldBindJSON(&device); err != nil {
		dc.badRequest(c, "Invalid device data", err)
		return
	}
	dc.respondSync(c, http.StatusCreated, dc.inventory.RegisterDevice(c.Request.Context(), device))
}

// BulkCreateDevices registers many devices in one request
func (dc *DeviceController) BulkCreateDevices(c *gin.Context) {
	var req BulkRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dc.badRequest(c, "Invalid bulk registration data", err)
		return
	}
	dc.respondSync(c, http.StatusCreated, dc.inventory.BulkRegisterDevices(c.Request.Context(), req.Devices))
}

// ImportDevices maps header-keyed rows onto devices and registers them
func (dc *DeviceController) ImportDevices(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dc.badRequest(c, "Invalid import data", err)
		return
	}
	dc.respondSync(c, http.StatusCreated, dc.inventory.ImportDevices(c.Request.Context(), req.Rows))
}

// UpdateDevice applies a partial update. Fields absent from the body are
// left unchanged.
func (dc *DeviceController) UpdateDevice(c *gin.Context) {
	var patch models.DevicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		dc.badRequest(c, "Invalid device data", err)
		return
	}
	dc.respondSync(c, http.StatusOK, dc.inventory.UpdateDevice(c.Request.Context(), c.Param("id"), &patch))
}

// UpdateDistribution replaces the device's placements
func (dc *DeviceController) UpdateDistribution(c *gin.Context) {
	var req DistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dc.badRequest(c, "Invalid distribution data", err)
		return
	}
	dc.respond(c, http.StatusOK, dc.inventory.UpdateDeviceWithDistribution(c.Request.Context(), c.Param("id"), req.Device, req.Distribution))
}

func (dc *DeviceController) DeleteDevice(c *gin.Context) {
	dc.respondSync(c, http.StatusOK, dc.inventory.DeleteDevice(c.Request.Context(), c.Param("id")))
}

func (dc *DeviceController) BulkDeleteDevices(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dc.badRequest(c, "Invalid bulk delete data", err)
		return
	}
	dc.respondSync(c, http.StatusOK, dc.inventory.BulkDeleteDevices(c.Request.Context(), req.IDs))
}

// DeleteAllDevices wipes the inventory. It requires ?confirm=true.
func (dc *DeviceController) DeleteAllDevices(c *gin.Context) {
	if !strings.EqualFold(c.Query("confirm"), "true") {
		dc.createErrorResponse(c, http.StatusBadRequest, string(services.CodeInvalidInput),
			"Deleting every device requires confirmation",
			map[string]string{"suggestion": "Repeat the request with ?confirm=true"})
		return
	}
	dc.respondSync(c, http.StatusOK, dc.inventory.DeleteAllDevices(c.Request.Context()))
}

func (dc *DeviceController) GetDeviceInstances(c *gin.Context) {
	dc.respondRead(c, dc.inventory.ListDeviceInstances(c.Request.Context(), c.Param("id")))
}

func (dc *DeviceController) GetInstances(c *gin.Context) {
	dc.respondRead(c, dc.inventory.ListInstances(c.Request.Context()))
}
