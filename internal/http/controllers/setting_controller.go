package controllers

import (
	"errors"
	"net/http"
	"strings"

	"school_asset_server/internal/http/middleware"
	"school_asset_server/internal/repository"
	"school_asset_server/internal/services"
	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"

	"github.com/gin-gonic/gin"
)

// cookieMaxAge keeps the workspace selection for a school year
const cookieMaxAge = 365 * 24 * 60 * 60

// SettingController reads and changes which backend the browser's workspace
// uses. The selection lives in a sealed cookie.
type SettingController struct {
	baseController
	registry   *tenant.Registry
	codec      *tenant.Codec
	cookieName string
	secure     bool
}

func NewSettingController(registry *tenant.Registry, codec *tenant.Codec, cookieName string, secure bool) *SettingController {
	return &SettingController{registry: registry, codec: codec, cookieName: cookieName, secure: secure}
}

// BackendStatus describes the backend serving the current request. Secrets
// in the sealed cookie are never echoed back.
type BackendStatus struct {
	Configured    bool   `json:"configured"`
	Backend       string `json:"backend"`
	Source        string `json:"source"`
	DBType        string `json:"dbType,omitempty"`
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
	ProjectID     string `json:"projectId,omitempty"`
}

func (sc *SettingController) GetSettings(c *gin.Context) {
	store := tenant.StoreFrom(c.Request.Context())
	scope := c.GetString(middleware.TenantScopeKey)
	status := BackendStatus{
		Configured: repository.IsConfigured(store),
		Backend:    store.Backend(),
		Source:     "none",
	}
	if status.Configured {
		status.Source = "server"
	}
	if v, ok := c.Get(middleware.TenantConfigKey); ok {
		cfg := v.(*tenant.Config)
		status.DBType = cfg.DBType
		status.SpreadsheetID = cfg.Sheet.SpreadsheetID
		status.ProjectID = cfg.Firebase.ProjectID
		if scope == cfg.Key() {
			status.Source = "cookie"
		}
	}
	sc.createSuccessResponse(c, http.StatusOK, "Backend status retrieved successfully", status, 0)
}

// UpdateSettings selects a backend for this browser. With ?verify=true the
// backend is read once so access problems surface immediately.
func (sc *SettingController) UpdateSettings(c *gin.Context) {
	var cfg tenant.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		sc.badRequest(c, "Invalid backend configuration", err)
		return
	}
	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))

	store, err := sc.registry.Get(c.Request.Context(), cfg)
	if err != nil {
		code := services.CodeBackendError
		if errors.Is(err, tenant.ErrInvalidConfig) {
			code = services.CodeInvalidInput
		}
		sc.createErrorResponse(c, StatusFor(code), string(code), "Backend could not be opened",
			map[string]string{"reason": err.Error()})
		return
	}
	if strings.EqualFold(c.Query("verify"), "true") {
		if _, err := store.ListLocations(c.Request.Context()); err != nil {
			code := services.CodeFor(err)
			sc.createErrorResponse(c, StatusFor(code), string(code), "Backend refused the test read",
				map[string]string{"reason": err.Error()})
			return
		}
	}

	sealed, err := sc.codec.Seal(cfg)
	if err != nil {
		colors.PrintError("Failed to seal backend config: %v", err)
		sc.createErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store backend configuration", nil)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.cookieName, sealed, cookieMaxAge, "/", "", sc.secure, true)
	colors.PrintInfo("Workspace from %s switched to %s", c.ClientIP(), cfg.Key())

	sc.createSuccessResponse(c, http.StatusOK, "Backend configured successfully", BackendStatus{
		Configured:    true,
		Backend:       store.Backend(),
		Source:        "cookie",
		DBType:        cfg.DBType,
		SpreadsheetID: cfg.Sheet.SpreadsheetID,
		ProjectID:     cfg.Firebase.ProjectID,
	}, 0)
}

// ClearSettings forgets the browser's backend selection
func (sc *SettingController) ClearSettings(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.cookieName, "", -1, "/", "", sc.secure, true)
	sc.createSuccessResponse(c, http.StatusOK, "Backend configuration cleared", nil, 0)
}
