package handlers

import (
	"errors"
	"net/http"

	"smart_envi/internal/envi"
	"smart_envi/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusUpdated = "updated"

	errDeviceNotFound  = "device not found"
	errRefreshFailed   = "device refresh failed"
	errUpstreamFailed  = "upstream request failed"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// writeError maps service and client errors onto HTTP statuses: unknown
// device is 404, a permanent upstream rejection or local validation failure
// is 400, cloud auth trouble and transient upstream failures are 502.
func (h *Handler) writeError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}

	switch {
	case errors.Is(err, service.ErrUnknownDevice):
		c.JSON(http.StatusNotFound, gin.H{"error": errDeviceNotFound})
	case envi.IsAuthError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "cloud authentication failed"})
	case envi.IsPermanent(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case isTransient(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": errUpstreamFailed})
	default:
		// Local validation failures from the service layer.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// isTransient reports whether err came back from the cloud API as retryable.
func isTransient(err error) bool {
	var apiErr *envi.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Permanent
	}
	var devErr *envi.DeviceError
	return errors.As(err, &devErr)
}

// SetTemperatureRequest is the payload for the setpoint endpoint.
type SetTemperatureRequest struct {
	// Target temperature in the device's configured unit
	Temperature *float64 `json:"temperature" binding:"required" example:"72"`
}

// SetStateRequest switches the heater on or off.
type SetStateRequest struct {
	On *bool `json:"on" binding:"required" example:"true"`
}

// SetModeRequest sets the vendor mode number.
type SetModeRequest struct {
	Mode *int `json:"mode" binding:"required" example:"1"`
}

// SetSettingRequest toggles a vendor setting.
type SetSettingRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"true"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List devices
// @Description  Returns the cached snapshot of every known heater.
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	devices := h.services.Heaters.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"count":   len(devices),
		"devices": devices,
	})
}

// @Summary      Get device
// @Tags         devices
// @Produce      json
// @Param        id  path  string  true  "Device ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id} [get]
// @Security     BearerAuth
func (h *Handler) getDevice(c *gin.Context) {
	dev, ok := h.services.Heaters.Get(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errDeviceNotFound})
		return
	}
	c.JSON(http.StatusOK, dev)
}

// @Summary      Refresh device
// @Description  Fetches the device from the cloud immediately, outside the poll cycle.
// @Tags         devices
// @Produce      json
// @Param        id  path  string  true  "Device ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/devices/{id}/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshDevice(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, known := h.services.Heaters.Get(ctx, id); !known {
		c.JSON(http.StatusNotFound, gin.H{"error": errDeviceNotFound})
		return
	}
	dev, ok := h.services.Heaters.Refresh(ctx, id)
	if !ok {
		h.logAndJSONError(c, http.StatusBadGateway, errRefreshFailed, "device_refresh_failed", nil, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, dev)
}

// @Summary      Set temperature
// @Description  Validates the setpoint against the 50–86 °F device range (converted to the device's unit) before writing.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "Device ID"
// @Param        body  body  SetTemperatureRequest  true  "Setpoint payload"
// @Success      200   {object}  map[string]interface{}  "status, device"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req SetTemperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	dev, err := h.services.Heaters.SetTemperature(c.Request.Context(), id, *req.Temperature)
	if err != nil {
		h.writeError(c, "device_set_temperature_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated, "device": dev})
}

// @Summary      Set state
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "Device ID"
// @Param        body  body  SetStateRequest  true  "State payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/state [post]
// @Security     BearerAuth
func (h *Handler) setState(c *gin.Context) {
	var req SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	dev, err := h.services.Heaters.SetState(c.Request.Context(), id, *req.On)
	if err != nil {
		h.writeError(c, "device_set_state_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated, "device": dev})
}

// @Summary      Set mode
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Device ID"
// @Param        body  body  SetModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	dev, err := h.services.Heaters.SetMode(c.Request.Context(), id, *req.Mode)
	if err != nil {
		h.writeError(c, "device_set_mode_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated, "device": dev})
}

// @Summary      Set vendor setting
// @Description  Forwards a vendor setting write (child_lock, freeze_protect, hold). The cloud rejects these for third-party clients, so expect 400.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Device ID"
// @Param        setting  path  string             true  "Setting name"  Enums(child_lock,freeze_protect,hold)
// @Param        body     body  SetSettingRequest  true  "Toggle payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/settings/{setting} [post]
// @Security     BearerAuth
func (h *Handler) setSetting(c *gin.Context) {
	var req SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	setting := c.Param("setting")
	if err := h.services.Heaters.SetVendorSetting(c.Request.Context(), id, setting, *req.Enabled); err != nil {
		h.writeError(c, "device_set_setting_failed", err, "device_id", id, "setting", setting)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated})
}
