package handlers

import (
	"net/http"
	"strconv"

	"smart_envi/internal/models"

	"github.com/gin-gonic/gin"
)

const errScheduleIDInvalid = "invalid schedule id"

// scheduleIDParam parses the :id path segment. Returns 0 and writes a 400 on
// bad input.
func (h *Handler) scheduleIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errScheduleIDInvalid})
		return 0, false
	}
	return id, true
}

// @Summary      List schedules
// @Description  Fetches the account's schedules from the cloud. Nothing is cached locally.
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, schedules"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	schedules, err := h.services.Schedules.List(c.Request.Context())
	if err != nil {
		h.writeError(c, "schedules_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(schedules),
		"schedules": schedules,
	})
}

// @Summary      Get schedule
// @Tags         schedules
// @Produce      json
// @Param        id  path  int  true  "Schedule ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [get]
// @Security     BearerAuth
func (h *Handler) getSchedule(c *gin.Context) {
	id, ok := h.scheduleIDParam(c)
	if !ok {
		return
	}
	schedule, err := h.services.Schedules.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "schedule_get_failed", err, "schedule_id", id)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// @Summary      Create schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body  models.Schedule  true  "Schedule payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var schedule models.Schedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	created, err := h.services.Schedules.Create(c.Request.Context(), schedule)
	if err != nil {
		h.writeError(c, "schedule_create_failed", err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// @Summary      Update schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path  int              true  "Schedule ID"
// @Param        body  body  models.Schedule  true  "Schedule payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	id, ok := h.scheduleIDParam(c)
	if !ok {
		return
	}
	var schedule models.Schedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Schedules.Update(c.Request.Context(), id, schedule); err != nil {
		h.writeError(c, "schedule_update_failed", err, "schedule_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated})
}

// @Summary      Delete schedule
// @Tags         schedules
// @Produce      json
// @Param        id  path  int  true  "Schedule ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id, ok := h.scheduleIDParam(c)
	if !ok {
		return
	}
	if err := h.services.Schedules.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, "schedule_delete_failed", err, "schedule_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
