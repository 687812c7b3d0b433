package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumenlms/lumen-api/internal/models"
	"github.com/lumenlms/lumen-api/internal/service"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
	"github.com/lumenlms/lumen-api/pkg/response"
)

// ConnectionHandler exposes the relationship graph endpoints.
type ConnectionHandler struct {
	connections *service.ConnectionService
}

// NewConnectionHandler constructs ConnectionHandler.
func NewConnectionHandler(connections *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// Invite godoc
// @Summary Invite users into a team, course, or collection
// @Tags Connections
// @Accept json
// @Produce json
// @Param payload body service.InviteRequest true "Invite payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /connections/invite [post]
func (h *ConnectionHandler) Invite(c *gin.Context) {
	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edges, err := h.connections.Invite(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edges)
}

// Request godoc
// @Summary Request access to a team, course, or collection
// @Tags Connections
// @Accept json
// @Produce json
// @Param payload body service.RequestAccessRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /connections/request [post]
func (h *ConnectionHandler) Request(c *gin.Context) {
	var req service.RequestAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edge, err := h.connections.RequestAccess(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edge)
}

// Share godoc
// @Summary Share a course with another team
// @Tags Connections
// @Accept json
// @Produce json
// @Param payload body service.ShareCourseRequest true "Share payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /connections/share [post]
func (h *ConnectionHandler) Share(c *gin.Context) {
	var req service.ShareCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edge, err := h.connections.ShareCourse(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edge)
}

// Respond godoc
// @Summary Accept or reject a pending connection
// @Tags Connections
// @Accept json
// @Produce json
// @Param id path string true "Connection ID"
// @Param payload body service.RespondRequest true "Respond payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /connections/{id}/respond [put]
func (h *ConnectionHandler) Respond(c *gin.Context) {
	var req service.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edge, err := h.connections.Respond(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edge, nil)
}

// Remove godoc
// @Summary Remove a connection
// @Tags Connections
// @Produce json
// @Param id path string true "Connection ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /connections/{id} [delete]
func (h *ConnectionHandler) Remove(c *gin.Context) {
	if err := h.connections.Remove(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List connections
// @Tags Connections
// @Produce json
// @Param subjectKind query string false "Subject kind"
// @Param subjectId query string false "Subject ID"
// @Param objectKind query string false "Object kind"
// @Param objectId query string false "Object ID"
// @Param scopeId query string false "Scope team ID"
// @Param type query string false "Connect type"
// @Param status query string false "Connect status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /connections [get]
func (h *ConnectionHandler) List(c *gin.Context) {
	var filter models.ConnectionFilter
	filter.SubjectKind = models.EntityKind(strings.ToUpper(c.Query("subjectKind")))
	filter.SubjectID = c.Query("subjectId")
	filter.ObjectKind = models.EntityKind(strings.ToUpper(c.Query("objectKind")))
	filter.ObjectID = c.Query("objectId")
	filter.ScopeID = c.Query("scopeId")
	filter.ConnectType = models.ConnectType(strings.ToUpper(c.Query("type")))
	filter.ConnectStatus = models.ConnectStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	details, pagination, err := h.connections.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, pagination)
}
