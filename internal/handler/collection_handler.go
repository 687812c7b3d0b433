package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lumenlms/lumen-api/internal/models"
	"github.com/lumenlms/lumen-api/internal/service"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
	"github.com/lumenlms/lumen-api/pkg/response"
)

// CollectionHandler exposes collection endpoints.
type CollectionHandler struct {
	collections *service.CollectionService
}

// NewCollectionHandler constructs CollectionHandler.
func NewCollectionHandler(collections *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// Create godoc
// @Summary Create collection
// @Tags Collections
// @Accept json
// @Produce json
// @Param payload body service.CreateCollectionRequest true "Collection payload"
// @Success 201 {object} response.Envelope
// @Router /collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	var req service.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.collections.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, collection)
}

// Get godoc
// @Summary Get collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id} [get]
func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.collections.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Update godoc
// @Summary Update collection
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body service.UpdateCollectionRequest true "Collection payload"
// @Success 200 {object} response.Envelope
// @Router /collections/{id} [put]
func (h *CollectionHandler) Update(c *gin.Context) {
	var req service.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.collections.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Delete godoc
// @Summary Delete collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 204 {object} response.Envelope
// @Router /collections/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.collections.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List collections
// @Tags Collections
// @Produce json
// @Param teamId query string false "Filter by team"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /collections [get]
func (h *CollectionHandler) List(c *gin.Context) {
	var filter models.CollectionFilter
	filter.TeamID = c.Query("teamId")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	collections, pagination, err := h.collections.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collections, pagination)
}

// ListCourses godoc
// @Summary List courses in a collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/courses [get]
func (h *CollectionHandler) ListCourses(c *gin.Context) {
	courses, err := h.collections.ListCourses(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// LinkCourse godoc
// @Summary Add a course to a collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Param courseId path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Router /collections/{id}/courses/{courseId} [put]
func (h *CollectionHandler) LinkCourse(c *gin.Context) {
	if err := h.collections.LinkCourse(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnlinkCourse godoc
// @Summary Remove a course from a collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Param courseId path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Router /collections/{id}/courses/{courseId} [delete]
func (h *CollectionHandler) UnlinkCourse(c *gin.Context) {
	if err := h.collections.UnlinkCourse(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
