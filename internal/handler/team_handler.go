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

// TeamHandler exposes team endpoints.
type TeamHandler struct {
	teams *service.TeamService
}

// NewTeamHandler constructs TeamHandler.
func NewTeamHandler(teams *service.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// Create godoc
// @Summary Create team
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body service.CreateTeamRequest true "Team payload"
// @Success 201 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	team, err := h.teams.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}

// Get godoc
// @Summary Get team
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{id} [get]
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Update godoc
// @Summary Update team
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param payload body service.UpdateTeamRequest true "Team payload"
// @Success 200 {object} response.Envelope
// @Router /teams/{id} [put]
func (h *TeamHandler) Update(c *gin.Context) {
	var req service.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	team, err := h.teams.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Delete godoc
// @Summary Delete team
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 204 {object} response.Envelope
// @Router /teams/{id} [delete]
func (h *TeamHandler) Delete(c *gin.Context) {
	if err := h.teams.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List teams
// @Tags Teams
// @Produce json
// @Param active query bool false "Filter by active"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	var filter models.TeamFilter
	if active := c.Query("active"); active != "" {
		value := active == "true"
		filter.Active = &value
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	teams, pagination, err := h.teams.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, pagination)
}
