package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/internal/storage"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// GET /api/scenarios
func (s *Server) listScenarios(c echo.Context) error {
	scenarios, err := s.scenarios.List()
	if err != nil {
		s.log.Error(err, "failed to list scenarios")
		return errorResponse(c, http.StatusInternalServerError, "failed to list scenarios")
	}
	return c.JSON(http.StatusOK, scenarios)
}

// POST /api/scenarios
func (s *Server) createScenario(c echo.Context) error {
	var scenario model.Scenario
	if err := c.Bind(&scenario); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if err := scenario.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	created, err := s.scenarios.Create(scenario)
	if err != nil {
		s.log.Error(err, "failed to create scenario")
		return errorResponse(c, http.StatusInternalServerError, "failed to create scenario")
	}
	return c.JSON(http.StatusCreated, created)
}

// GET /api/scenarios/:id
func (s *Server) getScenario(c echo.Context) error {
	scenario, err := s.scenarios.Get(c.Param("id"))
	if err != nil {
		if synerrors.IsNotFound(err) {
			return errorResponse(c, http.StatusNotFound, "scenario not found")
		}
		s.log.Error(err, "failed to load scenario")
		return errorResponse(c, http.StatusInternalServerError, "failed to load scenario")
	}
	return c.JSON(http.StatusOK, scenario)
}

// PUT /api/scenarios/:id
func (s *Server) updateScenario(c echo.Context) error {
	var scenario model.Scenario
	if err := c.Bind(&scenario); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if err := scenario.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	updated, err := s.scenarios.Update(c.Param("id"), scenario)
	if err != nil {
		if synerrors.IsNotFound(err) {
			return errorResponse(c, http.StatusNotFound, "scenario not found")
		}
		s.log.Error(err, "failed to update scenario")
		return errorResponse(c, http.StatusInternalServerError, "failed to update scenario")
	}
	return c.JSON(http.StatusOK, updated)
}

// DELETE /api/scenarios/:id
func (s *Server) deleteScenario(c echo.Context) error {
	if err := s.scenarios.Delete(c.Param("id")); err != nil {
		if synerrors.IsNotFound(err) {
			return errorResponse(c, http.StatusNotFound, "scenario not found")
		}
		s.log.Error(err, "failed to delete scenario")
		return errorResponse(c, http.StatusInternalServerError, "failed to delete scenario")
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/scenarios/:id/history
func (s *Server) scenarioHistory(c echo.Context) error {
	id := c.Param("id")

	if c.QueryParam("latest") == "true" {
		run, err := s.history.LatestRun(id)
		if err != nil {
			if synerrors.IsNotFound(err) {
				return errorResponse(c, http.StatusNotFound, "scenario has no recorded runs")
			}
			s.log.Error(err, "failed to load latest run")
			return errorResponse(c, http.StatusInternalServerError, "failed to load latest run")
		}
		return c.JSON(http.StatusOK, run)
	}

	runs, err := s.history.ScenarioHistory(id)
	if err != nil {
		s.log.Error(err, "failed to load scenario history")
		return errorResponse(c, http.StatusInternalServerError, "failed to load scenario history")
	}
	return c.JSON(http.StatusOK, runs)
}

// exportDocument is the scenario export/import wire format.
type exportDocument struct {
	Scenarios []model.Scenario `json:"scenarios"`
}

// GET /api/scenarios/export
func (s *Server) exportScenarios(c echo.Context) error {
	scenarios, err := s.scenarios.List()
	if err != nil {
		s.log.Error(err, "failed to export scenarios")
		return errorResponse(c, http.StatusInternalServerError, "failed to export scenarios")
	}
	return c.JSON(http.StatusOK, exportDocument{Scenarios: scenarios})
}

type importRequest struct {
	Scenarios []model.Scenario `json:"scenarios"`
	Merge     bool             `json:"merge"`
}

// POST /api/scenarios/import
func (s *Server) importScenarios(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if len(req.Scenarios) == 0 {
		return errorResponse(c, http.StatusBadRequest, "scenarios are required")
	}
	for _, scenario := range req.Scenarios {
		if err := scenario.Validate(); err != nil {
			return errorResponse(c, http.StatusBadRequest, err.Error())
		}
	}

	imported, err := s.scenarios.Import(req.Scenarios, req.Merge)
	if err != nil {
		s.log.Error(err, "failed to import scenarios")
		return errorResponse(c, http.StatusInternalServerError, "failed to import scenarios")
	}
	return c.JSON(http.StatusOK, exportDocument{Scenarios: imported})
}

// GET /api/scenarios/tags
func (s *Server) listTags(c echo.Context) error {
	tags, err := s.scenarios.Tags()
	if err != nil {
		s.log.Error(err, "failed to list tags")
		return errorResponse(c, http.StatusInternalServerError, "failed to list tags")
	}
	return c.JSON(http.StatusOK, map[string][]string{"tags": tags})
}

// POST /api/scenarios/batch-tags
func (s *Server) batchTags(c echo.Context) error {
	var op storage.BatchTagOperation
	if err := c.Bind(&op); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if len(op.ScenarioIDs) == 0 {
		return errorResponse(c, http.StatusBadRequest, "scenarioIds are required")
	}

	result, err := s.scenarios.BatchTags(op)
	if err != nil {
		var validationErr *synerrors.ValidationError
		if errors.As(err, &validationErr) {
			return errorResponse(c, http.StatusBadRequest, err.Error())
		}
		s.log.Error(err, "failed to apply batch tag operation")
		return errorResponse(c, http.StatusInternalServerError, "failed to apply batch tag operation")
	}
	return c.JSON(http.StatusOK, result)
}
