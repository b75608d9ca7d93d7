package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// POST /api/scenarios/:id/execute
func (s *Server) executeScenario(c echo.Context) error {
	scenario, err := s.scenarios.Get(c.Param("id"))
	if err != nil {
		if synerrors.IsNotFound(err) {
			return errorResponse(c, http.StatusNotFound, "scenario not found")
		}
		s.log.Error(err, "failed to load scenario")
		return errorResponse(c, http.StatusInternalServerError, "failed to load scenario")
	}

	scenarios := []model.Scenario{*scenario}
	if err := s.preflightCredentials(scenarios); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	executionID := uuid.NewString()
	if err := s.enqueue(executionID, scenarios); err != nil {
		return errorResponse(c, http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"executionRunId": executionID,
		"status":         "started",
	})
}

type batchExecuteRequest struct {
	ScenarioIDs []string `json:"scenarioIds"`
	ExecutionID string   `json:"executionId"`
}

// POST /api/scenarios/batch-execute
func (s *Server) batchExecute(c echo.Context) error {
	var req batchExecuteRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if len(req.ScenarioIDs) == 0 {
		return errorResponse(c, http.StatusBadRequest, "scenarioIds are required")
	}

	scenarios := make([]model.Scenario, 0, len(req.ScenarioIDs))
	for _, id := range req.ScenarioIDs {
		scenario, err := s.scenarios.Get(id)
		if err != nil {
			if synerrors.IsNotFound(err) {
				return errorResponse(c, http.StatusNotFound, "scenario not found: "+id)
			}
			s.log.Error(err, "failed to load scenario")
			return errorResponse(c, http.StatusInternalServerError, "failed to load scenario")
		}
		scenarios = append(scenarios, *scenario)
	}

	if err := s.preflightCredentials(scenarios); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}
	if err := s.enqueue(executionID, scenarios); err != nil {
		return errorResponse(c, http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"executionRunId": executionID,
		"status":         "started",
		"scenarioCount":  len(scenarios),
	})
}

// enqueue seeds the tracker so pollers see the execution immediately,
// then hands the job to the dispatch queue.
func (s *Server) enqueue(executionID string, scenarios []model.Scenario) error {
	s.tracker.CreateExecution(executionID, scenarios)
	return s.queue.Enqueue(Job{ExecutionID: executionID, Scenarios: scenarios})
}

// preflightCredentials rejects executions whose event types need
// credentials that are not configured, before any event is dispatched.
func (s *Server) preflightCredentials(scenarios []model.Scenario) error {
	needsMonitor := false
	needsEmail := false
	for _, scenario := range scenarios {
		for _, ev := range scenario.Events {
			switch ev.Type {
			case model.EventTypeMonitorEvent, model.EventTypeMonitorLog:
				needsMonitor = true
			case model.EventTypeEmail:
				needsEmail = true
			}
		}
	}

	settings, err := s.settings.Load()
	if err != nil {
		return err
	}
	if missing := settings.MissingCredentials(needsMonitor, needsEmail); len(missing) > 0 {
		return synerrors.NewValidationError("settings", "missing credentials: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// GET /api/execution/history
func (s *Server) executionHistory(c echo.Context) error {
	runs, err := s.history.All()
	if err != nil {
		s.log.Error(err, "failed to load execution history")
		return errorResponse(c, http.StatusInternalServerError, "failed to load execution history")
	}
	return c.JSON(http.StatusOK, runs)
}

// GET /api/execution/:id
func (s *Server) getExecutionRun(c echo.Context) error {
	run, err := s.history.LoadRun(c.Param("id"))
	if err != nil {
		if synerrors.IsNotFound(err) {
			return errorResponse(c, http.StatusNotFound, "execution run not found")
		}
		s.log.Error(err, "failed to load execution run")
		return errorResponse(c, http.StatusInternalServerError, "failed to load execution run")
	}
	return c.JSON(http.StatusOK, run)
}

// GET /api/execution/:id/progress
func (s *Server) executionProgress(c echo.Context) error {
	id := c.Param("id")

	// Repair events stranded in running before answering, so a crashed
	// dispatch cannot pin the execution in a non-terminal view forever.
	if s.tracker.FixStuckExecution(id) {
		s.log.WithExecution(id).Warn("repaired stuck events before reporting progress")
	}

	view, err := s.progress.Resolve(id)
	if err != nil {
		if synerrors.IsNotFound(err) {
			return errorResponse(c, http.StatusNotFound, "Execution not found - it may still be initializing")
		}
		s.log.Error(err, "failed to resolve execution progress")
		return errorResponse(c, http.StatusInternalServerError, "failed to resolve execution progress")
	}
	return c.JSON(http.StatusOK, view)
}
