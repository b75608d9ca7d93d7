package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alexisbeaulieu97/synthevents/internal/channel"
	"github.com/alexisbeaulieu97/synthevents/internal/config"
)

// GET /api/settings
func (s *Server) getSettings(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		s.log.Error(err, "failed to load settings")
		return errorResponse(c, http.StatusInternalServerError, "failed to load settings")
	}
	return c.JSON(http.StatusOK, settings.Masked())
}

// GET /api/settings/raw
func (s *Server) getRawSettings(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		s.log.Error(err, "failed to load settings")
		return errorResponse(c, http.StatusInternalServerError, "failed to load settings")
	}
	return c.JSON(http.StatusOK, settings)
}

// PUT /api/settings
func (s *Server) updateSettings(c echo.Context) error {
	var partial config.Settings
	if err := c.Bind(&partial); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}

	updated, err := s.settings.Update(partial)
	if err != nil {
		s.log.Error(err, "failed to update settings")
		return errorResponse(c, http.StatusInternalServerError, "failed to update settings")
	}
	return c.JSON(http.StatusOK, updated.Masked())
}

// POST /api/settings/test/monitor
func (s *Server) testMonitorConnection(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		s.log.Error(err, "failed to load settings")
		return errorResponse(c, http.StatusInternalServerError, "failed to load settings")
	}

	client := channel.NewMonitorEventsClient(settings.Monitor)
	result := client.TestConnection(c.Request().Context())
	return c.JSON(http.StatusOK, result)
}

// POST /api/settings/test/email
func (s *Server) testEmailConnection(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		s.log.Error(err, "failed to load settings")
		return errorResponse(c, http.StatusInternalServerError, "failed to load settings")
	}

	client := channel.NewEmailClient(settings.Email, settings.Monitor.EmailAddress)
	result := client.TestConnection(c.Request().Context())
	return c.JSON(http.StatusOK, result)
}
