package server

import (
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetRecentlyViewed handles GET /api/viewed?count=
// @Summary Recently viewed galaxies
// @Description Return the guest's most recently viewed galaxies
// @Tags viewed
// @Produce json
// @Param count query int false "Number of galaxies to return"
// @Success 200 {object} object{galaxies=[]server.galaxyResponse}
// @Failure 500 {object} models.ErrorResponse
// @Router /viewed [get]
func (s *Server) GetRecentlyViewed(c *fiber.Ctx) error {
	galaxies, err := s.galaxyService.Recent(c.UserContext(), middleware.GuestTokenFrom(c), c.QueryInt("count", 0))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"galaxies": newGalaxyList(galaxies)})
}

// RecordView handles POST /api/viewed/:id
// @Summary Record view
// @Description Record that the guest viewed a galaxy
// @Tags viewed
// @Produce json
// @Param id path int true "Galaxy ID"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /viewed/{id} [post]
func (s *Server) RecordView(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.galaxyService.RecordView(c.UserContext(), middleware.GuestTokenFrom(c), id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "recorded"})
}
