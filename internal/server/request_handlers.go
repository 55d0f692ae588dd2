package server

import (
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"
	"galaxydistance/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCart handles GET /api/galaxy-requests/cart
// @Summary Draft summary
// @Description Return the caller's draft request id and item count
// @Tags galaxy-requests
// @Produce json
// @Success 200 {object} object{draft_id=int,count=int}
// @Failure 401 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/cart [get]
func (s *Server) GetCart(c *fiber.Ctx) error {
	caller := middleware.IdentityFrom(c)
	cart, err := s.requestService.Cart(c.UserContext(), caller.UserID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"draft_id": cart.DraftID,
		"count":    cart.Count,
	})
}

// ListRequests handles GET /api/galaxy-requests?status=&date_from=&date_to=
// @Summary List requests
// @Description List visible requests, filtered by status and submission date
// @Tags galaxy-requests
// @Produce json
// @Param status query string false "Request status"
// @Param date_from query string false "Earliest submission date (YYYY-MM-DD)"
// @Param date_to query string false "Latest submission date (YYYY-MM-DD)"
// @Success 200 {object} object{requests=[]server.requestResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests [get]
func (s *Server) ListRequests(c *fiber.Ctx) error {
	requests, err := s.requestService.List(c.UserContext(), middleware.IdentityFrom(c), service.ListRequestsInput{
		Status:   c.Query("status"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"requests": newRequestList(requests)})
}

// GetRequest handles GET /api/galaxy-requests/:id
// @Summary Get request
// @Description Return one request with its galaxies
// @Tags galaxy-requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} server.requestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/{id} [get]
func (s *Server) GetRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.requestService.Get(c.UserContext(), middleware.IdentityFrom(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newRequestResponse(req))
}

// UpdateDraft handles PUT /api/galaxy-requests/draft
// @Summary Update draft
// @Description Set the telescope of the caller's draft request
// @Tags galaxy-requests
// @Accept json
// @Produce json
// @Param request body object{telescope=string} true "Draft fields"
// @Success 200 {object} server.requestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/draft [put]
func (s *Server) UpdateDraft(c *fiber.Ctx) error {
	var body struct {
		Telescope string `json:"telescope"`
	}
	if err := parseBody(c, &body); err != nil {
		return nil
	}
	caller := middleware.IdentityFrom(c)
	req, err := s.requestService.SetTelescope(c.UserContext(), caller.UserID, body.Telescope)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newRequestResponse(req))
}

// SubmitDraft handles PUT /api/galaxy-requests/draft/submit
// @Summary Submit draft
// @Description Submit the caller's draft request for moderation
// @Tags galaxy-requests
// @Produce json
// @Success 200 {object} server.requestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/draft/submit [put]
func (s *Server) SubmitDraft(c *fiber.Ctx) error {
	caller := middleware.IdentityFrom(c)
	req, err := s.requestService.Submit(c.UserContext(), caller.UserID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newRequestResponse(req))
}

// DeleteDraft handles DELETE /api/galaxy-requests/draft
// @Summary Delete draft
// @Description Mark the caller's draft request as deleted
// @Tags galaxy-requests
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/draft [delete]
func (s *Server) DeleteDraft(c *fiber.Ctx) error {
	caller := middleware.IdentityFrom(c)
	if err := s.requestService.Delete(c.UserContext(), caller.UserID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// SetDraftMagnitude handles PUT /api/galaxy-requests/draft/galaxies/:galaxyId
// @Summary Set magnitude
// @Description Set the observed magnitude of a galaxy in the draft
// @Tags galaxy-requests
// @Accept json
// @Produce json
// @Param galaxyId path int true "Galaxy ID"
// @Param request body object{magnitude=number} true "Observed magnitude"
// @Success 200 {object} object{galaxy_id=int,magnitude=number}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/draft/galaxies/{galaxyId} [put]
func (s *Server) SetDraftMagnitude(c *fiber.Ctx) error {
	galaxyID, err := parseID(c, "galaxyId")
	if err != nil {
		return nil
	}
	var body struct {
		Magnitude *float64 `json:"magnitude"`
	}
	if err := parseBody(c, &body); err != nil {
		return nil
	}
	if body.Magnitude == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("magnitude is required"))
	}

	caller := middleware.IdentityFrom(c)
	if err := s.requestService.SetMagnitude(c.UserContext(), caller.UserID, galaxyID, *body.Magnitude); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"galaxy_id": galaxyID,
		"magnitude": *body.Magnitude,
	})
}

// RemoveDraftGalaxy handles DELETE /api/galaxy-requests/draft/galaxies/:galaxyId
// @Summary Remove galaxy from draft
// @Description Remove a galaxy from the caller's draft request
// @Tags galaxy-requests
// @Produce json
// @Param galaxyId path int true "Galaxy ID"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/draft/galaxies/{galaxyId} [delete]
func (s *Server) RemoveDraftGalaxy(c *fiber.Ctx) error {
	galaxyID, err := parseID(c, "galaxyId")
	if err != nil {
		return nil
	}
	caller := middleware.IdentityFrom(c)
	if err := s.requestService.RemoveItem(c.UserContext(), caller.UserID, galaxyID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

// ResolveRequest handles PUT /api/galaxy-requests/:id/resolve {action: complete|reject}
// @Summary Resolve request
// @Description Complete or reject a submitted request; completion computes distances
// @Tags galaxy-requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body object{action=string} true "complete or reject"
// @Success 200 {object} server.requestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxy-requests/{id}/resolve [put]
func (s *Server) ResolveRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := parseBody(c, &body); err != nil {
		return nil
	}

	caller := middleware.IdentityFrom(c)
	req, err := s.requestService.Resolve(c.UserContext(), caller.UserID, id, body.Action)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newRequestResponse(req))
}
