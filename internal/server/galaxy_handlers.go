package server

import (
	"errors"
	"io"

	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"
	"galaxydistance/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListGalaxies handles GET /api/galaxies?search=&recently_viewed=true
// @Summary List galaxies
// @Description List active galaxies, optionally filtered by name
// @Tags galaxies
// @Produce json
// @Param search query string false "Case-insensitive name substring"
// @Param recently_viewed query boolean false "Include the guest's recently viewed galaxies"
// @Success 200 {object} object{galaxies=[]server.galaxyResponse,recently_viewed=[]server.galaxyResponse}
// @Failure 500 {object} models.ErrorResponse
// @Router /galaxies [get]
func (s *Server) ListGalaxies(c *fiber.Ctx) error {
	ctx := c.UserContext()
	galaxies, err := s.galaxyService.List(ctx, c.Query("search"))
	if err != nil {
		return models.Respond(c, err)
	}

	resp := fiber.Map{"galaxies": newGalaxyList(galaxies)}
	if c.QueryBool("recently_viewed", false) {
		recent, err := s.galaxyService.Recent(ctx, middleware.GuestTokenFrom(c), 0)
		if err != nil {
			return models.Respond(c, err)
		}
		resp["recently_viewed"] = newGalaxyList(recent)
	}
	return c.JSON(resp)
}

// GetGalaxy handles GET /api/galaxies/:id. Guest views are recorded.
// @Summary Get galaxy
// @Description Return one active galaxy and record the view for guests
// @Tags galaxies
// @Produce json
// @Param id path int true "Galaxy ID"
// @Success 200 {object} server.galaxyResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /galaxies/{id} [get]
func (s *Server) GetGalaxy(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	guest := ""
	if middleware.IdentityFrom(c) == nil {
		guest = middleware.GuestTokenFrom(c)
	}
	galaxy, err := s.galaxyService.Get(c.UserContext(), id, guest)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newGalaxyResponse(galaxy))
}

type galaxyRequestBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateGalaxy handles POST /api/galaxies
// @Summary Create galaxy
// @Description Add a galaxy to the catalog
// @Tags galaxies
// @Accept json
// @Produce json
// @Param request body object{name=string,description=string} true "Galaxy fields"
// @Success 201 {object} server.galaxyResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxies [post]
func (s *Server) CreateGalaxy(c *fiber.Ctx) error {
	var req galaxyRequestBody
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	galaxy, err := s.galaxyService.Create(c.UserContext(), service.GalaxyInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newGalaxyResponse(galaxy))
}

// UpdateGalaxy handles PUT /api/galaxies/:id
// @Summary Update galaxy
// @Description Change the name or description of an active galaxy
// @Tags galaxies
// @Accept json
// @Produce json
// @Param id path int true "Galaxy ID"
// @Param request body object{name=string,description=string} true "Galaxy fields"
// @Success 200 {object} server.galaxyResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxies/{id} [put]
func (s *Server) UpdateGalaxy(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req galaxyRequestBody
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	galaxy, err := s.galaxyService.Update(c.UserContext(), id, service.GalaxyInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newGalaxyResponse(galaxy))
}

// UploadGalaxyImage handles POST /api/galaxies/:id/image (multipart field "image")
// @Summary Upload galaxy image
// @Description Store an image for the galaxy and replace the previous one
// @Tags galaxies
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Galaxy ID"
// @Param image formData file true "Image file"
// @Success 200 {object} server.galaxyResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxies/{id}/image [post]
func (s *Server) UploadGalaxyImage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}

	galaxy, err := s.galaxyService.UploadImage(c.UserContext(), service.UploadImageInput{
		GalaxyID: id,
		Content:  content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newGalaxyResponse(galaxy))
}

// DeactivateGalaxy handles DELETE /api/galaxies/:id. A failed image cleanup
// still reports the deactivation.
// @Summary Deactivate galaxy
// @Description Hide a galaxy from the catalog and remove its image
// @Tags galaxies
// @Produce json
// @Param id path int true "Galaxy ID"
// @Success 200 {object} object{status=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} object{status=string,error=string}
// @Security SessionCookie
// @Router /galaxies/{id} [delete]
func (s *Server) DeactivateGalaxy(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	err = s.galaxyService.Deactivate(c.UserContext(), id)
	var partial *service.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "deactivated",
			"error":  partial.Error(),
		})
	case err != nil:
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "deactivated"})
}

// AddGalaxyToDraft handles POST /api/galaxies/:id/draft
// @Summary Add galaxy to draft
// @Description Add the galaxy to the caller's draft request, creating the draft when needed
// @Tags galaxies
// @Produce json
// @Param id path int true "Galaxy ID"
// @Success 200 {object} object{request_id=int,added=boolean,message=string}
// @Success 201 {object} object{request_id=int,added=boolean,message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /galaxies/{id}/draft [post]
func (s *Server) AddGalaxyToDraft(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	caller := middleware.IdentityFrom(c)
	res, err := s.requestService.AddToDraft(c.UserContext(), caller.UserID, id)
	if err != nil {
		return models.Respond(c, err)
	}

	if !res.Added {
		return c.JSON(fiber.Map{
			"request_id": res.RequestID,
			"added":      false,
			"message":    "already present",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"request_id": res.RequestID,
		"added":      true,
		"message":    "added",
	})
}
