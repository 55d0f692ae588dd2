package server

import (
	"log/slog"

	"galaxydistance/internal/authz"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"
	"galaxydistance/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users/register
// @Summary Register user
// @Description Create a regular user account
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,first_name=string,last_name=string} true "Registration details"
// @Success 201 {object} object{user=server.userResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": newUserResponse(user),
	})
}

// Login handles POST /api/users/login. It opens an authenticated session and
// sets the session cookie.
// @Summary User login
// @Description Authenticate and set the session_id cookie
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} object{user=server.userResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	ctx := c.UserContext()
	user, err := s.userService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	middleware.SetSessionCookie(c, token, s.sessions.SessionTTL(), s.config.CookieSecure)
	middleware.SetIdentity(c, authz.FromUser(user))
	middleware.Logger.InfoContext(ctx, "user logged in", slog.Uint64("user_id", uint64(user.ID)))

	return c.JSON(fiber.Map{
		"user": newUserResponse(user),
	})
}

// Logout handles POST /api/users/logout. Store failures are logged and the
// cookie is cleared regardless.
// @Summary User logout
// @Description Revoke the current session and clear its cookie
// @Tags users
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 401 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if token := middleware.SessionTokenFrom(c); token != "" {
		if err := s.sessions.Revoke(ctx, token); err != nil {
			middleware.Logger.WarnContext(ctx, "session revoke failed", slog.String("error", err.Error()))
		}
	}
	middleware.ClearSessionCookie(c, s.config.CookieSecure)
	return c.JSON(fiber.Map{"status": "logged out"})
}

// GetProfile handles GET /api/users/profile
// @Summary Get profile
// @Description Return the authenticated user
// @Tags users
// @Produce json
// @Success 200 {object} server.userResponse
// @Failure 401 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /users/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	user, err := s.userService.GetByID(c.UserContext(), id.UserID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newUserResponse(user))
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Update profile
// @Description Change email, names or password of the authenticated user
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{email=string,first_name=string,last_name=string,password=string} true "Fields to change"
// @Success 200 {object} server.userResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security SessionCookie
// @Router /users/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Email     *string `json:"email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Password  *string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	id := middleware.IdentityFrom(c)
	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:    id.UserID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(newUserResponse(user))
}
