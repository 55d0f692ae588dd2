package models

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("who"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewNotFoundError("GalaxyRequest", 3), fiber.StatusNotFound},
		{NewConflictError("dup"), fiber.StatusConflict},
		{NewDependencyError("session store", errors.New("dial tcp")), fiber.StatusInternalServerError},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDependencyError("object store", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "object store unavailable: connection refused", err.Error())
	assert.True(t, IsCode(err, CodeDependencyFailure))
	assert.False(t, IsCode(cause, CodeDependencyFailure))
}

func TestRespond(t *testing.T) {
	app := fiber.New()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return Respond(c, NewNotFoundError("Galaxy", 9))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return Respond(c, NewInternalError(errors.New("secret dsn")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body ErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, CodeNotFound, body.Code)
	assert.Equal(t, "Galaxy with ID 9 not found", body.Error)

	resp, err = app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "secret dsn")
}
