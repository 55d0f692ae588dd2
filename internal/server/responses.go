package server

import (
	"galaxydistance/internal/models"
)

type userResponse struct {
	ID        uint        `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      models.Role `json:"role"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

type galaxyResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	IsActive    bool    `json:"is_active"`
}

func newGalaxyResponse(g *models.Galaxy) galaxyResponse {
	return galaxyResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		ImageURL:    optionalString(g.ImageURL),
		IsActive:    g.IsActive,
	}
}

func newGalaxyList(galaxies []models.Galaxy) []galaxyResponse {
	out := make([]galaxyResponse, 0, len(galaxies))
	for i := range galaxies {
		out = append(out, newGalaxyResponse(&galaxies[i]))
	}
	return out
}

type lineItemResponse struct {
	GalaxyID  uint            `json:"galaxy_id"`
	Galaxy    *galaxyResponse `json:"galaxy"`
	Magnitude *float64        `json:"magnitude"`
	Distance  *float64        `json:"distance"`
	AddedAt   *string         `json:"added_at"`
}

type requestResponse struct {
	ID          uint               `json:"id"`
	Status      string             `json:"status"`
	Creator     *string            `json:"creator"`
	Moderator   *string            `json:"moderator"`
	Telescope   string             `json:"telescope"`
	CreatedAt   *string            `json:"created_at"`
	SubmittedAt *string            `json:"submitted_at"`
	CompletedAt *string            `json:"completed_at"`
	Galaxies    []lineItemResponse `json:"galaxies"`
}

func newRequestResponse(r *models.GalaxyRequest) requestResponse {
	resp := requestResponse{
		ID:          r.ID,
		Status:      string(r.Status),
		Telescope:   r.Telescope,
		CreatedAt:   formatTime(&r.CreatedAt),
		SubmittedAt: formatTime(r.SubmittedAt),
		CompletedAt: formatTime(r.CompletedAt),
		Galaxies:    make([]lineItemResponse, 0, len(r.Items)),
	}
	if r.Creator != nil {
		resp.Creator = &r.Creator.Username
	}
	if r.Moderator != nil {
		resp.Moderator = &r.Moderator.Username
	}
	for i := range r.Items {
		item := r.Items[i]
		li := lineItemResponse{
			GalaxyID:  item.GalaxyID,
			Magnitude: item.Magnitude,
			Distance:  item.Distance,
			AddedAt:   formatTime(&item.AddedAt),
		}
		if item.Galaxy != nil {
			g := newGalaxyResponse(item.Galaxy)
			li.Galaxy = &g
		}
		resp.Galaxies = append(resp.Galaxies, li)
	}
	return resp
}

func newRequestList(requests []models.GalaxyRequest) []requestResponse {
	out := make([]requestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, newRequestResponse(&requests[i]))
	}
	return out
}
