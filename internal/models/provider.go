package models

import "time"

// Provider is a registered service professional. ID is the registering principal.
type Provider struct {
	ID           string        `json:"id"`
	Active       bool          `json:"active"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	ServiceAreas string        `json:"serviceAreas"`
	Services     []ServiceType `json:"services"`
	Availability string        `json:"availability"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (p *Provider) Offers(service ServiceType) bool {
	for _, s := range p.Services {
		if s == service {
			return true
		}
	}
	return false
}
