package models

// Host is a person who appears on episodes, whether as a recurring host or
// a one-off guest. Unique on (first_name, last_name) until a graph id is
// known, at which point the graph id is the stronger key.
type Host struct {
	ID              int     `db:"host_id"`
	FirstName       string  `db:"first_name"`
	LastName        string  `db:"last_name"`
	Bio             *string `db:"bio"`
	ProfileImageURL *string `db:"profile_image_url"`
	WebsiteURL      *string `db:"website_url"`
	GraphID         *string `db:"graph_id"`
}

// DisplayName is the name the read API reports for a host.
func (h Host) DisplayName() string {
	if h.LastName == "" {
		return h.FirstName
	}
	return h.FirstName + " " + h.LastName
}
