package domain

import "time"

// Guest is a person explicitly named in an episode's title or description.
type Guest struct {
	Name        string `json:"name" bson:"name"`
	LinkedInURL string `json:"linkedin_url,omitempty" bson:"linkedin_url,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Episode is the latest episode as reported by a source.
// Sources build it once; later stages only read it.
type Episode struct {
	PodcastID   string
	ShowName    string
	Title       string
	Published   time.Time
	Description string
	URL         string
	AudioURL    string
	Identity    Identity
	Guests      []Guest
}

// PrimaryGuest returns the first extracted guest name, if any.
func (e Episode) PrimaryGuest() string {
	if len(e.Guests) == 0 {
		return ""
	}
	return e.Guests[0].Name
}
