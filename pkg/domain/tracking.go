package domain

import "time"

// TrackingRecord is the persisted "last delivered episode" for one podcast.
type TrackingRecord struct {
	PodcastID    string    `json:"podcast_id" bson:"podcast_id"`
	LastIdentity Identity  `json:"last_identity" bson:"last_identity"`
	LastTitle    string    `json:"last_title,omitempty" bson:"last_title,omitempty"`
	LastChecked  time.Time `json:"last_checked" bson:"last_checked"`
}
