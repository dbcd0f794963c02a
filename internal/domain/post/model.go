package post

import (
	"time"

	"crosspath/internal/domain/geo"
)

// Status represents the interaction state of a candidate post.
// LikedByThem is set only at generation time, simulating an inbound like;
// every other value is reached through engine transitions.
type Status string

const (
	StatusPending     Status = "pending"
	StatusLikedByMe   Status = "liked_by_me"
	StatusLikedByThem Status = "liked_by_them"
	StatusMatched     Status = "matched"
	StatusHidden      Status = "hidden"
)

// Tag is a category label from a fixed vocabulary
type Tag string

const (
	TagCoffee    Tag = "coffee"
	TagWalk      Tag = "walk"
	TagMusic     Tag = "music"
	TagSports    Tag = "sports"
	TagFood      Tag = "food"
	TagArt       Tag = "art"
	TagStudy     Tag = "study"
	TagNightlife Tag = "nightlife"
)

// Tags lists the full tag vocabulary
var Tags = []Tag{TagCoffee, TagWalk, TagMusic, TagSports, TagFood, TagArt, TagStudy, TagNightlife}

// Author is a snapshot of the post author's display identity
type Author struct {
	Name      string
	AvatarURL string
}

// Draft is the input for publishing an own post
type Draft struct {
	Title       string
	Description string
	Tags        []Tag
	ImageURL    string
	Position    geo.Coordinate
}

// OwnPost is an encounter published by the current user.
// Immutable after creation except for deletion.
type OwnPost struct {
	ID          string
	Author      Author
	Title       string
	Description string
	Tags        []Tag
	ImageURL    string
	Position    geo.Coordinate
	CreatedAt   time.Time
}

// CandidatePost is an encounter authored by another user. Candidates are
// never deleted; rejection hides them but they stay addressable by id.
type CandidatePost struct {
	ID          string
	Author      Author
	Title       string
	Description string
	Tags        []Tag
	ImageURL    string
	Position    geo.Coordinate
	CreatedAt   time.Time
	Status      Status
}

// HasAnyTag reports whether the candidate carries at least one of the given
// tags. An empty filter matches everything.
func (c CandidatePost) HasAnyTag(filter []Tag) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, have := range c.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}
