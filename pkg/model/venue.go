package model

import "time"

// Venue is the catalog record the booking core consults; venue CRUD is
// owned elsewhere and only read here.
type Venue struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name            string    `json:"name" bson:"name"`
	Location        string    `json:"location" bson:"location"`
	ManagerID       string    `json:"manager_id" bson:"manager_id"`
	OpeningTime     string    `json:"opening_time" bson:"opening_time"`
	ClosingTime     string    `json:"closing_time" bson:"closing_time"`
	SlotDurationMin int       `json:"slot_duration_min" bson:"slot_duration_min"`
	MaxPlayers      int       `json:"max_players" bson:"max_players"`
	BasePrice       int       `json:"base_price" bson:"base_price"`
	RulesText       string    `json:"rules_text,omitempty" bson:"rules_text,omitempty"`
	SportType       string    `json:"sport_type,omitempty" bson:"sport_type,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
