package model

import "time"

// Producer describes a maker whose name appears in records' producer_name
// field. RelatedObjects is kept as stored; the live list of related records
// is computed from producer_name instead.
type Producer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	AlsoKnownAs    string    `json:"alsoKnownAs"`
	Biography      string    `json:"biography"`
	Bibliography   string    `json:"bibliography"`
	OtherDates     string    `json:"otherDates"`
	RelatedObjects []string  `json:"relatedObjects"`
	CreatedByUID   string    `json:"createdByUid"`
	CreatedByEmail string    `json:"createdByEmail"`
	CreationDate   time.Time `json:"creationDate"`
	ModifiedDate   time.Time `json:"modifiedDate"`
}
