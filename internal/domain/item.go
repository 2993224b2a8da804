package domain

import "time"

// ContentItem is a core entity describing a piece of content pulled from a source.
type ContentItem struct {
	ExternalID  string
	Source      string
	Title       string
	URL         string
	Body        string
	PublishedAt time.Time
}

// EntityType classifies named entities extracted by the model.
type EntityType string

const (
	EntityCompany   EntityType = "company"
	EntityProduct   EntityType = "product"
	EntityPerson    EntityType = "person"
	EntityFramework EntityType = "framework"
)

// ValidEntityType reports whether the model returned a recognized entity type.
func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityCompany, EntityProduct, EntityPerson, EntityFramework:
		return true
	}
	return false
}

// Entity is a named entity with its relation strength and mention context.
type Entity struct {
	Name    string
	Type    EntityType
	Score   float64
	Context string
}

// Analysis is the structured result of one generative-model run over an item.
type Analysis struct {
	Summary  string
	Tags     []RawTag
	Entities []Entity
}

// ProcessingStatus enumerates pipeline milestones.
type ProcessingStatus string

const (
	StatusExtracted ProcessingStatus = "extracted"
	StatusTagged    ProcessingStatus = "tagged"
	StatusDelivered ProcessingStatus = "delivered"
)

// ProcessedItem is the persisted result of the full pipeline for one item:
// summary, entities, the verbatim raw tags and their canonical projection.
type ProcessedItem struct {
	ID            int64
	Item          ContentItem
	NormalizedURL string
	Summary       string
	RawTags       []RawTag
	Tags          []TagScore
	Entities      []Entity
	Status        ProcessingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
