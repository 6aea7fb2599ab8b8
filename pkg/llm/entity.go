// Package llm sends transcripts to a generative language model and decodes
// its JSON verdict for one of the supported analysis entities.
package llm

import (
	"call-analyzer/pkg/errors"
)

// Entity selects the analysis task the model performs
type Entity string

const (
	EntityProfanity  Entity = "Profanity Detection"
	EntityCompliance Entity = "Privacy and Compliance Violation"
)

// Entities returns the supported entities in display order
func Entities() []Entity {
	return []Entity{EntityProfanity, EntityCompliance}
}

// ParseEntity validates an entity name. Matching is exact.
func ParseEntity(name string) (Entity, error) {
	switch Entity(name) {
	case EntityProfanity, EntityCompliance:
		return Entity(name), nil
	default:
		return "", errors.NewInvalidEntity(name)
	}
}

func (e Entity) String() string {
	return string(e)
}
