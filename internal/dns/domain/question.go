package domain

import (
	"fmt"
	"strings"
)

// Question is the name, type, and class a caller wants resolved. Message
// IDs are a wire concern assigned at encode time and never appear here.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion canonicalizes the name and validates the fields.
func NewQuestion(name string, rrtype RRType, class RRClass) (Question, error) {
	if strings.TrimSpace(name) == "" {
		return Question{}, fmt.Errorf("query name must not be empty")
	}
	q := Question{
		Name:  CanonicalName(name),
		Type:  rrtype,
		Class: class,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks whether the Question fields are structurally and
// semantically valid.
func (q Question) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("query name must not be empty")
	}
	if !q.Type.IsQueryable() {
		return fmt.Errorf("unsupported query type: %d", q.Type)
	}
	if !q.Class.IsValid() {
		return fmt.Errorf("unsupported query class: %d", q.Class)
	}
	return nil
}

// CacheKey returns a cache key string derived from the question's name,
// type, and class.
func (q Question) CacheKey() string {
	return generateCacheKey(q.Name, q.Type, q.Class)
}

// String renders the question in zone-file order: name, class, type.
func (q Question) String() string {
	return fmt.Sprintf("%s %s %s", q.Name, q.Class, q.Type)
}
