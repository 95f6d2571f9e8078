package domain

import (
	"fmt"
	"time"
)

// ResourceRecord is one answer row as received from an upstream server.
// Data holds the record's presentation form (the text after the header on
// a zone-file line), which is what the CLI prints and the cache stores.
type ResourceRecord struct {
	Name  string
	Type  RRType
	Class RRClass
	TTL   uint32
	Data  string
}

// NewResourceRecord canonicalizes the name and validates the fields.
func NewResourceRecord(name string, rrtype RRType, class RRClass, ttl uint32, data string) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name:  CanonicalName(name),
		Type:  rrtype,
		Class: class,
		TTL:   ttl,
		Data:  data,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// Validate checks whether the ResourceRecord fields are valid.
func (rr ResourceRecord) Validate() error {
	if rr.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	if !rr.Type.IsValid() {
		return fmt.Errorf("invalid record type: %d", rr.Type)
	}
	if !rr.Class.IsValid() {
		return fmt.Errorf("invalid record class: %d", rr.Class)
	}
	return nil
}

// WithTTL returns a copy of the record carrying the given TTL. Caches use
// this to age records on the way out.
func (rr ResourceRecord) WithTTL(ttl uint32) ResourceRecord {
	rr.TTL = ttl
	return rr
}

// Expiry returns when the record stops being valid, measured from the
// time it was received.
func (rr ResourceRecord) Expiry(received time.Time) time.Time {
	return received.Add(time.Duration(rr.TTL) * time.Second)
}

// CacheKey returns a cache key string derived from the record's name,
// type, and class.
func (rr ResourceRecord) CacheKey() string {
	return generateCacheKey(rr.Name, rr.Type, rr.Class)
}

// String renders the record as a zone-file style line.
func (rr ResourceRecord) String() string {
	return fmt.Sprintf("%s\t%d\t%s\t%s\t%s", rr.Name, rr.TTL, rr.Class, rr.Type, rr.Data)
}
