// Package entities holds the flattened source and target records that matches
// and rules refer to.
//
// Raw records arrive as nested JSON-like maps. Flatten keeps top-level scalar
// fields and lifts the keys of a "metadata" object to "metadata.<key>". Every
// record is addressed by the string form of its id field, see NormalizeID.
package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
)

// Entity is a flattened record: field name to scalar value.
type Entity map[string]any

// Get returns the value of field, or nil when the entity does not carry it.
func (e Entity) Get(field string) any {
	return e[field]
}

// Flatten converts a raw record into an Entity.
func Flatten(raw map[string]any) Entity {
	flat := make(Entity, len(raw))
	for k, v := range raw {
		if isScalar(v) {
			flat[k] = v
		}
	}
	if meta, ok := raw[constants.MetadataField].(map[string]any); ok {
		for k, v := range meta {
			if isScalar(v) {
				flat[constants.MetadataPrefix+k] = v
			}
		}
	}
	return flat
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any, map[any]any:
		return false
	}
	return true
}

// NormalizeID returns the engine form of an id value. Integral numbers are
// formatted without a fractional part so that 7, 7.0 and "7" address the
// same entity. It reports false for nil and empty values.
func NormalizeID(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case float64:
		if id == math.Trunc(id) && !math.IsInf(id, 0) && math.Abs(id) < 1<<53 {
			return strconv.FormatInt(int64(id), 10), true
		}
		return strconv.FormatFloat(id, 'g', -1, 64), true
	case float32:
		return NormalizeID(float64(id))
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if f, err := id.Float64(); err == nil {
			return NormalizeID(f)
		}
		return id.String(), id != ""
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case uint64:
		return strconv.FormatUint(id, 10), true
	case fmt.Stringer:
		s := id.String()
		return s, s != ""
	default:
		s := fmt.Sprint(id)
		return s, s != ""
	}
}

// Collection is one side of the reconciliation: an ordered, id-unique set of
// entities plus the field selection used when talking to the rule services.
type Collection struct {
	idField  string
	records  []map[string]any
	entities []Entity
	ids      []string
	byID     map[string]int
	fields   []string
}

// NewCollection flattens records and indexes them by idField. Records without
// an id or with an id seen before are refused.
func NewCollection(idField string, records []map[string]any) (*Collection, error) {
	if idField == "" {
		idField = constants.IDField
	}
	c := &Collection{
		idField:  idField,
		records:  records,
		entities: make([]Entity, 0, len(records)),
		ids:      make([]string, 0, len(records)),
		byID:     make(map[string]int, len(records)),
		fields:   []string{idField},
	}
	for i, raw := range records {
		entity := Flatten(raw)
		id, ok := NormalizeID(entity[idField])
		if !ok {
			return nil, errors.NewValidationError(idField, i, fmt.Sprintf("record %d has no %s", i, idField))
		}
		if _, dup := c.byID[id]; dup {
			return nil, errors.NewValidationError(idField, id, fmt.Sprintf("duplicate id %s", id))
		}
		c.byID[id] = len(c.entities)
		c.entities = append(c.entities, entity)
		c.ids = append(c.ids, id)
	}
	return c, nil
}

// Empty returns a collection with no records.
func Empty(idField string) *Collection {
	c, _ := NewCollection(idField, nil)
	return c
}

// IDField returns the name of the id field.
func (c *Collection) IDField() string { return c.idField }

// Len returns the number of entities.
func (c *Collection) Len() int { return len(c.entities) }

// Records returns the raw records the collection was built from.
func (c *Collection) Records() []map[string]any { return c.records }

// IDs returns entity ids in load order.
func (c *Collection) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Has reports whether an entity with id exists.
func (c *Collection) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Get returns the entity with id.
func (c *Collection) Get(id string) (Entity, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.entities[i], true
}

// RawID returns the id value as it appeared in the record, or id itself when unknown.
func (c *Collection) RawID(id string) any {
	if e, ok := c.Get(id); ok {
		return e[c.idField]
	}
	return id
}

// Value returns the value of field for the entity with id.
func (c *Collection) Value(id, field string) (any, bool) {
	e, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	v, ok := e[field]
	return v, ok
}

// AllFields returns every field carried by at least one entity, sorted.
func (c *Collection) AllFields() []string {
	seen := make(map[string]struct{})
	for _, e := range c.entities {
		for k := range e {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SelectFields sets the field selection. The id field is always kept first and
// duplicates are dropped.
func (c *Collection) SelectFields(fields []string) {
	c.fields = NormalizeFields(c.idField, fields)
}

// WithFields returns a copy of c with the given field selection. Records and
// entities are shared; c is left unchanged.
func (c *Collection) WithFields(fields []string) *Collection {
	out := *c
	out.fields = NormalizeFields(c.idField, fields)
	return &out
}

// Fields returns the current field selection.
func (c *Collection) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Reduced projects every entity onto the field selection. Missing fields are nil.
func (c *Collection) Reduced() []map[string]any {
	out := make([]map[string]any, len(c.entities))
	for i, e := range c.entities {
		r := make(map[string]any, len(c.fields))
		for _, f := range c.fields {
			r[f] = e[f]
		}
		out[i] = r
	}
	return out
}

// NormalizeFields returns {idField} followed by fields, deduplicated, order preserved.
func NormalizeFields(idField string, fields []string) []string {
	out := []string{idField}
	seen := map[string]struct{}{idField: {}}
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
