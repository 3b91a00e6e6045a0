// Package metadata normalizes Discovery Environment attribute/value metadata
// into the canonical fields a catalog record needs.
package metadata

import (
	"strings"
)

// Keys the source collaborator writes before any AVU.
const (
	KeyDateCreated  = "date_created"
	KeyDateModified = "date_modified"
	KeyPath         = "de_path"
)

// Value is either a single string or an ordered list of strings. Repeated
// attributes on the source platform become lists.
type Value struct {
	items []string
	list  bool
}

// Scalar returns a single-valued Value.
func Scalar(s string) Value {
	return Value{items: []string{s}}
}

// List returns a list-valued Value.
func List(items ...string) Value {
	return Value{items: append([]string(nil), items...), list: true}
}

// IsList reports whether the attribute was seen more than once.
func (v Value) IsList() bool {
	return v.list
}

// Items returns a copy of the values in encounter order.
func (v Value) Items() []string {
	return append([]string(nil), v.items...)
}

// First returns the first value, or "" for an empty Value.
func (v Value) First() string {
	if len(v.items) == 0 {
		return ""
	}
	return v.items[0]
}

// String joins list values with ", ".
func (v Value) String() string {
	return strings.Join(v.items, ", ")
}

func (v Value) appendItem(s string) Value {
	items := make([]string, 0, len(v.items)+1)
	items = append(items, v.items...)
	items = append(items, s)
	return Value{items: items, list: true}
}

// Metadata maps attribute names to values and remembers insertion order.
// Key variants that differ only in case are distinct keys.
type Metadata struct {
	keys   []string
	values map[string]Value
}

// New returns an empty Metadata.
func New() *Metadata {
	return &Metadata{values: make(map[string]Value)}
}

// FromPairs builds Metadata by adding each key/value pair in order.
// It panics on an odd number of arguments; meant for fixtures and literals.
func FromPairs(kv ...string) *Metadata {
	if len(kv)%2 != 0 {
		panic("metadata.FromPairs: odd number of arguments")
	}
	m := New()
	for i := 0; i < len(kv); i += 2 {
		m.Add(kv[i], kv[i+1])
	}
	return m
}

// Add records one occurrence of key. The first occurrence is stored as a
// scalar; later occurrences turn it into a list in encounter order.
func (m *Metadata) Add(key, value string) {
	existing, ok := m.values[key]
	if !ok {
		m.keys = append(m.keys, key)
		m.values[key] = Scalar(value)
		return
	}
	m.values[key] = existing.appendItem(value)
}

// Set replaces the value for key, keeping its original position.
func (m *Metadata) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Metadata) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of distinct keys.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Clean strips tab characters from every value.
func (m *Metadata) Clean() {
	for _, k := range m.keys {
		v := m.values[k]
		for i, s := range v.items {
			v.items[i] = strings.ReplaceAll(s, "\t", "")
		}
		m.values[k] = v
	}
}

// lookup returns the value of the first candidate key present.
func (m *Metadata) lookup(keys []string) (Value, string, bool) {
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			return v, k, true
		}
	}
	return Value{}, "", false
}

// IsEmpty reports whether the dataset carries nothing but the keys the
// source collaborator adds itself.
func IsEmpty(m *Metadata) bool {
	return m.Len() == 3 && m.Has(KeyDateCreated) && m.Has(KeyDateModified) && m.Has(KeyPath)
}
