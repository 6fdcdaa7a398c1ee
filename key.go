package migsql

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Key identifies an item within a project: the namespace that owns it and a
// name unique within that namespace.
type Key struct {
	Namespace string
	Name      string
}

// K is shorthand for Key{Namespace: namespace, Name: name}.
func K(namespace, name string) Key {
	return Key{Namespace: namespace, Name: name}
}

// String renders the key as "namespace.name".
func (k Key) String() string {
	return k.Namespace + "." + k.Name
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k.Namespace == "" && k.Name == ""
}

// Compare orders keys by namespace, then by name.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.Namespace, other.Namespace); c != 0 {
		return c
	}

	return cmp.Compare(k.Name, other.Name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The namespace is required.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text), "")
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// ParseKey parses "namespace.name" or a bare "name", which resolves against
// defaultNamespace. The namespace ends at the first dot.
func ParseKey(s, defaultNamespace string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	ns, name, found := strings.Cut(s, ".")
	if !found {
		if defaultNamespace == "" {
			return Key{}, fmt.Errorf("%w: %q has no namespace", ErrInvalidKey, s)
		}

		return K(defaultNamespace, s), nil
	}

	if ns == "" || name == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}

	return K(ns, name), nil
}

// ValidateNamespace checks ns can be written as the first segment of a key
// and parsed back: it must be non-empty and contain no dot.
func ValidateNamespace(ns string) error {
	switch {
	case strings.TrimSpace(ns) == "":
		return fmt.Errorf("%w: empty namespace", ErrInvalidKey)
	case strings.Contains(ns, "."):
		return fmt.Errorf("%w: namespace %q contains a dot", ErrInvalidKey, ns)
	}

	return nil
}

// SortKeys sorts keys in place by Key.Compare and returns them.
func SortKeys(keys []Key) []Key {
	slices.SortFunc(keys, Key.Compare)

	return keys
}

// KeySet is an unordered set of keys.
type KeySet map[Key]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}

	return s
}

// Add inserts k.
func (s KeySet) Add(k Key) {
	s[k] = struct{}{}
}

// Remove deletes k if present.
func (s KeySet) Remove(k Key) {
	delete(s, k)
}

// Has reports whether k is in the set.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]

	return ok
}

// Sorted returns the members in key order.
func (s KeySet) Sorted() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	return SortKeys(keys)
}

// Clone returns a copy of the set.
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}

	return out
}

// Union returns a new set with the members of s and other.
func (s KeySet) Union(other KeySet) KeySet {
	out := s.Clone()
	for k := range other {
		out[k] = struct{}{}
	}

	return out
}

// Difference returns the members of s that are not in other.
func (s KeySet) Difference(other KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if !other.Has(k) {
			out[k] = struct{}{}
		}
	}

	return out
}

// Intersect returns the members present in both sets.
func (s KeySet) Intersect(other KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if other.Has(k) {
			out[k] = struct{}{}
		}
	}

	return out
}
