package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Grouped is a JSON object of id → list that remembers key order as read
// from storage. Aggregates that break ties by encounter order depend on it.
type Grouped[T any] struct {
	keys  []string
	lists map[string][]T
}

func NewGrouped[T any]() *Grouped[T] {
	return &Grouped[T]{lists: make(map[string][]T)}
}

func (g *Grouped[T]) Keys() []string {
	return append([]string(nil), g.keys...)
}

func (g *Grouped[T]) List(key string) []T {
	return g.lists[key]
}

func (g *Grouped[T]) Len() int {
	return len(g.keys)
}

// Put replaces the list under key. Existing keys keep their position; new
// keys go last. An empty list removes the key.
func (g *Grouped[T]) Put(key string, list []T) {
	if g.lists == nil {
		g.lists = make(map[string][]T)
	}
	if len(list) == 0 {
		g.remove(key)
		return
	}
	if _, ok := g.lists[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.lists[key] = list
}

func (g *Grouped[T]) remove(key string) {
	if _, ok := g.lists[key]; !ok {
		return
	}
	delete(g.lists, key)
	for i, k := range g.keys {
		if k == key {
			g.keys = append(g.keys[:i:i], g.keys[i+1:]...)
			return
		}
	}
}

func (g Grouped[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(g.lists[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *Grouped[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	next := Grouped[T]{lists: make(map[string][]T)}
	if tok == nil {
		*g = next
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var list []T
		if err := dec.Decode(&list); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		next.Put(key, list)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = next
	return nil
}
