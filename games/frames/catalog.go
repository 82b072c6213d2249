/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package frames

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is a single title/frame pairing target.
type Item struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Catalog is an immutable, ordered set of items.
type Catalog struct {
	items []Item
	index map[int]int
}

var defaultItems = []Item{
	{ID: 1, Title: "Bruce Almighty"},
	{ID: 2, Title: "Gladiator"},
	{ID: 3, Title: "The Life of Chuck"},
	{ID: 4, Title: "Groundhog Day"},
	{ID: 5, Title: "George of the Jungle"},
	{ID: 6, Title: "Knives Out"},
	{ID: 7, Title: "Rush"},
	{ID: 8, Title: "The Dark Knight"},
	{ID: 9, Title: "The Green Mile"},
	{ID: 10, Title: "Leon"},
	{ID: 11, Title: "A Man Called Otto"},
	{ID: 12, Title: "Self/less"},
	{ID: 13, Title: "Night Hunter"},
	{ID: 14, Title: "Die My Love"},
	{ID: 15, Title: "Roofman"},
	{ID: 16, Title: "For Richer or Poorer"},
	{ID: 17, Title: "The Pink Panther 2"},
	{ID: 18, Title: "57 Seconds"},
	{ID: 19, Title: "The Scorpion King"},
	{ID: 20, Title: "The Irishman"},
}

// NewCatalog validates items and returns a catalog holding a copy of them.
func NewCatalog(items []Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, errors.New("catalog must contain at least one item")
	}

	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[int]int, len(items)),
	}

	for _, it := range items {
		if it.ID < 1 {
			return nil, fmt.Errorf("invalid item id (must be positive): %d", it.ID)
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id: %d", it.ID)
		}

		title := strings.TrimSpace(it.Title)
		if title == "" {
			return nil, fmt.Errorf("item %d has an empty title", it.ID)
		}

		c.index[it.ID] = len(c.items)
		c.items = append(c.items, Item{ID: it.ID, Title: title})
	}

	return c, nil
}

// DefaultCatalog returns the built-in movie catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultItems)
	if err != nil {
		panic("frames: invalid default catalog: " + err.Error())
	}
	return c
}

type catalogFile struct {
	Items []Item `yaml:"items"`
}

// LoadCatalog reads a YAML document of the form
//
//	items:
//	  - id: 1
//	    title: Gladiator
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog file is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	return NewCatalog(f.Items)
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns a copy of the items in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Contains(id int) bool {
	_, ok := c.index[id]
	return ok
}

// Item looks up a single item by id.
func (c *Catalog) Item(id int) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}
