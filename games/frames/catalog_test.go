/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package frames

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.Equal(t, 20, c.Len())

	it, ok := c.Item(8)
	require.True(t, ok)
	assert.Equal(t, "The Dark Knight", it.Title)

	items := c.Items()
	for i, it := range items {
		assert.Equal(t, i+1, it.ID)
	}

	items[0].Title = "changed"
	first, _ := c.Item(1)
	assert.Equal(t, "Bruce Almighty", first.Title)
}

func TestNewCatalogRejects(t *testing.T) {
	tests := map[string][]Item{
		"empty":       nil,
		"zero id":     {{ID: 0, Title: "Zero"}},
		"negative id": {{ID: -4, Title: "Negative"}},
		"duplicate":   {{ID: 1, Title: "One"}, {ID: 1, Title: "Uno"}},
		"blank title": {{ID: 1, Title: "  "}},
	}

	for name, items := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalog(items)
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	doc := `
items:
  - id: 3
    title: Rush
  - id: 10
    title: " Leon "
`

	c, err := LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []Item{{ID: 3, Title: "Rush"}, {ID: 10, Title: "Leon"}}, c.Items())
	assert.True(t, c.Contains(10))
	assert.False(t, c.Contains(1))
}

func TestLoadCatalogErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":         "",
		"unknown field": "items:\n  - id: 1\n    name: Rush\n",
		"no items":      "items: []\n",
		"bad yaml":      "items: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
