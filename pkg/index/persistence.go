package index

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/1F47E/grid9/pkg/models"
)

// IndexData represents the serializable form of the code index
type IndexData struct {
	Entries []models.Entry `json:"entries"`
	Count   int64          `json:"count"`
}

// Entries returns every indexed entry, in no particular order
func (c *CodeIndex) Entries() []models.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// rtreego has no iterator, so ask for the whole world
	world := models.BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	found := c.search(world)

	entries := make([]models.Entry, len(found))
	for i, se := range found {
		entries[i] = se.Entry
	}
	return entries
}

// SaveToFile saves the index to a gob file
func (c *CodeIndex) SaveToFile(filename string) error {
	data := IndexData{
		Entries: c.Entries(),
		Count:   c.Count(),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}
	return file.Close()
}

// LoadFromFile replaces the index contents with the entries of a gob file
func (c *CodeIndex) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data IndexData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	c.Clear()
	if err := c.Insert(data.Entries); err != nil {
		return fmt.Errorf("failed to index entries: %w", err)
	}
	return nil
}
