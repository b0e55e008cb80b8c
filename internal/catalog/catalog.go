// Package catalog lists the maps and marker icons bundled with debrief.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownMap    = errors.New("unknown map")
	ErrUnknownMarker = errors.New("unknown marker")
)

// Entry is a bundled asset.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

// URL joins the entry file onto base, e.g. "/assets" -> "/assets/maps/woods.png".
func (e Entry) URL(base string) string {
	return strings.TrimRight(base, "/") + "/" + e.File
}

var maps = map[string]Entry{
	"customs":     {ID: "customs", Name: "Customs", File: "maps/customs.png"},
	"interchange": {ID: "interchange", Name: "Interchange", File: "maps/interchange.png"},
	"woods":       {ID: "woods", Name: "Woods", File: "maps/woods.png"},
	"labs":        {ID: "labs", Name: "The Lab", File: "maps/labs.jpg"},
	"reserve":     {ID: "reserve", Name: "Reserve", File: "maps/reserve.png"},
	"shoreline":   {ID: "shoreline", Name: "Shoreline", File: "maps/shoreline.png"},
	"factory":     {ID: "factory", Name: "Factory", File: "maps/factory.jpg"},
}

var markers = map[string]Entry{
	"pmc-thick": {ID: "pmc-thick", Name: "Heavy PMC", File: "icons/pmc-thick.svg"},
	"pmc-med":   {ID: "pmc-med", Name: "Medium PMC", File: "icons/pmc-med.svg"},
	"pmc-light": {ID: "pmc-light", Name: "Light PMC", File: "icons/pmc-light.svg"},
	"scav":      {ID: "scav", Name: "Scav", File: "icons/scav.svg"},
}

// Map looks up a map by id.
func Map(id string) (Entry, error) {
	e, ok := maps[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownMap, id)
	}
	return e, nil
}

// Marker looks up a marker icon by id.
func Marker(id string) (Entry, error) {
	e, ok := markers[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownMarker, id)
	}
	return e, nil
}

// Maps returns every map sorted by id.
func Maps() []Entry { return sorted(maps) }

// Markers returns every marker sorted by id.
func Markers() []Entry { return sorted(markers) }

func sorted(m map[string]Entry) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
