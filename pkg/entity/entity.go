package entity

import (
	"maps"
	"slices"
	"strings"
)

// Kind identifies one of the four record collections.
type Kind string

// Record kinds.
const (
	KindLocation  Kind = "location"
	KindViewpoint Kind = "viewpoint"
	KindObject    Kind = "object"
	KindPerson    Kind = "person"
)

// Kinds lists every collection kind in the order batches are applied.
var Kinds = []Kind{KindLocation, KindViewpoint, KindObject, KindPerson}

// Point is a 2D vertex of a location boundary.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Position is a point in 3D space.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Orientation is a unit quaternion.
type Orientation struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// Pose places a viewpoint in space.
type Pose struct {
	Position    Position    `json:"position" yaml:"position"`
	Orientation Orientation `json:"orientation" yaml:"orientation"`
}

// Location is a named place. Viewpoints and objects refer to it by name.
type Location struct {
	Name       string            `json:"name" yaml:"name"`
	Boundary   []Point           `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Viewpoint is a named pose inside a parent location.
type Viewpoint struct {
	Name   string `json:"name" yaml:"name"`
	Parent string `json:"parent" yaml:"parent"`
	Pose   *Pose  `json:"pose,omitempty" yaml:"pose,omitempty"`
}

// Object is a physical object normally found at its default location.
type Object struct {
	Name       string            `json:"name" yaml:"name"`
	DefaultLoc string            `json:"default_loc" yaml:"default_loc"`
	Category   string            `json:"category,omitempty" yaml:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Person is a known person.
type Person struct {
	Name       string            `json:"name" yaml:"name"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Clone returns an independent copy of the location.
func (l Location) Clone() Location {
	l.Boundary = slices.Clone(l.Boundary)
	l.Attributes = maps.Clone(l.Attributes)
	return l
}

// Clone returns an independent copy of the viewpoint.
func (v Viewpoint) Clone() Viewpoint {
	if v.Pose != nil {
		p := *v.Pose
		v.Pose = &p
	}
	return v
}

// Clone returns an independent copy of the object.
func (o Object) Clone() Object {
	o.Attributes = maps.Clone(o.Attributes)
	return o
}

// Clone returns an independent copy of the person.
func (p Person) Clone() Person {
	p.Attributes = maps.Clone(p.Attributes)
	return p
}

// State is the full content of the store as flat sequences. It is the payload
// of every state broadcast.
type State struct {
	Locations  []Location  `json:"locations" yaml:"locations"`
	Viewpoints []Viewpoint `json:"viewpoints" yaml:"viewpoints"`
	Objects    []Object    `json:"objects" yaml:"objects"`
	Persons    []Person    `json:"persons" yaml:"persons"`
}

// Batch groups records by kind for Save and Delete requests. Delete only
// looks at record names.
type Batch = State

// Empty reports whether the state holds no records.
func (s State) Empty() bool {
	return len(s.Locations) == 0 && len(s.Viewpoints) == 0 &&
		len(s.Objects) == 0 && len(s.Persons) == 0
}

// Len returns the total number of records across all kinds.
func (s State) Len() int {
	return len(s.Locations) + len(s.Viewpoints) + len(s.Objects) + len(s.Persons)
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Locations:  make([]Location, 0, len(s.Locations)),
		Viewpoints: make([]Viewpoint, 0, len(s.Viewpoints)),
		Objects:    make([]Object, 0, len(s.Objects)),
		Persons:    make([]Person, 0, len(s.Persons)),
	}
	for _, l := range s.Locations {
		out.Locations = append(out.Locations, l.Clone())
	}
	for _, v := range s.Viewpoints {
		out.Viewpoints = append(out.Viewpoints, v.Clone())
	}
	for _, o := range s.Objects {
		out.Objects = append(out.Objects, o.Clone())
	}
	for _, p := range s.Persons {
		out.Persons = append(out.Persons, p.Clone())
	}
	return out
}

// Collections is the name-keyed form of the store used by persistence.
type Collections struct {
	Locations  map[string]Location  `json:"locations" yaml:"locations"`
	Viewpoints map[string]Viewpoint `json:"viewpoints" yaml:"viewpoints"`
	Objects    map[string]Object    `json:"objects" yaml:"objects"`
	Persons    map[string]Person    `json:"persons" yaml:"persons"`
}

// NewCollections returns four empty collections.
func NewCollections() Collections {
	return Collections{
		Locations:  make(map[string]Location),
		Viewpoints: make(map[string]Viewpoint),
		Objects:    make(map[string]Object),
		Persons:    make(map[string]Person),
	}
}

// Clone returns a deep copy. Nil maps come back empty.
func (c Collections) Clone() Collections {
	out := Collections{
		Locations:  make(map[string]Location, len(c.Locations)),
		Viewpoints: make(map[string]Viewpoint, len(c.Viewpoints)),
		Objects:    make(map[string]Object, len(c.Objects)),
		Persons:    make(map[string]Person, len(c.Persons)),
	}
	for k, v := range c.Locations {
		out.Locations[k] = v.Clone()
	}
	for k, v := range c.Viewpoints {
		out.Viewpoints[k] = v.Clone()
	}
	for k, v := range c.Objects {
		out.Objects[k] = v.Clone()
	}
	for k, v := range c.Persons {
		out.Persons[k] = v.Clone()
	}
	return out
}

// Counts returns the number of records per kind.
func (c Collections) Counts() map[Kind]int {
	return map[Kind]int{
		KindLocation:  len(c.Locations),
		KindViewpoint: len(c.Viewpoints),
		KindObject:    len(c.Objects),
		KindPerson:    len(c.Persons),
	}
}

// State flattens the collections into sequences sorted by name.
func (c Collections) State() State {
	s := State{
		Locations:  make([]Location, 0, len(c.Locations)),
		Viewpoints: make([]Viewpoint, 0, len(c.Viewpoints)),
		Objects:    make([]Object, 0, len(c.Objects)),
		Persons:    make([]Person, 0, len(c.Persons)),
	}
	for _, l := range c.Locations {
		s.Locations = append(s.Locations, l.Clone())
	}
	for _, v := range c.Viewpoints {
		s.Viewpoints = append(s.Viewpoints, v.Clone())
	}
	for _, o := range c.Objects {
		s.Objects = append(s.Objects, o.Clone())
	}
	for _, p := range c.Persons {
		s.Persons = append(s.Persons, p.Clone())
	}
	slices.SortFunc(s.Locations, func(a, b Location) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(s.Viewpoints, func(a, b Viewpoint) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(s.Objects, func(a, b Object) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(s.Persons, func(a, b Person) int { return strings.Compare(a.Name, b.Name) })
	return s
}

// Collections keys the state by name. A later record replaces an earlier
// one with the same name.
func (s State) Collections() Collections {
	c := NewCollections()
	for _, l := range s.Locations {
		c.Locations[l.Name] = l.Clone()
	}
	for _, v := range s.Viewpoints {
		c.Viewpoints[v.Name] = v.Clone()
	}
	for _, o := range s.Objects {
		c.Objects[o.Name] = o.Clone()
	}
	for _, p := range s.Persons {
		c.Persons[p.Name] = p.Clone()
	}
	return c
}
