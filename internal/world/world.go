// Package world exposes a read-only view of the game client's object
// graph. The graph is mutated concurrently by the game, so every read
// is fallible: objects, children, fields, and positions can all vanish
// between two calls. Absence is never an error here; callers treat a
// false ok as "no value right now" and move on.
package world

import "github.com/freeeve/boardwatch/internal/board"

// Source is the root of the object graph.
type Source interface {
	// Objects lists the currently visible objects carrying a type tag.
	Objects(typeTag string) []Object
	// Viewer returns the observer's own object, when resolvable.
	Viewer() (Object, bool)
}

// Object is a handle to one live object. A handle may outlive the
// object it points at; reads on a dead handle simply report absence.
type Object interface {
	ID() string
	Name() (string, bool)
	Field(name string) (string, bool)
	Child(name string) (Object, bool)
	Children() []Object
	WorldPos() (board.Vec3, bool)
}
