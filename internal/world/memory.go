package world

import (
	"sync"

	"github.com/freeeve/boardwatch/internal/board"
)

// ObjectState is the raw description of one object, as carried by feed
// frames and by tests building worlds by hand.
type ObjectState struct {
	ID     string            `json:"id"`
	Type   string            `json:"type,omitempty"`
	Name   string            `json:"name,omitempty"`
	Parent string            `json:"parent,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Pos    *board.Vec3       `json:"pos,omitempty"`
}

// Memory is a mutex-guarded in-memory Source. The websocket feed keeps
// one as its mirror of the remote graph; tests mutate one directly to
// simulate a world changing under the tracker.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string]*ObjectState
	children map[string][]string // parent id -> child ids, insertion order
	viewerID string
}

func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string]*ObjectState),
		children: make(map[string][]string),
	}
}

// SetViewer marks which object is the observer.
func (m *Memory) SetViewer(id string) {
	m.mu.Lock()
	m.viewerID = id
	m.mu.Unlock()
}

// Upsert inserts or replaces an object.
func (m *Memory) Upsert(st ObjectState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, existed := m.objects[st.ID]
	if existed && old.Parent != st.Parent {
		m.unlink(old.Parent, st.ID)
		existed = false
	}
	cp := st
	if st.Fields != nil {
		cp.Fields = make(map[string]string, len(st.Fields))
		for k, v := range st.Fields {
			cp.Fields[k] = v
		}
	}
	m.objects[st.ID] = &cp
	if !existed && st.Parent != "" {
		m.children[st.Parent] = append(m.children[st.Parent], st.ID)
	}
}

// Remove deletes an object and all of its descendants.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(id)
}

func (m *Memory) remove(id string) {
	st, ok := m.objects[id]
	if !ok {
		return
	}
	for _, child := range m.children[id] {
		m.remove(child)
	}
	delete(m.children, id)
	m.unlink(st.Parent, id)
	delete(m.objects, id)
}

func (m *Memory) unlink(parent, id string) {
	if parent == "" {
		return
	}
	sibs := m.children[parent]
	for i, sid := range sibs {
		if sid == id {
			m.children[parent] = append(sibs[:i:i], sibs[i+1:]...)
			return
		}
	}
}

// Clear drops every object, typically on feed reconnect before a full frame.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.objects = make(map[string]*ObjectState)
	m.children = make(map[string][]string)
	m.mu.Unlock()
}

// Objects implements Source.
func (m *Memory) Objects(typeTag string) []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Object
	for id, st := range m.objects {
		if st.Type == typeTag {
			out = append(out, &memObject{mem: m, id: id})
		}
	}
	return out
}

// Viewer implements Source.
func (m *Memory) Viewer() (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.viewerID == "" {
		return nil, false
	}
	if _, ok := m.objects[m.viewerID]; !ok {
		return nil, false
	}
	return &memObject{mem: m, id: m.viewerID}, true
}

// memObject is a live handle; every read re-resolves the id so a
// removed object degrades to absence instead of stale data.
type memObject struct {
	mem *Memory
	id  string
}

func (o *memObject) ID() string { return o.id }

func (o *memObject) Name() (string, bool) {
	o.mem.mu.RLock()
	defer o.mem.mu.RUnlock()
	st, ok := o.mem.objects[o.id]
	if !ok || st.Name == "" {
		return "", false
	}
	return st.Name, true
}

func (o *memObject) Field(name string) (string, bool) {
	o.mem.mu.RLock()
	defer o.mem.mu.RUnlock()
	st, ok := o.mem.objects[o.id]
	if !ok || st.Fields == nil {
		return "", false
	}
	v, ok := st.Fields[name]
	return v, ok
}

func (o *memObject) Child(name string) (Object, bool) {
	o.mem.mu.RLock()
	defer o.mem.mu.RUnlock()
	for _, cid := range o.mem.children[o.id] {
		if st, ok := o.mem.objects[cid]; ok && st.Name == name {
			return &memObject{mem: o.mem, id: cid}, true
		}
	}
	return nil, false
}

func (o *memObject) Children() []Object {
	o.mem.mu.RLock()
	defer o.mem.mu.RUnlock()
	ids := o.mem.children[o.id]
	out := make([]Object, 0, len(ids))
	for _, cid := range ids {
		out = append(out, &memObject{mem: o.mem, id: cid})
	}
	return out
}

func (o *memObject) WorldPos() (board.Vec3, bool) {
	o.mem.mu.RLock()
	defer o.mem.mu.RUnlock()
	st, ok := o.mem.objects[o.id]
	if !ok || st.Pos == nil {
		return board.Vec3{}, false
	}
	return *st.Pos, true
}
