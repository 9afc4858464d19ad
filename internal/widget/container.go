package widget

import "sync"

// Container is the mount point handed to exactly one Controller for the lifetime of a
// checkout view. Only that controller (and the card surface it attaches) writes to it.
type Container interface {
	// Append adds a rendered element.
	Append(element string)
	// Clear removes everything that has been rendered into the container.
	Clear()
	// Children returns a snapshot of the rendered elements.
	Children() []string
}

// MemoryContainer is an in-process Container.
type MemoryContainer struct {
	mu       sync.Mutex
	id       string
	children []string
}

func NewMemoryContainer(id string) *MemoryContainer {
	return &MemoryContainer{id: id}
}

func (c *MemoryContainer) ID() string {
	return c.id
}

func (c *MemoryContainer) Append(element string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = append(c.children, element)
}

func (c *MemoryContainer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = nil
}

func (c *MemoryContainer) Children() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.children...)
}

func (c *MemoryContainer) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children) == 0
}
