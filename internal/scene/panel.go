package scene

import (
	"fmt"
	"sync"
)

// Panel is the lifecycle a docked panel exposes to its owner.
type Panel interface {
	Initialize() error
	Uninitialize()
	SetVisible(visible bool)
	IsVisible() bool
}

// Extensions owns registered panels and drives their lifecycle, the way the
// host extension manager does for toolbar buttons.
type Extensions struct {
	mu     sync.Mutex
	panels map[string]Panel
}

func NewExtensions() *Extensions {
	return &Extensions{
		panels: make(map[string]Panel),
	}
}

func (extensions *Extensions) Register(id string, panel Panel) error {
	extensions.mu.Lock()
	defer extensions.mu.Unlock()

	if _, exists := extensions.panels[id]; exists {
		return fmt.Errorf("extension %q already registered", id)
	}

	if err := panel.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize extension %q: %w", id, err)
	}

	extensions.panels[id] = panel
	return nil
}

func (extensions *Extensions) Unregister(id string) {
	extensions.mu.Lock()
	defer extensions.mu.Unlock()

	panel, exists := extensions.panels[id]
	if !exists {
		return
	}

	panel.SetVisible(false)
	panel.Uninitialize()
	delete(extensions.panels, id)
}

// Toggle flips the panel's visibility and returns the new state.
func (extensions *Extensions) Toggle(id string) (bool, error) {
	extensions.mu.Lock()
	defer extensions.mu.Unlock()

	panel, exists := extensions.panels[id]
	if !exists {
		return false, fmt.Errorf("extension %q not registered", id)
	}

	panel.SetVisible(!panel.IsVisible())
	return panel.IsVisible(), nil
}

// Visibility is embedded by panels for the SetVisible/IsVisible half of the
// lifecycle.
type Visibility struct {
	visible bool
}

func (v *Visibility) SetVisible(visible bool) {
	v.visible = visible
}

func (v *Visibility) IsVisible() bool {
	return v.visible
}
