package app

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/monorkin/stone-hub/internal/selection"
)

const (
	dbusName      = "io.stanko.StoneHub"
	dbusPath      = "/io/stanko/StoneHub"
	dbusInterface = "io.stanko.StoneHub"
)

// DBusService exposes the model selection on the session bus
type DBusService struct {
	app  *App
	conn *dbus.Conn
}

// NewDBusService creates a new DBUS service for the app
func NewDBusService(app *App) (*DBusService, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	service := &DBusService{
		app:  app,
		conn: conn,
	}

	// Export the service object
	err = conn.Export(service, dbus.ObjectPath(dbusPath), dbusInterface)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export service: %w", err)
	}

	// Export introspection data
	node := &introspect.Node{
		Name: dbusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: dbusInterface,
				Methods: []introspect.Method{
					{
						Name: "GetSelectedModels",
						Args: []introspect.Arg{
							{Name: "models", Direction: "out", Type: "aa{sv}"},
						},
					},
					{
						Name: "ClearSelection",
					},
					{
						Name: "Quit",
					},
				},
				Signals: []introspect.Signal{
					{
						Name: "SelectionChanged",
						Args: []introspect.Arg{
							{Name: "models", Type: "aa{sv}"},
						},
					},
				},
			},
		},
	}

	err = conn.Export(introspect.NewIntrospectable(node), dbus.ObjectPath(dbusPath), "org.freedesktop.DBus.Introspectable")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	// Request the bus name
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("name already taken")
	}

	return service, nil
}

func modelVariants(models []selection.Model) []map[string]dbus.Variant {
	result := make([]map[string]dbus.Variant, 0, len(models))
	for _, model := range models {
		result = append(result, map[string]dbus.Variant{
			"pattern":  dbus.MakeVariant(model.Pattern),
			"itemName": dbus.MakeVariant(model.ItemName),
			"version":  dbus.MakeVariant(model.Version),
			"urn":      dbus.MakeVariant(model.URN),
		})
	}

	return result
}

// GetSelectedModels returns the models in the selection
func (s *DBusService) GetSelectedModels() ([]map[string]dbus.Variant, *dbus.Error) {
	models, err := s.app.server.SelectedModels()
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}

	return modelVariants(models), nil
}

// ClearSelection empties the selection the same way DELETE /api/selection
// does, signal included.
func (s *DBusService) ClearSelection() *dbus.Error {
	if err := s.app.server.ClearSelection(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}

	return nil
}

// Quit terminates the application
func (s *DBusService) Quit() *dbus.Error {
	s.app.Quit()
	return nil
}

// EmitSelectionChanged sends a selection update signal
func (s *DBusService) EmitSelectionChanged(models []selection.Model) error {
	return s.conn.Emit(dbus.ObjectPath(dbusPath), dbusInterface+".SelectionChanged", modelVariants(models))
}

// Close closes the DBUS connection
func (s *DBusService) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
