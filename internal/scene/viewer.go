// Package scene holds the capability contract the host viewer must satisfy
// and the scene operations built on top of it.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

var ErrEmptyURN = errors.New("empty model urn")

// LoadedModel identifies a model currently in the viewer.
type LoadedModel struct {
	ID  int    `json:"id"`
	URN string `json:"urn"`
}

// Viewer is the subset of the host viewer runtime we drive.
type Viewer interface {
	LoadedModels(ctx context.Context) ([]LoadedModel, error)
	UnloadModel(ctx context.Context, model LoadedModel) error
	LoadDocument(ctx context.Context, urn string) (LoadedModel, error)
	Isolate(ctx context.Context, dbIDs []int) error
	FitToView(ctx context.Context, dbIDs []int) error
}

// UnloadAll removes every model currently in the viewer.
func UnloadAll(ctx context.Context, viewer Viewer, logger *slog.Logger) error {
	loaded, err := viewer.LoadedModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list loaded models: %w", err)
	}

	for _, model := range loaded {
		if err := viewer.UnloadModel(ctx, model); err != nil {
			return fmt.Errorf("failed to unload model %d: %w", model.ID, err)
		}
		if logger != nil {
			logger.Debug("Unloaded model", "id", model.ID, "urn", model.URN)
		}
	}

	return nil
}

// ReplaceScene unloads everything and then loads urns concurrently. The
// scene is replaced as a whole; there is no diffing against what was loaded.
func ReplaceScene(ctx context.Context, viewer Viewer, urns []string, logger *slog.Logger) ([]LoadedModel, error) {
	for _, urn := range urns {
		if urn == "" {
			return nil, ErrEmptyURN
		}
	}

	if err := UnloadAll(ctx, viewer, logger); err != nil {
		return nil, err
	}

	loaded := make([]LoadedModel, len(urns))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, urn := range urns {
		i, urn := i, urn
		group.Go(func() error {
			model, err := viewer.LoadDocument(groupCtx, urn)
			if err != nil {
				return fmt.Errorf("could not load document %s: %w", urn, err)
			}
			loaded[i] = model
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("Scene replaced", "models_count", len(loaded))
	}

	return loaded, nil
}

// Focus isolates a single element and fits the camera to it.
func Focus(ctx context.Context, viewer Viewer, dbID int) error {
	ids := []int{dbID}

	if err := viewer.Isolate(ctx, ids); err != nil {
		return fmt.Errorf("failed to isolate element %d: %w", dbID, err)
	}

	if err := viewer.FitToView(ctx, ids); err != nil {
		return fmt.Errorf("failed to fit element %d: %w", dbID, err)
	}

	return nil
}

// CheckedURNs returns the subset of urns currently loaded in the viewer.
func CheckedURNs(ctx context.Context, viewer Viewer, urns []string) (map[string]bool, error) {
	loaded, err := viewer.LoadedModels(ctx)
	if err != nil {
		return nil, err
	}

	checked := make(map[string]bool, len(urns))
	for _, urn := range urns {
		checked[urn] = false
	}

	for _, model := range loaded {
		if _, ok := checked[model.URN]; ok {
			checked[model.URN] = true
		}
	}

	return checked, nil
}
