package scene

import (
	"context"
	"slices"
	"sync"
)

type OpKind string

const (
	OpUnload    OpKind = "unload"
	OpLoad      OpKind = "load"
	OpIsolate   OpKind = "isolate"
	OpFitToView OpKind = "fitToView"
)

// Op is a single viewer call, in the order it was issued.
type Op struct {
	Kind  OpKind `json:"kind"`
	URN   string `json:"urn,omitempty"`
	ID    int    `json:"id,omitempty"`
	DBIDs []int  `json:"dbIds,omitempty"`
}

// Recorder is an in-memory Viewer. It mirrors what the browser has loaded
// and records every call so the browser can replay them against the real
// viewer.
type Recorder struct {
	mu     sync.Mutex
	nextID int
	loaded []LoadedModel
	ops    []Op
}

func NewRecorder(loaded ...LoadedModel) *Recorder {
	recorder := &Recorder{loaded: slices.Clone(loaded)}
	for _, model := range loaded {
		recorder.nextID = max(recorder.nextID, model.ID)
	}

	return recorder
}

func (recorder *Recorder) LoadedModels(ctx context.Context) ([]LoadedModel, error) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	return slices.Clone(recorder.loaded), nil
}

func (recorder *Recorder) UnloadModel(ctx context.Context, model LoadedModel) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	recorder.loaded = slices.DeleteFunc(recorder.loaded, func(m LoadedModel) bool {
		return m.ID == model.ID
	})
	recorder.ops = append(recorder.ops, Op{Kind: OpUnload, ID: model.ID, URN: model.URN})

	return nil
}

func (recorder *Recorder) LoadDocument(ctx context.Context, urn string) (LoadedModel, error) {
	if err := ctx.Err(); err != nil {
		return LoadedModel{}, err
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	recorder.nextID++
	model := LoadedModel{ID: recorder.nextID, URN: urn}
	recorder.loaded = append(recorder.loaded, model)
	recorder.ops = append(recorder.ops, Op{Kind: OpLoad, URN: urn, ID: model.ID})

	return model, nil
}

func (recorder *Recorder) Isolate(ctx context.Context, dbIDs []int) error {
	recorder.record(Op{Kind: OpIsolate, DBIDs: slices.Clone(dbIDs)})
	return nil
}

func (recorder *Recorder) FitToView(ctx context.Context, dbIDs []int) error {
	recorder.record(Op{Kind: OpFitToView, DBIDs: slices.Clone(dbIDs)})
	return nil
}

func (recorder *Recorder) record(op Op) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	recorder.ops = append(recorder.ops, op)
}

// Ops returns the recorded calls and resets the log.
func (recorder *Recorder) Ops() []Op {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	ops := recorder.ops
	recorder.ops = nil
	return ops
}
