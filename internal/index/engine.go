// Package index implements the in-memory query engine: typed ordered
// value indices and a label index per registered kind, a type-erased
// bundle registry, and a recursive condition evaluator with an optional
// full-text hand-off.
package index

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ViewWay/flow-sub000/internal/extension"
)

// KindTag derives the full-text kind tag for a GVK: the lowercased kind,
// qualified by the group when one is set.
func KindTag(gvk extension.GroupVersionKind) string {
	kind := strings.ToLower(gvk.Kind)
	if gvk.Group == "" {
		return kind
	}
	return kind + "." + gvk.Group
}

// Engine is the process-wide query engine. It owns the bundle registry
// and evaluates conditions against registered kinds. Construct one at
// startup and plumb it through the application; there is no singleton.
type Engine struct {
	registry *Registry
	mapping  *FieldMapping
	searcher Searcher
	log      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSearcher wires a full-text engine into Contains evaluation.
func WithSearcher(s Searcher) EngineOption {
	return func(e *Engine) { e.searcher = s }
}

// WithFieldMapping declares which index names are full-text per kind tag.
func WithFieldMapping(m *FieldMapping) EngineOption {
	return func(e *Engine) { e.mapping = m }
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		mapping:  NewFieldMapping(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register installs an index bundle for a resource type. Registering the
// same handle again is a no-op.
func (e *Engine) Register(handle TypeHandle, kindTag string, specs []Spec) error {
	_, err := e.registry.Register(handle, kindTag, specs)
	if err != nil {
		return err
	}
	e.log.Info("registered index bundle",
		zap.String("type", handle.String()),
		zap.String("kind_tag", kindTag),
		zap.Int("indices", len(specs)))
	return nil
}

// Deregister drops a type's bundle and all its entries.
func (e *Engine) Deregister(handle TypeHandle) {
	e.registry.Deregister(handle)
}

// Insert indexes a resource into its type's bundle.
func (e *Engine) Insert(ext extension.Extension) error {
	bundle, err := e.registry.Get(HandleFor(ext))
	if err != nil {
		return err
	}
	return bundle.Insert(ext)
}

// Update re-indexes a resource, atomically replacing its prior entries.
func (e *Engine) Update(ext extension.Extension) error {
	bundle, err := e.registry.Get(HandleFor(ext))
	if err != nil {
		return err
	}
	return bundle.Update(ext)
}

// Delete removes a resource from its type's bundle.
func (e *Engine) Delete(ext extension.Extension) error {
	meta := ext.Metadata()
	if meta == nil {
		return nil
	}
	return e.DeleteByName(HandleFor(ext), meta.Name)
}

// DeleteByName removes a primary key from the handle's bundle.
func (e *Engine) DeleteByName(handle TypeHandle, pk string) error {
	bundle, err := e.registry.Get(handle)
	if err != nil {
		return err
	}
	bundle.Delete(pk)
	return nil
}

// Query evaluates a condition tree against the handle's bundle and
// returns the matching primary keys.
func (e *Engine) Query(ctx context.Context, handle TypeHandle, cond *extension.Condition) (KeySet, error) {
	bundle, err := e.registry.Get(handle)
	if err != nil {
		return nil, err
	}
	v := &visitor{
		bundle:   bundle,
		mapping:  e.mapping,
		searcher: e.searcher,
		kindTag:  bundle.kindTag,
		log:      e.log,
	}
	return v.eval(ctx, cond)
}

// Retrieve evaluates the condition derived from list options. Result
// ordering and pagination are the caller's concern.
func (e *Engine) Retrieve(ctx context.Context, handle TypeHandle, opts extension.ListOptions) (KeySet, error) {
	cond, err := opts.ToCondition()
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, handle, cond)
}

// Count reports how many resources of the handle's kind match the list
// options. Empty options count the whole live population without an
// index walk.
func (e *Engine) Count(ctx context.Context, handle TypeHandle, opts extension.ListOptions) (int, error) {
	bundle, err := e.registry.Get(handle)
	if err != nil {
		return 0, err
	}
	cond, err := opts.ToCondition()
	if err != nil {
		return 0, err
	}
	if cond == nil || cond.Type == extension.TypeEmpty {
		return bundle.Len(), nil
	}
	keys, err := e.Query(ctx, handle, cond)
	if err != nil {
		return 0, err
	}
	return keys.Len(), nil
}
