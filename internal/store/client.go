package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/index"
	"github.com/ViewWay/flow-sub000/internal/search"
)

// ErrUnknownKind signals an operation against a kind tag no one
// registered.
var ErrUnknownKind = errors.New("unknown kind")

// Kind wires one resource type into the client: its index bundle, a
// decoder for stored bytes, and an optional projection into the
// full-text schema.
type Kind struct {
	Handle  index.TypeHandle
	KindTag string
	Specs   []index.Spec
	Decode  func(raw []byte) (extension.Extension, error)
	Project func(ext extension.Extension) (search.Document, bool)
}

// Client is the write-through facade over the resource store. Every save
// and delete updates the query index, and the full-text index when the
// kind projects documents.
type Client struct {
	store  *Store
	engine *index.Engine
	fts    search.Engine
	kinds  map[string]Kind
	log    *zap.Logger
}

// NewClient builds a client. fts may be nil when full-text is disabled.
func NewClient(store *Store, engine *index.Engine, fts search.Engine, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		store:  store,
		engine: engine,
		fts:    fts,
		kinds:  make(map[string]Kind),
		log:    log,
	}
}

// RegisterKind installs the kind's index bundle and records its wiring.
func (c *Client) RegisterKind(kind Kind) error {
	if kind.KindTag == "" || kind.Decode == nil {
		return fmt.Errorf("%w: kind registration needs a tag and a decoder", ErrUnknownKind)
	}
	if err := c.engine.Register(kind.Handle, kind.KindTag, kind.Specs); err != nil {
		return err
	}
	c.kinds[kind.KindTag] = kind
	return nil
}

func (c *Client) kindFor(ext extension.Extension) (Kind, error) {
	return c.kind(index.KindTag(ext.GroupVersionKind()))
}

func (c *Client) kind(kindTag string) (Kind, error) {
	kind, ok := c.kinds[kindTag]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %s", ErrUnknownKind, kindTag)
	}
	return kind, nil
}

// Save persists a resource and re-indexes it. A rejected index write
// (unique violation, type mismatch) rolls the stored bytes back, so the
// store and the index never disagree.
func (c *Client) Save(ctx context.Context, ext extension.Extension) error {
	kind, err := c.kindFor(ext)
	if err != nil {
		return err
	}
	meta := ext.Metadata()
	if meta == nil || meta.Name == "" {
		return fmt.Errorf("resource of kind %s has no metadata.name", kind.KindTag)
	}
	raw, err := json.Marshal(ext)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind.KindTag, meta.Name, err)
	}

	prev, fetchErr := c.store.Fetch(kind.KindTag, meta.Name)
	if fetchErr != nil && !errors.Is(fetchErr, ErrNotFound) {
		return fetchErr
	}
	if err := c.store.Save(kind.KindTag, meta.Name, raw); err != nil {
		return err
	}
	if err := c.engine.Update(ext); err != nil {
		c.rollback(kind.KindTag, meta.Name, prev)
		return err
	}
	c.project(ctx, kind, ext)
	return nil
}

func (c *Client) rollback(kindTag, name string, prev []byte) {
	var err error
	if prev == nil {
		err = c.store.Delete(kindTag, name)
	} else {
		err = c.store.Save(kindTag, name, prev)
	}
	if err != nil {
		c.log.Error("store rollback failed",
			zap.String("kind_tag", kindTag), zap.String("name", name), zap.Error(err))
	}
}

// project pushes the resource's document into the full-text index. A
// failure is logged, not fatal: the next rebuild repairs the index.
func (c *Client) project(ctx context.Context, kind Kind, ext extension.Extension) {
	if c.fts == nil || kind.Project == nil {
		return
	}
	doc, ok := kind.Project(ext)
	if !ok {
		return
	}
	if err := c.fts.AddOrUpdate(ctx, []search.Document{doc}); err != nil {
		c.log.Warn("full-text upsert failed",
			zap.String("doc_id", doc.ID), zap.Error(err))
	}
}

// Decode decodes raw bytes into the kind's resource type.
func (c *Client) Decode(kindTag string, raw []byte) (extension.Extension, error) {
	kind, err := c.kind(kindTag)
	if err != nil {
		return nil, err
	}
	return kind.Decode(raw)
}

// Get fetches and decodes one resource.
func (c *Client) Get(_ context.Context, kindTag, name string) (extension.Extension, error) {
	kind, err := c.kind(kindTag)
	if err != nil {
		return nil, err
	}
	raw, err := c.store.Fetch(kindTag, name)
	if err != nil {
		return nil, err
	}
	return kind.Decode(raw)
}

// Delete removes a resource from the store and both indexes. Deleting an
// absent resource succeeds.
func (c *Client) Delete(ctx context.Context, kindTag, name string) error {
	kind, err := c.kind(kindTag)
	if err != nil {
		return err
	}
	if err := c.store.Delete(kindTag, name); err != nil {
		return err
	}
	if err := c.engine.DeleteByName(kind.Handle, name); err != nil {
		return err
	}
	if c.fts != nil && kind.Project != nil {
		if err := c.fts.Delete(ctx, []string{search.DocumentID(kindTag, name)}); err != nil {
			c.log.Warn("full-text delete failed",
				zap.String("kind_tag", kindTag), zap.String("name", name), zap.Error(err))
		}
	}
	return nil
}

// List evaluates the options against the query index and hydrates the
// selected page from the store. Results are ordered by primary key;
// "name,desc" in Sort reverses the order.
func (c *Client) List(ctx context.Context, kindTag string, opts extension.ListOptions) (extension.ListResult[extension.Extension], error) {
	var empty extension.ListResult[extension.Extension]
	kind, err := c.kind(kindTag)
	if err != nil {
		return empty, err
	}
	matched, err := c.engine.Retrieve(ctx, kind.Handle, opts)
	if err != nil {
		return empty, err
	}

	names := matched.Sorted()
	if descending(opts.Sort) {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	total := len(names)
	names = page(names, opts.Page, opts.Size)

	items := make([]extension.Extension, 0, len(names))
	for _, name := range names {
		raw, err := c.store.Fetch(kindTag, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Indexed but not yet stored, or deleted mid-flight.
				continue
			}
			return empty, err
		}
		ext, err := kind.Decode(raw)
		if err != nil {
			return empty, fmt.Errorf("decode %s/%s: %w", kindTag, name, err)
		}
		items = append(items, ext)
	}
	return extension.NewListResult(items, total, opts.Page, opts.Size), nil
}

// Count reports how many resources of a kind match the list options.
func (c *Client) Count(ctx context.Context, kindTag string, opts extension.ListOptions) (int, error) {
	kind, err := c.kind(kindTag)
	if err != nil {
		return 0, err
	}
	return c.engine.Count(ctx, kind.Handle, opts)
}

// Rebuild re-indexes every stored resource of every registered kind,
// after clearing the full-text index. Run it once at boot: the query
// index lives in memory and starts empty.
func (c *Client) Rebuild(ctx context.Context) error {
	if c.fts != nil {
		if err := c.fts.DeleteAll(ctx); err != nil {
			return err
		}
	}
	for kindTag, kind := range c.kinds {
		count := 0
		err := c.store.List(kindTag, func(name string, raw []byte) error {
			ext, err := kind.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode %s/%s: %w", kindTag, name, err)
			}
			if err := c.engine.Insert(ext); err != nil {
				return err
			}
			c.project(ctx, kind, ext)
			count++
			return nil
		})
		if err != nil {
			return err
		}
		c.log.Info("rebuilt indexes", zap.String("kind_tag", kindTag), zap.Int("resources", count))
	}
	return nil
}

func descending(sortKeys []string) bool {
	for _, key := range sortKeys {
		field, dir, _ := strings.Cut(key, ",")
		if field == "name" || field == "metadata.name" {
			return strings.EqualFold(strings.TrimSpace(dir), "desc")
		}
	}
	return false
}

func page(names []string, pageNum, size int) []string {
	if size <= 0 {
		return names
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * size
	if start >= len(names) {
		return nil
	}
	end := start + size
	if end > len(names) {
		end = len(names)
	}
	return names[start:end]
}
