package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

// Field names of the index schema. Identity and facet fields use the
// keyword analyzer so term filters match stored values verbatim; the
// three text fields use the standard analyzer.
const (
	fieldID          = "id"
	fieldPrimaryKey  = "primary_key"
	fieldKindTag     = "kind_tag"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldContent     = "content"
	fieldCategories  = "categories"
	fieldTags        = "tags"
	fieldOwner       = "owner"
	fieldPublished   = "published"
	fieldRecycled    = "recycled"
	fieldExposed     = "exposed"
	fieldPermalink   = "permalink"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
	fieldAnnotations = "annotations"
)

// Relative weight of keyword matches per text field.
const (
	boostTitle       = 1.0
	boostDescription = 0.5
	boostContent     = 0.2
)

// deleteAllPageSize bounds one round of the DeleteAll scan.
const deleteAllPageSize = 1000

// BleveEngine is the disk-backed full-text engine. Batches are applied
// synchronously, so a Search issued after a mutation returns observes it.
type BleveEngine struct {
	idx bleve.Index
	log *zap.Logger
}

var _ Engine = (*BleveEngine)(nil)

// NewBleveEngine opens the index at path, creating it with the document
// schema when absent. An empty path builds a memory-only index.
func NewBleveEngine(path string, log *zap.Logger) (*BleveEngine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping())
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			log.Info("creating full-text index", zap.String("path", path))
			idx, err = bleve.New(path, indexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open full-text index: %w", err)
	}
	return &BleveEngine{idx: idx, log: log}, nil
}

func indexMapping() mapping.IndexMapping {
	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name

	numericField := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	for _, name := range []string{
		fieldID, fieldPrimaryKey, fieldKindTag, fieldOwner, fieldPermalink,
		fieldCategories, fieldTags, fieldPublished, fieldRecycled,
		fieldExposed, fieldAnnotations,
	} {
		doc.AddFieldMappingsAt(name, keywordField)
	}
	for _, name := range []string{fieldTitle, fieldDescription, fieldContent} {
		doc.AddFieldMappingsAt(name, textField)
	}
	doc.AddFieldMappingsAt(fieldCreatedAt, numericField)
	doc.AddFieldMappingsAt(fieldUpdatedAt, numericField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// AddOrUpdate indexes the documents, replacing any stored document with
// the same ID. The whole batch applies or none of it does.
func (e *BleveEngine) AddOrUpdate(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := e.idx.NewBatch()
	for _, doc := range docs {
		batch.Delete(doc.ID)
		if err := batch.Index(doc.ID, toIndexable(doc)); err != nil {
			return fmt.Errorf("%w: batch index %s: %v", ErrIndexWrite, doc.ID, err)
		}
	}
	if err := e.idx.Batch(batch); err != nil {
		return fmt.Errorf("%w: apply batch: %v", ErrIndexWrite, err)
	}
	return nil
}

// Delete removes the documents with the given IDs. Unknown IDs are
// ignored.
func (e *BleveEngine) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := e.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := e.idx.Batch(batch); err != nil {
		return fmt.Errorf("%w: apply delete batch: %v", ErrIndexWrite, err)
	}
	return nil
}

// DeleteAll drops every document by scanning match-all pages until the
// index is empty.
func (e *BleveEngine) DeleteAll(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), deleteAllPageSize, 0, false)
		res, err := e.idx.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("%w: scan for delete: %v", ErrIndexWrite, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := e.idx.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := e.idx.Batch(batch); err != nil {
			return fmt.Errorf("%w: apply delete batch: %v", ErrIndexWrite, err)
		}
	}
}

// Search runs a keyword query with the option's filters and returns
// highlighted hits.
func (e *BleveEngine) Search(ctx context.Context, opt Option) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opt = opt.WithDefaults()
	start := time.Now()

	req := bleve.NewSearchRequestOptions(buildQuery(opt), opt.Limit, 0, false)
	req.Fields = []string{"*"}
	res, err := e.idx.SearchInContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	hits := make([]Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc := fromFields(hit.ID, hit.Fields)
		doc.Title = Highlight(doc.Title, opt.Keyword, opt.HighlightPreTag, opt.HighlightPostTag)
		doc.Description = Highlight(doc.Description, opt.Keyword, opt.HighlightPreTag, opt.HighlightPostTag)
		doc.Content = Highlight(doc.Content, opt.Keyword, opt.HighlightPreTag, opt.HighlightPostTag)
		hits = append(hits, doc)
	}
	return &Result{
		Hits:                 hits,
		Keyword:              opt.Keyword,
		Total:                int(res.Total),
		Limit:                opt.Limit,
		ProcessingTimeMillis: time.Since(start).Milliseconds(),
	}, nil
}

// Close releases the underlying index.
func (e *BleveEngine) Close() error {
	return e.idx.Close()
}

// buildQuery assembles the conjunction of the keyword disjunction and
// every set filter. The keyword branch is a must, so filter-only requests
// without a keyword fall back to match-all.
func buildQuery(opt Option) query.Query {
	root := bleve.NewConjunctionQuery()

	if opt.Keyword != "" {
		title := bleve.NewMatchQuery(opt.Keyword)
		title.SetField(fieldTitle)
		title.SetBoost(boostTitle)
		description := bleve.NewMatchQuery(opt.Keyword)
		description.SetField(fieldDescription)
		description.SetBoost(boostDescription)
		content := bleve.NewMatchQuery(opt.Keyword)
		content.SetField(fieldContent)
		content.SetBoost(boostContent)
		root.AddQuery(bleve.NewDisjunctionQuery(title, description, content))
	} else {
		root.AddQuery(bleve.NewMatchAllQuery())
	}

	for field, flag := range map[string]*bool{
		fieldPublished: opt.FilterPublished,
		fieldExposed:   opt.FilterExposed,
		fieldRecycled:  opt.FilterRecycled,
	} {
		if flag != nil {
			root.AddQuery(termQuery(field, formatBool(*flag)))
		}
	}

	if len(opt.IncludeTypes) > 0 {
		root.AddQuery(anyTermQuery(fieldKindTag, opt.IncludeTypes))
	}
	if len(opt.IncludeOwnerNames) > 0 {
		root.AddQuery(anyTermQuery(fieldOwner, opt.IncludeOwnerNames))
	}
	for _, tag := range opt.IncludeTagNames {
		root.AddQuery(termQuery(fieldTags, tag))
	}
	for _, category := range opt.IncludeCategoryNames {
		root.AddQuery(termQuery(fieldCategories, category))
	}
	return root
}

func termQuery(field, term string) query.Query {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

func anyTermQuery(field string, terms []string) query.Query {
	queries := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		queries = append(queries, termQuery(field, term))
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// toIndexable flattens a document into the stored field map. Booleans are
// stored as keyword strings so term filters stay analyzer-proof, and
// timestamps as millisecond numerics.
func toIndexable(doc Document) map[string]any {
	fields := map[string]any{
		fieldID:         doc.ID,
		fieldPrimaryKey: doc.PrimaryKey,
		fieldKindTag:    doc.KindTag,
		fieldTitle:      doc.Title,
		fieldContent:    doc.Content,
		fieldOwner:      doc.Owner,
		fieldPermalink:  doc.Permalink,
		fieldPublished:  formatBool(doc.Published),
		fieldRecycled:   formatBool(doc.Recycled),
		fieldExposed:    formatBool(doc.Exposed),
	}
	if doc.Description != "" {
		fields[fieldDescription] = doc.Description
	}
	if len(doc.Categories) > 0 {
		fields[fieldCategories] = doc.Categories
	}
	if len(doc.Tags) > 0 {
		fields[fieldTags] = doc.Tags
	}
	if doc.CreatedAt != nil {
		fields[fieldCreatedAt] = float64(doc.CreatedAt.UnixMilli())
	}
	if doc.UpdatedAt != nil {
		fields[fieldUpdatedAt] = float64(doc.UpdatedAt.UnixMilli())
	}
	if len(doc.Annotations) > 0 {
		if raw, err := json.Marshal(doc.Annotations); err == nil {
			fields[fieldAnnotations] = string(raw)
		}
	}
	return fields
}

// fromFields rebuilds a document from a hit's stored fields.
func fromFields(id string, fields map[string]any) Document {
	doc := Document{
		ID:          id,
		PrimaryKey:  asString(fields[fieldPrimaryKey]),
		KindTag:     asString(fields[fieldKindTag]),
		Title:       asString(fields[fieldTitle]),
		Description: asString(fields[fieldDescription]),
		Content:     asString(fields[fieldContent]),
		Categories:  asStrings(fields[fieldCategories]),
		Tags:        asStrings(fields[fieldTags]),
		Owner:       asString(fields[fieldOwner]),
		Permalink:   asString(fields[fieldPermalink]),
		Published:   asString(fields[fieldPublished]) == "true",
		Recycled:    asString(fields[fieldRecycled]) == "true",
		Exposed:     asString(fields[fieldExposed]) == "true",
		CreatedAt:   asTime(fields[fieldCreatedAt]),
		UpdatedAt:   asTime(fields[fieldUpdatedAt]),
	}
	if raw := asString(fields[fieldAnnotations]); raw != "" {
		var annotations map[string]string
		if err := json.Unmarshal([]byte(raw), &annotations); err == nil {
			doc.Annotations = annotations
		}
	}
	return doc
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asStrings copes with bleve flattening single-element arrays to scalars.
func asStrings(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asTime(v any) *time.Time {
	millis, ok := v.(float64)
	if !ok {
		return nil
	}
	t := time.UnixMilli(int64(millis)).UTC()
	return &t
}
