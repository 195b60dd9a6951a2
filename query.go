package recgo

import (
	"context"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/recgo/index"
	"github.com/hupe1980/recgo/query"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
	"github.com/hupe1980/recgo/validate"
)

// Fields of file records read and written by include resolution.
const (
	FieldMimeType = "mimeType"
	FieldPath     = "path"
	FieldRawData  = "rawData"
)

// Entry is a record returned by a read, together with the records its
// foreign keys resolve to.
type Entry struct {
	Record record.Record
	// Includes maps field -> foreign id -> referenced record. A nil record
	// marks a reference to an absent record.
	Includes map[string]map[string]record.Record
}

// MarshalJSON flattens the record fields and adds "includes" when present.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Record)+1)
	for k, v := range e.Record {
		out[k] = v
	}
	if len(e.Includes) > 0 {
		out[record.FieldIncludes] = e.Includes
	}
	return gojson.Marshal(out)
}

// ListResult is the outcome of List.
type ListResult struct {
	// Total is the number of matching records before pagination.
	Total int     `json:"total"`
	Data  []Entry `json:"data"`

	// IndexHits and IndexMisses count the filter fields answered from a
	// filter index and by a full scan.
	IndexHits   int `json:"-"`
	IndexMisses int `json:"-"`
}

// ViewResult is the outcome of View.
type ViewResult struct {
	Success bool            `json:"success"`
	Entry   *Entry          `json:"record,omitempty"`
	Errors  validate.Errors `json:"errors,omitempty"`
}

// List returns the records of modelClass selected by opts.
//
// Filters of different fields are OR'ed: a record is returned when any
// field filter matches. Fields with a filter index are answered from the
// index, others by scanning the collection. Results keep the collection
// order unless opts.Sort is set.
func (s *Store) List(ctx context.Context, modelClass string, opts query.Options) (*ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return nil, err
	}

	res := &ListResult{}
	records := s.data[modelClass].Records()

	if fields := opts.ActiveFilters(); len(fields) > 0 {
		matched := index.GetIDSet()
		defer index.PutIDSet(matched)

		for _, field := range fields {
			if s.filterIndexed(sch, modelClass, field, opts.Filters[field], matched) {
				res.IndexHits++
			} else {
				res.IndexMisses++
				m := query.NewMatcher(schema.FilterOptions{}, opts.Filters[field])
				for _, rec := range records {
					if m.MatchAny(rec.Get(field)) {
						if id, err := record.ParseID(rec.ID()); err == nil {
							matched.Add(id)
						}
					}
				}
			}
		}

		filtered := records[:0]
		for _, rec := range records {
			if matched.ContainsID(rec.ID()) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	if opts.Sort != nil && opts.Sort.Field != "" {
		query.SortRecords(records, sch.Type(opts.Sort.Field), *opts.Sort)
	}

	res.Total = len(records)
	lo, hi := query.Paginate(len(records), opts.Offset, opts.Limit)

	res.Data = make([]Entry, 0, hi-lo)
	for _, rec := range records[lo:hi] {
		res.Data = append(res.Data, s.entry(ctx, sch, rec, opts.Include))
	}

	s.opts.metricsCollector.RecordList(time.Since(start), res.IndexHits, res.IndexMisses)
	s.opts.logger.LogList(ctx, modelClass, res.Total, res.IndexHits, res.IndexMisses)
	return res, nil
}

// filterIndexed ORs the ids of every filter bucket of field matching f into
// matched. It reports false when field has no filter index.
func (s *Store) filterIndexed(sch *schema.Schema, modelClass, field string, f query.FilterValue, matched *index.IDSet) bool {
	fopts, ok := sch.Filter(field)
	if !ok {
		return false
	}
	m := query.NewMatcher(fopts, f)
	for value, ids := range s.indexes.FilterBuckets(modelClass, field) {
		if m.Match(record.String(value)) {
			matched.Or(ids)
		}
	}
	return true
}

// View returns the record id of modelClass.
func (s *Store) View(ctx context.Context, modelClass, id string, opts query.ViewOptions) (ViewResult, error) {
	if err := ctx.Err(); err != nil {
		return ViewResult{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return ViewResult{}, err
	}

	rec, ok := s.data.Lookup(modelClass, id)
	if !ok {
		return ViewResult{Errors: validate.NotFound()}, nil
	}
	entry := s.entry(ctx, sch, rec, opts.Include)
	return ViewResult{Success: true, Entry: &entry}, nil
}

// entry copies rec and resolves the requested includes. Callers hold the
// read lock.
func (s *Store) entry(ctx context.Context, sch *schema.Schema, rec record.Record, include []string) Entry {
	e := Entry{Record: rec.Without(record.FieldIncludes)}
	for _, field := range include {
		fk, ok := sch.Foreign(field)
		if !ok {
			continue
		}
		refs := make(map[string]record.Record)
		for _, v := range record.WrapArray(rec.Get(field)) {
			if !record.Truthy(v) {
				continue
			}
			ref := v.String()
			target, found := s.data.Lookup(fk.Reference, ref)
			if !found {
				refs[ref] = nil
				continue
			}
			target = target.Clone()
			if sch.Type(field) == schema.FieldTypeFile {
				s.attachRawData(ctx, target)
			}
			refs[ref] = target
		}
		if e.Includes == nil {
			e.Includes = make(map[string]map[string]record.Record)
		}
		e.Includes[field] = refs
	}
	return e
}

func (s *Store) attachRawData(ctx context.Context, file record.Record) {
	if s.opts.downloader == nil {
		return
	}
	mimeType := file.Get(FieldMimeType).String()
	path := file.Get(FieldPath).String()
	uri, err := s.opts.downloader.DownloadRawFile(ctx, mimeType, path)
	if err != nil {
		s.opts.logger.WarnContext(ctx, "download failed", "path", path, "error", err)
		return
	}
	if uri != "" {
		file[FieldRawData] = record.String(uri)
	}
}
