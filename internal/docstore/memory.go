package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It backs the "memory" store driver for
// local runs and is the store used by the package tests across the repo.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Document
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
		now:         monotonicClock(),
	}
}

// monotonicClock returns strictly increasing timestamps so that creation order
// is stable even when documents are created within the same clock tick.
func monotonicClock() func() time.Time {
	var mu sync.Mutex
	var last time.Time
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := time.Now().UTC()
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

func (s *MemoryStore) CreateDocument(_ context.Context, collection, id string, data map[string]any) (*Document, error) {
	norm, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*Document)
		s.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
	}
	now := s.now()
	doc := &Document{ID: id, Collection: collection, CreatedAt: now, UpdatedAt: now, Data: norm}
	docs[id] = doc
	return copyDocument(doc), nil
}

func (s *MemoryStore) GetDocument(_ context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return copyDocument(doc), nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, collection string, queries ...Query) (*DocumentList, error) {
	p, err := planQueries(queries)
	if err != nil {
		return nil, err
	}
	filters, err := normalizeFilters(p.filters)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]*Document, 0)
	for _, doc := range s.collections[collection] {
		if matchAll(doc, filters) {
			matched = append(matched, doc)
		}
	}
	s.mu.RUnlock()

	sortDocuments(matched, p.orders)

	total := len(matched)
	start := min(p.offset, total)
	end := min(start+p.limit, total)

	out := &DocumentList{Documents: make([]Document, 0, end-start), Total: total}
	for _, doc := range matched[start:end] {
		out.Documents = append(out.Documents, *copyDocument(doc))
	}
	return out, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, collection, id string, data map[string]any) (*Document, error) {
	norm, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	for k, v := range norm {
		doc.Data[k] = v
	}
	doc.UpdatedAt = s.now()
	return copyDocument(doc), nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func copyDocument(doc *Document) *Document {
	out := *doc
	out.Data = deepCopy(doc.Data).(map[string]any)
	return &out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i, val := range t {
			a[i] = deepCopy(val)
		}
		return a
	default:
		return v
	}
}

func normalizeFilters(filters []Query) ([]Query, error) {
	out := make([]Query, len(filters))
	for i, q := range filters {
		nq := Query{Method: q.Method, Attribute: q.Attribute}
		for _, v := range q.Values {
			nv, err := normalizeValue(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			}
			nq.Values = append(nq.Values, nv)
		}
		if len(q.Queries) > 0 {
			sub, err := normalizeFilters(q.Queries)
			if err != nil {
				return nil, err
			}
			nq.Queries = sub
		}
		out[i] = nq
	}
	return out, nil
}

func attributeValue(doc *Document, attribute string) (any, bool) {
	switch attribute {
	case AttrID:
		return doc.ID, true
	case AttrCreatedAt:
		return doc.CreatedAt.Format(time.RFC3339Nano), true
	case AttrUpdatedAt:
		return doc.UpdatedAt.Format(time.RFC3339Nano), true
	}
	v, ok := doc.Data[attribute]
	return v, ok
}

func matchAll(doc *Document, filters []Query) bool {
	for _, q := range filters {
		if !match(doc, q) {
			return false
		}
	}
	return true
}

func match(doc *Document, q Query) bool {
	switch q.Method {
	case MethodAnd:
		return matchAll(doc, q.Queries)
	case MethodOr:
		for _, sub := range q.Queries {
			if match(doc, sub) {
				return true
			}
		}
		return false
	}

	v, ok := attributeValue(doc, q.Attribute)
	switch q.Method {
	case MethodIsNull:
		if !ok || v == nil {
			return true
		}
		arr, isArr := v.([]any)
		return isArr && len(arr) == 0
	case MethodEqual:
		return ok && equalsAny(v, q.Values)
	case MethodNotEqual:
		return !ok || !equalsAny(v, q.Values)
	case MethodContains:
		if !ok {
			return false
		}
		if arr, isArr := v.([]any); isArr {
			for _, el := range arr {
				if scalarEqualsAny(el, q.Values) {
					return true
				}
			}
			return false
		}
		s, isStr := v.(string)
		if !isStr {
			return false
		}
		for _, want := range q.Values {
			if sub, ok := want.(string); ok && strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				return true
			}
		}
		return false
	case MethodGreaterThan, MethodGreaterThanEqual, MethodLessThan, MethodLessThanEqual:
		if !ok {
			return false
		}
		c, comparable := compareScalars(v, q.Values[0])
		if !comparable {
			return false
		}
		switch q.Method {
		case MethodGreaterThan:
			return c > 0
		case MethodGreaterThanEqual:
			return c >= 0
		case MethodLessThan:
			return c < 0
		default:
			return c <= 0
		}
	case MethodSearch:
		s, isStr := v.(string)
		if !ok || !isStr {
			return false
		}
		text, _ := q.Values[0].(string)
		return searchMatches(s, text)
	}
	return false
}

func equalsAny(v any, values []any) bool {
	if arr, isArr := v.([]any); isArr {
		for _, el := range arr {
			if scalarEqualsAny(el, values) {
				return true
			}
		}
		return false
	}
	return scalarEqualsAny(v, values)
}

func scalarEqualsAny(v any, values []any) bool {
	for _, want := range values {
		if c, ok := compareScalars(v, want); ok && c == 0 {
			return true
		}
		if b1, ok := v.(bool); ok {
			if b2, ok := want.(bool); ok && b1 == b2 {
				return true
			}
		}
	}
	return false
}

// compareScalars orders two numbers or two strings.
func compareScalars(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

// searchWords splits text into lower-cased words on anything that is not a letter or digit.
func searchWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}

func searchMatches(field, text string) bool {
	terms := searchWords(text)
	if len(terms) == 0 {
		return true
	}
	words := make(map[string]struct{})
	for _, w := range searchWords(field) {
		words[w] = struct{}{}
	}
	for _, t := range terms {
		if _, ok := words[t]; !ok {
			return false
		}
	}
	return true
}

func sortDocuments(docs []*Document, orders []Query) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			a, _ := attributeValue(docs[i], o.Attribute)
			b, _ := attributeValue(docs[j], o.Attribute)
			c := compareForSort(a, b)
			if c == 0 {
				continue
			}
			if o.Method == MethodOrderDesc {
				return c > 0
			}
			return c < 0
		}
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

// compareForSort orders values with missing/null first.
func compareForSort(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if c, ok := compareScalars(a, b); ok {
		return c
	}
	return 0
}

// MemoryFileStorage is an in-process FileStorage.
type MemoryFileStorage struct {
	mu    sync.RWMutex
	files map[string]File
}

// NewMemoryFileStorage creates an empty MemoryFileStorage.
func NewMemoryFileStorage() *MemoryFileStorage {
	return &MemoryFileStorage{files: make(map[string]File)}
}

func (m *MemoryFileStorage) CreateFile(_ context.Context, bucket, id string, file File) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	key := bucket + "/" + id

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[key]; exists {
		return "", fmt.Errorf("%w: file %s", ErrDuplicate, key)
	}
	m.files[key] = file
	return id, nil
}

func (m *MemoryFileStorage) DeleteFile(_ context.Context, bucket, id string) error {
	key := bucket + "/" + id

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; !ok {
		return fmt.Errorf("%w: file %s", ErrNotFound, key)
	}
	delete(m.files, key)
	return nil
}

// Len returns the number of stored files.
func (m *MemoryFileStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
