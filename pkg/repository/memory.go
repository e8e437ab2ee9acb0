package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/matst80/slask-fordon/pkg/types"
)

var keyFields = []types.Field{
	types.FieldVendor,
	types.FieldCategory,
	types.FieldChassis,
	types.FieldModel,
	types.FieldStatus,
	types.FieldYear,
}

// Memory is an in process content repository. Every keyword value and every
// text token keeps a bitmap of the slots holding it, constraints are
// evaluated as bitmap unions and intersections.
type Memory struct {
	mu        sync.RWMutex
	tokenizer *Tokenizer
	items     []*types.Item
	slots     map[string]uint32
	all       *roaring.Bitmap
	domains   map[types.Domain]*roaring.Bitmap
	keys      map[types.Field]map[string]*roaring.Bitmap
	tokens    map[Token]*roaring.Bitmap
}

func NewMemory() *Memory {
	m := &Memory{
		tokenizer: &Tokenizer{MaxTokens: 256},
		items:     make([]*types.Item, 0),
		slots:     make(map[string]uint32),
		all:       roaring.New(),
		domains:   make(map[types.Domain]*roaring.Bitmap),
		keys:      make(map[types.Field]map[string]*roaring.Bitmap),
		tokens:    make(map[Token]*roaring.Bitmap),
	}
	for _, f := range keyFields {
		m.keys[f] = make(map[string]*roaring.Bitmap)
	}
	return m
}

func addTo[K comparable](m map[K]*roaring.Bitmap, key K, slot uint32) {
	if bm, ok := m[key]; ok {
		bm.Add(slot)
		return
	}
	m[key] = roaring.BitmapOf(slot)
}

func removeFrom[K comparable](m map[K]*roaring.Bitmap, key K, slot uint32) {
	if bm, ok := m[key]; ok {
		bm.Remove(slot)
		if bm.IsEmpty() {
			delete(m, key)
		}
	}
}

func (m *Memory) itemTokens(item *types.Item) []Token {
	return m.tokenizer.Tokenize(item.Title + " " + item.Description)
}

func (m *Memory) unlinkUnsafe(slot uint32) {
	item := m.items[slot]
	if item == nil {
		return
	}
	m.all.Remove(slot)
	removeFrom(m.domains, item.Domain, slot)
	for _, f := range keyFields {
		if v, ok := item.KeyValue(f); ok {
			removeFrom(m.keys[f], v, slot)
		}
	}
	for _, token := range m.itemTokens(item) {
		removeFrom(m.tokens, token, slot)
	}
	m.items[slot] = nil
}

func (m *Memory) linkUnsafe(slot uint32, item *types.Item) {
	m.items[slot] = item
	m.all.Add(slot)
	addTo(m.domains, item.Domain, slot)
	for _, f := range keyFields {
		if v, ok := item.KeyValue(f); ok {
			addTo(m.keys[f], v, slot)
		}
	}
	for _, token := range m.itemTokens(item) {
		addTo(m.tokens, token, slot)
	}
}

func (m *Memory) Upsert(items ...types.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		item := items[i]
		if item.Id == "" {
			continue
		}
		if item.Domain == "" {
			item.Domain = types.DomainVehicles
		}
		if item.Status == "" {
			item.Status = types.StatusActive
		}
		slot, ok := m.slots[item.Id]
		if ok {
			m.unlinkUnsafe(slot)
		} else {
			slot = uint32(len(m.items))
			m.items = append(m.items, nil)
			m.slots[item.Id] = slot
		}
		m.linkUnsafe(slot, &item)
	}
}

func (m *Memory) Delete(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if slot, ok := m.slots[id]; ok {
			m.unlinkUnsafe(slot)
			delete(m.slots, id)
		}
	}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.all.GetCardinality())
}

// Items returns all live items in insertion order.
func (m *Memory) Items() []types.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]types.Item, 0, m.all.GetCardinality())
	it := m.all.Iterator()
	for it.HasNext() {
		ret = append(ret, *m.items[it.Next()])
	}
	return ret
}

func (m *Memory) keyMatch(c types.Constraint) (*roaring.Bitmap, error) {
	values, ok := m.keys[c.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
	}
	ret := roaring.New()
	for _, v := range c.Values {
		if bm, ok := values[v]; ok {
			ret.Or(bm)
		}
	}
	return ret, nil
}

func (m *Memory) textMatch(c types.Constraint) *roaring.Bitmap {
	var ret *roaring.Bitmap
	for _, token := range m.tokenizer.Tokenize(c.Text) {
		matching := roaring.New()
		for indexed, bm := range m.tokens {
			if strings.HasPrefix(string(indexed), string(token)) {
				matching.Or(bm)
			}
		}
		if ret == nil {
			ret = matching
		} else {
			ret.And(matching)
		}
	}
	return ret
}

func (m *Memory) rangeFilter(result *roaring.Bitmap, c types.Constraint) error {
	if c.Field != types.FieldPrice && c.Field != types.FieldYear {
		return fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
	}
	toRemove := roaring.New()
	it := result.Iterator()
	for it.HasNext() {
		slot := it.Next()
		v, ok := m.items[slot].NumberValue(c.Field)
		if !ok || (c.Min != nil && v < *c.Min) || (c.Max != nil && v > *c.Max) {
			toRemove.Add(slot)
		}
	}
	result.AndNot(toRemove)
	return nil
}

func (m *Memory) matchUnsafe(q types.QueryDescriptor) (*roaring.Bitmap, error) {
	var result *roaring.Bitmap
	if q.Domain == "" || q.Domain == types.DomainAll {
		result = m.all.Clone()
	} else if bm, ok := m.domains[q.Domain]; ok {
		result = bm.Clone()
	} else {
		return roaring.New(), nil
	}
	for _, c := range q.Constraints {
		switch c.Op {
		case types.OpIn, types.OpEq:
			bm, err := m.keyMatch(c)
			if err != nil {
				return nil, err
			}
			result.And(bm)
		case types.OpMatch:
			if bm := m.textMatch(c); bm != nil {
				result.And(bm)
			}
		case types.OpRange:
			if err := m.rangeFilter(result, c); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	return result, nil
}

func (m *Memory) compare(order types.SortOrder) func(a, b uint32) int {
	newest := func(a, b uint32) int { return cmp.Compare(b, a) }
	by := func(field types.Field, desc bool) func(a, b uint32) int {
		return func(a, b uint32) int {
			va, _ := m.items[a].NumberValue(field)
			vb, _ := m.items[b].NumberValue(field)
			c := cmp.Compare(va, vb)
			if desc {
				c = -c
			}
			if c != 0 {
				return c
			}
			return newest(a, b)
		}
	}
	switch order {
	case types.SortPriceAsc:
		return by(types.FieldPrice, false)
	case types.SortPriceDesc:
		return by(types.FieldPrice, true)
	case types.SortYearAsc:
		return by(types.FieldYear, false)
	case types.SortYearDesc:
		return by(types.FieldYear, true)
	}
	return newest
}

func (m *Memory) Query(ctx context.Context, q types.QueryDescriptor) (*types.ResultPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	matching, err := m.matchUnsafe(q)
	if err != nil {
		return nil, err
	}
	slots := matching.ToArray()
	slices.SortFunc(slots, m.compare(q.Sort))

	page := types.PageRequest{Page: q.Page, PageSize: q.PageSize}
	start := min(page.Offset(), len(slots))
	end := len(slots)
	if q.PageSize > 0 {
		end = min(start+q.PageSize, len(slots))
	}
	items := make([]types.Item, 0, end-start)
	for _, slot := range slots[start:end] {
		items = append(items, *m.items[slot])
	}
	return &types.ResultPage{
		Items:    items,
		Total:    len(slots),
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

func (m *Memory) ValueCounts(ctx context.Context, q types.QueryDescriptor, field types.Field) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	values, ok := m.keys[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	matching, err := m.matchUnsafe(q)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]int)
	for value, bm := range values {
		if n := matching.AndCardinality(bm); n > 0 {
			ret[value] = int(n)
		}
	}
	return ret, nil
}
