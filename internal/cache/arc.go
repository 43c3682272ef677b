package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

type listID uint8

const (
	inT1 listID = iota
	inT2
	inB1
	inB2
)

type entry[K comparable, V any] struct {
	key   K
	value V
	where listID
}

// ARC is an adaptive replacement cache guarded by one mutex.
type ARC[K comparable, V any] struct {
	mu sync.Mutex
	c  int
	p  int

	t1, t2, b1, b2 *list.List
	items          map[K]*list.Element

	hits   atomic.Int64
	misses atomic.Int64
}

// NewARC creates a cache holding at most capacity resident entries.
func NewARC[K comparable, V any](capacity int) *ARC[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &ARC[K, V]{
		c:     capacity,
		t1:    list.New(),
		t2:    list.New(),
		b1:    list.New(),
		b2:    list.New(),
		items: make(map[K]*list.Element, capacity),
	}
}

func (a *ARC[K, V]) list(id listID) *list.List {
	switch id {
	case inT1:
		return a.t1
	case inT2:
		return a.t2
	case inB1:
		return a.b1
	default:
		return a.b2
	}
}

func resident(id listID) bool { return id == inT1 || id == inT2 }

// moveToFront unlinks el and pushes its entry to the MRU end of list to.
func (a *ARC[K, V]) moveToFront(el *list.Element, to listID) {
	e := el.Value.(*entry[K, V])
	if e.where == to {
		a.list(to).MoveToFront(el)
		return
	}
	a.list(e.where).Remove(el)
	e.where = to
	if !resident(to) {
		var zero V
		e.value = zero
	}
	a.items[e.key] = a.list(to).PushFront(e)
}

func (a *ARC[K, V]) dropLRU(id listID) {
	l := a.list(id)
	if el := l.Back(); el != nil {
		l.Remove(el)
		delete(a.items, el.Value.(*entry[K, V]).key)
	}
}

// replace demotes one resident entry into its ghost list.
func (a *ARC[K, V]) replace(inB2Hit bool) {
	if a.t1.Len()+a.t2.Len() < a.c {
		return
	}
	t1 := a.t1.Len()
	switch {
	case t1 > 0 && (t1 > a.p || (inB2Hit && t1 == a.p)):
		a.moveToFront(a.t1.Back(), inB1)
	case a.t2.Len() > 0:
		a.moveToFront(a.t2.Back(), inB2)
	case t1 > 0:
		a.moveToFront(a.t1.Back(), inB1)
	}
}

// Get returns the value of a resident key. A T1 hit moves the key to T2.
func (a *ARC[K, V]) Get(key K) (V, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	el, ok := a.items[key]
	if !ok || !resident(el.Value.(*entry[K, V]).where) {
		a.misses.Add(1)
		var zero V
		return zero, false
	}
	a.hits.Add(1)
	a.moveToFront(el, inT2)
	return el.Value.(*entry[K, V]).value, true
}

// Put inserts or replaces the value of key.
func (a *ARC[K, V]) Put(key K, value V) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.put(key, value)
}

func (a *ARC[K, V]) put(key K, value V) {
	if el, ok := a.items[key]; ok {
		e := el.Value.(*entry[K, V])
		switch e.where {
		case inT1, inT2:
			e.value = value
			a.moveToFront(el, inT2)
			return
		case inB1:
			a.p = min(a.c, a.p+max(1, a.b2.Len()/a.b1.Len()))
			a.replace(false)
		case inB2:
			a.p = max(0, a.p-max(1, a.b1.Len()/a.b2.Len()))
			a.replace(true)
		}
		a.moveToFront(el, inT2)
		e.value = value
		return
	}

	l1 := a.t1.Len() + a.b1.Len()
	switch {
	case l1 >= a.c:
		if a.t1.Len() < a.c {
			a.dropLRU(inB1)
			a.replace(false)
		} else {
			a.dropLRU(inT1)
		}
	default:
		total := l1 + a.t2.Len() + a.b2.Len()
		if total >= a.c {
			if total >= 2*a.c {
				a.dropLRU(inB2)
			}
			a.replace(false)
		}
	}

	e := &entry[K, V]{key: key, value: value, where: inT1}
	a.items[key] = a.t1.PushFront(e)
}

// InsertIfAbsent inserts value unless key is resident, in which case the
// resident value is returned untouched.
func (a *ARC[K, V]) InsertIfAbsent(key K, value V) (V, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if el, ok := a.items[key]; ok {
		if e := el.Value.(*entry[K, V]); resident(e.where) {
			return e.value, true
		}
	}
	a.put(key, value)
	var zero V
	return zero, false
}

// ContainsKey reports whether key is resident.
func (a *ARC[K, V]) ContainsKey(key K) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.items[key]
	return ok && resident(el.Value.(*entry[K, V]).where)
}

// Remove drops key from every list and returns its value if resident.
func (a *ARC[K, V]) Remove(key K) (V, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero V
	el, ok := a.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	a.list(e.where).Remove(el)
	delete(a.items, key)
	if !resident(e.where) {
		return zero, false
	}
	return e.value, true
}

// Len returns the number of resident entries.
func (a *ARC[K, V]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t1.Len() + a.t2.Len()
}

// Clear drops all entries and resets the adaptation target.
func (a *ARC[K, V]) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.t1.Init()
	a.t2.Init()
	a.b1.Init()
	a.b2.Init()
	clear(a.items)
	a.p = 0
}

// Stats returns counters and list sizes.
func (a *ARC[K, V]) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Hits:     a.hits.Load(),
		Misses:   a.misses.Load(),
		Capacity: a.c,
		Target:   a.p,
		T1:       a.t1.Len(),
		T2:       a.t2.Len(),
		B1:       a.b1.Len(),
		B2:       a.b2.Len(),
	}
}
