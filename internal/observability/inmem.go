package observability

import "sync"

// Observation is one recorded measurement. Fields not relevant to Kind stay zero.
type Observation struct {
	Kind   string
	Source string
	Method string
	Route  string
	Status int
	OK     bool
	Dur    float64
	DbMs   float64
}

// Inmem keeps the last max observations, mostly for local runs and tests.
type Inmem struct {
	mu     sync.Mutex
	last   []*Observation
	max    int
	totals struct {
		cacheHits, cacheMiss int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

// Last returns a copy of the retained observations, oldest first.
func (m *Inmem) Last() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Observation, 0, len(m.last))
	for _, o := range m.last {
		out = append(out, *o)
	}
	return out
}

func (m *Inmem) ObserveProcessor(op string, status int, durMs float64) {
	m.push(&Observation{Kind: "processor", Route: op, Status: status, Dur: durMs})
}

func (m *Inmem) ObserveInsert(dbWriteMs float64) {
	m.push(&Observation{Kind: "insert", DbMs: dbWriteMs})
}

func (m *Inmem) ObserveLookup(source string, cacheMs, dbMs float64) {
	m.push(&Observation{Kind: "lookup", Source: source, Dur: cacheMs, DbMs: dbMs})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(&Observation{Kind: "http", Method: method, Route: route, Status: status, Dur: durMs})
}

func (m *Inmem) ObserveEvent(publishMs float64, ok bool) {
	m.push(&Observation{Kind: "event", Dur: publishMs, OK: ok})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}
func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}
