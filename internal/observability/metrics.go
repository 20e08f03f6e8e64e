package observability

type Metrics interface {
	ObserveProcessor(op string, status int, durMs float64)
	ObserveInsert(dbWriteMs float64)
	ObserveLookup(source string, cacheMs, dbMs float64)
	ObserveHTTP(method, route string, status int, durMs float64)
	ObserveEvent(publishMs float64, ok bool)
	IncCacheHit()
	IncCacheMiss()
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveProcessor(string, int, float64)    {}
func (Noop) ObserveInsert(float64)                    {}
func (Noop) ObserveLookup(string, float64, float64)   {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) ObserveEvent(float64, bool)               {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}
