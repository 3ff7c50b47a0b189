package cache

// Kind distinguishes the two halves of a cache entry in metrics.
type Kind string

const (
	KindTranslation Kind = "translation"
	KindAnalysis    Kind = "analysis"
)

// Metrics receives store events. Implementations must be safe for
// concurrent use; they are called with the store lock held and must not
// call back into the store.
type Metrics interface {
	Hit(kind Kind)
	Miss(kind Kind)
	Evict()
	Size(entries int)
}

// NoopMetrics discards all events. It is the default.
type NoopMetrics struct{}

func (NoopMetrics) Hit(Kind)  {}
func (NoopMetrics) Miss(Kind) {}
func (NoopMetrics) Evict()    {}
func (NoopMetrics) Size(int)  {}

var _ Metrics = NoopMetrics{}
