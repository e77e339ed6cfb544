package testutils

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/vecgate/pkg/vector"
)

// Ops recorded by MockVectorDriver.
const (
	OpOpen   = "open"
	OpCreate = "create"
	OpAdd    = "add"
	OpQuery  = "query"
)

// Call is one recorded backing index call.
type Call struct {
	Op         string
	Collection string
	Metric     vector.Metric
	IDs        []string
	Vectors    [][]float32
	K          int
}

// MockVectorDriver is a test vector driver that records every call in order
// and can be told to fail.
type MockVectorDriver struct {
	mu          sync.Mutex
	calls       []Call
	collections map[string]*MockCollection

	// MaxBatch is returned by MaxBatchSize.
	MaxBatch int

	// OpenErr and CreateErr fail OpenCollection and CreateCollection.
	OpenErr   error
	CreateErr error

	// CreateDelay slows CreateCollection to widen race windows.
	CreateDelay time.Duration

	// FailAddAt fails the Nth Add call (1-based) with AddErr. Zero disables.
	FailAddAt int
	AddErr    error

	// QueryResults is returned by every Query, truncated to k.
	QueryResults []vector.QueryResult
	QueryErr     error

	adds   int
	closed bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		collections: make(map[string]*MockCollection),
		MaxBatch:    100,
	}
}

// Calls returns a copy of the recorded calls.
func (m *MockVectorDriver) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallsFor returns the recorded calls with the given op.
func (m *MockVectorDriver) CallsFor(op string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Seed registers an existing collection without recording a call.
func (m *MockVectorDriver) Seed(name string) *MockCollection {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := &MockCollection{driver: m, name: name, metric: vector.DefaultMetric}
	m.collections[name] = coll
	return coll
}

// Closed reports whether Close was called.
func (m *MockVectorDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockVectorDriver) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *MockVectorDriver) OpenCollection(_ context.Context, name string) (vector.Collection, bool, error) {
	m.record(Call{Op: OpOpen, Collection: name})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, false, m.OpenErr
	}
	coll, ok := m.collections[name]
	if !ok {
		return nil, false, nil
	}
	return coll, true, nil
}

func (m *MockVectorDriver) CreateCollection(_ context.Context, name string, metric vector.Metric) (vector.Collection, error) {
	m.record(Call{Op: OpCreate, Collection: name, Metric: metric})

	if m.CreateDelay > 0 {
		time.Sleep(m.CreateDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	coll := &MockCollection{driver: m, name: name, metric: metric}
	m.collections[name] = coll
	return coll, nil
}

func (m *MockVectorDriver) MaxBatchSize(_ context.Context) (int, error) {
	return m.MaxBatch, nil
}

func (m *MockVectorDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MockCollection records Add and Query calls on its driver.
type MockCollection struct {
	driver *MockVectorDriver
	name   string
	metric vector.Metric
}

func (c *MockCollection) Name() string {
	return c.name
}

func (c *MockCollection) Add(_ context.Context, ids []string, vectors [][]float32) error {
	c.driver.record(Call{
		Op:         OpAdd,
		Collection: c.name,
		IDs:        slices.Clone(ids),
		Vectors:    slices.Clone(vectors),
	})

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	c.driver.adds++
	if c.driver.FailAddAt > 0 && c.driver.adds == c.driver.FailAddAt {
		return c.driver.AddErr
	}
	return nil
}

func (c *MockCollection) Query(_ context.Context, _ []float32, k int) ([]vector.QueryResult, error) {
	c.driver.record(Call{Op: OpQuery, Collection: c.name, K: k})

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	if c.driver.QueryErr != nil {
		return nil, c.driver.QueryErr
	}
	results := c.driver.QueryResults
	if len(results) > k {
		results = results[:k]
	}
	return slices.Clone(results), nil
}
