package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResettable struct {
	Value       int
	ResetCalled int
}

func (m *mockResettable) Reset() {
	m.Value = 0
	m.ResetCalled++
}

func newCounter() (func() *mockResettable, *int) {
	created := 0
	return func() *mockResettable {
		created++
		return &mockResettable{}
	}, &created
}

func TestPoolGet_EmptyPoolBuildsNew(t *testing.T) {
	newFn, created := newCounter()
	p := New(5, newFn)

	item := p.Get()
	require.NotNil(t, item)
	assert.Equal(t, 1, *created)
	assert.Equal(t, 0, p.Idle())
}

func TestPoolPutAndGet(t *testing.T) {
	newFn, created := newCounter()
	p := New(5, newFn)

	obj := &mockResettable{Value: 42}
	p.Put(obj)
	assert.Equal(t, 1, obj.ResetCalled)
	assert.Equal(t, 1, p.Idle())

	retrieved := p.Get()
	assert.Same(t, obj, retrieved)
	assert.Equal(t, 0, retrieved.Value)
	assert.Equal(t, 0, *created)
}

func TestPoolCapacity(t *testing.T) {
	newFn, _ := newCounter()
	p := New(2, newFn)

	for i := 0; i < 5; i++ {
		p.Put(&mockResettable{Value: i})
	}

	assert.Equal(t, 2, p.Idle())
}

func TestPoolConcurrentAccess(t *testing.T) {
	p := New(10, func() *mockResettable { return &mockResettable{} })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			item := p.Get()
			item.Value = v
			p.Put(item)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, p.Idle(), 10)
	for p.Idle() > 0 {
		assert.Equal(t, 0, p.Get().Value)
	}
}
