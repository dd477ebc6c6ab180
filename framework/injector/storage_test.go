package injector_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navios-org/navios-sub001/framework/injector"
)

func TestStorage_GetOrCreateIsIndivisible(t *testing.T) {
	t.Parallel()

	st := injector.NewStorage()
	const callers = 32
	created := make([]bool, callers)
	holders := make([]*injector.Holder, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holders[i], created[i] = st.GetOrCreate("db#1", injector.Singleton)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		if created[i] {
			winners++
		}
		assert.Same(t, holders[0], holders[i])
	}
	assert.Equal(t, 1, winners, "exactly one caller registers the Creating holder")
	assert.Equal(t, 1, st.Len())
}

func TestStorage_DeleteReportsPresence(t *testing.T) {
	t.Parallel()

	st := injector.NewStorage()
	st.GetOrCreate("a", injector.Singleton)
	assert.True(t, st.Delete("a"))
	assert.False(t, st.Delete("a"))
	_, ok := st.Get("a")
	assert.False(t, ok)
}

func TestStorage_FindByInstance(t *testing.T) {
	t.Parallel()

	st := injector.NewStorage()
	h, _ := st.GetOrCreate("svc", injector.Singleton)
	inst := &Service{Name: "svc"}
	h.MarkCreatedForTest(inst)

	require.Same(t, h, st.FindByInstance(inst))
	assert.Nil(t, st.FindByInstance(&Service{Name: "svc"}), "identity, not structure")
	assert.Nil(t, st.FindByInstance(nil))
}

func TestStorage_FindDependents(t *testing.T) {
	t.Parallel()

	st := injector.NewStorage()
	st.GetOrCreate("dep", injector.Singleton)
	a, _ := st.GetOrCreate("a", injector.Singleton)
	b, _ := st.GetOrCreate("b", injector.Singleton)
	a.AddDependencyForTest("dep")
	b.AddDependencyForTest("dep")

	dependents := st.FindDependents("dep")
	assert.Len(t, dependents, 2)
	assert.Empty(t, st.FindDependents(a.Name()))
}
