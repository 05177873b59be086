package module

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModule struct {
	name        string
	initErr     error
	initCalled  bool
	cleanCalled bool
}

func (f *fakeModule) Name() string { return f.name }
func (f *fakeModule) Init(ctx context.Context) error {
	f.initCalled = true
	return f.initErr
}
func (f *fakeModule) Cleanup(ctx context.Context) error {
	f.cleanCalled = true
	return nil
}

func TestBuildOrdersByDependency(t *testing.T) {
	Reset()
	defer Reset()

	a := &fakeModule{name: "a"}
	b := &fakeModule{name: "b"}
	c := &fakeModule{name: "c"}
	Register(&Descriptor{Name: "c", Deps: []string{"b"}, Module: c})
	Register(&Descriptor{Name: "b", Deps: []string{"a"}, Module: b})
	Register(&Descriptor{Name: "a", Module: a})

	g, err := Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, g.Names())
}

func TestBuildDetectsCycle(t *testing.T) {
	Reset()
	defer Reset()

	Register(&Descriptor{Name: "x", Deps: []string{"y"}, Module: &fakeModule{name: "x"}})
	Register(&Descriptor{Name: "y", Deps: []string{"x"}, Module: &fakeModule{name: "y"}})

	_, err := Build()
	assert.Error(t, err)
}

func TestBuildDetectsUnresolvedDependency(t *testing.T) {
	Reset()
	defer Reset()

	Register(&Descriptor{Name: "x", Deps: []string{"missing"}, Module: &fakeModule{name: "x"}})

	_, err := Build()
	assert.Error(t, err)
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	Reset()
	defer Reset()

	Register(&Descriptor{Name: "dup", Module: &fakeModule{name: "dup"}})
	assert.Panics(t, func() {
		Register(&Descriptor{Name: "dup", Module: &fakeModule{name: "dup"}})
	})
}

func TestInitAllRollsBackOnFailure(t *testing.T) {
	Reset()
	defer Reset()

	a := &fakeModule{name: "a"}
	b := &fakeModule{name: "b", initErr: assert.AnError}
	Register(&Descriptor{Name: "a", Module: a})
	Register(&Descriptor{Name: "b", Deps: []string{"a"}, Module: b})

	g, err := Build()
	require.NoError(t, err)

	err = g.InitAll(context.Background())
	require.Error(t, err)
	assert.True(t, a.initCalled)
	assert.True(t, a.cleanCalled, "successfully initialized module must be rolled back")
	assert.True(t, b.initCalled)
}

func TestCleanupAllRunsInReverseOrder(t *testing.T) {
	Reset()
	defer Reset()

	var order []string
	a := &orderedModule{name: "a", record: &order}
	b := &orderedModule{name: "b", record: &order}
	Register(&Descriptor{Name: "a", Module: a})
	Register(&Descriptor{Name: "b", Deps: []string{"a"}, Module: b})

	g, err := Build()
	require.NoError(t, err)
	require.NoError(t, g.InitAll(context.Background()))

	order = nil
	require.NoError(t, g.CleanupAll(context.Background()))
	assert.Equal(t, []string{"b", "a"}, order)
}

type orderedModule struct {
	name   string
	record *[]string
}

func (o *orderedModule) Name() string                       { return o.name }
func (o *orderedModule) Init(ctx context.Context) error      { return nil }
func (o *orderedModule) Cleanup(ctx context.Context) error {
	*o.record = append(*o.record, o.name)
	return nil
}
