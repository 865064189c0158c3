package pipe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/token"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return NewGraph(nil, mock.New(), nil)
}

// TestCountReferencesFanOut exercises scenario S5: a single write
// connector feeding three independent sink reads accumulates a
// RefCount of 3, since visitNodes starts a traversal root at every
// sink-bearing node rather than only the first one found.
func TestCountReferencesFanOut(t *testing.T) {
	g := newTestGraph(t)

	out := &Node{Connectors: []Connector{{Name: token.MustNew("out"), Role: RoleWrite}}}
	in0 := &Node{Connectors: []Connector{{Name: token.MustNew("in"), Role: RoleSink}}}
	in1 := &Node{Connectors: []Connector{{Name: token.MustNew("in"), Role: RoleSink}}}
	in2 := &Node{Connectors: []Connector{{Name: token.MustNew("in"), Role: RoleSink}}}
	g.Nodes = []*Node{out, in0, in1, in2}

	require.NoError(t, g.connectNode(0, 0, 1, 0))
	require.NoError(t, g.connectNode(0, 0, 2, 0))
	require.NoError(t, g.connectNode(0, 0, 3, 0))

	require.NoError(t, g.countReferences())
	require.Equal(t, 3, out.Connectors[0].RefCount)
}

// TestCountReferencesSourceStartsAtOne exercises the +1 bias a source
// connector's RefCount carries so its image survives past the staging
// upload that consumes it first, even with no downstream reader.
func TestCountReferencesSourceStartsAtOne(t *testing.T) {
	g := newTestGraph(t)
	src := &Node{Connectors: []Connector{{Name: token.MustNew("out"), Role: RoleSource}}}
	g.Nodes = []*Node{src}

	require.NoError(t, g.countReferences())
	require.Equal(t, 1, src.Connectors[0].RefCount)
}

// TestVisitModulesSeversCycle exercises scenario S6: a back-edge found
// while walking the module graph is severed rather than left to loop
// forever, and is reported in the severed-link count (§8 invariant 6).
func TestVisitModulesSeversCycle(t *testing.T) {
	g := newTestGraph(t)

	a := &Module{
		Class: &ModuleClass{Name: token.MustNew("a")},
		Connectors: []Connector{
			{Name: token.MustNew("in"), Role: RoleRead},
			{Name: token.MustNew("out"), Role: RoleWrite},
		},
	}
	b := &Module{
		Class: &ModuleClass{Name: token.MustNew("b")},
		Connectors: []Connector{
			{Name: token.MustNew("in"), Role: RoleSink},
			{Name: token.MustNew("out"), Role: RoleWrite},
		},
	}
	g.Modules = []*Module{a, b}

	// b.out feeds back into a.in, and a.out feeds b.in: a cycle through
	// the only sink-bearing module, b.
	a.Connectors[0].setPeer(1, 1)
	b.Connectors[0].setPeer(0, 1)

	severed, err := g.visitModules(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, severed)
}
