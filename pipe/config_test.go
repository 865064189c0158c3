package pipe_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/pipe"

	_ "github.com/gogpu/rawpipe/pipe/modules/source"
)

func TestLoadConfigParsesModuleAndParamStatements(t *testing.T) {
	const cfg = `
# a comment, and a blank line follow

module source in
param source in width 128
param source in height 64
`
	g := pipe.NewGraph(nil, mock.New(), nil)
	require.NoError(t, pipe.LoadConfig(g, strings.NewReader(cfg)))
	require.Len(t, g.Modules, 1)
}

func TestLoadConfigUnknownStatementFails(t *testing.T) {
	g := pipe.NewGraph(nil, mock.New(), nil)
	err := pipe.LoadConfig(g, strings.NewReader("bogus foo bar"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 1")
}

func TestLoadConfigConnectUnknownModuleFails(t *testing.T) {
	g := pipe.NewGraph(nil, mock.New(), nil)
	const cfg = `
module source in
connect source in output sink out input
`
	err := pipe.LoadConfig(g, strings.NewReader(cfg))
	require.Error(t, err)
}

func TestLoadConfigParamWrongArityFails(t *testing.T) {
	g := pipe.NewGraph(nil, mock.New(), nil)
	const cfg = `
module source in
param source in width 1 2 3
`
	err := pipe.LoadConfig(g, strings.NewReader(cfg))
	require.Error(t, err)
}

func TestLoadConfigRedeclaredInstanceAddsSecondModule(t *testing.T) {
	// LoadConfig has no duplicate-instance check of its own: a second
	// "module source in" statement just adds another module and
	// shadows the first under that name in later connect/param
	// statements, the same way a later AddModule call would.
	g := pipe.NewGraph(nil, mock.New(), nil)
	const cfg = `
module source in
module source in
`
	require.NoError(t, pipe.LoadConfig(g, strings.NewReader(cfg)))
	require.Len(t, g.Modules, 2)
}
