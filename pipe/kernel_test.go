package pipe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/token"
)

func TestCompileKernelUnregisteredReturnsError(t *testing.T) {
	class := token.MustNew("nosuchcl")
	kernel := token.MustNew("main")
	_, _, err := compileKernel(class, kernel)
	require.Error(t, err)
}

func TestRegisterKernelIsKeyedByClassAndName(t *testing.T) {
	class := token.MustNew("kerntest")
	a := token.MustNew("a")
	b := token.MustNew("b")

	RegisterKernel(class, a, "// wgsl a", "main")
	RegisterKernel(class, b, "// wgsl b", "entry_b")

	kernelsMu.RLock()
	srcA, okA := kernels[kernelKey{class, a}]
	srcB, okB := kernels[kernelKey{class, b}]
	kernelsMu.RUnlock()

	require.True(t, okA)
	require.True(t, okB)
	require.Equal(t, "// wgsl a", srcA.wgsl)
	require.Equal(t, "entry_b", srcB.entry)
}
