package pipe

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/rawpipe/token"
)

// kernelKey identifies a compute kernel by its owning module class and
// kernel name, mirroring how a module's ModuleClass.Name and a Node's
// Kernel together locate a shader (§4.2, §4.6).
type kernelKey struct {
	class  token.Token
	kernel token.Token
}

// kernelSource is one registered kernel: its WGSL text and entry point,
// supplied by a module package's init() the way demosaic and exposure
// do in this repository.
type kernelSource struct {
	wgsl  string
	entry string
}

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[kernelKey]kernelSource)
)

// RegisterKernel associates a WGSL source with a (moduleClass, kernel)
// pair. A module package calls this from init(), the same pattern
// pipe.RegisterModuleClass uses for module classes themselves.
func RegisterKernel(moduleClass, kernel token.Token, wgsl, entryPoint string) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[kernelKey{moduleClass, kernel}] = kernelSource{wgsl: wgsl, entry: entryPoint}
}

// compileKernel looks up the WGSL source registered for (class, kernel)
// and compiles it to SPIR-V via gogpu/naga, returning the words and the
// shader's entry point name.
func compileKernel(class, kernel token.Token) ([]uint32, string, error) {
	kernelsMu.RLock()
	src, ok := kernels[kernelKey{class, kernel}]
	kernelsMu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("pipe: no kernel registered for %s/%s", class, kernel)
	}

	spirvBytes, err := naga.Compile(src.wgsl)
	if err != nil {
		return nil, "", fmt.Errorf("naga: compile %s/%s: %w", class, kernel, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, "", fmt.Errorf("naga: %s/%s: SPIR-V byte length %d not a multiple of 4", class, kernel, len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, src.entry, nil
}
