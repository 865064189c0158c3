package pipe

import (
	"github.com/gogpu/rawpipe/internal/gpu"
	"github.com/gogpu/rawpipe/token"
)

// MaxNodeConnectors is the per-node connector capacity (§3.5).
const MaxNodeConnectors = 30

// WorkgroupSize is the fixed compute workgroup extent every reference
// kernel dispatches against (§4.5, §4.7): ceil(wd/32) x ceil(ht/32) x dp.
const WorkgroupSize = 32

// Node is a single leaf compute kernel (§3.5): one module expands to
// one or more nodes during the expansion pass (§4.5).
type Node struct {
	ModuleIndex int
	Name        token.Token // instance name of the owning module
	Kernel      token.Token // kernel name, together with module class name locates the shader

	Connectors []Connector

	Wd, Ht, Dp uint32

	PushConstants []byte

	IsSource bool
	IsSink   bool

	// GPU objects created by the allocation pass (§4.6) and consumed by
	// the command recorder (§4.7).
	ShaderModule      gpu.ShaderModuleID
	BindGroupLayout   gpu.BindGroupLayoutID
	PipelineLayout    gpu.PipelineLayoutID
	Pipeline          gpu.ComputePipelineID
	BindGroup         gpu.BindGroupID
}

// DispatchGroups returns the work-group counts §4.5/§4.7 specify:
// ceil(wd/32) x ceil(ht/32) x dp.
func (n *Node) DispatchGroups() (x, y, z uint32) {
	x = ceilDiv(n.Wd, WorkgroupSize)
	y = ceilDiv(n.Ht, WorkgroupSize)
	z = n.Dp
	if z == 0 {
		z = 1
	}
	return
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Connector returns a pointer to the node's i'th connector, or nil.
func (n *Node) Connector(i int) *Connector {
	if i < 0 || i >= len(n.Connectors) {
		return nil
	}
	return &n.Connectors[i]
}

// ConnectorByName returns the index of the connector named name, or -1.
func (n *Node) ConnectorByName(name token.Token) int {
	for i := range n.Connectors {
		if n.Connectors[i].Name == name {
			return i
		}
	}
	return -1
}
