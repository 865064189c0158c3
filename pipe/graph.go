package pipe

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/rawpipe/arena"
	"github.com/gogpu/rawpipe/internal/gpu"
	"github.com/gogpu/rawpipe/token"
)

// Capacity limits (§3.6): bounded sequences of modules and nodes.
const (
	ModuleCapacity = 100
	NodeCapacity   = 300
)

// TileHook is the reserved sub-ROI iteration hook (§9 open question b,
// design note on tiling). rawpipe does not implement out-of-core
// tiling — an explicit spec non-goal — but the allocation pass calls
// this hook exactly once per write or source connector so a future tiling
// implementation has a well-defined seam. The default always returns 1
// (a single tile).
type TileHook func(c *Connector) int

func defaultTileHook(c *Connector) int { return 1 }

// Graph is the container of module instances, node instances, GPU
// resources and bookkeeping state (§3.6).
type Graph struct {
	Registry *Registry
	Device   gpu.Device
	Logger   *slog.Logger

	Modules []*Module
	Nodes   []*Node

	DeviceArena  *arena.Arena
	StagingArena *arena.Arena

	UniformBuffer          gpu.BufferID
	UniformBindGroupLayout gpu.BindGroupLayoutID
	UniformBindGroup       gpu.BindGroupID
	uniformSize            uint64

	QueryPool    gpu.QueryPoolID
	queryCount   uint32
	queryPoolCap uint32

	// descriptor pool sizing counters (§3.6 "counters for descriptor
	// pool sizing"), accumulated during Walk A of the allocation pass.
	readSamplers int
	writeImages  int
	uniforms     int

	TileHook TileHook

	// lastParams snapshots each module's raw Params bytes as they stood
	// at the end of the previous successful Run, keyed by module index.
	// Run compares against this to compute the "first dirty module"
	// threshold (§9 open question a) instead of the source's hard-coded
	// demosaic-named runflag advance.
	lastParams map[int][]byte
}

// NewGraph creates an empty graph bound to registry and device. If
// logger is nil, slog.Default() is used.
func NewGraph(registry *Registry, device gpu.Device, logger *slog.Logger) *Graph {
	if registry == nil {
		registry = globalRegistry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		Registry:     registry,
		Device:       device,
		Logger:       logger,
		DeviceArena:  arena.New(),
		StagingArena: arena.New(),
		TileHook:     defaultTileHook,
		lastParams:   make(map[int][]byte),
	}
}

// AddModule instantiates a module of the named class and appends it to
// the graph, returning its index.
func (g *Graph) AddModule(className string, instance string) (int, error) {
	if len(g.Modules) >= ModuleCapacity {
		return -1, fmt.Errorf("pipe: AddModule: %w", ErrCapacityExceeded)
	}
	nameTok, err := token.New(className)
	if err != nil {
		return -1, fmt.Errorf("pipe: AddModule: class name: %w", err)
	}
	instTok, err := token.New(instance)
	if err != nil {
		return -1, fmt.Errorf("pipe: AddModule: instance name: %w", err)
	}
	class, err := g.Registry.Class(nameTok)
	if err != nil {
		return -1, err
	}
	m := newModule(class, instTok)
	g.Modules = append(g.Modules, m)
	return len(g.Modules) - 1, nil
}

// Module returns the i'th module, or nil if out of range.
func (g *Graph) Module(i int) *Module {
	if i < 0 || i >= len(g.Modules) {
		return nil
	}
	return g.Modules[i]
}

// Connect wires module m0's connector c0 (the source/write or
// source-role end) to module m1's connector c1 (the destination/read
// or sink-role end), matching dt_module_connect's (from, from_conn,
// to, to_conn) argument order (§4.3). Passing m0 == -1 severs any
// existing link at (m1, c1) and is used by cycle detection to prune a
// back-edge.
func (g *Graph) Connect(m0, c0, m1, c1 int) error {
	if m0 == -1 && c0 == -1 {
		dst := g.Module(m1)
		if dst == nil {
			return ErrNoSuchDestNode
		}
		conn := dst.Connector(c1)
		if conn == nil {
			return ErrNoSuchDestConn
		}
		conn.sever()
		return nil
	}

	dst := g.Module(m1)
	if dst == nil {
		return ErrNoSuchDestNode
	}
	dstConn := dst.Connector(c1)
	if dstConn == nil {
		return ErrNoSuchDestConn
	}
	if dstConn.Role != RoleRead && dstConn.Role != RoleSink {
		return ErrDestNotRead
	}

	src := g.Module(m0)
	if src == nil {
		return ErrNoSuchSrcNode
	}
	srcConn := src.Connector(c0)
	if srcConn == nil {
		return ErrNoSuchSrcConn
	}
	if srcConn.Role != RoleWrite && srcConn.Role != RoleSource {
		return ErrSrcNotWrite
	}

	if m0 == m1 && c0 == c1 {
		return ErrDestInconsistent5 // a connector may not link to itself (§3.3 invariant)
	}
	if dstConn.Linked() {
		return ErrDestInconsistent4 // destination must be severed before re-wiring
	}

	if srcConn.Chan != dstConn.Chan {
		return ErrChannelMismatch
	}
	if srcConn.Format != dstConn.Format {
		return ErrFormatMismatch
	}

	dstConn.setPeer(m0, c0)
	return nil
}

// Teardown invokes each module's Cleanup callback and destroys all GPU
// resources still held by nodes and the graph itself (§3.6 "GPU
// resources ... destroyed only at graph teardown").
func (g *Graph) Teardown() {
	for _, m := range g.Modules {
		if m.Class.Callbacks.Cleanup != nil {
			m.Class.Callbacks.Cleanup(m)
		}
	}
	for _, n := range g.Nodes {
		g.destroyNodeResources(n)
	}
	if g.UniformBuffer != 0 {
		g.Device.DestroyBuffer(g.UniformBuffer)
	}
	if g.UniformBindGroup != 0 {
		g.Device.DestroyBindGroup(g.UniformBindGroup)
	}
	if g.UniformBindGroupLayout != 0 {
		g.Device.DestroyBindGroupLayout(g.UniformBindGroupLayout)
	}
	if g.QueryPool != 0 {
		g.Device.DestroyQueryPool(g.QueryPool)
	}
}

func (g *Graph) destroyNodeResources(n *Node) {
	for i := range n.Connectors {
		c := &n.Connectors[i]
		if c.View != 0 {
			g.Device.DestroyImageView(c.View)
		}
		if c.Image != 0 && (c.Role == RoleWrite || c.Role == RoleSource) {
			g.Device.DestroyImage(c.Image)
		}
		if c.Staging != 0 {
			g.Device.DestroyBuffer(c.Staging)
		}
	}
	if n.BindGroup != 0 {
		g.Device.DestroyBindGroup(n.BindGroup)
	}
	if n.Pipeline != 0 {
		g.Device.DestroyComputePipeline(n.Pipeline)
	}
	if n.PipelineLayout != 0 {
		g.Device.DestroyPipelineLayout(n.PipelineLayout)
	}
	if n.BindGroupLayout != 0 {
		g.Device.DestroyBindGroupLayout(n.BindGroupLayout)
	}
	if n.ShaderModule != 0 {
		g.Device.DestroyShaderModule(n.ShaderModule)
	}
}
