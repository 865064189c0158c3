package pipe

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rawpipe/internal/gpu"
)

// imageUsage is the fixed usage set every write connector's image is
// created with (§6.1): storage, transfer-src, transfer-dst, sampled.
const imageUsage = gpu.ImageUsageStorage | gpu.ImageUsageTransferSrc | gpu.ImageUsageTransferDst | gpu.ImageUsageSampled

// Allocate runs the two-walk allocation pass (§4.6): Walk A creates
// images, reserves arena memory and frees spent reservations; Walk B
// binds memory and builds descriptor sets. Between the walks, the
// device-local and staging memory heaps and the shared uniform buffer
// are sized and allocated once, now that each arena's high-water mark
// (vmsize) is known.
func (g *Graph) Allocate() error {
	g.DeviceArena.Nuke()
	g.StagingArena.Nuke()
	g.readSamplers, g.writeImages, g.uniforms = 0, 0, 0

	if err := g.walkAAllocOutputsFreeInputs(); err != nil {
		return err
	}

	if err := g.ensureUniformBuffer(); err != nil {
		return err
	}

	return g.walkBBindAndDescribe()
}

func (g *Graph) walkAAllocOutputsFreeInputs() error {
	_, err := g.visitNodes(nil, func(n *Node) error {
		g.countDescriptorBindings(n)

		if !n.IsSink && !n.IsSource {
			if err := g.createNodePipeline(n); err != nil {
				return err
			}
		}

		for ci := range n.Connectors {
			c := &n.Connectors[ci]
			switch c.Role {
			case RoleWrite, RoleSource:
				if err := g.allocOutput(n, c); err != nil {
					return err
				}
				if c.Role == RoleSource {
					if err := g.allocStaging(c); err != nil {
						return err
					}
				}
			}
		}

		for ci := range n.Connectors {
			c := &n.Connectors[ci]
			if (c.Role != RoleRead && c.Role != RoleSink) || !c.Linked() {
				continue
			}
			peerIdx, peerConn := c.Peer()
			peer := &g.Nodes[peerIdx].Connectors[peerConn]
			c.Image = peer.Image
			c.Reservation = peer.Reservation

			if c.Role == RoleSink {
				if err := g.allocStaging(c); err != nil {
					return err
				}
			}
		}

		g.freeInputs(n)
		return nil
	})
	return err
}

func (g *Graph) countDescriptorBindings(n *Node) {
	for _, c := range n.Connectors {
		switch c.Role {
		case RoleRead, RoleSink:
			g.readSamplers++
		case RoleWrite, RoleSource:
			g.writeImages++
		}
	}
	if !n.IsSink && !n.IsSource {
		g.uniforms++
	}
}

// allocOutput creates a write/source connector's backing image and
// reserves device-local arena space for it (§4.6 step 3). The
// reservation's reference count is primed to the connector's RefCount
// (already computed by the reference-counting pass, including the
// extra +1 for source connectors).
func (g *Graph) allocOutput(n *Node, c *Connector) error {
	tiles := g.TileHook(c)
	if tiles != 1 {
		return fmt.Errorf("pipe: tiled allocation (%d tiles) requested but not implemented", tiles)
	}

	img, err := g.Device.CreateImage(gpu.ImageDesc{
		Label:  n.Name.String() + "." + c.Name.String(),
		Width:  c.ROI.Wd,
		Height: c.ROI.Ht,
		Format: textureFormatFor(c),
		Usage:  imageUsage,
	})
	if err != nil {
		return fmt.Errorf("pipe: alloc_outputs: create image: %w", err)
	}
	c.Image = img

	size, alignment := g.Device.ImageMemoryRequirements(img)
	if size == 0 {
		size = c.BufSize()
	}
	if alignment == 0 {
		alignment = 1
	}
	reservation, err := g.DeviceArena.Alloc(size, alignment)
	if err != nil {
		return fmt.Errorf("pipe: alloc_outputs: arena alloc: %w", err)
	}
	c.Reservation = reservation

	if c.RefCount > 1 {
		g.DeviceArena.AddRef(reservation, c.RefCount-1)
	}
	return nil
}

// allocStaging creates a source or sink connector's host-visible staging buffer
// and reserves staging-arena space for it.
func (g *Graph) allocStaging(c *Connector) error {
	buf, err := g.Device.CreateBuffer("staging."+c.Name.String(), c.BufSize(), true)
	if err != nil {
		return fmt.Errorf("pipe: alloc staging: %w", err)
	}
	c.Staging = buf
	r, err := g.StagingArena.Alloc(c.BufSize(), 16)
	if err != nil {
		return fmt.Errorf("pipe: alloc staging: arena alloc: %w", err)
	}
	c.StagingReservation = r
	return nil
}

// freeInputs balances allocOutput's reservation on each write/source
// connector, and releases the aliased reservation on each linked
// read/sink connector, so images become reclaimable once every
// consumer scheduled ahead of this node in the traversal has run
// (§4.6 step 5). Staging reservations are freed immediately: nothing
// downstream of a sink consumes them further.
func (g *Graph) freeInputs(n *Node) {
	for ci := range n.Connectors {
		c := &n.Connectors[ci]
		switch c.Role {
		case RoleRead, RoleSink:
			if c.Linked() && c.Reservation != nil {
				g.DeviceArena.Free(c.Reservation)
			}
			if c.StagingReservation != nil {
				g.StagingArena.Free(c.StagingReservation)
			}
		case RoleWrite, RoleSource:
			if c.Reservation != nil {
				g.DeviceArena.Free(c.Reservation)
			}
		}
	}
}

func (g *Graph) ensureUniformBuffer() error {
	size := g.uniformPayloadSize()
	if size == 0 {
		size = 16
	}
	if g.UniformBuffer == 0 {
		buf, err := g.Device.CreateBuffer("uniform", size, true)
		if err != nil {
			return fmt.Errorf("pipe: create uniform buffer: %w", err)
		}
		g.UniformBuffer = buf
		g.uniformSize = size
	}
	return nil
}

// walkBBindAndDescribe is Walk B (§4.6): allocate a descriptor set
// (bind group) per node, bind write-connector images to their arena
// offsets and create their views, re-alias read-connector views from
// their upstream, and flush one batched bind-group write per node.
func (g *Graph) walkBBindAndDescribe() error {
	if err := g.createUniformBindGroup(); err != nil {
		return err
	}

	_, err := g.visitNodes(nil, func(n *Node) error {
		for ci := range n.Connectors {
			c := &n.Connectors[ci]
			switch c.Role {
			case RoleWrite, RoleSource:
				if c.Reservation != nil {
					g.Device.BindImageMemory(c.Image, c.Reservation.Offset)
				}
				view, err := g.Device.CreateImageView(c.Image)
				if err != nil {
					return fmt.Errorf("pipe: alloc_outputs2: create view: %w", err)
				}
				c.View = view
			case RoleRead, RoleSink:
				if !c.Linked() {
					continue
				}
				peerIdx, peerConn := c.Peer()
				c.View = g.Nodes[peerIdx].Connectors[peerConn].View
				if c.Role == RoleSink && c.StagingReservation != nil {
					// staging buffer memory is owned outright by the
					// buffer object in this capability model; nothing
					// further to bind.
					_ = c.StagingReservation
				}
			}
		}
		return g.createNodeBindGroup(n)
	})
	return err
}

func (g *Graph) createNodePipeline(n *Node) error {
	m := g.Modules[n.ModuleIndex]
	spirv, entry, err := compileKernel(m.Class.Name, n.Kernel)
	if err != nil {
		return fmt.Errorf("pipe: record: compile kernel %s/%s: %w", m.Class.Name, n.Kernel, err)
	}
	mod, err := g.Device.CreateShaderModule(gpu.ShaderModuleDesc{
		Label: m.Class.Name.String() + "." + n.Kernel.String(),
		SPIRV: spirv,
	})
	if err != nil {
		return fmt.Errorf("pipe: create shader module: %w", err)
	}
	n.ShaderModule = mod

	layout, err := g.nodeBindGroupLayout(n)
	if err != nil {
		return err
	}
	n.BindGroupLayout = layout

	pipeLayout, err := g.Device.CreatePipelineLayout(g.UniformBindGroupLayout, layout)
	if err != nil {
		return fmt.Errorf("pipe: create pipeline layout: %w", err)
	}
	n.PipelineLayout = pipeLayout

	pipeline, err := g.Device.CreateComputePipeline(gpu.ComputePipelineDesc{
		Label:      n.Name.String(),
		Layout:     pipeLayout,
		Module:     mod,
		EntryPoint: entry,
	})
	if err != nil {
		return fmt.Errorf("pipe: create compute pipeline: %w", err)
	}
	n.Pipeline = pipeline
	return nil
}

func (g *Graph) nodeBindGroupLayout(n *Node) (gpu.BindGroupLayoutID, error) {
	entries := make([]gpu.BindGroupLayoutEntry, 0, len(n.Connectors))
	for i, c := range n.Connectors {
		switch c.Role {
		case RoleRead, RoleSink:
			entries = append(entries, gpu.BindGroupLayoutEntry{Binding: uint32(i), Type: gpu.BindingCombinedImageSampler})
		case RoleWrite, RoleSource:
			entries = append(entries, gpu.BindGroupLayoutEntry{Binding: uint32(i), Type: gpu.BindingStorageImage})
		}
	}
	return g.Device.CreateBindGroupLayout(gpu.BindGroupLayoutDesc{Label: n.Name.String(), Entries: entries})
}

func (g *Graph) createNodeBindGroup(n *Node) error {
	if n.BindGroupLayout == 0 {
		layout, err := g.nodeBindGroupLayout(n)
		if err != nil {
			return err
		}
		n.BindGroupLayout = layout
	}
	entries := make([]gpu.BindGroupEntry, 0, len(n.Connectors))
	for i, c := range n.Connectors {
		switch c.Role {
		case RoleRead, RoleSink, RoleWrite, RoleSource:
			entries = append(entries, gpu.BindGroupEntry{Binding: uint32(i), ImageView: c.View})
		}
	}
	bg, err := g.Device.CreateBindGroup(gpu.BindGroupDesc{Label: n.Name.String(), Layout: n.BindGroupLayout, Entries: entries})
	if err != nil {
		return fmt.Errorf("pipe: create bind group: %w", err)
	}
	n.BindGroup = bg
	return nil
}

func (g *Graph) createUniformBindGroup() error {
	if g.UniformBindGroupLayout == 0 {
		layout, err := g.Device.CreateBindGroupLayout(gpu.BindGroupLayoutDesc{
			Label:   "uniform",
			Entries: []gpu.BindGroupLayoutEntry{{Binding: 0, Type: gpu.BindingUniformBuffer}},
		})
		if err != nil {
			return fmt.Errorf("pipe: create uniform bind group layout: %w", err)
		}
		g.UniformBindGroupLayout = layout
	}
	bg, err := g.Device.CreateBindGroup(gpu.BindGroupDesc{
		Label:   "uniform",
		Layout:  g.UniformBindGroupLayout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: g.UniformBuffer}},
	})
	if err != nil {
		return fmt.Errorf("pipe: create uniform bind group: %w", err)
	}
	g.UniformBindGroup = bg
	return nil
}

// roiSlotSize is one connector's ROI padded to a 16-byte stride (§6.4):
// 7 uint32/float32 fields (28 bytes) rounded up to 32.
const roiSlotSize = 32

// uniformPayloadSize sizes the single shared uniform buffer to the
// largest payload any one node will write before its dispatch (§6.4):
// one padded ROI slot per connector, followed by the widest module
// class's committed-parameter block (§9 design note: one buffer,
// rewritten per node rather than one slot per node).
func (g *Graph) uniformPayloadSize() uint64 {
	var maxConns, maxParams int
	for _, m := range g.Modules {
		if len(m.Connectors) > maxConns {
			maxConns = len(m.Connectors)
		}
		if m.Class.UniformSize > maxParams {
			maxParams = m.Class.UniformSize
		}
	}
	return uint64(maxConns*roiSlotSize + maxParams)
}

func textureFormatFor(c *Connector) gputypes.TextureFormat {
	bpp := c.Format.BytesPerPixel()
	ch := c.Chan.Channels()
	switch {
	case bpp == 2 && ch >= 4:
		return gputypes.TextureFormatRGBA16Float
	case bpp == 4 && ch >= 4:
		return gputypes.TextureFormatRGBA32Float
	case ch == 1:
		return gputypes.TextureFormatR8Unorm
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}
