// Package demosaic registers the "demosaic" module class: expands a
// raw Bayer/X-Trans mosaic into a half-resolution RGB image. This is
// the HALF_SIZE path only (§DESIGN.md) — the fast single-node
// down-sampling expansion, not the full-resolution down/gauss/splat
// chain.
package demosaic

import (
	"encoding/binary"

	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/token"
)

var (
	className = token.MustNew("demosaic")
	connIn    = token.MustNew("input")
	connOut   = token.MustNew("output")
	chanRGGB  = token.MustNew("rggb")
	chanRGB   = token.MustNew("rgb")
	formatU16 = token.MustNew("ui16")
	formatF16 = token.MustNew("f16")

	kernelMain = token.MustNew("main")

	// xtransFilters is the sentinel filter-pattern code the source
	// format uses for an X-Trans (3x3 block) sensor; anything else is
	// treated as a 2x2 Bayer pattern.
	xtransFilters uint32 = 9
)

func init() {
	pipe.RegisterModuleClass(&pipe.ModuleClass{
		Name: className,
		Connectors: []pipe.ConnectorTemplate{
			{Name: connIn, Role: pipe.RoleRead, Chan: chanRGGB, Format: formatU16},
			{Name: connOut, Role: pipe.RoleWrite, Chan: chanRGB, Format: formatF16},
		},
		Params:      nil,
		UniformSize: 4, // one uint32: the sensor filter pattern code
		Callbacks: pipe.Callbacks{
			ModifyROIOut: modifyROIOut,
			ModifyROIIn:  modifyROIIn,
			CommitParams: commitParams,
		},
	})

	pipe.RegisterKernel(className, kernelMain, halfSizeWGSL, "main")
}

func block(filters uint32) uint32 {
	if filters == xtransFilters {
		return 3
	}
	return 2
}

// modifyROIOut halves (or thirds, for X-Trans) the input's full
// dimensions onto the output connector, rounding down to a whole
// mosaic block (§ original main.c modify_roi_out).
func modifyROIOut(g *pipe.Graph, m *pipe.Module) error {
	in := m.Connector(m.ConnectorByName(connIn))
	out := m.Connector(m.ConnectorByName(connOut))
	b := block(m.Img.Filters)
	out.ROI.FullWd = in.ROI.FullWd / b
	out.ROI.FullHt = in.ROI.FullHt / b
	return nil
}

// modifyROIIn scales the output's demanded window back up by the block
// factor onto the input connector (§ original main.c modify_roi_in).
func modifyROIIn(g *pipe.Graph, m *pipe.Module) error {
	in := m.Connector(m.ConnectorByName(connIn))
	out := m.Connector(m.ConnectorByName(connOut))
	b := block(m.Img.Filters)
	in.ROI.Wd = b * out.ROI.Wd
	in.ROI.Ht = b * out.ROI.Ht
	in.ROI.X = b * out.ROI.X
	in.ROI.Y = b * out.ROI.Y
	in.ROI.Scale = 1
	return nil
}

// commitParams flattens the inherited filter-pattern code into the
// committed-parameter blob the kernel's uniform payload carries.
func commitParams(g *pipe.Graph, m *pipe.Module) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, m.Img.Filters)
	m.Committed = buf
	return nil
}

// halfSizeWGSL is the "halfsize" demosaic kernel (§ original main.c
// create_nodes' HALF_SIZE path): one 2x2 (or 3x3) mosaic block reduces
// to a single RGB output texel by direct subsampling. Chroma detail
// beyond one sample per channel per block is intentionally not
// reconstructed here — this is the fast preview path, not a full
// interpolating demosaic.
const halfSizeWGSL = `
struct Params {
    filters: u32,
}

@group(1) @binding(0) var input_tex: texture_2d<u32>;
@group(1) @binding(1) var output_tex: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(32, 32, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let out_dims = textureDimensions(output_tex);
    if (gid.x >= out_dims.x || gid.y >= out_dims.y) {
        return;
    }
    let in_dims = textureDimensions(input_tex);
    let blk = i32(in_dims.x / out_dims.x);
    let ix = i32(gid.x) * blk;
    let iy = i32(gid.y) * blk;

    let r = textureLoad(input_tex, vec2<i32>(ix, iy), 0).r;
    let g0 = textureLoad(input_tex, vec2<i32>(ix + 1, iy), 0).r;
    let g1 = textureLoad(input_tex, vec2<i32>(ix, iy + 1), 0).r;
    let b = textureLoad(input_tex, vec2<i32>(ix + 1, iy + 1), 0).r;

    let scale = 1.0 / 65535.0;
    let g = (f32(g0) + f32(g1)) * 0.5;
    textureStore(output_tex, vec2<i32>(i32(gid.x), i32(gid.y)),
        vec4<f32>(f32(r) * scale, g * scale, f32(b) * scale, 1.0));
}
`
