// Package exposure registers the "exposure" module class: a linear
// gain and black-point subtraction applied uniformly across the frame
// (§ original main.c).
package exposure

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/token"
)

var (
	className = token.MustNew("exposure")
	connIn    = token.MustNew("input")
	connOut   = token.MustNew("output")
	chanRGB   = token.MustNew("rgb")
	formatF16 = token.MustNew("f16")

	kernelMain = token.MustNew("main")

	paramEV = token.MustNew("ev")
)

func init() {
	pipe.RegisterModuleClass(&pipe.ModuleClass{
		Name: className,
		Connectors: []pipe.ConnectorTemplate{
			{Name: connIn, Role: pipe.RoleRead, Chan: chanRGB, Format: formatF16},
			{Name: connOut, Role: pipe.RoleWrite, Chan: chanRGB, Format: formatF16},
		},
		Params: []pipe.ParamSpec{
			{Name: paramEV, Type: pipe.ParamFloat, Count: 1},
		},
		UniformSize: 8 * 4, // 4 black-point floats + 4 per-channel gain floats
		Callbacks: pipe.Callbacks{
			CommitParams: commitParams,
		},
	})

	pipe.RegisterKernel(className, kernelMain, exposureWGSL, "main")
}

// commitParams computes black[k] and gain[k] = 2^ev * whitebalance[k] /
// (whitepoint - black[k]) for each of the four channel slots (§ original
// main.c commit_params).
func commitParams(g *pipe.Graph, m *pipe.Module) error {
	evOff, _, _, _ := m.Class.ParamOffset(paramEV)
	ev := math.Float32frombits(binary.LittleEndian.Uint32(m.Params[evOff:]))
	gain := float32(math.Pow(2, float64(ev)))

	buf := make([]byte, 32)
	for k := 0; k < 4; k++ {
		binary.LittleEndian.PutUint32(buf[4*k:], math.Float32bits(m.Img.BlackPoint[k]))
	}
	for k := 0; k < 4; k++ {
		denom := m.Img.WhitePoint - m.Img.BlackPoint[k]
		g := float32(0)
		if denom != 0 {
			g = gain * m.Img.WhiteBalance[k] / denom
		}
		binary.LittleEndian.PutUint32(buf[16+4*k:], math.Float32bits(g))
	}
	m.Committed = buf
	return nil
}

// exposureWGSL applies the committed black-point/gain pair per
// channel: out = (in - black) * gain.
const exposureWGSL = `
struct Params {
    // the recorder's two 32-byte connector ROI slots (input, output)
    rois: array<vec4<u32>, 4>,
    black: vec4<f32>,
    gain: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(1) @binding(0) var input_tex: texture_2d<f32>;
@group(1) @binding(1) var output_tex: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(32, 32, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let dims = textureDimensions(output_tex);
    if (gid.x >= dims.x || gid.y >= dims.y) {
        return;
    }
    let px = textureLoad(input_tex, vec2<i32>(i32(gid.x), i32(gid.y)), 0);
    let out = (px - params.black) * params.gain;
    textureStore(output_tex, vec2<i32>(i32(gid.x), i32(gid.y)), out);
}
`
