// Package sink registers the "sink" module class: a graph output with
// no downstream connector, receiving the final rendered frame on its
// one sink connector and encoding it to a PNG file (§3.4, §4.2).
package sink

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/pipe/modules/halffloat"
	"github.com/gogpu/rawpipe/token"
)

var (
	className = token.MustNew("sink")
	connIn    = token.MustNew("input")
	chanRGB   = token.MustNew("rgb")
	formatF16 = token.MustNew("f16")

	paramPath = token.MustNew("path")
)

func init() {
	pipe.RegisterModuleClass(&pipe.ModuleClass{
		Name: className,
		Connectors: []pipe.ConnectorTemplate{
			{Name: connIn, Role: pipe.RoleSink, Chan: chanRGB, Format: formatF16},
		},
		Params: []pipe.ParamSpec{
			{Name: paramPath, Type: pipe.ParamString, Count: 256},
		},
		Callbacks: pipe.Callbacks{
			WriteSink: writeSink,
		},
	})
}

// writeSink decodes the sink connector's f16 rgba staging bytes (the
// connector's channel count is promoted to 4, §token.Channels) into an
// 8-bit image and, if a path parameter was configured, encodes it as
// PNG. With no path set, the decode still runs so callers (tests,
// in-process consumers) can be confident the staging layout is sound
// even without touching the filesystem.
func writeSink(m *pipe.Module, staging []byte) error {
	c := m.Connector(m.ConnectorByName(connIn))
	wd, ht := int(c.ROI.Wd), int(c.ROI.Ht)
	const channels = 4
	const bytesPerSample = 2

	stride := wd * channels * bytesPerSample
	if len(staging) < stride*ht {
		return fmt.Errorf("sink: staging has %d bytes, need %d for %dx%d", len(staging), stride*ht, wd, ht)
	}

	img := image.NewNRGBA(image.Rect(0, 0, wd, ht))
	for y := 0; y < ht; y++ {
		row := staging[y*stride:]
		for x := 0; x < wd; x++ {
			px := row[x*channels*bytesPerSample:]
			r := halffloat.ToFloat32(uint16(px[0]) | uint16(px[1])<<8)
			g := halffloat.ToFloat32(uint16(px[2]) | uint16(px[3])<<8)
			b := halffloat.ToFloat32(uint16(px[4]) | uint16(px[5])<<8)
			img.Set(x, y, color.NRGBA{
				R: toByte(r), G: toByte(g), B: toByte(b), A: 0xff,
			})
		}
	}

	pOff, pSize, _, ok := m.Class.ParamOffset(paramPath)
	if !ok {
		return nil
	}
	path := trimNulls(m.Params[pOff : pOff+pSize])
	if path == "" {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("sink: encode %s: %w", path, err)
	}
	return nil
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
