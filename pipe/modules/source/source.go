// Package source registers the "source" module class: a graph input
// with no upstream connector, reading a raw Bayer/X-Trans mosaic frame
// into its one write connector (§3.4, §4.2).
package source

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/token"
)

var (
	className = token.MustNew("source")
	connOut   = token.MustNew("output")
	chanRGGB  = token.MustNew("rggb")
	formatU16 = token.MustNew("ui16")

	paramWidth  = token.MustNew("width")
	paramHeight = token.MustNew("height")
	paramPath   = token.MustNew("path")
)

func init() {
	pipe.RegisterModuleClass(&pipe.ModuleClass{
		Name: className,
		Connectors: []pipe.ConnectorTemplate{
			{Name: connOut, Role: pipe.RoleSource, Chan: chanRGGB, Format: formatU16},
		},
		Params: []pipe.ParamSpec{
			{Name: paramWidth, Type: pipe.ParamFloat, Count: 1},
			{Name: paramHeight, Type: pipe.ParamFloat, Count: 1},
			{Name: paramPath, Type: pipe.ParamString, Count: 248},
		},
		Callbacks: pipe.Callbacks{
			ModifyROIOut: modifyROIOut,
			ReadSource:   readSource,
		},
	})
}

// modifyROIOut sizes the source's single output connector from its
// configured width/height parameters (§4.4 pass 1): a source module has
// no "input" connector for the default implementation to inherit
// dimensions from, so it must set its own full frame directly.
func modifyROIOut(g *pipe.Graph, m *pipe.Module) error {
	class := m.Class
	wOff, _, _, _ := class.ParamOffset(paramWidth)
	hOff, _, _, _ := class.ParamOffset(paramHeight)
	width := math.Float32frombits(binary.LittleEndian.Uint32(m.Params[wOff:]))
	height := math.Float32frombits(binary.LittleEndian.Uint32(m.Params[hOff:]))

	c := m.Connector(m.ConnectorByName(connOut))
	c.ROI.FullWd = uint32(width)
	c.ROI.FullHt = uint32(height)
	c.ROI.Scale = 1
	return nil
}

// readSource fills staging with a raw Bayer mosaic frame: the bytes at
// the configured path if one is set, otherwise a deterministic
// synthetic test ramp sized to exactly fill staging.
func readSource(m *pipe.Module, staging []byte) error {
	pOff, pSize, _, _ := m.Class.ParamOffset(paramPath)
	path := trimNulls(m.Params[pOff : pOff+pSize])
	if path == "" {
		fillSyntheticRGGB(staging)
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("source: read %s: %w", path, err)
	}
	n := copy(staging, raw)
	if n < len(staging) {
		return fmt.Errorf("source: %s has %d bytes, need %d", path, len(raw), len(staging))
	}
	return nil
}

// fillSyntheticRGGB writes a deterministic 16-bit ramp: each pixel's
// value is its linear offset modulo 4096, giving a reproducible,
// non-uniform test frame with no file dependency.
func fillSyntheticRGGB(staging []byte) {
	for i := 0; i+1 < len(staging); i += 2 {
		v := uint16((i / 2) % 4096)
		binary.LittleEndian.PutUint16(staging[i:], v)
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
