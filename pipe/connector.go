// Package pipe implements the rawpipe compute-graph engine: connector
// wiring, two-pass ROI negotiation, module-to-node expansion, the
// allocation pass, command recording and the run driver.
package pipe

import (
	"github.com/gogpu/rawpipe/arena"
	"github.com/gogpu/rawpipe/internal/gpu"
	"github.com/gogpu/rawpipe/token"
)

// Role identifies the single purpose a Connector serves.
type Role uint8

const (
	RoleSource Role = iota // external input, no upstream within the graph
	RoleSink                // external output, no downstream within the graph
	RoleRead                // internal input, must have exactly one upstream
	RoleWrite               // internal output, may feed any number of downstreams
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	case RoleRead:
		return "read"
	case RoleWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Flags is a bitmask of optional connector behaviours (§3.3).
type Flags uint8

const (
	// FlagSmooth reads the connector's image through a linear sampler
	// instead of nearest.
	FlagSmooth Flags = 1 << iota
	// FlagClear zero-initialises the image before the producing node
	// writes to it.
	FlagClear
	// FlagDrawn marks an image produced by a raster (not compute)
	// kernel; rawpipe's core never rasterises itself but preserves the
	// flag for modules that hand off to one.
	FlagDrawn
)

// ROI (region-of-interest) describes the window of an image a connector
// demands or produces (§3.2). Invariant: the requested window lies
// within the full dimensions, and Scale is strictly positive.
type ROI struct {
	FullWd, FullHt uint32
	Wd, Ht         uint32
	X, Y           uint32
	Scale          float32
}

// Valid reports whether r satisfies the ROI invariant.
func (r ROI) Valid() bool {
	if r.Scale <= 0 {
		return false
	}
	if r.X+r.Wd > r.FullWd || r.Y+r.Ht > r.FullHt {
		return false
	}
	return true
}

// linkage is a pointer into the owning graph's connector arrays,
// expressed as an index pair rather than a direct pointer (design note
// §9) so the graph can be bulk-reset between runs without invalidating
// live references.
type linkage struct {
	peerIndex int // index of the peer module/node, -1 if unlinked
	peerConn  int // index of the peer's connector, -1 if unlinked
}

func (l linkage) linked() bool { return l.peerIndex >= 0 && l.peerConn >= 0 }

var unlinked = linkage{peerIndex: -1, peerConn: -1}

// Connector is a typed I/O port on a module or node (§3.3). The same
// struct shape serves both module-graph and node-graph connectors; the
// peer index is interpreted relative to whichever array owns it.
type Connector struct {
	Name  token.Token
	Role  Role
	Chan  token.Token
	Format token.Token
	Flags Flags

	link linkage

	// RefCount is meaningful only on write/source connectors: the
	// number of distinct downstream reads that must complete before the
	// backing image can be freed. Kept as its own field rather than
	// dual-purposing the link, so a connector's reference count and its
	// peer are independently inspectable.
	RefCount int

	ROI ROI

	// GPU-bound resources, populated by the allocation pass (§4.6).
	Image    gpu.ImageID
	View     gpu.ImageViewID
	Staging  gpu.BufferID
	Reservation        *arena.Reservation
	StagingReservation *arena.Reservation
}

// BufSize returns bytes_per_pixel(format) * channels(chan) * wd * ht,
// the size invariant every connector must satisfy (§8 invariant 1).
func (c *Connector) BufSize() uint64 {
	bpp := uint64(c.Format.BytesPerPixel())
	ch := uint64(c.Chan.Channels())
	return bpp * ch * uint64(c.ROI.Wd) * uint64(c.ROI.Ht)
}

// Linked reports whether the connector has an upstream/downstream peer.
func (c *Connector) Linked() bool { return c.link.linked() }

// Peer returns the linked peer's (index, connector-index) pair. Valid
// only if Linked reports true.
func (c *Connector) Peer() (index, conn int) { return c.link.peerIndex, c.link.peerConn }

func (c *Connector) setPeer(index, conn int) { c.link = linkage{peerIndex: index, peerConn: conn} }

func (c *Connector) sever() { c.link = unlinked }
