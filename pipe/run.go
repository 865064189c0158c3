package pipe

import (
	"bytes"
	"fmt"
	"time"
)

// RunFlags is a bitmask of the phases a Run invocation executes
// (§4.8). Flags are combined, never reordered: phases always run in
// the fixed order the constants are declared in.
type RunFlags uint16

const (
	FlagROIOut RunFlags = 1 << iota
	FlagCreateNodes
	FlagAllocFree
	FlagAllocDSet
	FlagRecordCmdBuf
	FlagUploadSource
	FlagWaitDone
	FlagDownloadSink

	// FlagAll runs every phase: a cold, full run.
	FlagAll = FlagROIOut | FlagCreateNodes | FlagAllocFree | FlagAllocDSet |
		FlagRecordCmdBuf | FlagUploadSource | FlagWaitDone | FlagDownloadSink
)

// fenceTimeout is the ~1s wait-fence budget the run driver allows
// before reporting failure (§4.8).
const fenceTimeout = 1 * time.Second

// RunResult reports the outcome of one Run invocation: the paired
// start/stop timestamp deltas recorded, in node-visit order, and the
// lowest module index whose nodes were actually (re-)recorded.
type RunResult struct {
	TimestampDeltas []uint64
	FirstDirty      int
}

// Run executes the phases named by flags in the fixed §4.8 order,
// skipping any phase whose bit is absent. record_cmd_buf requires
// alloc_dset to be set in the same flags; Run returns an error rather
// than silently reordering phases.
func (g *Graph) Run(flags RunFlags) (RunResult, error) {
	var result RunResult
	start := time.Now()
	defer func() {
		g.reportRunMetrics(time.Since(start).Seconds(), len(result.TimestampDeltas))
	}()

	if flags&FlagROIOut != 0 {
		if err := g.NegotiateROI(); err != nil {
			return result, fmt.Errorf("pipe: run: roi_out: %w", err)
		}
	}

	if flags&FlagCreateNodes != 0 {
		if err := g.ExpandNodes(); err != nil {
			return result, fmt.Errorf("pipe: run: create_nodes: %w", err)
		}
	}

	if flags&FlagAllocFree != 0 || flags&FlagAllocDSet != 0 {
		if err := g.Allocate(); err != nil {
			return result, fmt.Errorf("pipe: run: alloc_free/alloc_dset: %w", err)
		}
	}

	firstDirty := g.firstDirtyModule()
	result.FirstDirty = firstDirty

	if flags&FlagRecordCmdBuf != 0 {
		if flags&FlagAllocDSet == 0 {
			return result, fmt.Errorf("pipe: run: record_cmd_buf requires alloc_dset")
		}
		if err := g.ensureQueryPool(); err != nil {
			return result, fmt.Errorf("pipe: run: %w", err)
		}

		enc, queries, err := g.Record(firstDirty)
		if err != nil {
			return result, fmt.Errorf("pipe: run: record_cmd_buf: %w", err)
		}

		if flags&FlagUploadSource != 0 {
			if err := g.uploadSources(); err != nil {
				return result, fmt.Errorf("pipe: run: upload_source: %w", err)
			}
		}

		if err := g.Device.Submit(enc); err != nil {
			return result, fmt.Errorf("pipe: run: submit: %w", err)
		}

		if flags&FlagWaitDone != 0 {
			if err := g.Device.WaitIdle(fenceTimeout.Nanoseconds()); err != nil {
				return result, fmt.Errorf("pipe: run: wait_done: %w", err)
			}
		}

		if queries > 0 {
			raw, err := g.Device.QueryResults(g.QueryPool, uint32(queries))
			if err != nil {
				return result, fmt.Errorf("pipe: run: read timestamps: %w", err)
			}
			result.TimestampDeltas = pairDeltas(raw)
		}

		if flags&FlagDownloadSink != 0 {
			if err := g.downloadSinks(); err != nil {
				return result, fmt.Errorf("pipe: run: download_sink: %w", err)
			}
		}
	}

	g.snapshotParams()
	return result, nil
}

// firstDirtyModule implements the open-question-(a) resolution: the
// lowest module index whose raw Params bytes differ from the snapshot
// taken at the end of the previous successful Run (0 if no snapshot
// exists yet, len(Modules) if no module's bytes changed). Nodes belonging to
// modules below this threshold are skipped during recording — the
// cached-prefix execution hook §4.7 describes, expressed without the
// source's hard-coded demosaic-named runflag.
func (g *Graph) firstDirtyModule() int {
	if len(g.lastParams) == 0 {
		return 0
	}
	for i, m := range g.Modules {
		prev, ok := g.lastParams[i]
		if !ok || !bytes.Equal(prev, m.Params) {
			return i
		}
	}
	return len(g.Modules)
}

func (g *Graph) snapshotParams() {
	for i, m := range g.Modules {
		g.lastParams[i] = append([]byte(nil), m.Params...)
	}
}

func (g *Graph) ensureQueryPool() error {
	needed := uint32(2 * len(g.Nodes))
	if needed == 0 {
		needed = 1
	}
	if g.QueryPool != 0 && g.queryPoolCap >= needed {
		return nil
	}
	if g.QueryPool != 0 {
		g.Device.DestroyQueryPool(g.QueryPool)
	}
	pool, err := g.Device.CreateQueryPool(needed)
	if err != nil {
		return fmt.Errorf("create query pool: %w", err)
	}
	g.QueryPool = pool
	g.queryPoolCap = needed
	return nil
}

// uploadSources invokes each source module's read_source callback with
// the staging bytes the GPU will later consume via CopyBufferToImage.
func (g *Graph) uploadSources() error {
	for mi, m := range g.Modules {
		cb := m.Class.Callbacks.ReadSource
		if cb == nil {
			continue
		}
		for ni := m.nodeStart; ni < m.nodeEnd; ni++ {
			n := g.Nodes[ni]
			for ci := range n.Connectors {
				c := &n.Connectors[ci]
				if c.Role != RoleSource {
					continue
				}
				staging := make([]byte, c.BufSize())
				if err := cb(m, staging); err != nil {
					return fmt.Errorf("module %d (%s): read_source: %w", mi, m.Instance, err)
				}
				if err := g.Device.WriteBuffer(c.Staging, 0, staging); err != nil {
					return fmt.Errorf("module %d (%s): upload staging: %w", mi, m.Instance, err)
				}
			}
		}
	}
	return nil
}

// downloadSinks maps each sink connector's staging buffer and invokes
// the owning module's write_sink callback with its contents (§4.8:
// "host-visible staging memory is mapped ... then unmapped" — ReadBuffer
// is this capability interface's map/read/unmap in one call).
func (g *Graph) downloadSinks() error {
	for mi, m := range g.Modules {
		cb := m.Class.Callbacks.WriteSink
		if cb == nil {
			continue
		}
		for ni := m.nodeStart; ni < m.nodeEnd; ni++ {
			n := g.Nodes[ni]
			for ci := range n.Connectors {
				c := &n.Connectors[ci]
				if c.Role != RoleSink {
					continue
				}
				staging := make([]byte, c.BufSize())
				if err := g.Device.ReadBuffer(c.Staging, 0, staging); err != nil {
					return fmt.Errorf("module %d (%s): download staging: %w", mi, m.Instance, err)
				}
				if err := cb(m, staging); err != nil {
					return fmt.Errorf("module %d (%s): write_sink: %w", mi, m.Instance, err)
				}
			}
		}
	}
	return nil
}

// pairDeltas reduces a flat [start0, stop0, start1, stop1, ...]
// timestamp-query result into per-node stop-minus-start deltas (§4.8:
// "timestamp results are read and reported as paired start/stop
// deltas").
func pairDeltas(raw []uint64) []uint64 {
	deltas := make([]uint64, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		deltas = append(deltas, raw[i+1]-raw[i])
	}
	return deltas
}
