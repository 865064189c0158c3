package pipe

import "github.com/gogpu/rawpipe/token"

// MaxModuleConnectors is the per-module connector capacity (§3.4).
const MaxModuleConnectors = 10

// ParamType distinguishes how a module class's declared parameters are
// parsed out of a config file's `param` statement (§6.2).
type ParamType uint8

const (
	ParamFloat ParamType = iota
	ParamString
)

// ParamSpec declares one parameter slot a module class exposes.
type ParamSpec struct {
	Name  token.Token
	Type  ParamType
	Count int // number of floats, or max string bytes
}

// ConnectorTemplate is the class-level description a Module's
// connectors are instantiated from.
type ConnectorTemplate struct {
	Name   token.Token
	Role   Role
	Chan   token.Token
	Format token.Token
	Flags  Flags
}

// ImgParam is image metadata a module inherits from its unique "input"
// connector's upstream module (§3.4): white point, black point, white
// balance and sensor filter pattern. Reference modules such as
// demosaic and exposure read this to drive commit_params.
type ImgParam struct {
	WhitePoint   float32
	BlackPoint   [4]float32
	WhiteBalance [4]float32
	Filters      uint32 // Bayer/X-Trans CFA pattern code
}

// Callbacks is the module capability set (§4.2): up to eight optional
// function values. A nil field takes the core-provided default
// documented alongside each field. This is the "capability record of
// optional function pointers, not polymorphic inheritance" design note
// calls for (§9).
type Callbacks struct {
	// Init runs once per module instance after creation. Default: no-op.
	Init func(m *Module) error

	// Cleanup runs once at graph teardown. Default: no-op.
	Cleanup func(m *Module)

	// ModifyROIOut runs during the forward ROI pass. Default: copy the
	// input connector's full dimensions onto every write connector.
	ModifyROIOut func(g *Graph, m *Module) error

	// ModifyROIIn runs during the reverse ROI pass. Default: copy the
	// output connector's ROI onto every read connector.
	ModifyROIIn func(g *Graph, m *Module) error

	// CreateNodes expands the module into one or more nodes. Default:
	// emit a single node mirroring the module's connectors with kernel
	// name "main".
	CreateNodes func(g *Graph, m *Module) error

	// CommitParams flattens Params into Committed. Default: copy Params
	// verbatim.
	CommitParams func(g *Graph, m *Module) error

	// ReadSource is invoked once per run for source modules, given the
	// mapped staging bytes to fill with host pixel data. No default.
	ReadSource func(m *Module, staging []byte) error

	// WriteSink is invoked once per run for sink modules, given the
	// mapped staging bytes containing the rendered result. No default.
	WriteSink func(m *Module, staging []byte) error
}

// byteSize returns how many bytes of a module's Params buffer this
// spec occupies: 4 per float, 1 per declared string byte.
func (p ParamSpec) byteSize() int {
	if p.Type == ParamFloat {
		return 4 * p.Count
	}
	return p.Count
}

// ParamOffset locates name within class's declared parameter layout
// (the concatenation of each ParamSpec in declaration order), returning
// its byte offset, size and spec. ok is false if no such parameter is
// declared.
func (class *ModuleClass) ParamOffset(name token.Token) (offset, size int, spec ParamSpec, ok bool) {
	off := 0
	for _, p := range class.Params {
		sz := p.byteSize()
		if p.Name == name {
			return off, sz, p, true
		}
		off += sz
	}
	return 0, 0, ParamSpec{}, false
}

// TotalParamBytes is the size of the flat Params buffer every instance
// of class is allocated (§6.2: `param` statements write into fixed
// offsets within this buffer).
func (class *ModuleClass) TotalParamBytes() int {
	total := 0
	for _, p := range class.Params {
		total += p.byteSize()
	}
	return total
}

// ModuleClass is a process-wide, immutable (after registration)
// description of a module kind: its connector templates, declared
// parameters and capability callbacks (§4.2, §9 "global module
// registry").
type ModuleClass struct {
	Name        token.Token
	Connectors  []ConnectorTemplate
	Params      []ParamSpec
	Callbacks   Callbacks
	UniformSize int // bytes of committed-parameter payload contributed to the uniform buffer
}

// Module is an instance of a ModuleClass within a Graph (§3.4).
type Module struct {
	Class    *ModuleClass
	Instance token.Token

	Connectors []Connector

	Params    []byte
	Committed []byte

	Img ImgParam

	// nodeStart and nodeEnd record which indices into Graph.Nodes this
	// module expanded to, set by the node-expansion pass (§4.5) and
	// consumed by node linking and by the run driver's source-upload
	// and sink-download loops.
	nodeStart, nodeEnd int
}

// Connector returns a pointer to the module's i'th connector, or nil if
// i is out of range.
func (m *Module) Connector(i int) *Connector {
	if i < 0 || i >= len(m.Connectors) {
		return nil
	}
	return &m.Connectors[i]
}

// ConnectorByName returns the index of the connector named name, or -1.
func (m *Module) ConnectorByName(name token.Token) int {
	for i := range m.Connectors {
		if m.Connectors[i].Name == name {
			return i
		}
	}
	return -1
}

// uniqueWriteConnector returns the index of the module's single
// write-role connector, or -1 if it has none. Reference modules have
// exactly one (conventionally named "output"); the ROI negotiator
// relies on this uniqueness (§4.4).
func (m *Module) uniqueWriteConnector() int {
	for i := range m.Connectors {
		if m.Connectors[i].Role == RoleWrite {
			return i
		}
	}
	return -1
}

// newModule instantiates a Module from a class, copying its connector
// templates verbatim (§3.4 "up to ten connectors templated from the
// class").
func newModule(class *ModuleClass, instance token.Token) *Module {
	conns := make([]Connector, len(class.Connectors))
	for i, tmpl := range class.Connectors {
		conns[i] = Connector{
			Name:   tmpl.Name,
			Role:   tmpl.Role,
			Chan:   tmpl.Chan,
			Format: tmpl.Format,
			Flags:  tmpl.Flags,
			link:   unlinked,
		}
	}
	return &Module{
		Class:      class,
		Instance:   instance,
		Connectors: conns,
		Params:     make([]byte, class.TotalParamBytes()),
	}
}
