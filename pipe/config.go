package pipe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/rawpipe/token"
)

// LoadConfig parses the text configuration format (§6.2) from r into
// graph, one statement per line:
//
//	module  <name> <instance>
//	connect <name0> <inst0> <conn0> <name1> <inst1> <conn1>
//	param   <name> <inst> <param> <values...>
//
// Any other leading token, or a malformed statement, fails the parse
// with an error carrying the offending line number; the error does not
// name the file, since LoadConfig only sees a reader.
func LoadConfig(graph *Graph, r io.Reader) error {
	p := &configParser{graph: graph, modules: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.statement(line); err != nil {
			return fmt.Errorf("config line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read: %w", err)
	}
	return nil
}

type configParser struct {
	graph   *Graph
	modules map[string]int // "name:instance" -> module index
}

func (p *configParser) statement(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "module":
		return p.module(fields[1:])
	case "connect":
		return p.connect(fields[1:])
	case "param":
		return p.param(fields[1:])
	default:
		return fmt.Errorf("unknown statement %q", fields[0])
	}
}

func (p *configParser) module(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("module: expected <name> <instance>, got %d args", len(args))
	}
	name, instance := args[0], args[1]
	idx, err := p.graph.AddModule(name, instance)
	if err != nil {
		return fmt.Errorf("module %s %s: %w", name, instance, err)
	}
	p.modules[moduleKey(name, instance)] = idx
	return nil
}

func (p *configParser) connect(args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("connect: expected 6 args, got %d", len(args))
	}
	m0, err := p.resolveModule(args[0], args[1])
	if err != nil {
		return err
	}
	m1, err := p.resolveModule(args[3], args[4])
	if err != nil {
		return err
	}
	c0, err := p.resolveConnector(m0, args[2])
	if err != nil {
		return err
	}
	c1, err := p.resolveConnector(m1, args[5])
	if err != nil {
		return err
	}
	if err := p.graph.Connect(m0, c0, m1, c1); err != nil {
		return fmt.Errorf("connect %s %s %s %s %s %s: %w",
			args[0], args[1], args[2], args[3], args[4], args[5], err)
	}
	return nil
}

func (p *configParser) param(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("param: expected <name> <instance> <param> <values...>, got %d args", len(args))
	}
	mi, err := p.resolveModule(args[0], args[1])
	if err != nil {
		return err
	}
	m := p.graph.Modules[mi]

	paramName, err := token.New(args[2])
	if err != nil {
		return fmt.Errorf("param name: %w", err)
	}
	offset, size, spec, ok := m.Class.ParamOffset(paramName)
	if !ok {
		return fmt.Errorf("param: module %s %s has no parameter %q", args[0], args[1], args[2])
	}

	values := args[3:]
	switch spec.Type {
	case ParamFloat:
		if len(values) != spec.Count {
			return fmt.Errorf("param %s: expected %d float values, got %d", args[2], spec.Count, len(values))
		}
		for i, v := range values {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return fmt.Errorf("param %s: value %q: %w", args[2], v, err)
			}
			binary.LittleEndian.PutUint32(m.Params[offset+4*i:], math.Float32bits(float32(f)))
		}
	case ParamString:
		joined := strings.Join(values, " ")
		if len(joined) > spec.Count {
			return fmt.Errorf("param %s: string %q exceeds declared %d bytes", args[2], joined, spec.Count)
		}
		copy(m.Params[offset:offset+size], joined)
	default:
		return fmt.Errorf("param %s: %w", args[2], ErrUnknownParamType)
	}
	return nil
}

func (p *configParser) resolveModule(name, instance string) (int, error) {
	idx, ok := p.modules[moduleKey(name, instance)]
	if !ok {
		return -1, fmt.Errorf("no such module %s %s (declare it with a module statement first)", name, instance)
	}
	return idx, nil
}

func (p *configParser) resolveConnector(moduleIdx int, name string) (int, error) {
	m := p.graph.Module(moduleIdx)
	tok, err := token.New(name)
	if err != nil {
		return -1, fmt.Errorf("connector name: %w", err)
	}
	ci := m.ConnectorByName(tok)
	if ci < 0 {
		return -1, fmt.Errorf("module %s has no connector %q", m.Instance, name)
	}
	return ci, nil
}

func moduleKey(name, instance string) string { return name + ":" + instance }
