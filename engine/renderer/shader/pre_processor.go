// pre_processor.go implements the WGSL include pre-processor. A line of the form
//
//	//@oxy:include <name>
//
// is replaced with the embedded WGSL source registered under <name>, so GPU struct
// definitions live next to the Go types that marshal them.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
)

const includePrefix = "//@oxy:include"

// registryEntry pairs an embedded WGSL struct source with its type name and byte size.
type registryEntry struct {
	Source string
	Type   string
	Size   uint64
}

// structRegistry maps include names to their WGSL sources.
var structRegistry = map[string]registryEntry{
	"flower_uniforms": {
		Source: material.GPUFlowerUniformsSource,
		Type:   "FlowerUniforms",
		Size:   material.GPUFlowerUniformsSize,
	},
}

type preProcessor struct{}

func newPreProcessor() *preProcessor {
	return &preProcessor{}
}

// Process replaces include directives with registered struct sources.
//
// Parameters:
//   - source: the raw WGSL source
//
// Returns:
//   - string: the processed source
//   - error: error naming the line of an unknown or malformed include
func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(trimmed, includePrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		name := strings.TrimSpace(rest)
		if name == "" {
			return "", fmt.Errorf("line %d: include directive without a name", i+1)
		}
		entry, ok := structRegistry[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		out = append(out, entry.Source)
	}
	return strings.Join(out, "\n"), nil
}

// structSize returns the registered byte size of a WGSL struct type, or 0.
func structSize(typeName string) uint64 {
	for _, e := range structRegistry {
		if e.Type == typeName {
			return e.Size
		}
	}
	return 0
}
