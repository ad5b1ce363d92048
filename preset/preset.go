// Package preset implements the Partner Preset Layer (spec §4.7):
// declarative per-partner policies, loaded as data rather than compiled as
// code, applied to a build request before canonicalization.
package preset

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/graph"
)

//go:embed presets.yaml
var builtinYAML []byte

// Preset is one named partner policy record (spec §4.7 "Model").
type Preset struct {
	Name                string              `yaml:"name"`
	TargetVersion       string              `yaml:"target_version"`
	Required            []string            `yaml:"required"`
	Recommended         []string            `yaml:"recommended"`
	Enums               map[string][]string `yaml:"enums"`
	Defaults            map[string]string   `yaml:"defaults"`
	AllowedExtensionsNS []string            `yaml:"allowed_extension_namespaces"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Registry is a read-only, immutable-after-init table of presets, safe to
// share across concurrent operations without locking (spec §5 "Shared-
// resource policy").
type Registry struct {
	byName map[string]Preset
}

var builtin *Registry

func init() {
	r, err := loadYAML(builtinYAML)
	if err != nil {
		panic("preset: built-in presets.yaml is malformed: " + err.Error())
	}
	builtin = r
}

func loadYAML(data []byte) (*Registry, error) {
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, err
	}
	r := &Registry{byName: make(map[string]Preset, len(pf.Presets))}
	for _, p := range pf.Presets {
		r.byName[p.Name] = p
	}
	return r, nil
}

// Builtin returns the registry of the seven pre-enumerated presets (spec
// §4.7): spotify, apple_music, youtube_music, amazon_music, universal,
// audio_album, youtube_single.
func Builtin() *Registry { return builtin }

// LoadOverrides parses additional or replacing presets from YAML bytes,
// merging them over Builtin() without mutating it. Used by ernconfig when a
// deployment supplies partner-specific overrides (spec §9 "presets as
// data... load from a static table at init").
func LoadOverrides(data []byte) (*Registry, error) {
	extra, err := loadYAML(data)
	if err != nil {
		return nil, err
	}
	merged := &Registry{byName: make(map[string]Preset, len(builtin.byName)+len(extra.byName))}
	for k, v := range builtin.byName {
		merged.byName[k] = v
	}
	for k, v := range extra.byName {
		merged.byName[k] = v
	}
	return merged, nil
}

// Get returns the named preset and whether it exists.
func (r *Registry) Get(name string) (Preset, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names returns every preset name the registry knows, in the order
// presets.yaml declares them plus any overrides appended after.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for _, p := range []string{"spotify", "apple_music", "youtube_music", "amazon_music", "universal", "audio_album", "youtube_single"} {
		if _, ok := r.byName[p]; ok {
			names = append(names, p)
		}
	}
	for k := range r.byName {
		found := false
		for _, n := range names {
			if n == k {
				found = true
				break
			}
		}
		if !found {
			names = append(names, k)
		}
	}
	return names
}

// Result reports what ApplyToRelease found, per spec §6.3 validate().
type Result struct {
	Preset     string
	Warnings   []string
	Violations []error
}

// OK reports whether applying the preset produced no Violations.
func (r *Result) OK() bool { return len(r.Violations) == 0 }

// ApplyToRelease applies p to rel in place, filling Defaults for field
// paths that are entirely absent, and reports Required/Recommended/Enum
// compliance. Applying the same preset twice yields an identical Result
// and an identical rel, because Defaults only ever fill an absent path and
// Required/Enum checks never mutate (spec §4.7 "idempotent").
func ApplyToRelease(rel *graph.Node, p Preset) *Result {
	res := &Result{Preset: p.Name}

	for _, path := range p.Required {
		if findPath(rel, path) == nil {
			res.Violations = append(res.Violations, ernerr.New(ernerr.PresetViolation,
				"preset %q requires %q, which is absent", p.Name, path).WithPath(path))
		}
	}
	for _, path := range p.Recommended {
		if findPath(rel, path) == nil {
			res.Warnings = append(res.Warnings, "preset "+p.Name+" recommends "+path+", which is absent")
		}
	}
	for local, allowed := range p.Enums {
		for _, el := range findAllByLocal(rel, local) {
			if !contains(allowed, el.Text()) {
				res.Violations = append(res.Violations, ernerr.New(ernerr.PresetViolation,
					"preset %q restricts %s to %v, got %q", p.Name, local, allowed, el.Text()).WithPath(local))
			}
		}
	}
	for local, defVal := range p.Defaults {
		if findPath(rel, local) == nil {
			leaf := graph.NewElem(rel.Name.Space, local)
			leaf.AppendText(defVal)
			rel.AppendElem(leaf)
		}
	}

	return res
}

// findPath resolves a simple "/"-separated path of local element names
// relative to n, depth-first, returning the first match or nil. Presets
// use short relative paths (e.g. "DisplayArtist/PartyName/FullName"), not
// a full XPath dialect.
func findPath(n *graph.Node, path string) *graph.Node {
	segs := splitPath(path)
	cur := n
	for _, seg := range segs {
		next := cur.FirstElement(seg)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		out = append(out, path[start:])
	}
	return out
}

// findAllByLocal searches n's subtree (including n itself) for every
// element with the given local name.
func findAllByLocal(n *graph.Node, local string) []*graph.Node {
	var out []*graph.Node
	if n.Name.Local == local {
		out = append(out, n)
	}
	var walk func(*graph.Node)
	walk = func(cur *graph.Node) {
		for _, c := range cur.Children {
			if c.Elem == nil {
				continue
			}
			if c.Elem.Name.Local == local {
				out = append(out, c.Elem)
			}
			walk(c.Elem)
		}
	}
	walk(n)
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
