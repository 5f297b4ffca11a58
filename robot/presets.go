package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/arloliu/go-tmcomm/motion"
	"github.com/puzpuzpuz/xsync/v3"
)

// Reserved preset names. They always exist in their registry.
const (
	NoTool         = "NOTOOL"
	RobotBase      = "RobotBase"
	VisionLandmark = "vision_Landmark"
)

const (
	ToolFileExt = ".tool"
	BaseFileExt = ".base"
)

var (
	// ErrReservedPreset indicates an attempt to replace or delete a reserved preset.
	ErrReservedPreset = errors.New("reserved preset")

	// ErrInvalidPreset indicates a preset without a name.
	ErrInvalidPreset = errors.New("invalid preset")
)

// Definition is a named tool or base preset.
//
// For a tool Position is the TCP offset, for a base it is the base frame. File is the
// path the definition was loaded from, empty for presets created in memory.
type Definition struct {
	Name     string          `json:"name"`
	Position motion.Position `json:"position"`
	File     string          `json:"file,omitempty"`
}

// presetFile is the on-disk layout of a preset: {"Name": "...", "Position": "x,y,z,rx,ry,rz"}.
type presetFile struct {
	Name     string `json:"Name"`
	Position string `json:"Position"`
}

// Registry is a name to Definition mapping with a fixed set of reserved entries.
type Registry struct {
	ext      string
	items    *xsync.MapOf[string, Definition]
	reserved []string
}

// NewToolRegistry creates a tool registry holding NOTOOL.
func NewToolRegistry() *Registry {
	return newRegistry(ToolFileExt, NoTool)
}

// NewBaseRegistry creates a base registry holding RobotBase and vision_Landmark.
func NewBaseRegistry() *Registry {
	return newRegistry(BaseFileExt, RobotBase, VisionLandmark)
}

func newRegistry(ext string, reserved ...string) *Registry {
	r := &Registry{
		ext:      ext,
		items:    xsync.NewMapOf[string, Definition](),
		reserved: reserved,
	}

	for _, name := range reserved {
		r.items.Store(name, Definition{Name: name})
	}

	return r
}

// IsReserved reports whether name is one of the registry's reserved entries.
func (r *Registry) IsReserved(name string) bool {
	return slices.Contains(r.reserved, name)
}

// Get returns the definition of name.
func (r *Registry) Get(name string) (Definition, bool) {
	return r.items.Load(name)
}

// Put adds or replaces a definition.
func (r *Registry) Put(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPreset)
	}

	if r.IsReserved(def.Name) {
		return fmt.Errorf("%w: %s", ErrReservedPreset, def.Name)
	}

	r.items.Store(def.Name, def)

	return nil
}

// Delete removes a definition. Reserved entries can't be removed.
func (r *Registry) Delete(name string) error {
	if r.IsReserved(name) {
		return fmt.Errorf("%w: %s", ErrReservedPreset, name)
	}

	r.items.Delete(name)

	return nil
}

// Len returns the number of definitions, reserved ones included.
func (r *Registry) Len() int {
	return r.items.Size()
}

// Names returns the sorted definition names.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.items.Size())
	r.items.Range(func(name string, _ Definition) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names
}

// LoadDir loads every preset file with the registry's extension in dir.
//
// Presets are keyed by file name without the extension. Files that can't be parsed
// are skipped and reported in the joined error, the valid ones are still loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var (
		loaded int
		errs   []error
	)

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), r.ext) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		def, err := readPreset(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		def.Name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := r.Put(def); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		loaded++
	}

	return loaded, errors.Join(errs...)
}

func readPreset(path string) (Definition, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}

	var pf presetFile
	if err := json.Unmarshal(buf, &pf); err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}

	return Definition{
		Name:     pf.Name,
		Position: motion.ParseCartesian(pf.Position),
		File:     path,
	}, nil
}

// Presets groups the tool and base registries.
type Presets struct {
	Tools *Registry
	Bases *Registry
}

// NewPresets creates registries holding only the reserved entries.
func NewPresets() *Presets {
	return &Presets{Tools: NewToolRegistry(), Bases: NewBaseRegistry()}
}

// Load loads tool and base presets from dir. Either kind may be absent.
func (p *Presets) Load(dir string) error {
	_, toolErr := p.Tools.LoadDir(dir)
	_, baseErr := p.Bases.LoadDir(dir)

	return errors.Join(toolErr, baseErr)
}
