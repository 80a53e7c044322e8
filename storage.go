package rasterblock

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// AccessMode selects how a dataset is opened.
type AccessMode int

const (
	// ReadOnly opens a dataset for tile reads only.
	ReadOnly AccessMode = iota
	// Update opens a dataset for tile reads and writes.
	Update
)

// String implements fmt.Stringer.
func (m AccessMode) String() string {
	if m == Update {
		return "update"
	}

	return "read-only"
}

// Dataset is an open raster dataset. Band indices are 1-based.
//
// ReadTile and WriteTile move a w*h window anchored at (x, y) between the
// band and buf, which must be a slice of an Element type with exactly w*h
// elements. Implementations convert between buf's element type and the
// stored data type.
type Dataset interface {
	Width() int
	Height() int
	BandCount() int
	DataType() DataType

	ReadTile(band, x, y, w, h int, buf any) error
	WriteTile(band, x, y, w, h int, buf any) error
	// Flush makes everything written to band so far durable.
	Flush(band int) error
	Close() error
}

// Driver opens and creates datasets of one storage format.
type Driver interface {
	// Name is the identifier used as output format, e.g. "TILED".
	Name() string
	// CanCreate reports whether Create is supported.
	CanCreate() bool
	Open(path string, mode AccessMode) (Dataset, error)
	Create(path string, width, height, bands int, dtype DataType, options []string) (Dataset, error)
}

// Remover is implemented by drivers able to discard a dataset they created.
type Remover interface {
	Remove(path string) error
}

// Prober is implemented by drivers able to recognise their own datasets.
type Prober interface {
	Probe(path string) bool
}

// Registry maps driver names to drivers. The zero value is ready to use.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

var defaultRegistry Registry

// Default returns the process-wide registry drivers register into.
func Default() *Registry {
	return &defaultRegistry
}

// Register adds d to the default registry.
func Register(d Driver) {
	defaultRegistry.Register(d)
}

// Register adds d, replacing any driver of the same name. Names are case-insensitive.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drivers == nil {
		r.drivers = make(map[string]Driver)
	}
	r.drivers[strings.ToUpper(d.Name())] = d
}

// Driver returns the driver registered under name.
func (r *Registry) Driver(name string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[strings.ToUpper(name)]
	return d, ok
}

// Names returns the registered driver names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

// Open opens path with the first driver whose Probe accepts it. Drivers
// without Probe are tried when the file extension equals their name.
func (r *Registry) Open(path string, mode AccessMode) (Dataset, Driver, error) {
	r.mu.RLock()
	candidates := make([]Driver, 0, len(r.drivers))
	for _, name := range r.namesLocked() {
		candidates = append(candidates, r.drivers[name])
	}
	r.mu.RUnlock()

	ext := strings.TrimPrefix(strings.ToUpper(filepath.Ext(path)), ".")
	for _, d := range candidates {
		var matched bool
		if p, ok := d.(Prober); ok {
			matched = p.Probe(path)
		} else {
			matched = ext != "" && ext == strings.ToUpper(d.Name())
		}
		if !matched {
			continue
		}

		ds, err := d.Open(path, mode)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q: %v", ErrOpen, path, err)
		}

		return ds, d, nil
	}

	return nil, nil, fmt.Errorf("%w: %q: no driver recognises the dataset", ErrOpen, path)
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// create resolves the driver by name, checks its capability and creates the dataset.
func (r *Registry) create(format, path string, width, height, bands int, dtype DataType, options []string) (Dataset, Driver, error) {
	d, ok := r.Driver(format)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrDriverUnavailable, format)
	}
	if !d.CanCreate() {
		return nil, nil, fmt.Errorf("%w: %q", ErrDriverLacksCreate, d.Name())
	}

	ds, err := d.Create(path, width, height, bands, dtype, options)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s %q: %v", ErrCreate, d.Name(), path, err)
	}

	return ds, d, nil
}

// CheckTile validates band and window against ds and the buffer length.
// Drivers call it at the top of ReadTile and WriteTile.
func CheckTile(ds Dataset, band, x, y, w, h int, buf any) (DataType, error) {
	if band < 1 || band > ds.BandCount() {
		return Unknown, fmt.Errorf("%w: %d of %d", ErrBandRange, band, ds.BandCount())
	}
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x+w > ds.Width() || y+h > ds.Height() {
		return Unknown, fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d", ErrTileBounds, w, h, x, y, ds.Width(), ds.Height())
	}

	dt, n, ok := BufferType(buf)
	if !ok {
		return Unknown, fmt.Errorf("%w: %T", ErrBufferType, buf)
	}
	if n != w*h {
		return Unknown, fmt.Errorf("%w: %d elements for %dx%d tile", ErrBufferType, n, w, h)
	}

	return dt, nil
}

// ParseCreateOptions splits KEY=VALUE creation options into a map keyed by
// upper-case KEY. Later options override earlier ones.
func ParseCreateOptions(options []string) (map[string]string, error) {
	out := make(map[string]string, len(options))
	for _, opt := range options {
		key, value, ok := strings.Cut(opt, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not KEY=VALUE", ErrCreateOption, opt)
		}
		out[key] = strings.TrimSpace(value)
	}

	return out, nil
}
