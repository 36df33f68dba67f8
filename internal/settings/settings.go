// Package settings is the key-value surface a filter instance reads its
// configuration from. Persistence lives elsewhere; this package only stores
// values and their defaults.
package settings

import (
	"math"
	"sync"
)

// Reader is the read side consumed by filters and providers.
type Reader interface {
	GetInt(key string) int64
	GetDouble(key string) float64
	GetBool(key string) bool
	Has(key string) bool
}

// Data is a concurrency-safe map of user values layered over defaults.
type Data struct {
	mu       sync.RWMutex
	values   map[string]interface{}
	defaults map[string]interface{}
}

var _ Reader = (*Data)(nil)

func New() *Data {
	return &Data{
		values:   make(map[string]interface{}),
		defaults: make(map[string]interface{}),
	}
}

// FromMap copies m into a new Data, typically a decoded TOML table.
func FromMap(m map[string]interface{}) *Data {
	d := New()
	for k, v := range m {
		d.values[k] = v
	}
	return d
}

func (d *Data) SetInt(key string, v int64) { d.set(key, v) }
func (d *Data) SetDouble(key string, v float64) { d.set(key, v) }
func (d *Data) SetBool(key string, v bool) { d.set(key, v) }
func (d *Data) SetDefaultInt(key string, v int64) { d.setDefault(key, v) }
func (d *Data) SetDefaultDouble(key string, v float64) { d.setDefault(key, v) }
func (d *Data) SetDefaultBool(key string, v bool) { d.setDefault(key, v) }

func (d *Data) set(key string, v interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = v
}

func (d *Data) setDefault(key string, v interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.defaults[key] = v
}

func (d *Data) lookup(key string) (interface{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if v, ok := d.values[key]; ok {
		return v, true
	}
	v, ok := d.defaults[key]
	return v, ok
}

func (d *Data) Has(key string) bool {
	_, ok := d.lookup(key)
	return ok
}

// GetInt returns the value for key as an integer; floats are rounded.
func (d *Data) GetInt(key string) int64 {
	v, _ := d.lookup(key)
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case float32:
		return int64(math.Round(float64(n)))
	case float64:
		return int64(math.Round(n))
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func (d *Data) GetDouble(key string) float64 {
	v, _ := d.lookup(key)
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func (d *Data) GetBool(key string) bool {
	v, _ := d.lookup(key)
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}

// Snapshot returns a detached copy including defaults.
func (d *Data) Snapshot() *Data {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cp := New()
	for k, v := range d.values {
		cp.values[k] = v
	}
	for k, v := range d.defaults {
		cp.defaults[k] = v
	}
	return cp
}
