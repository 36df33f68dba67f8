package provider

import (
	"errors"

	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

// ErrNotLoaded is returned by Unload when nothing was loaded.
var ErrNotLoaded = errors.New("provider not loaded")

// ID identifies a provider variant. Values are persisted as integers in
// settings, so existing members must keep their numbers.
type ID int

const (
	Invalid   ID = -1
	Automatic ID = 0
	CUDA      ID = 1
	NLMeans   ID = 2
)

// Concrete lists every backend identity, in declaration order.
var Concrete = []ID{CUDA, NLMeans}

func (id ID) String() string {
	switch id {
	case Invalid:
		return "N/A"
	case Automatic:
		return "Automatic"
	case CUDA:
		return "CUDA Denoising"
	case NLMeans:
		return "Non-Local Means"
	default:
		return "Unknown"
	}
}

// IsConcrete reports whether id names an actual backend.
func (id ID) IsConcrete() bool {
	for _, c := range Concrete {
		if c == id {
			return true
		}
	}
	return false
}

// Provider is a processing backend. Constructors must not allocate backend
// resources; that happens in Load and is undone by Unload.
//
// Process returns nil when the provider is not loaded or produced nothing.
// The returned surface stays owned by the provider and is valid until the
// next Process or Unload call.
type Provider interface {
	ID() ID
	Load() error
	Unload() error
	Resize(size surface.Size) surface.Size
	Process(input surface.Surface) surface.Surface
	Configure(s settings.Reader)
	DescribeUI(sink schema.Sink)
}

// Defaulter is implemented by providers that contribute setting defaults.
type Defaulter interface {
	Defaults(d *settings.Data)
}
