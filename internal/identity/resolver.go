package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Resolver produces the canonical identifier of this installation by
// walking an ordered list of sources; the first one that accepts wins.
// The result is cached for the lifetime of the Resolver.
type Resolver struct {
	platform Platform
	sources  []Source
	sentinel string
	log      *zerolog.Logger
	// pin is set for the default chain: the first digested identity is
	// persisted and preferred on later runs.
	pin bool

	mu       sync.Mutex
	resolved *Identity
}

type Option func(*Resolver)

// WithSources replaces the default source chain.
func WithSources(sources ...Source) Option {
	return func(r *Resolver) {
		r.sources = append([]Source{}, sources...)
	}
}

// WithSecureIDSentinel sets the known-bad secure id used by the default chain.
func WithSecureIDSentinel(sentinel string) Option {
	return func(r *Resolver) {
		r.sentinel = sentinel
	}
}

func WithLogger(log *zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver builds a resolver for platform. Without WithSources the chain is
// hardware serial, platform secure id, installation file, and the first
// serial or secure-id result is pinned in the files directory.
func NewResolver(platform Platform, opts ...Option) *Resolver {
	nop := zerolog.Nop()
	r := &Resolver{
		platform: platform,
		sentinel: AndroidEmulatorID,
		log:      &nop,
	}
	if s, ok := platform.(interface{ SecureIDSentinel() string }); ok {
		r.sentinel = s.SecureIDSentinel()
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sources == nil {
		r.sources = DefaultSources(platform, r.sentinel, r.log)
		r.pin = platform.FilesDir() != ""
	}
	return r
}

// DefaultSources returns the standard priority chain for platform.
func DefaultSources(platform Platform, sentinel string, log *zerolog.Logger) []Source {
	return []Source{
		NewSerialSource(platform),
		NewSecureIDSource(platform, sentinel),
		NewInstallationSource(platform.FilesDir(), log),
	}
}

// Resolve returns the canonical identity. Only the first successful call does
// any work; concurrent first calls wait for it. A failure is not cached.
func (r *Resolver) Resolve(ctx context.Context) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return *r.resolved, nil
	}

	id, err := r.resolve(ctx)
	if err != nil {
		return Identity{}, err
	}
	r.resolved = &id
	return id, nil
}

func (r *Resolver) resolve(ctx context.Context) (Identity, error) {
	if !r.pin {
		return r.walk(ctx)
	}

	pinPath := filepath.Join(r.platform.FilesDir(), PinFileName)
	pinned, state, err := loadPin(pinPath)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}
	if state == pinValid {
		r.log.Debug().Str("source", string(pinned.Source)).Msg("Identity resolved from pin")
		return pinned, nil
	}
	if state == pinCorrupt {
		r.log.Warn().Str("path", pinPath).Msg("Identity pin is corrupt, re-resolving")
	}

	id, err := r.walk(ctx)
	if err != nil || id.Source == SourceInstallation {
		return id, err
	}
	if err := writePin(pinPath, id, state == pinCorrupt); err != nil {
		r.log.Warn().Err(err).Msg("Could not pin identity; it may change if platform fields become unreadable")
		return id, nil
	}
	// Another process may have pinned first.
	if pinned, state, err := loadPin(pinPath); err == nil && state == pinValid {
		return pinned, nil
	}
	return id, nil
}

func (r *Resolver) walk(ctx context.Context) (Identity, error) {
	for _, source := range r.sources {
		raw, err := source.Try(ctx)
		if err != nil {
			if errors.Is(err, ErrIdentityUnavailable) {
				return Identity{}, fmt.Errorf("resolve %s: %w", source.Kind(), err)
			}
			event := r.log.Debug()
			if errors.Is(err, fs.ErrPermission) {
				event = r.log.Warn()
			}
			event.Str("source", string(source.Kind())).Err(err).Msg("Identity source skipped")
			continue
		}

		id := Identity{ID: raw, Source: source.Kind()}
		if source.Kind() != SourceInstallation {
			id.ID = CanonicalID(raw)
		}
		r.log.Debug().Str("source", string(id.Source)).Msg("Identity resolved")
		return id, nil
	}

	return Identity{}, fmt.Errorf("%w: no identity source accepted", ErrIdentityUnavailable)
}
