package voiceprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Registry is the persistent speaker-profile store: a single file holding
// the full profile list, overwritten wholesale on every mutation.
//
// The registry is not safe for concurrent mutation; the session coordinator
// owns it and is the only execution context that writes to it.
type Registry struct {
	path     string
	profiles []*Profile
	dim      int
}

// LoadRegistry opens the registry at path. A missing file yields an empty
// registry; a file that exists but fails to decode is an explicit error, so
// callers can tell "nothing enrolled yet" from "registry corrupted".
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("voiceprint: read registry: %w", err)
	}
	if err := json.Unmarshal(data, &r.profiles); err != nil {
		return nil, fmt.Errorf("voiceprint: decode registry: %w", err)
	}
	for _, p := range r.profiles {
		if len(p.Embedding) > 0 {
			r.dim = len(p.Embedding)
			break
		}
	}
	return r, nil
}

// save rewrites the whole registry file atomically.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("voiceprint: encode registry: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("voiceprint: create registry dir: %w", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("voiceprint: write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("voiceprint: commit registry: %w", err)
	}
	return nil
}

// All returns the profiles in enrollment order.
func (r *Registry) All() []*Profile {
	out := make([]*Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (*Profile, bool) {
	for _, p := range r.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Embeddings returns the id→embedding map for loading into the diarization
// engine's known-speaker registry.
func (r *Registry) Embeddings() map[string][]float32 {
	out := make(map[string][]float32, len(r.profiles))
	for _, p := range r.profiles {
		if len(p.Embedding) > 0 {
			out[p.ID] = p.Embedding
		}
	}
	return out
}

// add appends a new profile and persists, enforcing the constant embedding
// dimension invariant.
func (r *Registry) add(p *Profile) error {
	if r.dim == 0 {
		r.dim = len(p.Embedding)
	} else if len(p.Embedding) != r.dim {
		return fmt.Errorf("voiceprint: embedding dimension %d, registry uses %d",
			len(p.Embedding), r.dim)
	}
	r.profiles = append(r.profiles, p)
	if err := r.save(); err != nil {
		r.profiles = r.profiles[:len(r.profiles)-1]
		return err
	}
	return nil
}

// Update applies an edit to name/role/group fields and persists. The id and
// embedding are not editable through this path.
func (r *Registry) Update(id string, edit func(*Profile)) error {
	p, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	prev := *p
	edit(p)
	p.ID = prev.ID
	p.Embedding = prev.Embedding
	if err := r.save(); err != nil {
		*p = prev
		return err
	}
	return nil
}

// Delete removes a profile and persists.
func (r *Registry) Delete(id string) error {
	for i, p := range r.profiles {
		if p.ID == id {
			r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
			return r.save()
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// Len returns the number of enrolled profiles.
func (r *Registry) Len() int { return len(r.profiles) }
