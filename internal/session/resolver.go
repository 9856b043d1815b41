// Package session resolves legislative session identifiers to their
// display names and folder date ranges.
//
// Resolution order: a jurisdiction manifest in the input batch always
// wins and refreshes the on-disk cache; otherwise the cache is used;
// otherwise the mapping is fetched from the external source and
// cached. A session that still cannot be resolved is a genuine
// upstream data-quality problem, surfaced through the unknown-session
// error sink.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/windy-civi/toolkit/internal/model"
)

// Fetcher retrieves the session list for a jurisdiction from an
// external source. Implementations live outside this package's
// concern; the resolver only needs the mapping back.
type Fetcher interface {
	FetchSessions(ctx context.Context, jurisdiction string) (map[string]model.SessionInfo, error)
}

// Resolver maps session identifiers to session metadata, backed by a
// cache file.
type Resolver struct {
	cachePath string
	fetcher   Fetcher
	mapping   map[string]model.SessionInfo
}

// New creates a resolver caching at cachePath. fetcher may be nil, in
// which case the external fallback is unavailable.
func New(cachePath string, fetcher Fetcher) *Resolver {
	return &Resolver{
		cachePath: cachePath,
		fetcher:   fetcher,
		mapping:   map[string]model.SessionInfo{},
	}
}

// EnsureMapping populates the resolver for a run.
//
// A jurisdiction_*.json manifest in the input folder refreshes the
// cache unconditionally. Without one, the existing cache is loaded.
// Without either, the mapping is fetched from the external source and
// written through to the cache.
func (r *Resolver) EnsureMapping(ctx context.Context, jurisdiction, inputDir string) error {
	manifest, err := findManifest(inputDir)
	if err != nil {
		return err
	}
	if manifest != "" {
		mapping, err := extractFromManifest(manifest)
		if err != nil {
			return err
		}
		if len(mapping) > 0 {
			r.mapping = mapping
			return r.saveCache()
		}
	}

	if cached, err := r.loadCache(); err == nil {
		r.mapping = cached
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read session cache: %w", err)
	}

	// A failed fetch is not fatal: the run proceeds with an empty
	// mapping and affected records land in the unknown-session sink,
	// which self-heals once the source is reachable again.
	if r.fetcher == nil {
		return nil
	}
	fetched, err := r.fetcher.FetchSessions(ctx, jurisdiction)
	if err != nil {
		slog.Warn("session fetch failed, continuing with empty mapping",
			"jurisdiction", jurisdiction, "error", err)
		return nil
	}
	r.mapping = fetched
	return r.saveCache()
}

// Resolve returns the session metadata for id.
func (r *Resolver) Resolve(id string) (model.SessionInfo, bool) {
	info, ok := r.mapping[id]
	return info, ok
}

// Mapping returns the full resolved mapping.
func (r *Resolver) Mapping() map[string]model.SessionInfo {
	return r.mapping
}

// LoadMapping reads a session mapping file directly. The linking
// pipeline uses this; a missing mapping there is fatal because linked
// events cannot be placed without session folders.
func LoadMapping(path string) (map[string]model.SessionInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session mapping file: %w", err)
	}
	var mapping map[string]model.SessionInfo
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse session mapping %s: %w", path, err)
	}
	return mapping, nil
}

func (r *Resolver) loadCache() (map[string]model.SessionInfo, error) {
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		return nil, err
	}
	var mapping map[string]model.SessionInfo
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse session cache %s: %w", r.cachePath, err)
	}
	return mapping, nil
}

func (r *Resolver) saveCache() error {
	data, err := json.MarshalIndent(r.mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.cachePath), 0o755); err != nil {
		return fmt.Errorf("create session cache folder: %w", err)
	}
	if err := os.WriteFile(r.cachePath, data, 0o644); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

// findManifest returns the first jurisdiction_*.json in the input
// folder, sorted for determinism, or "" when none is present.
func findManifest(inputDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(inputDir, "jurisdiction_*.json"))
	if err != nil {
		return "", fmt.Errorf("scan for jurisdiction manifest: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[0], nil
}

// extractFromManifest pulls the session mapping out of a jurisdiction
// manifest. Sessions missing an identifier, name, or date range are
// skipped.
func extractFromManifest(path string) (map[string]model.SessionInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jurisdiction manifest: %w", err)
	}
	var manifest struct {
		LegislativeSessions []struct {
			Identifier string `json:"identifier"`
			Name       string `json:"name"`
			StartDate  string `json:"start_date"`
			EndDate    string `json:"end_date"`
		} `json:"legislative_sessions"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse jurisdiction manifest %s: %w", path, err)
	}

	mapping := map[string]model.SessionInfo{}
	for _, s := range manifest.LegislativeSessions {
		if s.Identifier == "" || s.Name == "" || len(s.StartDate) < 4 || len(s.EndDate) < 4 {
			continue
		}
		mapping[s.Identifier] = model.SessionInfo{
			Name:       s.Name,
			DateFolder: s.StartDate[:4] + "-" + s.EndDate[:4],
		}
	}
	return mapping, nil
}
