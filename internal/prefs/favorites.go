// Package prefs persists small per-user preferences outside the main
// config file, currently the starred widget set shown first in the picker.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

const favoritesFile = "favorites.json"

// Favorites is the set of starred widget URIs. Zero value is usable.
type Favorites struct {
	path string
	uris map[string]bool
}

func favoritesPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "wipchat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, favoritesFile), nil
}

// LoadFavorites reads the starred set from the user config dir. A missing
// file is an empty set, not an error.
func LoadFavorites() (*Favorites, error) {
	path, err := favoritesPath()
	if err != nil {
		return nil, err
	}
	return LoadFavoritesFrom(path)
}

// LoadFavoritesFrom reads the starred set from an explicit path.
func LoadFavoritesFrom(path string) (*Favorites, error) {
	f := &Favorites{path: path, uris: map[string]bool{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	var uris []string
	if err := json.Unmarshal(data, &uris); err != nil {
		return nil, err
	}
	for _, u := range uris {
		f.uris[u] = true
	}
	return f, nil
}

func (f *Favorites) Contains(uri string) bool {
	if f == nil {
		return false
	}
	return f.uris[uri]
}

// Toggle flips uri's membership and reports the new state.
func (f *Favorites) Toggle(uri string) bool {
	if f.uris == nil {
		f.uris = map[string]bool{}
	}
	if f.uris[uri] {
		delete(f.uris, uri)
		return false
	}
	f.uris[uri] = true
	return true
}

// Save writes the set atomically.
func (f *Favorites) Save() error {
	path := f.path
	if path == "" {
		p, err := favoritesPath()
		if err != nil {
			return err
		}
		path = p
	}
	uris := make([]string, 0, len(f.uris))
	for u := range f.uris {
		uris = append(uris, u)
	}
	sort.Strings(uris)
	data, err := json.MarshalIndent(uris, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
