package engine

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vsariola/rumpu"
	"gopkg.in/yaml.v2"
)

type (
	// Preset is one built-in or user groove: a name and a ready to play
	// session.
	Preset struct {
		Name    string
		User    bool // true if it came from the user preset directory
		Session rumpu.Session
	}

	presetList []Preset
)

//go:embed presets/*.yml
var presetFS embed.FS

// LoadPresets returns the built-in grooves, overlaid with the user's own
// .yml sessions from <configdir>/rumpu/presets, sorted by name. Files
// that do not parse as valid sessions are skipped, so one broken file
// cannot take the whole listing down.
func LoadPresets() []Preset {
	var ret presetList
	ret = loadPresetsFromFs(ret, presetFS, false)
	if configDir, err := os.UserConfigDir(); err == nil {
		userPresets := filepath.Join(configDir, "rumpu")
		ret = loadPresetsFromFs(ret, os.DirFS(userPresets), true)
	}
	sort.Sort(ret)
	return ret
}

func loadPresetsFromFs(presets presetList, fsys fs.FS, userDefined bool) presetList {
	fs.WalkDir(fsys, "presets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil
		}
		var session rumpu.Session
		if yaml.UnmarshalStrict(data, &session) == nil && session.Validate() == nil {
			base := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
			presets = append(presets, Preset{
				Name:    strings.ReplaceAll(base, "_", " "),
				User:    userDefined,
				Session: session,
			})
		}
		return nil
	})
	return presets
}

func (p presetList) Len() int           { return len(p) }
func (p presetList) Less(i, j int) bool { return p[i].Name < p[j].Name }
func (p presetList) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
