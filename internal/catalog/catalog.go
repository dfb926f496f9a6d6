// Package catalog discovers selectable assets under a content root.
// Each immediate subdirectory of the root is a game; a game's
// subdirectories are classified into character-like and weapon-like
// pools by keyword, and the image files inside them become the items
// a spin can land on.
package catalog

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// AssetItem is one selectable asset. Enabled defaults true at
// discovery; toggling it off is the caller's business and a rescan
// rebuilds the pools wholesale, so callers that care must snapshot
// their toggles and reapply them.
type AssetItem struct {
	SourceID    string `json:"sourceId"`
	DisplayName string `json:"displayName"`
	Enabled     bool   `json:"enabled"`
}

// Game identifies one discovered game folder.
type Game struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Manifest is the selection pool for one game.
type Manifest struct {
	Game    string      `json:"game"`
	Legends []AssetItem `json:"legends"`
	Weapons []AssetItem `json:"weapons"`
}

var imageExts = map[string]struct{}{
	".png": {}, ".svg": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {},
}

var characterKeywords = []string{
	"character", "legend", "agent", "hero", "operator", "champion",
}

var weaponKeywords = []string{
	"weapon", "gun", "rifle", "smg", "shotgun", "lmg", "pistol", "sniper", "melee", "bow",
}

// Scanner reads manifests off the content root. It holds no cache:
// every call re-reads the filesystem, and an unreadable root yields
// empty pools rather than an error.
type Scanner struct {
	root        string
	defaultGame string
	log         *zap.Logger
}

func NewScanner(root, defaultGame string, log *zap.Logger) *Scanner {
	return &Scanner{root: root, defaultGame: defaultGame, log: log}
}

// Games enumerates the immediate subdirectories of the content root.
func (s *Scanner) Games() []Game {
	games := make([]Game, 0)
	for _, name := range listSubdirs(s.root) {
		games = append(games, Game{ID: name, Name: displayName(name)})
	}
	return games
}

// Manifest builds the selection pools for gameID. An empty or unknown
// id falls back to the configured default game if discovered, else the
// first discovered game, else an empty manifest.
func (s *Scanner) Manifest(gameID string) Manifest {
	games := s.Games()
	ids := make(map[string]struct{}, len(games))
	for _, g := range games {
		ids[g.ID] = struct{}{}
	}

	chosen := ""
	switch {
	case gameID != "" && contains(ids, gameID):
		chosen = gameID
	case contains(ids, s.defaultGame):
		chosen = s.defaultGame
	case len(games) > 0:
		chosen = games[0].ID
	}
	if chosen == "" {
		return Manifest{Legends: []AssetItem{}, Weapons: []AssetItem{}}
	}

	m := Manifest{Game: chosen, Legends: []AssetItem{}, Weapons: []AssetItem{}}
	gameRoot := filepath.Join(s.root, chosen)
	for _, sub := range listSubdirs(gameRoot) {
		low := strings.ToLower(sub)
		items := func() []AssetItem {
			return s.listItems(filepath.Join(gameRoot, sub), path.Join(filepath.Base(s.root), chosen, sub))
		}
		switch {
		case matchesAny(low, characterKeywords):
			m.Legends = append(m.Legends, items()...)
		case matchesAny(low, weaponKeywords):
			m.Weapons = append(m.Weapons, items()...)
		}
	}
	return m
}

// listItems turns the image files of one category directory into
// AssetItems. sourceIDs are root-relative web paths so displays can
// resolve them against the asset server.
func (s *Scanner) listItems(dirAbs, webPrefix string) []AssetItem {
	entries, err := os.ReadDir(dirAbs)
	if err != nil {
		s.log.Warn("scan unavailable", zap.String("dir", dirAbs), zap.Error(err))
		return nil
	}

	items := make([]AssetItem, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		items = append(items, AssetItem{
			SourceID:    path.Join(webPrefix, e.Name()),
			DisplayName: displayName(e.Name()),
			Enabled:     true,
		})
	}
	return items
}

func listSubdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func matchesAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

var (
	vendorSuffixRE = regexp.MustCompile(`(?i)[_-]?(mobile|icon)(?:[_-]|$)`)
	separatorRE    = regexp.MustCompile(`[_-]+`)
)

// displayName derives a human-readable name from a file or folder
// name: drop the extension, strip vendor suffixes like "mobile" and
// "icon", collapse separators to spaces, capitalize each word.
// "r99_icon.png" becomes "R99".
func displayName(fileBase string) string {
	name := strings.TrimSuffix(fileBase, filepath.Ext(fileBase))
	name = vendorSuffixRE.ReplaceAllString(name, " ")
	name = separatorRE.ReplaceAllString(name, " ")

	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
