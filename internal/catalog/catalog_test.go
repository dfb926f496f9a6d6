package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeAssets lays out a content root:
//
//	Assets/ApexLegends/Legends/{wraith.png, mirage_mobile.svg}
//	Assets/ApexLegends/Weapons/{r99_icon.png, flatline.png, peacekeeper.webp}
//	Assets/ApexLegends/Maps/kings_canyon.png  (matches neither pool)
//	Assets/Valorant/Agents/jett.png
func writeAssets(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Assets")
	files := []string{
		"ApexLegends/Legends/wraith.png",
		"ApexLegends/Legends/mirage_mobile.svg",
		"ApexLegends/Weapons/r99_icon.png",
		"ApexLegends/Weapons/flatline.png",
		"ApexLegends/Weapons/peacekeeper.webp",
		"ApexLegends/Weapons/readme.txt",
		"ApexLegends/Maps/kings_canyon.png",
		"Valorant/Agents/jett.png",
	}
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	}
	return root
}

func newTestScanner(t *testing.T, root string) *Scanner {
	t.Helper()
	return NewScanner(root, "ApexLegends", zap.NewNop())
}

func TestGames(t *testing.T) {
	s := newTestScanner(t, writeAssets(t))
	games := s.Games()
	require.Len(t, games, 2)
	assert.Equal(t, Game{ID: "ApexLegends", Name: "ApexLegends"}, games[0])
	assert.Equal(t, Game{ID: "Valorant", Name: "Valorant"}, games[1])
}

func TestManifest(t *testing.T) {
	s := newTestScanner(t, writeAssets(t))

	t.Run("pools split by keyword", func(t *testing.T) {
		m := s.Manifest("ApexLegends")
		assert.Equal(t, "ApexLegends", m.Game)
		assert.Len(t, m.Legends, 2)
		assert.Len(t, m.Weapons, 3, "non-image files and unmatched dirs stay out")
		for _, it := range append(m.Legends, m.Weapons...) {
			assert.True(t, it.Enabled, "items start enabled: %s", it.SourceID)
		}
	})

	t.Run("display names are derived from filenames", func(t *testing.T) {
		m := s.Manifest("ApexLegends")
		names := make(map[string]string)
		for _, it := range append(m.Legends, m.Weapons...) {
			names[it.SourceID] = it.DisplayName
		}
		assert.Equal(t, "R99", names["Assets/ApexLegends/Weapons/r99_icon.png"])
		assert.Equal(t, "Mirage", names["Assets/ApexLegends/Legends/mirage_mobile.svg"])
		assert.Equal(t, "Flatline", names["Assets/ApexLegends/Weapons/flatline.png"])
	})

	t.Run("unknown game falls back to default", func(t *testing.T) {
		m := s.Manifest("Fortnite")
		assert.Equal(t, "ApexLegends", m.Game)
	})

	t.Run("empty game falls back to default", func(t *testing.T) {
		m := s.Manifest("")
		assert.Equal(t, "ApexLegends", m.Game)
	})

	t.Run("missing default falls back to first discovered", func(t *testing.T) {
		s := NewScanner(writeAssets(t), "DoesNotExist", zap.NewNop())
		m := s.Manifest("")
		assert.Equal(t, "ApexLegends", m.Game)
	})

	t.Run("character dirs match across spellings", func(t *testing.T) {
		m := s.Manifest("Valorant")
		require.Len(t, m.Legends, 1)
		assert.Equal(t, "Jett", m.Legends[0].DisplayName)
	})

	t.Run("unreadable root yields empty pools", func(t *testing.T) {
		s := NewScanner(filepath.Join(t.TempDir(), "nope"), "ApexLegends", zap.NewNop())
		m := s.Manifest("")
		assert.Empty(t, m.Game)
		assert.NotNil(t, m.Legends)
		assert.NotNil(t, m.Weapons)
		assert.Empty(t, m.Legends)
		assert.Empty(t, m.Weapons)
	})
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"r99_icon.png":        "R99",
		"mirage_mobile.svg":   "Mirage",
		"kings_canyon.png":    "Kings Canyon",
		"wingman-icon.webp":   "Wingman",
		"eva-8_mobile.png":    "Eva 8",
		"peacekeeper.png":     "Peacekeeper",
		"charge_rifle.png":    "Charge Rifle",
		"R-301_icon_main.png": "R 301 Main",
	}
	for in, want := range cases {
		assert.Equal(t, want, displayName(in), "displayName(%q)", in)
	}
}
