package homepage

import (
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Drafts converts the config into bookmark drafts owned by userID, in file
// order. Names become titles and hrefs are normalized; entries without an
// href (or whose href was a stripped template variable) are skipped, as
// are repeated URLs.
func Drafts(config BookmarksConfig, userID string) ([]domain.Draft, error) {
	drafts := make([]domain.Draft, 0)
	seen := make(map[string]struct{})

	for _, category := range config {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, name := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[name]
					if len(entries) == 0 {
						continue
					}

					d := domain.Draft{
						UserID: userID,
						Title:  name,
						URL:    domain.NormalizeURL(entries[0].Href),
					}.Trimmed()
					if !d.Complete() {
						continue
					}
					if _, dup := seen[d.URL]; dup {
						continue
					}
					seen[d.URL] = struct{}{}

					drafts = append(drafts, d)
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in config")
	}

	return drafts, nil
}

// sortedKeys keeps map-shaped YAML levels deterministic. Homepage writes
// one key per map, so this only matters for hand-edited files.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
