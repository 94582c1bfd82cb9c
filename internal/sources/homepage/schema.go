package homepage

// Entry represents a single bookmark entry in the YAML
type Entry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// Category maps a category name to its bookmarks.
// The YAML structure is: - CategoryName: [ - BookmarkName: [{ icon, abbr, href }] ]
// Each bookmark name maps to a list with a single entry holding the properties.
type Category map[string][]map[string][]Entry

// BookmarksConfig is the root structure for Homepage's bookmarks.yaml
type BookmarksConfig []Category
