package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/sources/homepage"
)

const bookmarksYAML = `---
- Developer:
    - Github:
        - href: https://github.com/
    - Go docs:
        - href: pkg.go.dev
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{Environment: map[string]string{}})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.db")

	out, err := execute(t, "migrate", "--db", path)
	if err != nil {
		t.Fatalf("migrate error = %v, output %q", err, out)
	}
	if !strings.Contains(out, "database ready at "+path) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	// A second run finds everything applied.
	if _, err := execute(t, "migrate", "--db", path); err != nil {
		t.Fatalf("second migrate error = %v", err)
	}
}

func TestImportDryRun(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(file, []byte(bookmarksYAML), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	out, err := execute(t, "import", "--file", file, "--dry-run")
	if err != nil {
		t.Fatalf("import --dry-run error = %v", err)
	}
	want := "Github\thttps://github.com/\nGo docs\thttps://pkg.go.dev\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestImportRequiresFile(t *testing.T) {
	if _, err := execute(t, "import", "--user", "ada@example.com"); err == nil {
		t.Error("import without --file should fail")
	}
}

type fakeImporter struct {
	users    map[string]domain.User
	inserted []domain.Draft
	failOn   string
}

func (f *fakeImporter) ResolveUser(_ context.Context, ref string) (domain.User, error) {
	u, ok := f.users[ref]
	if !ok {
		return domain.User{}, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeImporter) InsertBookmark(_ context.Context, d domain.Draft) (domain.Bookmark, error) {
	if d.URL == f.failOn {
		return domain.Bookmark{}, errors.New("insert denied")
	}
	f.inserted = append(f.inserted, d)
	return domain.Bookmark{ID: "b", UserID: d.UserID, Title: d.Title, URL: d.URL}, nil
}

func TestImportBookmarks(t *testing.T) {
	config, err := homepage.Read(strings.NewReader(bookmarksYAML))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	tests := []struct {
		name     string
		ref      string
		failOn   string
		wantN    int
		wantErr  bool
		wantURLs []string
	}{
		{name: "inserts last first", ref: "ada@example.com", wantN: 2,
			wantURLs: []string{"https://pkg.go.dev", "https://github.com/"}},
		{name: "missing user ref", ref: "", wantErr: true},
		{name: "unknown user", ref: "nobody@example.com", wantErr: true},
		{name: "stops at first failure", ref: "ada@example.com", failOn: "https://github.com/",
			wantN: 1, wantErr: true, wantURLs: []string{"https://pkg.go.dev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := &fakeImporter{
				users:  map[string]domain.User{"ada@example.com": {ID: "u1"}},
				failOn: tt.failOn,
			}

			n, err := importBookmarks(context.Background(), dst, tt.ref, config, logger.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("importBookmarks() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantN {
				t.Errorf("importBookmarks() = %d, want %d", n, tt.wantN)
			}
			if len(dst.inserted) != len(tt.wantURLs) {
				t.Fatalf("inserted = %+v, want %v", dst.inserted, tt.wantURLs)
			}
			for i, u := range tt.wantURLs {
				if dst.inserted[i].URL != u || dst.inserted[i].UserID != "u1" {
					t.Errorf("inserted[%d] = %+v, want %s for u1", i, dst.inserted[i], u)
				}
			}
		})
	}
}
