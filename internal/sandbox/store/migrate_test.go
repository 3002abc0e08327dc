package store

import (
	"testing"
	"testing/fstest"
)

func TestVersionFromFile(t *testing.T) {
	cases := map[string]int64{
		"001_init.up.sql":        1,
		"012_add_ratings.up.sql": 12,
		"100_x_y_z.up.sql":       100,
	}
	for name, want := range cases {
		got, err := versionFromFile(name)
		if err != nil || got != want {
			t.Errorf("%s: got %d, %v; want %d", name, got, err, want)
		}
	}
	for _, bad := range []string{"init.up.sql", "v1_init.up.sql"} {
		if _, err := versionFromFile(bad); err == nil {
			t.Errorf("%s: expected an error", bad)
		}
	}
}

func TestMigrationFiles_orderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_b.up.sql":   {Data: []byte("b")},
		"migrations/001_a.up.sql":   {Data: []byte("a")},
		"migrations/001_a.down.sql": {Data: []byte("-")},
		"migrations/README":         {Data: []byte("-")},
	}
	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != "001_a.up.sql" || files[1] != "002_b.up.sql" {
		t.Errorf("got %v", files)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := migrationFiles(Migrations)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}
	for _, f := range files {
		if _, err := versionFromFile(f); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}
