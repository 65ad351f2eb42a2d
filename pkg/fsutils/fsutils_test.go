package fsutils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDir(t *testing.T) {
	tempDir := t.TempDir()

	nested := filepath.Join(tempDir, "parent", "child")
	if err := CreateDir(nested); err != nil {
		t.Fatalf("CreateDir(%q) returned error: %v", nested, err)
	}
	if !DirExists(nested) {
		t.Fatalf("Directory %q was not created", nested)
	}
	if err := CreateDir(nested); err != nil {
		t.Fatalf("CreateDir on an existing directory returned error: %v", err)
	}
}

func TestWriteToFileCreatesParents(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "export", "site", "index.html")

	if err := WriteToFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteToFile(%q) returned error: %v", path, err)
	}
	if err := WriteToFile(path, []byte("second")); err != nil {
		t.Fatalf("WriteToFile overwrite returned error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Error reading back %q: %v", path, err)
	}
	if string(got) != "second" {
		t.Errorf("Read content %q, want %q", got, "second")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "pages", "p1.json")

	if err := WriteFileAtomic(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("WriteFileAtomic overwrite returned error: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != `{"a":2}` {
		t.Errorf("content = %s", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestFileAndDirExists(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "exists.txt")
	if err := os.WriteFile(filePath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(filePath) || DirExists(filePath) {
		t.Errorf("regular file misreported")
	}
	if FileExists(tempDir) || !DirExists(tempDir) {
		t.Errorf("directory misreported")
	}
	missing := filepath.Join(tempDir, "missing")
	if FileExists(missing) || DirExists(missing) {
		t.Errorf("missing path reported as existing")
	}
	if FileExists("") {
		t.Errorf(`FileExists("") returned true`)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Spaces", "My Landing Page", "my-landing-page"},
		{"Special Chars", "Shop!@# & Co.", "shop-co"},
		{"Already Valid", "page-1", "page-1"},
		{"Leading/Trailing", "  --Hello--  ", "hello"},
		{"Empty", "", "page"},
		{"Only Special", "!@#$", "page"},
		{"Unicode", "你好 World", "world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input, "page"); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCopyDir(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("BaseCopy", func(t *testing.T) {
		srcDir := filepath.Join(tempDir, "source_base")
		subDir := filepath.Join(srcDir, "img")
		if err := os.MkdirAll(subDir, 0755); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		content1 := []byte("body { }")
		content2 := []byte("PNG")
		os.WriteFile(filepath.Join(srcDir, "extra.css"), content1, 0644)
		os.WriteFile(filepath.Join(subDir, "logo.png"), content2, 0644)

		dstDir := filepath.Join(tempDir, "destination_base")
		if err := CopyDir(srcDir, dstDir); err != nil {
			t.Fatalf("CopyDir(%q, %q) failed: %v", srcDir, dstDir, err)
		}

		got1, err := os.ReadFile(filepath.Join(dstDir, "extra.css"))
		if err != nil || !bytes.Equal(got1, content1) {
			t.Errorf("extra.css not copied: %q, %v", got1, err)
		}
		got2, err := os.ReadFile(filepath.Join(dstDir, "img", "logo.png"))
		if err != nil || !bytes.Equal(got2, content2) {
			t.Errorf("img/logo.png not copied: %q, %v", got2, err)
		}
	})

	t.Run("SourceNotExist", func(t *testing.T) {
		if err := CopyDir(filepath.Join(tempDir, "nope"), filepath.Join(tempDir, "dst_nope")); err == nil {
			t.Fatal("CopyDir succeeded for a missing source")
		}
	})

	t.Run("SourceIsFile", func(t *testing.T) {
		src := filepath.Join(tempDir, "file.txt")
		os.WriteFile(src, []byte("x"), 0644)
		if err := CopyDir(src, filepath.Join(tempDir, "dst_file")); err == nil {
			t.Fatal("CopyDir succeeded when the source is a file")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		srcDir := filepath.Join(tempDir, "source_overwrite")
		dstDir := filepath.Join(tempDir, "destination_overwrite")
		os.MkdirAll(srcDir, 0755)
		os.MkdirAll(dstDir, 0755)
		os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("new"), 0644)
		os.WriteFile(filepath.Join(dstDir, "a.txt"), []byte("old content"), 0644)

		if err := CopyDir(srcDir, dstDir); err != nil {
			t.Fatalf("CopyDir failed: %v", err)
		}
		got, _ := os.ReadFile(filepath.Join(dstDir, "a.txt"))
		if string(got) != "new" {
			t.Errorf("file not overwritten: %q", got)
		}
	})
}
