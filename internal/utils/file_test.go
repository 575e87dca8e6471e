package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "jpg"},
		{"PHOTO.JPG", "jpg"},
		{"archive.tar.gz", "gz"},
		{"dir/nested/image.png", "png"},
		{"noextension", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := GetFileExtension(tt.in); got != tt.want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"cutout.webp", true},
		{"mask.png", true},
		{"doc.pdf", false},
		{"weights.onnx", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := IsImageFile(tt.in); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	tests := []struct {
		input  string
		suffix string
		format string
		want   string
	}{
		{"/photos/shoe.jpg", "_studio", "png", "shoe_studio.png"},
		// Empty format falls back to the input extension.
		{"/photos/shoe.jpg", "_studio", "", "shoe_studio.jpg"},
		// No extension anywhere defaults to png.
		{"/photos/shoe", "", "", "shoe.png"},
	}
	for _, tt := range tests {
		got := GenerateOutputFilename(tt.input, "out", tt.suffix, tt.format)
		want := filepath.Join("out", tt.want)
		if got != want {
			t.Errorf("GenerateOutputFilename(%q, %q, %q) = %q, want %q",
				tt.input, tt.suffix, tt.format, got, want)
		}
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}
	for _, name := range []string{"a.png", "b.txt", filepath.Join("nested", "c.jpg")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	files, err := ListImageFiles(dir)
	if err != nil {
		t.Fatalf("ListImageFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 image files, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if !IsImageFile(f) {
			t.Errorf("Non-image file listed: %s", f)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")

	if FileExists(path) {
		t.Error("Missing file reported as existing")
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if !FileExists(path) {
		t.Error("Existing file not found")
	}
	if FileExists(dir) {
		t.Error("Directory reported as a file")
	}
}

func TestEnsureDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b")

	if err := EnsureDir(target); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Fatalf("Expected directory at %s", target)
	}
	// Second call on an existing directory is a no-op.
	if err := EnsureDir(target); err != nil {
		t.Fatalf("EnsureDir on existing dir failed: %v", err)
	}
}
