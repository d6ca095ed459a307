package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_ReadFile(t *testing.T) {
	fs := OSFileSystem{}

	data, err := fs.ReadFile("filesystem.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if len(data) == 0 {
		t.Error("expected non-empty file content")
	}
}

func TestOSFileSystem_ReadDirSorted(t *testing.T) {
	osfs := OSFileSystem{}
	tmpDir := t.TempDir()

	for _, name := range []string{"c.bin", "a.bin", "b.txt"} {
		if err := osfs.WriteFile(filepath.Join(tmpDir, name), []byte{1}, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	if err := osfs.MkdirAll(filepath.Join(tmpDir, "sub"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	entries, err := osfs.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	want := []string{"a.bin", "b.txt", "c.bin", "sub"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], e.Name())
		}
	}
	if !entries[3].IsDir() {
		t.Error("expected sub to be a directory")
	}

	info, err := osfs.Stat(filepath.Join(tmpDir, "a.bin"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 1 {
		t.Errorf("expected size 1, got %d", info.Size())
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	err := mfs.WriteFile("/test.txt", testData, 0644)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
	if got := mfs.ReadCount("/test.txt"); got != 1 {
		t.Errorf("expected read count 1, got %d", got)
	}
}

func TestMemoryFileSystem_ReadFileIsolation(t *testing.T) {
	mfs := NewMemoryFileSystem()
	original := []byte{1, 2, 3}
	mfs.WriteFile("/frame.bin", original, 0644)

	original[0] = 9
	data, _ := mfs.ReadFile("/frame.bin")
	if data[0] != 1 {
		t.Error("WriteFile should copy the input slice")
	}

	data[1] = 9
	again, _ := mfs.ReadFile("/frame.bin")
	if again[1] != 2 {
		t.Error("ReadFile should return a copy")
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()

	mfs.WriteFile("/scans/000002.bin", []byte{1, 2}, 0644)
	mfs.WriteFile("/scans/000001.bin", []byte{1}, 0644)
	mfs.WriteFile("/scans/readme.txt", []byte("x"), 0644)
	mfs.WriteFile("/scans/nested/000003.bin", []byte{1}, 0644)

	entries, err := mfs.ReadDir("/scans")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	want := []string{"000001.bin", "000002.bin", "nested", "readme.txt"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], e.Name())
		}
	}
	if !entries[2].IsDir() {
		t.Error("expected nested to be a directory")
	}
	info, err := entries[1].Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Size() != 2 {
		t.Errorf("expected size 2, got %d", info.Size())
	}
}

func TestMemoryFileSystem_ReadDirMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadDir("/nowhere")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_EmptyDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/empty/deeper", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	entries, err := mfs.ReadDir("/empty/deeper")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
	if !mfs.Exists("/empty") {
		t.Error("expected parent directory to exist")
	}
}

func TestMemoryFileSystem_StatAndRemove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/d/file.bin", make([]byte, 40), os.FileMode(0600))

	info, err := mfs.Stat("/d/file.bin")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 40 || info.IsDir() || info.Name() != "file.bin" {
		t.Errorf("unexpected file info: %+v", info)
	}

	dirInfo, err := mfs.Stat("/d")
	if err != nil {
		t.Fatalf("Stat dir failed: %v", err)
	}
	if !dirInfo.IsDir() {
		t.Error("expected /d to be a directory")
	}

	if err := mfs.Remove("/d/file.bin"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if mfs.Exists("/d/file.bin") {
		t.Error("expected file to be removed")
	}
	if err := mfs.Remove("/d/file.bin"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist on second remove, got %v", err)
	}
	if _, err := mfs.Stat("/d/file.bin"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist from Stat, got %v", err)
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a/2.bin", nil, 0644)
	mfs.WriteFile("/a/1.bin", nil, 0644)
	mfs.WriteFile("/b/3.bin", nil, 0644)

	got := mfs.Files("/a")
	if len(got) != 2 || got[0] != "/a/1.bin" || got[1] != "/a/2.bin" {
		t.Errorf("unexpected files: %v", got)
	}
}

func TestFileSystemInterface(t *testing.T) {
	// Verify both implementations satisfy the interface
	var _ FileSystem = OSFileSystem{}
	var _ FileSystem = NewMemoryFileSystem()
}
