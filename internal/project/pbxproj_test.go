package project

import (
	"os"
	"path/filepath"
	"testing"
)

const samplePBXProj = `// !$*UTF8*$!
{
	archiveVersion = 1;
	objects = {
		ROOT123 = {
			isa = PBXProject;
			name = MyApp;
		};
	};
	rootObject = ROOT123;
}
`

func TestReadPBXProjectName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.pbxproj")
	if err := os.WriteFile(path, []byte(samplePBXProj), 0o644); err != nil {
		t.Fatal(err)
	}

	name, err := readPBXProjectName(path)
	if err != nil {
		t.Fatal(err)
	}
	if name != "MyApp" {
		t.Errorf("readPBXProjectName = %q, want MyApp", name)
	}
}

func TestReadPBXProjectName_MissingFile(t *testing.T) {
	_, err := readPBXProjectName(filepath.Join(t.TempDir(), "nonexistent.pbxproj"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
