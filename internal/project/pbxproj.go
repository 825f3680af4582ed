package project

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// pbxProjectFile is the subset of a project.pbxproj object graph this
// daemon reads: enough to confirm the generated project's root object
// resolves and to read its name, which NewXcodeProject compares against
// project.yml's `name` field (spec §4.F: "parse project.yml / the
// .xcodeproj PBX graph equivalently").
type pbxProjectFile struct {
	RootObject string                            `plist:"rootObject"`
	Objects    map[string]map[string]interface{} `plist:"objects"`
}

// readPBXProjectName opens <root>/<name>.xcodeproj/project.pbxproj (an
// OpenStep-format property list) and returns the root PBXProject object's
// own name field, if present.
func readPBXProjectName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("project: opening %s: %w", path, err)
	}

	var doc pbxProjectFile
	if err := plist.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("project: decoding %s: %w", path, err)
	}

	root, ok := doc.Objects[doc.RootObject]
	if !ok {
		return "", fmt.Errorf("project: %s has no root object %q", path, doc.RootObject)
	}
	name, _ := root["name"].(string)
	return name, nil
}
