package git

import (
	"fmt"
	"strings"
)

// splitPath validates a slash separated repository path and returns its segments.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, &InvalidPathError{Path: path, Reason: "empty"}
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return nil, &InvalidPathError{Path: path, Reason: "leading or trailing slash"}
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		switch seg {
		case "":
			return nil, &InvalidPathError{Path: path, Reason: "empty segment"}
		case ".", "..":
			return nil, &InvalidPathError{Path: path, Reason: "relative segment"}
		case ".git":
			return nil, &InvalidPathError{Path: path, Reason: "reserved name"}
		}
		if strings.ContainsRune(seg, 0) {
			return nil, &InvalidPathError{Path: path, Reason: "NUL byte"}
		}
	}
	return segments, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ValidatePath reports whether path is usable as a file path inside a tree.
func ValidatePath(path string) error {
	_, err := splitPath(path)
	return err
}

// ValidateBranchName applies git's ref name rules to a short branch name.
func ValidateBranchName(name string) error {
	invalid := func(reason string) error {
		return &InvalidBranchError{Branch: name, Reason: reason}
	}
	switch {
	case name == "":
		return invalid("empty name")
	case name == "HEAD" || name == "@":
		return invalid("reserved name")
	case strings.HasPrefix(name, "-"), strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return invalid("bad leading or trailing character")
	case strings.HasSuffix(name, ".lock"), strings.HasSuffix(name, "."):
		return invalid("bad suffix")
	case strings.Contains(name, ".."), strings.Contains(name, "//"), strings.Contains(name, "@{"):
		return invalid("bad sequence")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return invalid(fmt.Sprintf("bad character %q", r))
		}
	}
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return invalid("segment starts with a dot")
		}
	}
	return nil
}
