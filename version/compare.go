package version

import (
	"fmt"
	"strconv"
	"strings"
)

// release is a parsed tag such as v1.4 or 1.4.2-rc.1.
type release struct {
	parts      [3]int
	prerelease string
}

func parseRelease(tag string) (release, error) {
	var r release

	core, pre, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(tag), "v"), "-")
	r.prerelease = pre

	fields := strings.Split(core, ".")
	if len(fields) > 3 {
		return r, fmt.Errorf("malformed release tag %q", tag)
	}

	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return r, fmt.Errorf("malformed release tag %q", tag)
		}
		r.parts[i] = n
	}

	return r, nil
}

// Compare orders two release tags: 1 if a is newer, -1 if b is newer, 0 if
// they name the same release. Missing components count as zero and a
// prerelease sorts before its final release.
func Compare(a, b string) (int, error) {
	ra, err := parseRelease(a)
	if err != nil {
		return 0, err
	}

	rb, err := parseRelease(b)
	if err != nil {
		return 0, err
	}

	for i := range ra.parts {
		if ra.parts[i] != rb.parts[i] {
			if ra.parts[i] > rb.parts[i] {
				return 1, nil
			}
			return -1, nil
		}
	}

	switch {
	case ra.prerelease == rb.prerelease:
		return 0, nil
	case ra.prerelease == "":
		return 1, nil
	case rb.prerelease == "":
		return -1, nil
	case ra.prerelease > rb.prerelease:
		return 1, nil
	default:
		return -1, nil
	}
}
