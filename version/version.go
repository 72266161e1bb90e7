// Package version looks up the latest published release and tells the user when it is newer than the running build.
package version

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/filesystem"
	"github.com/vesper-player/vesper/network"
	"github.com/vesper-player/vesper/util"
	"github.com/vesper-player/vesper/where"
)

var versionCacher = filesystem.NewCache[string](filepath.Join(where.Cache(), "version.json"), time.Hour*24*2)

// releasesURL is the endpoint queried for the latest stable release.
var releasesURL = "https://api.github.com/repos/" + constant.Repository + "/releases/latest"

// Latest retrieves the most recent stable application version identifier.
// Results are cached for two days.
func Latest() (version string, err error) {
	ver, expired, err := versionCacher.Get()
	if err != nil {
		return "", err
	}

	if !expired && ver != "" {
		return ver, nil
	}

	req, err := http.NewRequest(http.MethodGet, releasesURL, nil)
	if err != nil {
		return
	}

	resp, err := network.Client.Do(req)
	if err != nil {
		return
	}

	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		err = errors.New("release lookup failed: " + resp.Status)
		return
	}

	var release struct {
		TagName string `json:"tag_name"`
	}

	if err = json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	if release.TagName == "" {
		err = errors.New("empty tag name")
		return
	}

	version = strings.TrimPrefix(release.TagName, "v")
	_ = versionCacher.Set(version)
	return
}
