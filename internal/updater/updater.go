// Package updater checks GitHub releases for a newer specgate and can
// replace the running binary with it.
//
// Release archives follow the GoReleaser layout:
// specgate_<version>_<os>_<arch>.tar.gz (.zip on Windows), next to a
// checksums.txt listing their SHA-256 sums. The new binary is written
// beside the current one and renamed over it; the running process keeps
// its old image until restarted.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/specgate/internal/logger"
)

const (
	// DefaultRepo is the GitHub repository releases are fetched from.
	DefaultRepo = "HendryAvila/specgate"

	binaryName    = "specgate"
	checksumsName = "checksums.txt"

	// maxArchiveSize bounds a downloaded archive.
	maxArchiveSize = 200 << 20
)

// ErrUpToDate is returned by Apply when no newer release exists.
var ErrUpToDate = errors.New("already at the latest version")

// Release holds the fields used from a GitHub release.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file of a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Check is the outcome of comparing the running version with the latest
// release.
type Check struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Updater talks to the GitHub Releases API.
type Updater struct {
	// Endpoint is the "latest release" API URL.
	Endpoint string
	Client   *http.Client
	GOOS     string
	GOARCH   string
	log      *slog.Logger
}

// New returns an updater for repo ("owner/name"); empty selects
// DefaultRepo.
func New(repo string) *Updater {
	if repo == "" {
		repo = DefaultRepo
	}
	return &Updater{
		Endpoint: "https://api.github.com/repos/" + repo + "/releases/latest",
		Client:   &http.Client{Timeout: 30 * time.Second},
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
		log:      logger.ForComponent("updater"),
	}
}

// Latest fetches the latest release.
func (u *Updater) Latest(ctx context.Context, currentVersion string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", binaryName+"/"+currentVersion)

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	return &release, nil
}

// Check compares currentVersion with the latest release.
func (u *Updater) Check(ctx context.Context, currentVersion string) (*Check, error) {
	c := &Check{CurrentVersion: normalizeVersion(currentVersion)}
	release, err := u.Latest(ctx, currentVersion)
	if err != nil {
		return c, err
	}
	c.LatestVersion = normalizeVersion(release.TagName)
	c.ReleaseURL = release.HTMLURL
	c.UpdateAvailable = isNewer(c.CurrentVersion, c.LatestVersion)
	return c, nil
}

// Apply downloads the latest release for this platform and replaces the
// binary at execPath. It returns the installed version, or ErrUpToDate.
func (u *Updater) Apply(ctx context.Context, currentVersion, execPath string) (string, error) {
	release, err := u.Latest(ctx, currentVersion)
	if err != nil {
		return "", err
	}
	latest := normalizeVersion(release.TagName)
	if !isNewer(normalizeVersion(currentVersion), latest) {
		return "", fmt.Errorf("%w (%s)", ErrUpToDate, normalizeVersion(currentVersion))
	}

	assetName := u.assetName(latest)
	archiveURL := findAsset(release, assetName)
	if archiveURL == "" {
		return "", fmt.Errorf("no release asset for %s/%s (looking for %s)", u.GOOS, u.GOARCH, assetName)
	}

	archive, err := u.download(ctx, archiveURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", assetName, err)
	}

	if sumsURL := findAsset(release, checksumsName); sumsURL != "" {
		sums, err := u.download(ctx, sumsURL)
		if err != nil {
			return "", fmt.Errorf("downloading %s: %w", checksumsName, err)
		}
		if err := verifyChecksum(archive, sums, assetName); err != nil {
			return "", err
		}
	} else {
		u.log.Warn("release has no checksums, skipping verification", "version", latest)
	}

	binary, err := extractBinary(archive, assetName)
	if err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	if err := replaceBinary(execPath, binary, u.GOOS); err != nil {
		return "", err
	}

	u.log.Info("updated binary", "from", normalizeVersion(currentVersion), "to", latest, "path", execPath)
	return latest, nil
}

func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArchiveSize {
		return nil, fmt.Errorf("download exceeds %d bytes", maxArchiveSize)
	}
	return data, nil
}

// assetName matches GoReleaser's default name_template.
func (u *Updater) assetName(version string) string {
	ext := "tar.gz"
	if u.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, u.GOOS, u.GOARCH, ext)
}

func findAsset(r *Release, name string) string {
	for _, a := range r.Assets {
		if a.Name == name {
			return a.BrowserDownloadURL
		}
	}
	return ""
}

// verifyChecksum checks data against the "<sha256>  <name>" line for
// name in a checksums.txt file.
func verifyChecksum(data, sums []byte, name string) error {
	sc := bufio.NewScanner(bytes.NewReader(sums))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 || strings.TrimPrefix(fields[1], "*") != name {
			continue
		}
		sum := sha256.Sum256(data)
		if !strings.EqualFold(fields[0], hex.EncodeToString(sum[:])) {
			return fmt.Errorf("checksum mismatch for %s", name)
		}
		return nil
	}
	return fmt.Errorf("%s has no entry for %s", checksumsName, name)
}

func extractBinary(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractFromZip(archive)
	}
	return extractFromTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == binaryName || base == binaryName+".exe"
}

func extractFromTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if header.Typeflag == tar.TypeReg && isBinary(header.Name) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

func extractFromZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		return data, err
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

// replaceBinary writes data next to execPath and renames it into place.
// Windows cannot overwrite a running executable, so the old one is moved
// aside to execPath+".old" first.
func replaceBinary(execPath string, data []byte, goos string) error {
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	tmpPath := execPath + ".new"
	if err := os.WriteFile(tmpPath, data, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}

	if goos == "windows" {
		oldPath := execPath + ".old"
		_ = os.Remove(oldPath)
		if err := os.Rename(execPath, oldPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up current binary: %w", err)
		}
	}

	if err := os.Rename(tmpPath, execPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether latest is a higher MAJOR.MINOR.PATCH than
// current. Pre-release and build suffixes are ignored; "dev" builds
// never update.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := versionParts(current), versionParts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		out[i] = leadingInt(p)
	}
	return out
}

// leadingInt parses the leading digits of s, 0 if there are none.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
