package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const userAgent = "wavnorm"

// FetchManifest downloads and decodes the version index at url.
func FetchManifest(ctx context.Context, client *http.Client, url string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest: unexpected HTTP status: %s", resp.Status)
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("decode manifest: missing version")
	}
	return &m, nil
}

// PlatformKey maps a GOOS/GOARCH pair to the manifest's platform key.
// Unrecognized platforms map to [FallbackPlatform].
func PlatformKey(goos, goarch string) string {
	switch goos {
	case "windows":
		return "windows-64"
	case "darwin":
		return "osx-64"
	case "linux":
		switch goarch {
		case "amd64":
			return "linux-64"
		case "386":
			return "linux-32"
		case "arm64":
			return "linux-arm64"
		case "arm":
			return "linux-armhf"
		}
	}
	return FallbackPlatform
}

// Select returns the binaries for key, falling back to [FallbackPlatform]
// when the manifest does not list key. The returned string is the key
// actually used.
func (m *Manifest) Select(key string) (PlatformBinaries, string, error) {
	if b, ok := m.Bin[key]; ok {
		return b, key, nil
	}
	if b, ok := m.Bin[FallbackPlatform]; ok {
		return b, FallbackPlatform, nil
	}
	return PlatformBinaries{}, "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, key)
}
