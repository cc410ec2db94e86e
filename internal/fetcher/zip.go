package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

var permitExtensions = map[string]bool{".csv": true, ".xlsx": true, ".json": true}

// ExtractPermitFile extracts the single CSV, XLSX or JSON file from a zipped
// export. Other entries (readmes, data dictionaries) are ignored.
func ExtractPermitFile(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open zip")
	}
	defer r.Close() //nolint:errcheck

	var matches []*zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(filepath.Base(f.Name), ".") {
			continue
		}
		if permitExtensions[strings.ToLower(filepath.Ext(f.Name))] {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		return "", eris.Errorf("fetcher: %s has no csv, xlsx or json file", filepath.Base(zipPath))
	case 1:
		return extractZIPEntry(matches[0], destDir)
	default:
		return "", eris.Errorf("fetcher: %s has %d permit files, expected 1", filepath.Base(zipPath), len(matches))
	}
}

// extractZIPEntry writes one entry flat into destDir.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Base(f.Name))
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: illegal zip path %q", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open zip entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "fetcher: write file")
	}
	return destPath, nil
}
