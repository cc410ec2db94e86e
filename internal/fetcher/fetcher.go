// Package fetcher downloads permit exports published by municipal open data
// portals over HTTP(S) or anonymous FTP, unpacking zipped exports.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote file.
type Fetcher interface {
	// Download fetches the URL and returns the body. The caller closes it.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Options configures Fetch.
type Options struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// IsRemote reports whether src names a URL rather than a local path.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

// Fetch downloads rawURL into destDir and returns the path of an importable
// permit file. Zip archives are unpacked and the permit file inside returned.
func Fetch(ctx context.Context, rawURL, destDir string, opts Options) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse url")
	}

	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if opts.HTTP == nil {
			opts.HTTP = NewHTTPFetcher(HTTPOptions{})
		}
		f = opts.HTTP
	case "ftp":
		if opts.FTP == nil {
			opts.FTP = NewFTPFetcher(FTPOptions{})
		}
		f = opts.FTP
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Errorf("fetcher: cannot derive a file name from %s", rawURL)
	}
	dest := filepath.Join(destDir, name)

	n, err := downloadToFile(ctx, f, rawURL, dest)
	if err != nil {
		return "", err
	}
	zap.L().Info("fetcher: downloaded permit export",
		zap.String("url", rawURL),
		zap.Int64("bytes", n),
	)

	if strings.EqualFold(filepath.Ext(dest), ".zip") {
		return ExtractPermitFile(dest, destDir)
	}
	return dest, nil
}

func downloadToFile(ctx context.Context, f Fetcher, rawURL, dest string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}
