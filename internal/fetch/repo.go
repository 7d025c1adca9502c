package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/papapumpkin/manifold/internal/catalog"
)

// DefaultTimeout bounds a single payload download.
const DefaultTimeout = 5 * time.Minute

// pkgsDir is the repository subdirectory holding installer items.
const pkgsDir = "pkgs"

// partialExt marks a download still in flight or abandoned.
const partialExt = ".download"

// RepoOptions configures a Repo.
type RepoOptions struct {
	// RepoURL is an http(s) URL, a file:// URL, or a plain directory path.
	RepoURL  string
	CacheDir string
	Timeout  time.Duration
	Client   *http.Client // optional; built from Timeout when nil
}

// Repo fetches installer items from a software repository into a local
// cache, verifying each against the descriptor's installer_item_hash.
// Payloads already cached with a matching hash are not fetched again.
type Repo struct {
	base     *url.URL
	local    string // set when the repository is on the filesystem
	cacheDir string
	timeout  time.Duration
	client   *http.Client
}

// NewRepo validates opts and creates the cache directory.
func NewRepo(opts RepoOptions) (*Repo, error) {
	if opts.RepoURL == "" {
		return nil, fmt.Errorf("fetch: repo url is required")
	}
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("fetch: cache dir is required")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("fetch: creating cache dir: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Repo{cacheDir: opts.CacheDir, timeout: timeout, client: opts.Client}

	u, err := url.Parse(opts.RepoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parsing repo url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		r.base = u
		if r.client == nil {
			r.client = &http.Client{Timeout: timeout}
		}
	case "file":
		r.local = u.Path
	case "":
		r.local = opts.RepoURL
	default:
		return nil, fmt.Errorf("fetch: unsupported repo scheme %q", u.Scheme)
	}
	return r, nil
}

// Acquire implements Coordinator.
func (r *Repo) Acquire(d *catalog.Descriptor) (Payload, error) {
	loc := strings.TrimLeft(d.InstallerItemLocation, "/")
	if loc == "" {
		return Payload{}, Verification(d.Name, ErrNoLocation)
	}

	dest := filepath.Join(r.cacheDir, filepath.Base(loc))
	if p, err := verify(dest, d.InstallerItemHash); err == nil {
		return p, nil
	}

	partial := dest + partialExt
	if err := r.retrieve(loc, partial); err != nil {
		os.Remove(partial)
		return Payload{}, Transport(d.Name, err)
	}

	p, err := verify(partial, d.InstallerItemHash)
	if err != nil {
		os.Remove(partial)
		return Payload{}, Verification(d.Name, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return Payload{}, Transport(d.Name, fmt.Errorf("moving payload into cache: %w", err))
	}
	p.Path = dest
	return p, nil
}

// Prune removes cached payloads whose base name is not in keep, reporting
// what it removed. A partial download is removed when its payload is
// complete or no longer wanted. Subdirectories are left alone.
func (r *Repo) Prune(keep []string) ([]string, error) {
	entries, err := os.ReadDir(r.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading cache dir: %w", err)
	}
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		if k != "" {
			wanted[filepath.Base(k)] = true
		}
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stale := !wanted[name]
		if base, ok := strings.CutSuffix(name, partialExt); ok {
			stale = present[base] || !wanted[base]
		}
		if !stale {
			continue
		}
		if err := os.Remove(filepath.Join(r.cacheDir, name)); err != nil {
			return removed, fmt.Errorf("fetch: pruning cache: %w", err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// retrieve copies the repository item at loc to dest.
func (r *Repo) retrieve(loc, dest string) error {
	var src io.ReadCloser
	if r.base == nil {
		f, err := os.Open(filepath.Join(r.local, pkgsDir, filepath.FromSlash(loc)))
		if err != nil {
			return err
		}
		src = f
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		u := *r.base
		u.Path = path.Join(u.Path, pkgsDir, loc)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("GET %s: %s", u.String(), resp.Status)
		}
		src = resp.Body
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// verify hashes the file at p and compares it with want when want is set.
func verify(p, want string) (Payload, error) {
	f, err := os.Open(p)
	if err != nil {
		return Payload{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Payload{}, err
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if want != "" && !strings.EqualFold(sum, want) {
		return Payload{}, fmt.Errorf("%w: got %s, want %s", ErrHashMismatch, sum, want)
	}
	return Payload{Path: p, Size: n, SHA256: sum}, nil
}
