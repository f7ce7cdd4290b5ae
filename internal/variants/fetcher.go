package variants

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"photo-gallery/internal/filesystem"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/metrics"
	"photo-gallery/internal/workers"

	"golang.org/x/time/rate"
)

// MaxSourceBytes bounds how much of a single source is read.
const MaxSourceBytes = 64 << 20

// Fetcher reads the raw bytes of a source image.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSourceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSourceBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", MaxSourceBytes)
	}
	return data, nil
}

// FileFetcher reads sources as paths relative to an asset root.
type FileFetcher struct {
	root  string
	retry filesystem.RetryConfig
}

// NewFileFetcher returns a fetcher rooted at root.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: root, retry: filesystem.DefaultRetryConfig()}
}

// resolve maps a source such as "/albums/a.jpg" or "albums/a.jpg" to a path
// under the root, refusing any ".." segment.
func (f *FileFetcher) resolve(source string) (string, error) {
	rel := strings.TrimPrefix(filepath.ToSlash(source), "/")
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes asset root", ErrInvalidArgument, source)
		}
	}
	return filepath.Join(f.root, filepath.FromSlash(rel)), nil
}

func (f *FileFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	path, err := f.resolve(source)
	if err != nil {
		return nil, err
	}

	file, err := filesystem.OpenWithRetry(path, f.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close source %s: %v", path, err)
		}
	}()

	return readLimited(file)
}

// HTTPFetcher downloads remote sources, throttled by a token bucket so a
// large preload does not hammer the origin. Connections to loopback,
// private, link-local and unspecified addresses are refused at dial time,
// after DNS resolution, and redirects are checked against the host list.
type HTTPFetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	allowedHosts []string
	allowPrivate bool
}

// NewHTTPFetcher allows perSecond requests with a burst of the same size.
// A non-positive perSecond disables throttling. A non-empty allowedHosts
// restricts fetching to those hosts and their subdomains.
func NewHTTPFetcher(perSecond float64, allowedHosts []string) *HTTPFetcher {
	limit, burst := rate.Limit(perSecond), max(int(perSecond), 1)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	h := &HTTPFetcher{limiter: rate.NewLimiter(limit, burst)}
	for _, host := range allowedHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			h.allowedHosts = append(h.allowedHosts, host)
		}
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: h.checkDial}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil
	transport.MaxConnsPerHost = workers.ForIO(16)

	h.client = &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return h.checkHost(req.URL)
		},
	}
	return h
}

// checkHost applies the scheme and host allowlist to u.
func (h *HTTPFetcher) checkHost(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrForbiddenSource, u.Scheme)
	}
	if len(h.allowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range h.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q is not in the allowlist", ErrForbiddenSource, host)
}

// checkDial refuses connections to internal addresses.
func (h *HTTPFetcher) checkDial(_, address string, _ syscall.RawConn) error {
	if h.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenSource, address)
	}
	if internalAddr(ip.Unmap()) {
		return fmt.Errorf("%w: %s", ErrForbiddenSource, ip)
	}
	return nil
}

func internalAddr(ip netip.Addr) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() || ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip)
}

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func (h *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := h.checkHost(u); err != nil {
		return nil, err
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, source)
	}

	return readLimited(resp.Body)
}

// BlobFetcher reads "blob:" sources, such as ingested uploads, back out of
// the first BlobStore that knows the handle.
type BlobFetcher struct {
	stores []BlobStore
}

// NewBlobFetcher returns a fetcher over stores. Nil stores are skipped.
func NewBlobFetcher(stores ...BlobStore) *BlobFetcher {
	b := &BlobFetcher{}
	for _, st := range stores {
		if st != nil {
			b.stores = append(b.stores, st)
		}
	}
	return b
}

func (b *BlobFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	for _, st := range b.stores {
		blob, err := st.Open(Ref(source))
		if err == nil {
			return blob.Data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
}

// SourceFetcher routes each source to a fetcher by scheme: "blob:" to the
// blob store, "data:" URLs decoded inline, http(s) to the network and
// anything else to the asset root. A nil route rejects its scheme.
type SourceFetcher struct {
	Files Fetcher
	HTTP  Fetcher
	Blobs Fetcher
}

func sourceScheme(source string) string {
	switch {
	case strings.HasPrefix(source, blobScheme):
		return "blob"
	case strings.HasPrefix(source, "data:"):
		return "data"
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return "http"
	default:
		return "file"
	}
}

// AssetSource reports whether source is read from the asset root rather
// than a blob store, inline data or the network.
func AssetSource(source string) bool {
	return sourceScheme(source) == "file"
}

func (s *SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	scheme := sourceScheme(source)

	var (
		data []byte
		err  error
	)
	switch scheme {
	case "blob":
		data, err = route(ctx, s.Blobs, scheme, source)
	case "http":
		data, err = route(ctx, s.HTTP, scheme, source)
	case "data":
		data, err = decodeDataURL(source)
	default:
		data, err = route(ctx, s.Files, scheme, source)
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SourceFetchTotal.WithLabelValues(scheme, status).Inc()
	return data, err
}

func route(ctx context.Context, f Fetcher, scheme, source string) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: %s sources are not enabled", ErrInvalidArgument, scheme)
	}
	return f.Fetch(ctx, source)
}

// decodeDataURL accepts base64 data URLs, the form browsers produce when
// reading a local file.
func decodeDataURL(source string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(source, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URLs are supported", ErrInvalidArgument)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxSourceBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", MaxSourceBytes)
	}
	return base64.StdEncoding.DecodeString(payload)
}
