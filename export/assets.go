package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxAssetSize caps the bytes read for a single image source.
const MaxAssetSize = 20 << 20

var (
	// ErrAssetNotFound means no resolver could supply the source. Export draws
	// a placeholder for such images.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnsupportedAsset means the source was found but cannot be rasterized,
	// such as SVG markup. Export draws a placeholder.
	ErrUnsupportedAsset = errors.New("unsupported asset type")

	// ErrAssetRefused means a remote source is not on the allow-list or
	// points inside the local network. Export draws a placeholder.
	ErrAssetRefused = errors.New("asset source refused")
)

// AssetResolver loads the raw bytes behind an image element's src.
type AssetResolver interface {
	Resolve(ctx context.Context, src string) ([]byte, error)
}

// DataURLResolver decodes data: URLs.
type DataURLResolver struct{}

func (DataURLResolver) Resolve(_ context.Context, src string) ([]byte, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, ErrAssetNotFound
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers drop padding.
			if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
				return nil, fmt.Errorf("decode data url: %w", err)
			}
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return []byte(s), nil
}

// DirResolver serves relative paths and /-rooted paths from a directory.
// Paths escaping the directory are rejected.
type DirResolver struct {
	Dir string
}

func (r DirResolver) Resolve(_ context.Context, src string) ([]byte, error) {
	if r.Dir == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return nil, ErrAssetNotFound
	}
	f, err := os.OpenInRoot(r.Dir, strings.TrimPrefix(src, "/"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// RemoteFetchTimeout bounds a single remote image fetch, redirects included.
const RemoteFetchTimeout = 10 * time.Second

// HTTPResolver fetches http and https sources from an allow-list of hosts.
// Connections to loopback, private, link-local and unspecified addresses are
// refused after DNS resolution, so an allowed name that points inside the
// network is still rejected.
type HTTPResolver struct {
	hosts  map[string]struct{}
	client *http.Client
}

// NewHTTPResolver allows fetching from the given host names.
func NewHTTPResolver(hosts []string) *HTTPResolver {
	r := &HTTPResolver{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		r.hosts[strings.ToLower(h)] = struct{}{}
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, Control: refuseInternal}
	r.client = &http.Client{
		Timeout: RemoteFetchTimeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       30 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("%w: too many redirects", ErrAssetRefused)
			}
			return r.allowed(req.URL)
		},
	}
	return r
}

func (r *HTTPResolver) allowed(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrAssetRefused, u.Scheme)
	}
	if _, ok := r.hosts[strings.ToLower(u.Hostname())]; !ok {
		return fmt.Errorf("%w: host %q is not allowed", ErrAssetRefused, u.Hostname())
	}
	return nil
}

// refuseInternal is a net.Dialer Control hook that rejects addresses inside
// the local network.
func refuseInternal(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved address %q", ErrAssetRefused, address)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%w: address %s is internal", ErrAssetRefused, ip)
	}
	return nil
}

func (r *HTTPResolver) Resolve(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return nil, ErrAssetNotFound
	}
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRefused, err)
	}
	if err := r.allowed(u); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrAssetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

// ChainResolver tries each resolver in order and returns the first result
// that is not ErrAssetNotFound.
type ChainResolver []AssetResolver

func (c ChainResolver) Resolve(ctx context.Context, src string) ([]byte, error) {
	for _, r := range c {
		data, err := r.Resolve(ctx, src)
		if errors.Is(err, ErrAssetNotFound) {
			continue
		}
		return data, err
	}
	return nil, ErrAssetNotFound
}

// DefaultResolver handles data URLs, the upload directory (when set) and,
// when remoteHosts is not empty, remote URLs on those hosts.
func DefaultResolver(uploadDir string, remoteHosts []string) ChainResolver {
	c := ChainResolver{DataURLResolver{}}
	if uploadDir != "" {
		c = append(c, DirResolver{Dir: uploadDir})
	}
	if len(remoteHosts) > 0 {
		c = append(c, NewHTTPResolver(remoteHosts))
	}
	return c
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAssetSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxAssetSize {
		return nil, fmt.Errorf("asset larger than %d bytes", MaxAssetSize)
	}
	return data, nil
}

// decodeImage sniffs data and decodes the raster formats registered above.
func decodeImage(data []byte) (image.Image, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/png"), mtype.Is("image/jpeg"), mtype.Is("image/gif"),
		mtype.Is("image/webp"), mtype.Is("image/bmp"):
	case mtype.Is("image/svg+xml"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, mtype.String())
	default:
		return nil, fmt.Errorf("not an image: %s", mtype.String())
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mtype.String(), err)
	}
	return img, nil
}
