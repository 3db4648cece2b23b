package gallery

import (
	"bytes"
	"context"
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

	"github.com/fogleman/gg"
	"github.com/gabriel-vasile/mimetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	_ "golang.org/x/image/webp"
)

const (
	maxImageBytes     = 20 << 20
	maxImagePixels    = 40_000_000
	maxImageDimension = 2048
)

var errBlockedAddress = errors.New("address is not public")

// Watermarker fetches generated images and stamps the brand text on them.
type Watermarker struct {
	text    string
	font    *truetype.Font
	client  *http.Client
	allowed []string
}

// NewWatermarker loads fontPath, or the bundled Go Bold face when empty.
// With no allowedHosts any host is fetched but only over public addresses;
// otherwise image urls must name one of allowedHosts or a subdomain of one.
func NewWatermarker(text, fontPath string, fetchTimeout time.Duration, allowedHosts []string) (*Watermarker, error) {
	raw := gobold.TTF
	if fontPath != "" {
		b, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		raw = b
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}

	allowed := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed = append(allowed, h)
		}
	}

	dialer := &net.Dialer{Timeout: fetchTimeout}
	if len(allowed) == 0 {
		dialer.Control = refusePrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	w := &Watermarker{text: text, font: f, allowed: allowed}
	w.client = &http.Client{
		Timeout:   fetchTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return w.CheckURL(req.URL.String())
		},
	}
	return w, nil
}

// CheckURL reports whether raw is an image url the server may fetch. A nil
// Watermarker applies the public-address rule.
func (w *Watermarker) CheckURL(raw string) error {
	var allowed []string
	if w != nil {
		allowed = w.allowed
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: imageUrl must be an http(s) url", ErrInvalid)
	}
	host := strings.ToLower(u.Hostname())
	if len(allowed) == 0 {
		if host == "localhost" || strings.HasSuffix(host, ".localhost") {
			return fmt.Errorf("%w: image host %q is not public", ErrInvalid, host)
		}
		if ip := net.ParseIP(host); ip != nil && !isPublic(ip) {
			return fmt.Errorf("%w: image host %q is not public", ErrInvalid, host)
		}
		return nil
	}
	for _, h := range allowed {
		if host == h || strings.HasSuffix(host, "."+h) {
			return nil
		}
	}
	return fmt.Errorf("%w: image host %q is not allowed", ErrInvalid, host)
}

// refusePrivate runs after DNS resolution, so hostnames pointing at
// internal addresses are caught too.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublic(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// Fetch downloads and decodes the image at raw. Images over maxImagePixels
// are rejected from their header before any pixel is decoded.
func (w *Watermarker) Fetch(ctx context.Context, raw string) (image.Image, error) {
	if err := w.CheckURL(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image url: %v", ErrUpstream, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrUpstream, maxImageBytes)
	}
	if mt := mimetype.Detect(body); !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: got %s, not an image", ErrUpstream, mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: decode header: %v", ErrUpstream, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: image is %dx%d, over %d pixels", ErrUpstream, cfg.Width, cfg.Height, maxImagePixels)
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return img, nil
}

func (w *Watermarker) face(size float64) font.Face {
	return truetype.NewFace(w.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Render encodes img as PNG, with the watermark unless plain is set. Large
// images are scaled down first.
func (w *Watermarker) Render(img image.Image, plain bool) ([]byte, error) {
	img = fit(img, maxImageDimension)
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)

	if !plain {
		width, height := float64(b.Dx()), float64(b.Dy())
		size := width / 18
		if size < 12 {
			size = 12
		}
		dc.SetFontFace(w.face(size))
		margin := size * 0.8
		x, y := width-margin, height-margin

		dc.SetRGBA(0, 0, 0, 0.45)
		dc.DrawStringAnchored(w.text, x+2, y+2, 1, 0)
		dc.SetRGBA(1, 1, 1, 0.85)
		dc.DrawStringAnchored(w.text, x, y, 1, 0)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(img image.Image, max int) image.Image {
	b := img.Bounds()
	if b.Dx() <= max && b.Dy() <= max {
		return img
	}
	scale := float64(max) / float64(b.Dx())
	if b.Dy() > b.Dx() {
		scale = float64(max) / float64(b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
