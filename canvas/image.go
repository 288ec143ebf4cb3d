package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageState describes the read-only image display.
type ImageState int

const (
	ImageNone    ImageState = iota // structured rendering
	ImagePending                   // reference set, not loaded yet
	ImageReady
	ImageError
)

func (s ImageState) String() string {
	switch s {
	case ImageNone:
		return "none"
	case ImagePending:
		return "pending"
	case ImageReady:
		return "ready"
	case ImageError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrNoImage is returned by LoadImage when no image reference is set.
var ErrNoImage = errors.New("no image to load")

// ImageLoader opens the bytes behind an image reference.
type ImageLoader interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// FileLoader reads image references as local paths.
type FileLoader struct{}

// Open opens the file at ref.
func (FileLoader) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	return os.Open(ref)
}

// HTTPLoader fetches image references as URLs.
type HTTPLoader struct {
	Client *http.Client
}

// Open issues a GET for ref. Non-2xx responses are errors.
func (l HTTPLoader) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("image request failed: %s", resp.Status)
	}
	return resp.Body, nil
}

type imageView struct {
	active bool
	ref    string
	state  ImageState
	img    image.Image
	format string
	err    error
}

// ImageInfo is a read-only view of the image display.
type ImageInfo struct {
	Ref    string
	State  ImageState
	Format string
	Width  int
	Height int
	Err    error
}

// ShowImage switches the adapter to read-only display of a pre-rendered
// image. Structured edits are refused until ShowStructured is called.
func (a *Adapter) ShowImage(ref string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.img = imageView{active: true, ref: ref, state: ImagePending}
}

// ShowStructured leaves image display and returns to the working copy.
func (a *Adapter) ShowStructured() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.img = imageView{}
}

// LoadImage fetches and decodes the current image reference. On failure the
// adapter enters ImageError and stays there; there is no retry and no
// fallback to structured rendering.
func (a *Adapter) LoadImage(ctx context.Context, loader ImageLoader) error {
	a.mu.Lock()
	ref, active := a.img.ref, a.img.active
	a.mu.Unlock()

	if !active {
		return ErrNoImage
	}

	img, format, err := decodeImage(ctx, loader, ref)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.img.active || a.img.ref != ref {
		// Reference changed while loading.
		return nil
	}
	if err != nil {
		a.img.state = ImageError
		a.img.err = err
		a.logger.Warn("image failed to load", "ref", ref, "error", err)
		return err
	}
	a.img.state = ImageReady
	a.img.img = img
	a.img.format = format
	return nil
}

func decodeImage(ctx context.Context, loader ImageLoader, ref string) (image.Image, string, error) {
	rc, err := loader.Open(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("open image %q: %w", ref, err)
	}
	defer rc.Close()

	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, "", fmt.Errorf("decode image %q: %w", ref, err)
	}
	return img, format, nil
}

// Image returns the decoded image, if any.
func (a *Adapter) Image() image.Image {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.img.img
}

// ImageInfo describes the image display.
func (a *Adapter) ImageInfo() ImageInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	info := ImageInfo{
		Ref:    a.img.ref,
		State:  a.img.state,
		Format: a.img.format,
		Err:    a.img.err,
	}
	if a.img.img != nil {
		b := a.img.img.Bounds()
		info.Width, info.Height = b.Dx(), b.Dy()
	}
	return info
}
