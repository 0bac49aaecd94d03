package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
	"github.com/angelmondragon/gallery-backend/pkg/metrics"
	"github.com/angelmondragon/gallery-backend/pkg/storage"
)

// ErrUploadTimeout is the cause attached when the provider does not finish
// within the gateway timeout.
var ErrUploadTimeout = errors.New("media upload timed out")

const defaultUploadTimeout = 60 * time.Second

// Provider is a hosted media backend.
type Provider interface {
	Name() string
	Upload(ctx context.Context, r io.Reader, params storage.UploadParams) (*storage.Object, error)
	Delete(ctx context.Context, publicID string) error
}

// UploadResult is the settled outcome of a successful upload.
type UploadResult struct {
	SecureURL string
	PublicID  string
	Provider  string
}

// Gateway wraps a Provider so that each upload settles exactly once, either with
// the provider's answer or with ErrUploadTimeout.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	folder   string
	metrics  *metrics.UploadMetrics
	logg     *logger.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

func WithFolder(folder string) GatewayOption {
	return func(g *Gateway) { g.folder = folder }
}

func WithMetrics(m *metrics.UploadMetrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

func WithLogger(logg *logger.Logger) GatewayOption {
	return func(g *Gateway) { g.logg = logg }
}

func NewGateway(provider Provider, opts ...GatewayOption) (*Gateway, error) {
	if provider == nil {
		return nil, fmt.Errorf("media provider required")
	}
	g := &Gateway{provider: provider, timeout: defaultUploadTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ProviderName reports which backend the gateway uploads to.
func (g *Gateway) ProviderName() string {
	return g.provider.Name()
}

type uploadOutcome struct {
	obj *storage.Object
	err error
}

// UploadImage forwards data to the provider with an image resource hint. The
// provider call ignores cancellation of ctx and is bounded only by the gateway
// timeout. A completion arriving after the timeout is dropped.
func (g *Gateway) UploadImage(ctx context.Context, data []byte) (*UploadResult, error) {
	detected := mimetype.Detect(data)
	params := storage.UploadParams{
		ResourceType: storage.ResourceTypeImage,
		ContentType:  detected.String(),
		Extension:    detected.Extension(),
		Folder:       g.folder,
	}

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	done := make(chan uploadOutcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- uploadOutcome{err: fmt.Errorf("media provider panic: %v", r)}
			}
		}()
		obj, err := g.provider.Upload(uploadCtx, bytes.NewReader(data), params)
		done <- uploadOutcome{obj: obj, err: err}
	}()

	select {
	case out := <-done:
		g.metrics.ObserveProvider(g.provider.Name(), time.Since(start))
		if out.err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpload, out.err, "media upload failed")
		}
		if out.obj == nil || out.obj.SecureURL == "" {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpload, storage.ErrEmptyURL, "media upload failed")
		}
		return &UploadResult{
			SecureURL: out.obj.SecureURL,
			PublicID:  out.obj.PublicID,
			Provider:  g.provider.Name(),
		}, nil
	case <-uploadCtx.Done():
		g.metrics.ObserveProvider(g.provider.Name(), time.Since(start))
		if g.logg != nil {
			g.logg.Warn(g.logg.WithField(ctx, "provider", g.provider.Name()), "media upload timed out")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpload, ErrUploadTimeout, "media upload timed out")
	}
}

// Destroy removes a previously uploaded object.
func (g *Gateway) Destroy(ctx context.Context, publicID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.provider.Delete(ctx, publicID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpload, err, "media destroy failed")
	}
	return nil
}
