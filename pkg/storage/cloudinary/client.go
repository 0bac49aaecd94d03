package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	sdk "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/angelmondragon/gallery-backend/pkg/config"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
	"github.com/angelmondragon/gallery-backend/pkg/storage"
)

// Name identifies this provider in logs, metrics and orphan records.
const Name = "cloudinary"

const pingTimeout = 5 * time.Second

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type adminAPI interface {
	Ping(ctx context.Context) (*admin.PingResult, error)
}

// Client uploads images to Cloudinary.
type Client struct {
	upload uploadAPI
	admin  adminAPI
	folder string
}

// NewClient builds a Cloudinary client from the configured credentials and
// verifies them with an admin ping.
func NewClient(ctx context.Context, cfg config.CloudinaryConfig, folder string, logg *logger.Logger) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary cloud name, api key and api secret are required")
	}
	cld, err := sdk.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("creating cloudinary client: %w", err)
	}
	client, err := newClient(ctx, &cld.Upload, &cld.Admin, folder)
	if err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "cloud_name", cfg.CloudName), "cloudinary client initialized")
	}
	return client, nil
}

func newClient(ctx context.Context, upload uploadAPI, admin adminAPI, folder string) (*Client, error) {
	client := &Client{upload: upload, admin: admin, folder: folder}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("cloudinary health check failed: %w", err)
	}
	return client, nil
}

func (c *Client) Name() string {
	return Name
}

// Upload streams r to Cloudinary and returns the secure URL and public id.
func (c *Client) Upload(ctx context.Context, r io.Reader, params storage.UploadParams) (*storage.Object, error) {
	resourceType := params.ResourceType
	if resourceType == "" {
		resourceType = storage.ResourceTypeImage
	}
	folder := params.Folder
	if folder == "" {
		folder = c.folder
	}

	res, err := c.upload.Upload(ctx, r, uploader.UploadParams{
		ResourceType: resourceType,
		Folder:       folder,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res == nil {
		return nil, errors.New("cloudinary upload: empty response")
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload: %w", storage.ErrEmptyURL)
	}
	return &storage.Object{SecureURL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Delete destroys the asset. An asset that is already gone counts as deleted.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return errors.New("cloudinary delete: public id is required")
	}
	res, err := c.upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: storage.ResourceTypeImage,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res == nil {
		return errors.New("cloudinary destroy: empty response")
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("cloudinary destroy: unexpected result %q", res.Result)
	}
}

// Ping checks the credentials against the admin API.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("cloudinary ping: %w", err)
	}
	if res != nil && res.Error.Message != "" {
		return fmt.Errorf("cloudinary ping: %s", res.Error.Message)
	}
	return nil
}
