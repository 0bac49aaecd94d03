package media

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gallery-backend/pkg/config"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
	"github.com/angelmondragon/gallery-backend/pkg/storage/cloudinary"
	"github.com/angelmondragon/gallery-backend/pkg/storage/gcs"
)

// NewProvider builds the provider selected by GALLERY_MEDIA_PROVIDER. Both
// providers check their credentials against the remote API before returning.
func NewProvider(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Provider, error) {
	kind, err := providerKind(cfg.Media.Provider)
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.MediaProviderGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, cfg.Media.Folder, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := cloudinary.NewClient(ctx, cfg.Cloudinary, cfg.Media.Folder, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func providerKind(name string) (string, error) {
	switch name {
	case config.MediaProviderCloudinary, "":
		return config.MediaProviderCloudinary, nil
	case config.MediaProviderGCS:
		return config.MediaProviderGCS, nil
	default:
		return "", fmt.Errorf("unknown media provider %q", name)
	}
}
