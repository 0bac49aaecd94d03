package images

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gallery-backend/internal/media"
	"github.com/angelmondragon/gallery-backend/internal/orphans"
	"github.com/angelmondragon/gallery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
	"github.com/angelmondragon/gallery-backend/pkg/metrics"
)

type imageRepository interface {
	List(ctx context.Context) ([]models.Image, error)
	Create(ctx context.Context, title *string, imageURL string) (*models.Image, error)
}

type mediaGateway interface {
	UploadImage(ctx context.Context, data []byte) (*media.UploadResult, error)
}

// Service exposes the gallery read and upload flows.
type Service interface {
	ListImages(ctx context.Context) ([]models.Image, error)
	UploadImage(ctx context.Context, input UploadInput) (*models.Image, error)
}

// UploadInput is one parsed upload request. A nil Title is stored as NULL.
type UploadInput struct {
	Title    *string
	FileName string
	Data     []byte
}

type service struct {
	repo    imageRepository
	gateway mediaGateway
	orphans orphans.Recorder
	metrics *metrics.UploadMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the upload flow. recorder may be nil, in which case orphans
// are only logged.
func NewService(repo imageRepository, gateway mediaGateway, recorder orphans.Recorder, m *metrics.UploadMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("media gateway required")
	}
	if recorder == nil {
		recorder = orphans.NewLogRecorder(logg)
	}
	return &service{
		repo:    repo,
		gateway: gateway,
		orphans: recorder,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) ListImages(ctx context.Context) ([]models.Image, error) {
	return s.repo.List(ctx)
}

func (s *service) UploadImage(ctx context.Context, input UploadInput) (*models.Image, error) {
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no file uploaded")
	}
	if s.logg != nil {
		ctx = s.logg.WithUploadID(ctx, uuid.NewString())
	}

	uploaded, err := s.gateway.UploadImage(ctx, input.Data)
	if err != nil {
		if errors.Is(err, media.ErrUploadTimeout) {
			s.metrics.IncOutcome(metrics.OutcomeUploadTimeout)
		} else {
			s.metrics.IncOutcome(metrics.OutcomeUploadFailed)
		}
		return nil, err
	}

	row, err := s.repo.Create(ctx, input.Title, uploaded.SecureURL)
	if err != nil {
		s.metrics.IncOutcome(metrics.OutcomeStorageFailed)
		s.recordOrphan(ctx, uploaded)
		return nil, err
	}

	s.metrics.IncOutcome(metrics.OutcomeSuccess)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"image_id":  row.ID,
			"provider":  uploaded.Provider,
			"file_name": input.FileName,
		})
		s.logg.Info(logCtx, "image uploaded")
	}
	return row, nil
}

func (s *service) recordOrphan(ctx context.Context, uploaded *media.UploadResult) {
	s.metrics.IncOrphan()
	err := s.orphans.Record(ctx, orphans.Orphan{
		Provider:  uploaded.Provider,
		PublicID:  uploaded.PublicID,
		SecureURL: uploaded.SecureURL,
		FailedAt:  s.now().UTC(),
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "public_id", uploaded.PublicID), "failed to record orphaned media", err)
	}
}
