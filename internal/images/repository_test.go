package images

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/gallery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Image{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func strPtr(v string) *string { return &v }

func TestRepositoryCreateReturnsGeneratedID(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	row, err := repo.Create(ctx, strPtr("My Cat"), "https://media.example/cat123.png")
	require.NoError(t, err)
	require.NotZero(t, row.ID)
	require.Equal(t, "My Cat", *row.Title)
	require.Equal(t, "https://media.example/cat123.png", row.ImageURL)

	untitled, err := repo.Create(ctx, nil, "https://media.example/dog.png")
	require.NoError(t, err)
	require.Greater(t, untitled.ID, row.ID)
	require.Nil(t, untitled.Title)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, nil, fmt.Sprintf("https://media.example/%d.png", i))
		require.NoError(t, err)
	}

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i-1].ID, rows[i].ID)
	}
	require.Equal(t, "https://media.example/4.png", rows[0].ImageURL)
}

func TestRepositoryStoresEmptyTitleVerbatim(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, strPtr(""), "https://media.example/blank.png")
	require.NoError(t, err)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, rows[0].Title)
	require.Equal(t, "", *rows[0].Title)
}

func TestRepositoryErrorsAreStorageErrors(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	require.NoError(t, conn.Migrator().DropTable(&models.Image{}))

	_, err := repo.List(context.Background())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStorage), "got %v", err)

	_, err = repo.Create(context.Background(), nil, "https://media.example/x.png")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStorage), "got %v", err)
}
