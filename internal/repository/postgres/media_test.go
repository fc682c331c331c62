package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevista/brokerage/internal/domain"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

func newMediaTestFixture(t *testing.T) (*MediaRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewMediaRepository(mock), mock
}

func TestMediaRepository_CreateImage(t *testing.T) {
	repo, mock := newMediaTestFixture(t)
	defer mock.Close()

	img := &domain.PropertyImage{
		ID:         "img-1",
		PropertyID: "p-1",
		FileName:   "front.jpg",
		URL:        "http://media.local/properties/p-1/img-1",
		Size:       2048,
		SortOrder:  0,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO property_images").
		WithArgs(img.ID, img.PropertyID, img.FileName, img.URL, img.Size, img.SortOrder, img.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.CreateImage(context.Background(), img)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepository_ListVideos(t *testing.T) {
	repo, mock := newMediaTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "property_id", "file_name", "url", "size", "duration_seconds", "sort_order", "created_at",
	}).
		AddRow("v-1", "p-1", "tour.mp4", "http://media.local/v-1", int64(1<<20), 92.5, 0, now).
		AddRow("v-2", "p-1", "garden.mp4", "http://media.local/v-2", int64(2<<20), 31.0, 1, now)

	mock.ExpectQuery("SELECT .+ FROM property_videos").
		WithArgs("p-1").
		WillReturnRows(rows)

	videos, err := repo.ListVideos(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, 92.5, videos[0].Duration)
	assert.Equal(t, "garden.mp4", videos[1].FileName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepository_DeleteImageByURL_NotFound(t *testing.T) {
	repo, mock := newMediaTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("DELETE FROM property_images").
		WithArgs("p-1", "http://media.local/missing").
		WillReturnError(pgx.ErrNoRows)

	img, err := repo.DeleteImageByURL(context.Background(), "p-1", "http://media.local/missing")
	assert.Nil(t, img)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
