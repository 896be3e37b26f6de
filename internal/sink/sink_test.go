package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choch_detector/internal/domain"
	"choch_detector/pkg/apperrors"
)

type fakeAlertRepository struct {
	saveErr error
	saved   []domain.Alert
}

func (f *fakeAlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *alert)
	return nil
}

func (f *fakeAlertRepository) FindBySymbolAndTimeframe(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Alert, error) {
	return f.saved, nil
}

func (f *fakeAlertRepository) FindRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	return f.saved, nil
}

func TestPersistentSink_Publish_SavesAlert(t *testing.T) {
	repo := &fakeAlertRepository{}
	s := NewPersistentSink(repo)

	signal := domain.Signal{
		Symbol:     "BTCUSD",
		Timeframe:  "5m",
		Direction:  domain.DirectionUp,
		Group:      domain.GroupG1,
		Price:      99.0,
		SignalTime: time.Now(),
	}

	require.NoError(t, s.Publish(context.Background(), signal))
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "BTCUSD", repo.saved[0].Symbol)
	assert.Equal(t, 99.0, repo.saved[0].Price)
}

// TestPersistentSink_Publish_RepositoryError_ClassifiedTransient pins the
// sink contract: Publish failures are classified as transient,
// never treated as fatal.
func TestPersistentSink_Publish_RepositoryError_ClassifiedTransient(t *testing.T) {
	repo := &fakeAlertRepository{saveErr: errors.New("connection reset")}
	s := NewPersistentSink(repo)

	err := s.Publish(context.Background(), domain.Signal{Symbol: "BTCUSD", Timeframe: "5m"})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindSinkTransient, appErr.Kind)
}
