package preferences

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life-quote-server/internal/domain"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mock
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	rows := sqlmock.NewRows([]string{"location_id", "term_preferences", "fex_preferences", "updated_at"}).
		AddRow("loc-1", `{"Kansas City Life":false}`, `{}`, time.Now())
	mock.ExpectQuery("SELECT location_id, term_preferences, fex_preferences, updated_at").
		WithArgs("loc-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", got.LocationID)
	assert.False(t, got.Term.Visible("Kansas City Life"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT location_id, term_preferences, fex_preferences, updated_at").
		WithArgs("nowhere").
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "term_preferences", "fex_preferences", "updated_at"}))

	_, err := store.Get(context.Background(), "nowhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO carrier_preferences").
		WithArgs("loc-1", `{"Kansas City Life":false}`, `{}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	prefs := &domain.CarrierPreferences{
		LocationID: "loc-1",
		Term:       domain.PreferenceMask{"Kansas City Life": false},
	}
	require.NoError(t, store.Put(context.Background(), prefs))
	assert.False(t, prefs.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM carrier_preferences").
		WithArgs("loc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), "loc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStoreRequiresConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}
