package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStoreFromDB(db, utils.NewNopLogger()), mock
}

func sampleAnalysis() *models.Analysis {
	year := 1972
	return &models.Analysis{
		UserID:  7,
		URL:     "https://www.etuovi.com/kohde/80801234",
		Title:   "Etuovi-kohde 80801234",
		Content: "Analyysi",
		Property: models.PropertyRecord{
			Address:          "Hämeenkatu 5, Tampere",
			BuildingType:     models.BuildingTerraced,
			Price:            decimal.NewNullDecimal(decimal.NewFromInt(189000)),
			ConstructionYear: &year,
		},
		Risk:        &models.RiskReport{Overall: 4.2, Items: []models.RiskItem{{Area: "Kunto", Level: 4.2, Share: 100, Description: "k"}}},
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		ArchivePath: "analyses/analyysi_20250301_120000_abcdef12.txt",
	}
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analyses").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleAnalysis()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analyses").
		WithArgs(int64(7), "analyysi_20250301_120000_abcdef12.txt", a.Title, a.URL, a.Content, a.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec("INSERT INTO kohteet").
		WithArgs(int64(42), int64(7), "Hämeenkatu 5, Tampere", "rivitalo", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO risk_analyses").
		WithArgs(int64(42), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := store.SaveAnalysis(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis_WithoutRisk(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleAnalysis()
	a.Risk = nil

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analyses").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec("INSERT INTO kohteet").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := store.SaveAnalysis(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis_RollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analyses").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec("INSERT INTO kohteet").WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	_, err := store.SaveAnalysis(context.Background(), sampleAnalysis())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert kohde")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAnalyses(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "title", "property_url", "content", "filename", "created_at",
		"osoite", "tyyppi", "hinta", "rakennusvuosi", "risk_data",
	}).
		AddRow(2, 7, "Etuovi-kohde 1", "https://www.etuovi.com/kohde/1", "A", "a.txt", created,
			"Hämeenkatu 5", "rivitalo", "189000", 1972, []byte(`{"kokonaisriskitaso":4.2,"riskimittari":[]}`)).
		AddRow(1, 7, "Oikotie-kohde 2", "https://asunnot.oikotie.fi/x/2", "B", "b.txt", created,
			nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT a.id").WithArgs(int64(7), 20).WillReturnRows(rows)

	list, err := store.ListAnalyses(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	assert.Equal(t, int64(2), first.ID)
	assert.Equal(t, models.BuildingTerraced, first.Property.BuildingType)
	require.True(t, first.Property.Price.Valid)
	assert.Equal(t, "189000", first.Property.Price.Decimal.String())
	require.NotNil(t, first.Property.ConstructionYear)
	assert.Equal(t, 1972, *first.Property.ConstructionYear)
	require.NotNil(t, first.Risk)
	assert.Equal(t, 4.2, first.Risk.Overall)

	second := list[1]
	assert.Equal(t, models.BuildingUnknown, second.Property.BuildingType)
	assert.False(t, second.Property.Price.Valid)
	assert.Nil(t, second.Property.ConstructionYear)
	assert.Nil(t, second.Risk)
	assert.NoError(t, mock.ExpectationsWereMet())
}
