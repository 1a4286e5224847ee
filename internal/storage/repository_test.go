package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
)

func sampleRecord() *consultation.Record {
	rec := consultation.New("call_1")
	rec.CallMeta.StartTimestamp = 1700000000000
	rec.Contact.FirstName = "Jane"
	rec.Contact.Phone = "+15551234567"
	rec.Symptoms.AddSymptom("Headache")
	rec.Symptoms.SetSeverity(8)
	rec.Appointment.Booked = true
	rec.Analysis.RawCustomData["first_name"] = "Jane"
	return rec
}

func TestRepositoryStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock, "v1")
	mock.ExpectExec("INSERT INTO consultations").
		WithArgs(pgxmock.AnyArg(), "call_1", "+15551234567", "Jane", "", "Headache", pgxmock.AnyArg(), true, "v1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Store(context.Background(), sampleRecord()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryStoreErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock, "v1")
	assert.Error(t, repo.Store(context.Background(), nil))
	assert.Error(t, repo.Store(context.Background(), consultation.New(" ")))

	mock.ExpectExec("INSERT INTO consultations").WillReturnError(errors.New("connection reset"))
	err = repo.Store(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage: insert consultation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock, "v1")
	payload, err := json.Marshal(sampleRecord())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM consultations").WithArgs("call_1").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(payload))
	rec, err := repo.Get(context.Background(), "call_1")
	require.NoError(t, err)
	assert.Equal(t, "call_1", rec.CallMeta.CallID)
	assert.Equal(t, "Headache", rec.Symptoms.PrimaryCondition)
	require.NotNil(t, rec.Symptoms.Severity)
	assert.Equal(t, 8, *rec.Symptoms.Severity)
	assert.Equal(t, []string{"Headache"}, rec.Symptoms.AdditionalSymptoms.Values())
	assert.Equal(t, "Jane", rec.Analysis.RawCustomData["first_name"])

	mock.ExpectQuery("SELECT record FROM consultations").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, consultation.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock, "v1")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT call_id, phone, primary_condition").WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"call_id", "phone", "primary_condition", "appointment_booked", "created_at"}).
			AddRow("call_2", "+15550000002", "Acne", false, now).
			AddRow("call_1", "+15550000001", "Headache", true, now.Add(-time.Hour)))

	got, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "call_2", got[0].CallID)
	assert.True(t, got[1].Booked)
	require.NoError(t, mock.ExpectationsWereMet())
}
