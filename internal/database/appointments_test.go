package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/realtor_assistant/internal/conflict"
)

var day = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestInsertAndGetAppointment(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	a := &Appointment{
		ConversationID: "+15550001",
		PartyName:      "Dana",
		Type:           TypeShowing,
		StartTime:      at(14, 0),
		EndTime:        at(15, 0),
		Status:         StatusConfirmed,
	}
	require.NoError(t, db.InsertAppointment(ctx, a))
	assert.NotEmpty(t, a.ID)

	got, err := db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dana", got.PartyName)
	assert.Equal(t, TypeShowing, got.Type)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.True(t, got.StartTime.Equal(at(14, 0)))
	assert.True(t, got.EndTime.Equal(at(15, 0)))
}

func TestInsertAppointmentDefaults(t *testing.T) {
	db := NewTestDB(t)
	a := &Appointment{PartyName: "Sam", StartTime: at(9, 0), EndTime: at(10, 0)}
	require.NoError(t, db.InsertAppointment(context.Background(), a))
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, TypeConsultation, a.Type)
}

func TestInsertAppointmentValidation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	assert.Error(t, db.InsertAppointment(ctx, &Appointment{StartTime: at(9, 0), EndTime: at(10, 0)}))
	assert.Error(t, db.InsertAppointment(ctx, &Appointment{PartyName: "x", StartTime: at(10, 0), EndTime: at(10, 0)}))
	assert.Error(t, db.InsertAppointment(ctx, &Appointment{PartyName: "x"}))
}

func TestGetAppointmentMissing(t *testing.T) {
	db := NewTestDB(t)
	got, err := db.GetAppointment(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateAppointmentStatus(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	a := CreateTestAppointment(t, db, "+1", at(9, 0), time.Hour, StatusConfirmed)

	require.NoError(t, db.UpdateAppointmentStatus(ctx, a.ID, StatusCancelled))
	got, err := db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	err = db.UpdateAppointmentStatus(ctx, "missing", StatusDone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAppointmentIsIdempotent(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	a := CreateTestAppointment(t, db, "+1", at(9, 0), time.Hour, StatusDone)

	require.NoError(t, db.DeleteAppointment(ctx, a.ID))
	require.NoError(t, db.DeleteAppointment(ctx, a.ID))

	got, err := db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOverlapGuardRejectsActiveCollision(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		wantError bool
	}{
		{"same slot", at(14, 0), true},
		{"inside buffer after", at(15, 30), true},
		{"one minute inside combined buffer", at(15, 59), true},
		{"exactly at combined buffer", at(16, 0), false},
		{"exactly at combined buffer before", at(12, 0), false},
		{"inside buffer before", at(12, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := NewTestDB(t)
			CreateTestAppointment(t, db, "+1", at(14, 0), time.Hour, StatusConfirmed)

			a := &Appointment{
				ConversationID: "+2",
				PartyName:      "Other",
				StartTime:      tt.start,
				EndTime:        tt.start.Add(time.Hour),
				Status:         StatusConfirmed,
			}
			err := db.InsertAppointment(context.Background(), a)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrOverlap)
				assert.True(t, IsRetryable(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOverlapGuardIgnoresInactive(t *testing.T) {
	db := NewTestDB(t)
	CreateTestAppointment(t, db, "+1", at(14, 0), time.Hour, StatusCancelled)
	CreateTestAppointment(t, db, "+1", at(14, 0), time.Hour, StatusDone)

	a := CreateTestAppointment(t, db, "+2", at(14, 0), time.Hour, StatusConfirmed)
	assert.Equal(t, StatusConfirmed, a.Status)
}

func TestOverlapGuardOnReactivation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	cancelled := CreateTestAppointment(t, db, "+1", at(14, 0), time.Hour, StatusCancelled)
	CreateTestAppointment(t, db, "+2", at(14, 0), time.Hour, StatusConfirmed)

	err := db.UpdateAppointmentStatus(ctx, cancelled.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrOverlap)

	// Status changes on an active row never collide with the row itself.
	active := CreateTestAppointment(t, db, "+3", at(18, 0), time.Hour, StatusPending)
	assert.NoError(t, db.UpdateAppointmentStatus(ctx, active.ID, StatusConfirmed))
}

func TestFindActiveOverlap(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	existing := CreateTestAppointment(t, db, "+1", at(14, 0), time.Hour, StatusConfirmed)
	CreateTestAppointment(t, db, "+1", at(9, 0), time.Hour, StatusCancelled)

	t.Run("collision", func(t *testing.T) {
		got, err := db.FindActiveOverlap(ctx, conflict.NewInterval(at(15, 30), time.Hour), "")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, existing.ID, got.ID)
	})

	t.Run("free slot", func(t *testing.T) {
		got, err := db.FindActiveOverlap(ctx, conflict.NewInterval(at(16, 0), time.Hour), "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("cancelled slot is free", func(t *testing.T) {
		got, err := db.FindActiveOverlap(ctx, conflict.NewInterval(at(9, 0), time.Hour), "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("self excluded", func(t *testing.T) {
		got, err := db.FindActiveOverlap(ctx, existing.Interval(), existing.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestListActiveAppointmentsByConversation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	first := CreateTestAppointment(t, db, "+1", at(9, 0), time.Hour, StatusConfirmed)
	CreateTestAppointment(t, db, "+1", at(12, 0), time.Hour, StatusCancelled)
	CreateTestAppointment(t, db, "+2", at(18, 0), time.Hour, StatusConfirmed)

	active, err := db.ListActiveAppointmentsByConversation(ctx, "+1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	all, err := db.ListAppointmentsByConversation(ctx, "+1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	everything, err := db.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	sentinel := errors.New("boom")

	var id string
	err := db.InTx(ctx, func(tx *Tx) error {
		a := &Appointment{PartyName: "Rolled", StartTime: at(9, 0), EndTime: at(10, 0), Status: StatusConfirmed}
		if err := tx.InsertAppointment(ctx, a); err != nil {
			return err
		}
		id = a.ID
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	got, err := db.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConcurrentBookingsAdmitOne(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	booked := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.InTx(ctx, func(tx *Tx) error {
				iv := conflict.NewInterval(at(14, 0), time.Hour)
				clash, err := tx.FindActiveOverlap(ctx, iv, "")
				if err != nil {
					return err
				}
				if clash != nil {
					return ErrOverlap
				}
				return tx.InsertAppointment(ctx, &Appointment{
					PartyName: "Racer",
					StartTime: iv.Start,
					EndTime:   iv.End,
					Status:    StatusConfirmed,
				})
			})
			if err == nil {
				mu.Lock()
				booked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, booked)
	active, err := db.ListActiveAppointmentsBetween(ctx, at(0, 0), at(23, 59))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want AppointmentStatus
		ok   bool
	}{
		{"done", StatusDone, true},
		{" Confirmed ", StatusConfirmed, true},
		{"canceled", StatusCancelled, true},
		{"PENDING", StatusPending, true},
		{"archived", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.True(t, StatusPending.Active())
	assert.False(t, StatusDone.Active())
}
