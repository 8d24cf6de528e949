package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"sigma/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStatusTransitions(t *testing.T) {
	all := []model.SessionStatus{
		model.SessionScheduled, model.SessionInProgress, model.SessionHeld, model.SessionCancelled,
	}

	legal := map[model.SessionStatus][]model.SessionStatus{
		model.SessionScheduled:  {model.SessionInProgress, model.SessionCancelled},
		model.SessionInProgress: {model.SessionHeld, model.SessionCancelled},
		model.SessionHeld:       {},
		model.SessionCancelled:  {},
	}

	for from, allowed := range legal {
		allowedSet := make(map[model.SessionStatus]bool)
		for _, next := range allowed {
			allowedSet[next] = true
		}
		for _, to := range all {
			assert.Equal(t, allowedSet[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestNewParticipant(t *testing.T) {
	memberID := uuid.New()
	visitorID := uuid.New()

	p, err := model.NewParticipant(&memberID, nil)
	require.NoError(t, err)
	assert.True(t, p.IsMember())
	assert.Equal(t, memberID, p.ID)

	p, err = model.NewParticipant(nil, &visitorID)
	require.NoError(t, err)
	assert.True(t, p.IsVisitor())
	assert.Equal(t, visitorID, p.ID)

	_, err = model.NewParticipant(nil, nil)
	assert.Error(t, err)
	_, err = model.NewParticipant(&memberID, &visitorID)
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := model.ParseTimeOfDay("20:30")
	require.NoError(t, err)
	assert.Equal(t, 20, tod.Hour)
	assert.Equal(t, 30, tod.Minute)
	assert.Equal(t, "20:30", tod.String())

	for _, invalid := range []string{"", "25:00", "12:60", "noon", "-1:30"} {
		_, err := model.ParseTimeOfDay(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	tod := model.TimeOfDay{Hour: 20, Minute: 15}
	date := time.Date(2025, time.June, 10, 3, 4, 5, 6, time.UTC)

	combined := tod.On(date)
	assert.Equal(t, time.Date(2025, time.June, 10, 20, 15, 0, 0, time.UTC), combined)
}

func TestLodgeSessionScheduleConfigured(t *testing.T) {
	var lodge model.Lodge
	assert.False(t, lodge.SessionScheduleConfigured())

	require.NoError(t, json.Unmarshal([]byte(`{
		"session_day": 2,
		"session_time": "20:00",
		"periodicity": "weekly"
	}`), &lodge))
	assert.True(t, lodge.SessionScheduleConfigured())
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	member := model.LodgeMember{ID: uuid.New(), Name: "John", PasswordHash: "secret-hash"}
	encoded, err := json.Marshal(member)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "secret-hash")
}
