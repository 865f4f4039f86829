package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	assert.Equal(t, "X", First.String())
	assert.Equal(t, "O", Second.String())
	assert.Equal(t, "", None.String())

	assert.Equal(t, Second, First.Other())
	assert.Equal(t, First, Second.Other())
	assert.Equal(t, None, None.Other())

	assert.True(t, First.Valid())
	assert.True(t, Second.Valid())
	assert.False(t, None.Valid())
}

func TestRole_UnmarshalText(t *testing.T) {
	var r Role
	require.NoError(t, r.UnmarshalText([]byte("O")))
	assert.Equal(t, Second, r)

	assert.Error(t, r.UnmarshalText([]byte("Z")))
}

func TestBoard_JSON(t *testing.T) {
	b := Board{First, Second, None, None, First, None, None, None, Second}

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `["X","O","","","X","","","","O"]`, string(data))
}

func TestOutcome_JSON(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"continuing", Outcome{}, `null`},
		{"x wins", Outcome{Winner: First}, `"X"`},
		{"o wins", Outcome{Winner: Second}, `"O"`},
		{"draw", Outcome{Draw: true}, `"draw"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.outcome)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "ended", Ended.String())
}

func TestStatus_UnmarshalText(t *testing.T) {
	for _, s := range []Status{Waiting, Playing, Ended} {
		var got Status
		require.NoError(t, got.UnmarshalText([]byte(s.String())))
		assert.Equal(t, s, got)
	}

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}

func TestBoard_UnmarshalJSON(t *testing.T) {
	var b Board
	require.NoError(t, json.Unmarshal([]byte(`["X","O","","","X","","","","O"]`), &b))
	assert.Equal(t, Board{First, Second, None, None, First, None, None, None, Second}, b)
}
