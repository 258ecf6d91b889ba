package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	t.Parallel()
	t.Run("String", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "1m15s", Duration(75*time.Second).String())
	})

	t.Run("UnmarshalJSON", func(t *testing.T) {
		t.Parallel()
		var d Duration
		assert.NoError(t, json.Unmarshal([]byte(`"1m15s"`), &d))
		assert.Equal(t, Duration(75*time.Second), d)

		t.Run("Number", func(t *testing.T) {
			t.Parallel()
			var d Duration
			assert.NoError(t, json.Unmarshal([]byte(`500`), &d))
			assert.Equal(t, Duration(500*time.Millisecond), d)
		})
		t.Run("Invalid", func(t *testing.T) {
			t.Parallel()
			var d Duration
			assert.Error(t, json.Unmarshal([]byte(`"two seconds"`), &d))
			assert.Error(t, json.Unmarshal([]byte(`{}`), &d))
		})
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(Duration(75 * time.Second))
		require.NoError(t, err)
		assert.Equal(t, `"1m15s"`, string(data))
	})

	t.Run("UnmarshalText", func(t *testing.T) {
		t.Parallel()
		var d Duration
		assert.NoError(t, d.UnmarshalText([]byte(`10s`)))
		assert.Equal(t, Duration(10*time.Second), d)
		assert.Error(t, d.UnmarshalText([]byte(`nope`)))
	})
}

func TestNullDuration(t *testing.T) {
	t.Parallel()
	t.Run("Constructors", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, NullDuration{Duration(time.Second), true}, NullDurationFrom(time.Second))
		assert.Equal(t, NullDuration{Duration(time.Second), false}, NewNullDuration(time.Second, false))
	})

	t.Run("UnmarshalJSON", func(t *testing.T) {
		t.Parallel()
		var d NullDuration
		assert.NoError(t, json.Unmarshal([]byte(`"1m15s"`), &d))
		assert.Equal(t, NullDurationFrom(75*time.Second), d)

		t.Run("Null", func(t *testing.T) {
			t.Parallel()
			var d NullDuration
			assert.NoError(t, json.Unmarshal([]byte(`null`), &d))
			assert.False(t, d.Valid)
		})
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(NullDurationFrom(75 * time.Second))
		require.NoError(t, err)
		assert.Equal(t, `"1m15s"`, string(data))

		data, err = json.Marshal(NullDuration{})
		require.NoError(t, err)
		assert.Equal(t, `null`, string(data))
	})

	t.Run("UnmarshalText", func(t *testing.T) {
		t.Parallel()
		var d NullDuration
		assert.NoError(t, d.UnmarshalText([]byte(``)))
		assert.False(t, d.Valid)
		assert.NoError(t, d.UnmarshalText([]byte(`10s`)))
		assert.Equal(t, NullDurationFrom(10*time.Second), d)
	})

	t.Run("TimeDuration", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 10*time.Second, NullDurationFrom(10*time.Second).TimeDuration())
		assert.Equal(t, time.Duration(0), NullDuration{Duration(time.Second), false}.TimeDuration())
	})
}
