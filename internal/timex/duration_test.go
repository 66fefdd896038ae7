package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	t.Run("from string", func(t *testing.T) {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
		require.Equal(t, 90*time.Second, d.Duration)
	})

	t.Run("from nanoseconds", func(t *testing.T) {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(`5000000000`), &d))
		require.Equal(t, 5*time.Second, d.Duration)
	})

	t.Run("bad string", func(t *testing.T) {
		var d Duration
		require.Error(t, json.Unmarshal([]byte(`"five seconds"`), &d))
	})

	t.Run("bad type", func(t *testing.T) {
		var d Duration
		require.Error(t, json.Unmarshal([]byte(`true`), &d))
	})
}

func TestDurationMarshal(t *testing.T) {
	d := Duration{Duration: 5 * time.Second}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"5s"`, string(data))
}
