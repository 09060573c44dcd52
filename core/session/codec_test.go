package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	codec := NewCodec("secret")

	data, err := codec.Encode(map[string]interface{}{UserIDKey: "42", "lang": "fr"})
	require.NoError(t, err)

	values, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{UserIDKey: "42", "lang": "fr"}, values)

	t.Run("empty data", func(t *testing.T) {
		values, err := codec.Decode("")
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("nil values", func(t *testing.T) {
		data, err := codec.Encode(nil)
		require.NoError(t, err)
		values, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("tampered data", func(t *testing.T) {
		b := []byte(data)
		b[len(b)/2] ^= 1
		_, err := codec.Decode(string(b))
		assert.Error(t, err)
	})

	t.Run("other secret", func(t *testing.T) {
		_, err := NewCodec("other").Decode(data)
		assert.Error(t, err)
	})
}

func TestDevice(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"", "-"},
		{"   ", "-"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36", "Chrome on Windows"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36 Edg/118.0.2088.46", "Edge on Windows"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", "Safari on iOS"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/119.0", "Firefox on Linux"},
		{"Mozilla/5.0 (Linux; Android 13; SM-A536B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Mobile Safari/537.36", "Chrome on Android"},
		{"curl/8.1.2", "curl"},
		{"SomeRobot/1.0", "SomeRobot/1.0"},
		{"AVeryLongAgentStringWithoutAnyKnownMarkerInsideOfIt/1.0", "AVeryLongAgentStringWithoutAnyKnownMarke..."},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Device(tt.ua))
		})
	}
}
