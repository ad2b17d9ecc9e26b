package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare hex gets hyphenated",
			in:   "1234abcd1234abcd1234abcd1234abcd",
			want: "1234abcd-1234-abcd-1234-abcd1234abcd",
		},
		{
			name: "uppercase is lowered",
			in:   "1234ABCD-1234-ABCD-1234-ABCD1234ABCD",
			want: "1234abcd-1234-abcd-1234-abcd1234abcd",
		},
		{
			name: "canonical form is stable",
			in:   "1234abcd-1234-abcd-1234-abcd1234abcd",
			want: "1234abcd-1234-abcd-1234-abcd1234abcd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeUUID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUUIDInvalid(t *testing.T) {
	for _, in := range []string{"", "not-a-uuid", "1234abcd", "1234abcd1234abcd1234abcd1234abcg"} {
		_, err := NormalizeUUID(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestPayloadProtocol(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"PROTOCOL": 2}`), &p))
	v, err := p.protocol()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	p = Payload{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
	_, err = p.protocol()
	assert.ErrorIs(t, err, errNoProtocol)

	p = Payload{}
	require.NoError(t, json.Unmarshal([]byte(`{"PROTOCOL": "2"}`), &p))
	_, err = p.protocol()
	assert.ErrorIs(t, err, errProtocolNotInt)

	p = Payload{}
	require.NoError(t, json.Unmarshal([]byte(`{"PROTOCOL": 2.5}`), &p))
	_, err = p.protocol()
	assert.ErrorIs(t, err, errProtocolNotInt)
}

func TestParseLastSync(t *testing.T) {
	s := "Wed, 02 Oct 2024 13:45:00 +0000"
	ts, err := parseLastSync(&s)
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2024, time.October, 2, 13, 45, 0, 0, time.UTC), *ts)

	ts, err = parseLastSync(nil)
	require.NoError(t, err)
	assert.Nil(t, ts)

	empty := ""
	ts, err = parseLastSync(&empty)
	require.NoError(t, err)
	assert.Nil(t, ts)

	bad := "2024-10-02T13:45:00Z"
	_, err = parseLastSync(&bad)
	assert.Error(t, err)
}

func TestParseEpoch(t *testing.T) {
	ts, err := parseEpoch("1315525577")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, int64(1315525577), ts.Unix())

	// some clients report build times as floats
	ts, err = parseEpoch("1315525577.0")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, int64(1315525577), ts.Unix())

	ts, err = parseEpoch("")
	require.NoError(t, err)
	assert.Nil(t, ts)

	_, err = parseEpoch("soon")
	assert.Error(t, err)
}

func TestParseCount(t *testing.T) {
	n, err := parseCount("1517568")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, int64(1517568), *n)

	n, err = parseCount("")
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = parseCount("big")
	assert.Error(t, err)
}
