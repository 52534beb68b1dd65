package connect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	playerv1 "github.com/osa030/tunemap/internal/api/playerv1"
)

func TestJSONCodec(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&playerv1.SeekRequest{PositionMs: 1500})
	require.NoError(t, err)
	assert.JSONEq(t, `{"position_ms":1500}`, string(data))

	var empty playerv1.Empty
	assert.NoError(t, codec.Unmarshal(nil, &empty))

	var req playerv1.SeekRequest
	assert.Error(t, codec.Unmarshal([]byte("{"), &req))
}
