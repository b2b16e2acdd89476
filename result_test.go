package maxminddb

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultNetworkIPv4(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	result := r.Lookup(netip.MustParseAddr("0.0.0.1"))
	require.True(t, result.Found())

	network := result.Network()
	assert.Equal(t, "0.0.0.0/1", network.String())
}

func TestResultDecodePath(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	result := r.Lookup(netip.MustParseAddr("0.0.0.1"))
	v, ok, err := result.DecodePath("name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test", v.Str)

	_, ok, err = result.DecodePath("does.not.exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultDecodePathNotFoundIP(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	result := r.Lookup(netip.MustParseAddr("128.0.0.1"))
	_, ok, err := result.DecodePath("name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultErrShortCircuitsFields(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	result := r.Lookup(netip.MustParseAddr("0.0.0.1"))
	require.Error(t, result.Err())

	out := make(map[string]Value)
	found, err := result.Fields([]string{"name"}, out)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestResultDecoderManualMapTraversal(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	result := r.Lookup(netip.MustParseAddr("0.0.0.1"))
	require.True(t, result.Found())

	dec := result.Decoder()
	require.NotNil(t, dec)

	seen := map[string]string{}
	err = dec.DecodeMap(func(key string, value *Decoder) (bool, error) {
		s, err := value.DecodeString()
		if err != nil {
			return false, err
		}
		seen[key] = s
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "test"}, seen)
}

func TestResultDecoderNilWhenNotFound(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	result := r.Lookup(netip.MustParseAddr("128.0.0.1"))
	assert.Nil(t, result.Decoder())
}
