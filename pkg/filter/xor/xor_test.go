package xor

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestBasics(t *testing.T) {
	numKeys := 10000
	keys := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = fmt.Sprintf("key-%d", rand.Intn(1000000))
	}

	f, err := Create(keys)
	require.NoError(t, err)
	info, err := f.Marshal()
	require.NoError(t, err)
	require.Equal(t, FilterType, info.Type)
	require.NotEmpty(t, info.Data)

	// no false negatives.
	for i, key := range keys {
		if i%1000 == 0 {
			require.True(t, f.Contains(key), "key should be in filter: %s", key)
		}
	}

	// few false positives.
	falsePositives := 0
	testCount := 10000
	for i := 0; i < testCount; i++ {
		if f.Contains(fmt.Sprintf("other-key-%d", rand.Intn(1000000))) {
			falsePositives++
		}
	}
	require.Less(t, float64(falsePositives)/float64(testCount), 0.01)
}

func TestRoundTrip(t *testing.T) {
	keys := []string{"a", "b", "c"}
	f, err := Create(keys)
	require.NoError(t, err)

	info, err := f.Marshal()
	require.NoError(t, err)

	f2, err := New(info)
	require.NoError(t, err)
	for _, key := range keys {
		require.True(t, f2.Contains(key))
	}
}

func TestErrors(t *testing.T) {
	_, err := Create([]string{})
	require.Error(t, err)

	_, err = New(api.FilterInfo{Type: "invalid", Data: []byte{1, 2, 3}})
	require.Error(t, err)

	_, err = New(api.FilterInfo{Type: FilterType, Data: nil})
	require.Error(t, err)

	_, err = New(api.FilterInfo{Type: FilterType, Data: []byte{1, 2, 3}})
	require.Error(t, err)
}
