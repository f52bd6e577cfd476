package collections_test

import (
	"strings"
	"testing"
	"time"

	"github.com/alkime/voicecollector/pkg/collections"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	t.Run("basic types", func(t *testing.T) {
		lengths := collections.Apply([]string{"Warfarin", "Ibuprofen"}, func(s string) int {
			return len(s)
		})
		require.Equal(t, []int{8, 9}, lengths)

		secs := collections.Apply([]time.Duration{time.Second, 1500 * time.Millisecond}, time.Duration.Seconds)
		require.Equal(t, []float64{1, 1.5}, secs)
	})

	t.Run("structs", func(t *testing.T) {
		type take struct {
			Drug   string
			Length time.Duration
		}

		takes := []take{
			{Drug: "Metformin", Length: 2 * time.Second},
			{Drug: "Omeprazole", Length: 3 * time.Second},
		}

		drugs := collections.Apply(takes, func(tk take) string { return tk.Drug })
		require.Equal(t, []string{"Metformin", "Omeprazole"}, drugs)
	})

	t.Run("empty", func(t *testing.T) {
		require.Empty(t, collections.Apply(nil, strings.ToUpper))
	})
}

func TestApplyVariadic(t *testing.T) {
	labels := collections.ApplyVariadic(func(i int) string {
		return string(rune('a' + i))
	}, 0, 1, 2)

	require.Equal(t, []string{"a", "b", "c"}, labels)

	require.Empty(t, collections.ApplyVariadic(func(i int) int { return i }))
}

func TestFind(t *testing.T) {
	drugs := []string{"Paracetamol", "Ibuprofen", "Insulin"}

	got, ok := collections.Find(drugs, func(s string) bool { return strings.HasPrefix(s, "I") })
	assert.True(t, ok)
	assert.Equal(t, "Ibuprofen", got, "first match wins")

	got, ok = collections.Find(drugs, func(s string) bool { return s == "Warfarin" })
	assert.False(t, ok)
	assert.Empty(t, got)

	_, ok = collections.Find[int](nil, func(int) bool { return true })
	assert.False(t, ok)
}
