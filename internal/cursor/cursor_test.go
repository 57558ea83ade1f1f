package cursor

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestEncodeDecode_Roundtrip(t *testing.T) {
	for _, offset := range []int{0, 1, 41, 100000} {
		encoded := Encode("Second", offset)
		require.NotEmpty(t, encoded)

		got, err := Decode("Second", encoded)
		require.NoError(t, err)
		assert.Equal(t, offset, got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not base64", "!!!"},
		{"not json", base64.StdEncoding.EncodeToString([]byte("nope"))},
		{"wrong version", base64.StdEncoding.EncodeToString([]byte(`{"v":9,"t":"Second","o":1}`))},
		{"wrong type", Encode("First", 1)},
		{"negative", base64.StdEncoding.EncodeToString([]byte(`{"v":1,"t":"Second","o":-2}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("Second", tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		args Args
		want Window
	}{
		{"everything", Args{}, Window{Start: 0, End: 5}},
		{"first", Args{First: intPtr(2)}, Window{Start: 0, End: 2, HasNext: true}},
		{"first after", Args{First: intPtr(2), After: Encode("Second", 1)}, Window{Start: 2, End: 4, HasPrevious: true, HasNext: true}},
		{"last", Args{Last: intPtr(2)}, Window{Start: 3, End: 5, HasPrevious: true}},
		{"last before", Args{Last: intPtr(2), Before: Encode("Second", 3)}, Window{Start: 1, End: 3, HasPrevious: true, HasNext: true}},
		{"after past end", Args{After: Encode("Second", 9)}, Window{Start: 5, End: 5, HasPrevious: true}},
		{"first zero", Args{First: intPtr(0)}, Window{Start: 0, End: 0, HasNext: true}},
		{"after max offset", Args{After: Encode("Second", math.MaxInt)}, Window{Start: 5, End: 5, HasPrevious: true}},
		{"after max offset first", Args{After: Encode("Second", math.MaxInt), First: intPtr(3)}, Window{Start: 5, End: 5, HasPrevious: true}},
		{"first max", Args{First: intPtr(math.MaxInt), After: Encode("Second", 0)}, Window{Start: 1, End: 5, HasPrevious: true}},
		{"last max", Args{Last: intPtr(math.MaxInt)}, Window{Start: 0, End: 5}},
		{"before max offset", Args{Before: Encode("Second", math.MaxInt)}, Window{Start: 0, End: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve("Second", tt.args, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve("Second", Args{First: intPtr(-1)}, 5)
	assert.Error(t, err)
	_, err = Resolve("Second", Args{Last: intPtr(-1)}, 5)
	assert.Error(t, err)
	_, err = Resolve("Second", Args{After: Encode("First", 0)}, 5)
	assert.Error(t, err)
}

func TestWindowLimit(t *testing.T) {
	assert.Equal(t, 3, Window{Start: 2, End: 5}.Limit())
}
