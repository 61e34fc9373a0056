package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:  "plain release",
			input: "0.282",
		},
		{
			name:  "snapshot suffix",
			input: "0.283-SNAPSHOT",
		},
		{
			name:  "three components",
			input: "1.2.3",
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "whitespace only",
			input:     "   ",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, v.String())
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "equal", a: "0.282", b: "0.282", want: 0},
		{name: "minor less", a: "0.200", b: "0.250", want: -1},
		{name: "minor greater", a: "0.300", b: "0.250", want: 1},
		{name: "numeric not lexicographic", a: "0.9", b: "0.10", want: -1},
		{name: "major wins", a: "1.0", b: "0.999", want: 1},
		{name: "prefix is smaller", a: "0.282", b: "0.282-SNAPSHOT", want: -1},
		{name: "suffix tokens lexicographic", a: "0.282-RC1", b: "0.282-SNAPSHOT", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := MustParse(tt.a)
			b := MustParse(tt.b)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}
}

func TestBoundsHelpers(t *testing.T) {
	low := MustParse("0.200")
	mid := MustParse("0.210")
	high := MustParse("0.250")

	assert.True(t, mid.GreaterThanOrEqualTo(low))
	assert.True(t, mid.LessThanOrEqualTo(high))
	assert.True(t, mid.LessThanOrEqualTo(mid))
	assert.True(t, mid.GreaterThanOrEqualTo(mid))
	assert.False(t, low.GreaterThanOrEqualTo(mid))
	assert.False(t, high.LessThanOrEqualTo(mid))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("") })
}
