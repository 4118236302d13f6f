package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"0", 0, false},
		{"12", 1200, false},
		{"12.5", 1250, false},
		{"12.50", 1250, false},
		{"0.01", 1, false},
		{"-3.25", -325, false},
		{"1.005", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountJSON(t *testing.T) {
	var req struct {
		Amount Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 25.5}`), &req))
	assert.Equal(t, Amount(2550), req.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "7.25"}`), &req))
	assert.Equal(t, Amount(725), req.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": 0.001}`), &req))

	b, err := json.Marshal(map[string]Amount{"balance": 1005})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance": 10.05}`, string(b))
}

func TestAmountMul(t *testing.T) {
	total, err := Amount(500).Mul(3)
	require.NoError(t, err)
	assert.Equal(t, Amount(1500), total)
	assert.Equal(t, "15.00", total.String())

	_, err = (MaxAmount / 2).Mul(3)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	_, err = Amount(math.MaxInt64).Mul(2)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestAmountAdd(t *testing.T) {
	sum, err := Amount(150).Add(250)
	require.NoError(t, err)
	assert.Equal(t, Amount(400), sum)

	sum, err = MaxAmount.Add(0)
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, sum)

	_, err = MaxAmount.Add(1)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	_, err = Amount(math.MaxInt64).Add(1)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestParseAmountRejectsHugeValues(t *testing.T) {
	for _, in := range []string{"184467440737095521.16", "92233720368547758.07", "10000000000000.01"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, in)
	}

	a, err := ParseAmount("10000000000000")
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, a)

	var req struct {
		Amount Amount `json:"amount"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"amount": 92233720368547758.07}`), &req))
}

func TestPostFilter(t *testing.T) {
	featured := true
	p := &Post{Category: "cars", Featured: true, Status: PostOpen}

	assert.True(t, PostFilter{}.Match(p))
	assert.True(t, PostFilter{Category: "cars", Featured: &featured}.Match(p))
	assert.False(t, PostFilter{Category: "phones"}.Match(p))
	assert.False(t, PostFilter{Status: PostClosed}.Match(p))

	notFeatured := false
	assert.False(t, PostFilter{Featured: &notFeatured}.Match(p))
}
