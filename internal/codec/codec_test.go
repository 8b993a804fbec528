package codec

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel maps every 320 samples (24000/75) to one token and back,
// preserving duration through an encode/decode round trip.
type fakeModel struct {
	decodeErr error
}

func (m *fakeModel) SampleRate() int { return 24000 }

func (m *fakeModel) Encode(_ context.Context, samples []float32) ([]int64, error) {
	perToken := m.SampleRate() / TokenRate
	n := len(samples) / perToken
	codes := make([]int64, n)
	for i := range codes {
		codes[i] = int64(i % 4096)
	}
	return codes, nil
}

func (m *fakeModel) Decode(_ context.Context, codes []int64) ([]float32, error) {
	if m.decodeErr != nil {
		return nil, m.decodeErr
	}
	return make([]float32, len(codes)*m.SampleRate()/TokenRate), nil
}

func TestRoundTripPreservesDuration(t *testing.T) {
	adapter, err := NewAdapter(&fakeModel{})
	require.NoError(t, err)

	const srcRate = 44100
	const seconds = 2.0
	samples := make([]float32, int(seconds*srcRate))

	tokens, err := adapter.Encode(context.Background(), samples, srcRate)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Len(t, tokens[0], 1)

	out, err := adapter.Decode(context.Background(), tokens)
	require.NoError(t, err)

	gotSeconds := float64(len(out)) / float64(adapter.SampleRate())
	// Within one token period of the original duration.
	assert.InDelta(t, seconds, gotSeconds, 1.0/TokenRate)
}

func TestEncodeIsStableOnDecodedOutput(t *testing.T) {
	adapter, err := NewAdapter(&fakeModel{})
	require.NoError(t, err)

	samples := make([]float32, 24000)
	first, err := adapter.Encode(context.Background(), samples, 24000)
	require.NoError(t, err)

	decoded, err := adapter.Decode(context.Background(), first)
	require.NoError(t, err)

	second, err := adapter.Encode(context.Background(), decoded, adapter.SampleRate())
	require.NoError(t, err)

	assert.Equal(t, first[0][0], second[0][0])
}

func TestEncodeTokenRate(t *testing.T) {
	adapter, err := NewAdapter(&fakeModel{})
	require.NoError(t, err)

	for _, seconds := range []float64{0.5, 1, 3.2} {
		samples := make([]float32, int(seconds*24000))
		tokens, err := adapter.Encode(context.Background(), samples, 24000)
		require.NoError(t, err)

		want := seconds * TokenRate
		assert.InDelta(t, want, float64(len(tokens[0][0])), 1,
			"tokens for %.1fs of audio", seconds)
	}
}

func TestDecodeStructuralValidation(t *testing.T) {
	adapter, err := NewAdapter(&fakeModel{})
	require.NoError(t, err)

	cases := [][][][]int64{
		nil,
		{},
		{{}},
		{{{}}},
		{{{1}}, {{2}}},
	}
	for i, tokens := range cases {
		_, err := adapter.Decode(context.Background(), tokens)
		assert.ErrorIs(t, err, ErrDecode, "case %d", i)
	}
}

func TestDecodeWrapsModelFailure(t *testing.T) {
	adapter, err := NewAdapter(&fakeModel{decodeErr: errors.New("device lost")})
	require.NoError(t, err)

	_, err = adapter.Decode(context.Background(), [][][]int64{{{1, 2, 3}}})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEncodeRejectsEmptyInput(t *testing.T) {
	adapter, err := NewAdapter(&fakeModel{})
	require.NoError(t, err)

	_, err = adapter.Encode(context.Background(), nil, 24000)
	assert.Error(t, err)

	_, err = adapter.Encode(context.Background(), make([]float32, 10), 0)
	assert.Error(t, err)
}

func TestNewAdapterRequiresModel(t *testing.T) {
	_, err := NewAdapter(nil)
	assert.Error(t, err)
}

func TestTokenRateConstant(t *testing.T) {
	// Duration math across the system divides by this; a change here breaks
	// every persisted speaker profile.
	if TokenRate != 75 {
		t.Fatalf("TokenRate = %d; want 75", TokenRate)
	}
	if math.Abs(1.0/TokenRate-0.01333) > 0.001 {
		t.Fatal("token period drifted")
	}
}
