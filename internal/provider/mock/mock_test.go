package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

func testImage(seed byte) []byte {
	image := make([]byte, 5000)
	for i := range image {
		image[i] = byte(i%256) ^ seed
	}
	return image
}

func TestProvider_DetectFaces(t *testing.T) {
	p := New()
	ctx := context.Background()

	tests := []struct {
		name      string
		image     []byte
		wantFaces int
		wantErr   bool
	}{
		{
			name:      "valid image",
			image:     testImage(0),
			wantFaces: 1,
		},
		{
			name:    "image too small",
			image:   make([]byte, 100),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces, err := p.DetectFaces(ctx, tt.image)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			require.Len(t, faces, tt.wantFaces)
			assert.True(t, faces[0].HasLandmarks())
			assert.NotNil(t, faces[0].Expression)
		})
	}
}

func TestProvider_DetectFaces_Deterministic(t *testing.T) {
	p := New()
	ctx := context.Background()

	first, err := p.DetectFaces(ctx, testImage(1))
	require.NoError(t, err)
	second, err := p.DetectFaces(ctx, testImage(1))
	require.NoError(t, err)
	other, err := p.DetectFaces(ctx, testImage(2))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0].Landmarks, other[0].Landmarks)
}

func TestProvider_Recognize(t *testing.T) {
	p := New()
	p.TextLines = []string{"NOMBRE", "JUAN"}

	lines, err := p.Recognize(context.Background(), testImage(0), []string{"es", "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NOMBRE", "JUAN"}, lines)

	lines[0] = "changed"
	assert.Equal(t, "NOMBRE", p.TextLines[0])
}

func TestProvider_MarkBack(t *testing.T) {
	p := New()
	front, back := testImage(1), testImage(2)
	p.MarkBack(back)

	lines, err := p.Recognize(context.Background(), front, nil)
	require.NoError(t, err)
	assert.Equal(t, SampleFrontText, lines)

	lines, err = p.Recognize(context.Background(), back, nil)
	require.NoError(t, err)
	assert.Equal(t, SampleBackText, lines)

	box, err := p.DetectDocument(context.Background(), back)
	require.NoError(t, err)
	assert.Nil(t, box)

	box, err = p.DetectDocument(context.Background(), front)
	require.NoError(t, err)
	assert.NotNil(t, box)
}

func TestProvider_ZeroValueRecognize(t *testing.T) {
	p := &Provider{TextLines: []string{"CURP"}}

	lines, err := p.Recognize(context.Background(), testImage(3), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CURP"}, lines)
}

func TestProvider_Embed(t *testing.T) {
	p := New()
	ctx := context.Background()

	assert.True(t, p.Available(ctx))

	embedding, err := p.Embed(ctx, testImage(0))
	require.NoError(t, err)
	assert.Len(t, embedding, embeddingDimension)

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)

	again, err := p.Embed(ctx, testImage(0))
	require.NoError(t, err)
	assert.Equal(t, embedding, again)

	_, err = p.Embed(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	p.EmbeddingsEnabled = false
	assert.False(t, p.Available(ctx))
}
