package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-miniapp/internal/domain"
)

// noisePNG генерирует плохо сжимаемое изображение
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rnd.Intn(256))
		img.Pix[i+1] = uint8(rnd.Intn(256))
		img.Pix[i+2] = uint8(rnd.Intn(256))
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitWithin(t *testing.T) {
	testCases := []struct {
		w, h, wantW, wantH int
	}{
		{4000, 2000, 1200, 600},
		{2000, 4000, 600, 1200},
		{1200, 1200, 1200, 1200},
		{800, 600, 800, 600},
		{3000, 1, 1200, 1},
	}
	for _, tc := range testCases {
		w, h := FitWithin(tc.w, tc.h, MaxDimension)
		assert.Equal(t, tc.wantW, w, "%dx%d", tc.w, tc.h)
		assert.Equal(t, tc.wantH, h, "%dx%d", tc.w, tc.h)
	}
}

func TestFitWithin_PreservesAspectRatio(t *testing.T) {
	for _, size := range [][2]int{{4000, 2000}, {3999, 2171}, {1201, 997}, {5000, 333}} {
		w, h := FitWithin(size[0], size[1], MaxDimension)
		assert.LessOrEqual(t, max(w, h), MaxDimension)

		want := float64(size[0]) / float64(size[1])
		got := float64(w) / float64(h)
		assert.Less(t, math.Abs(got-want)/want, 0.01, "%v -> %dx%d", size, w, h)
	}
}

func TestValidate(t *testing.T) {
	pngData := smallPNG(t)

	testCases := []struct {
		name    string
		file    *domain.Attachment
		wantErr error
	}{
		{"png", &domain.Attachment{Name: "a.png", ContentType: "image/png", Data: pngData}, nil},
		{"sniffed png", &domain.Attachment{Name: "a", Data: pngData}, nil},
		{"octet-stream png", &domain.Attachment{Name: "a", ContentType: "application/octet-stream", Data: pngData}, nil},
		{"heic declared", &domain.Attachment{Name: "a.heic", ContentType: "image/heic", Data: []byte("x")}, nil},
		{"pdf", &domain.Attachment{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}, ErrUnsupportedType},
		{"sniffed text", &domain.Attachment{Name: "a", Data: []byte("hello world")}, ErrUnsupportedType},
		{"empty", &domain.Attachment{Name: "a.png", ContentType: "image/png"}, ErrEmpty},
		{"nil", nil, ErrEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.file)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidate_TooLarge(t *testing.T) {
	file := &domain.Attachment{Name: "huge.jpg", ContentType: "image/jpeg", Data: make([]byte, MaxFileSize+1)}
	assert.ErrorIs(t, Validate(file), ErrTooLarge)

	_, err := Prepare(file)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPrepare(t *testing.T) {
	t.Run("small file is passed through", func(t *testing.T) {
		file := &domain.Attachment{Name: "a.png", ContentType: "image/png", Data: smallPNG(t)}
		out, err := Prepare(file)
		require.NoError(t, err)
		assert.Same(t, file, out)
	})

	t.Run("large file is downscaled and re-encoded", func(t *testing.T) {
		data := noisePNG(t, 2400, 1200)
		require.Greater(t, len(data), CompressThreshold)

		out, err := Prepare(&domain.Attachment{Name: "photo.png", ContentType: "image/png", Data: data})
		require.NoError(t, err)
		assert.Equal(t, "photo.jpg", out.Name)
		assert.Equal(t, "image/jpeg", out.ContentType)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, 1200, cfg.Width)
		assert.Equal(t, 600, cfg.Height)
	})

	t.Run("undecodable format is passed through", func(t *testing.T) {
		file := &domain.Attachment{Name: "a.heic", ContentType: "image/heic", Data: make([]byte, CompressThreshold+1)}
		out, err := Prepare(file)
		require.NoError(t, err)
		assert.Same(t, file, out)
	})

	t.Run("wrong type is rejected", func(t *testing.T) {
		_, err := Prepare(&domain.Attachment{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestResize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, src, Resize(src, 100, 50).(*image.RGBA))

	dst := Resize(src, 40, 20)
	assert.Equal(t, image.Rect(0, 0, 40, 20), dst.Bounds())
}

func TestJpegName(t *testing.T) {
	assert.Equal(t, "photo.jpg", jpegName("photo.png"))
	assert.Equal(t, "archive.tar.jpg", jpegName("archive.tar.gz"))
	assert.Equal(t, "image.jpg", jpegName(""))
}
