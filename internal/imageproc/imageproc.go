// Package imageproc проверяет и подготавливает изображения перед отправкой в чат.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"newspaper-miniapp/internal/domain"
)

const (
	// MaxFileSize — файлы больше отклоняются до отправки.
	MaxFileSize = 50 << 20
	// CompressThreshold — файлы больше пережимаются.
	CompressThreshold = 2 << 20
	// MaxDimension — максимальная длина большей стороны после сжатия.
	MaxDimension = 1200
	// JPEGQuality — качество повторного кодирования.
	JPEGQuality = 85
)

var (
	ErrEmpty           = errors.New("файл пуст")
	ErrUnsupportedType = errors.New("неподдерживаемый тип файла")
	ErrTooLarge        = errors.New("файл слишком большой")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/heic": true,
	"image/heif": true,
}

// DetectType возвращает MIME-тип вложения. Заявленный тип имеет приоритет;
// если он пуст или общий, тип определяется по содержимому.
func DetectType(a *domain.Attachment) string {
	declared := strings.ToLower(strings.TrimSpace(a.ContentType))
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mediaType
		}
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(a.Data) == 0 {
		return declared
	}
	mediaType, _, _ := mime.ParseMediaType(mimetype.Detect(a.Data).String())
	return mediaType
}

// Validate проверяет тип и размер вложения.
func Validate(a *domain.Attachment) error {
	if a == nil || len(a.Data) == 0 {
		return ErrEmpty
	}
	if ct := DetectType(a); !allowedTypes[ct] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	if a.Size() > MaxFileSize {
		return fmt.Errorf("%w: %.1f MB (максимум %d MB)", ErrTooLarge, float64(a.Size())/(1<<20), MaxFileSize>>20)
	}
	return nil
}

// FitWithin вписывает размеры w×h в квадрат max×max с сохранением пропорций.
// Изображения, которые уже помещаются, не увеличиваются.
func FitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := int(float64(h)*float64(max)/float64(w) + 0.5)
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := int(float64(w)*float64(max)/float64(h) + 0.5)
	if nw < 1 {
		nw = 1
	}
	return nw, max
}

// Prepare проверяет вложение и пережимает его, если оно больше CompressThreshold.
// Форматы, которые не удается декодировать (например, HEIC), отправляются как есть.
func Prepare(a *domain.Attachment) (*domain.Attachment, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	if a.Size() <= CompressThreshold {
		return a, nil
	}

	src, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return a, nil
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), MaxDimension)
	dst := Resize(src, w, h)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("не удалось закодировать изображение: %w", err)
	}

	return &domain.Attachment{
		Name:        jpegName(a.Name),
		ContentType: "image/jpeg",
		Data:        out.Bytes(),
	}, nil
}

// Resize масштабирует изображение до w×h.
func Resize(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func jpegName(name string) string {
	if name == "" {
		return "image.jpg"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
