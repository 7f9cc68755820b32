// Package fileserver хранит аватары пользователей на диске.
package fileserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/chatbubble/internal/logger"
)

// URLPrefix — путь, под которым раздаются аватары.
const URLPrefix = "/api/avatars/"

var (
	ErrNotImage = errors.New("only jpg, png, gif and webp images are allowed")
	ErrMismatch = errors.New("file content does not match type")
	ErrTooLarge = errors.New("file too large")
	ErrNotFound = errors.New("file not found")
)

// Разрешены только картинки.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Имена файлов, которые мы выдаём сами: uuid + расширение.
var storedNameRe = regexp.MustCompile(`^[0-9a-f-]{36}\.(jpg|jpeg|png|gif|webp)$`)

type Service struct {
	UploadDir     string
	MaxUploadSize int64
}

func New(uploadDir string, maxUploadSize int64) *Service {
	return &Service{UploadDir: uploadDir, MaxUploadSize: maxUploadSize}
}

// Save проверяет сигнатуру и сохраняет картинку сжатой (.gz). Возвращает URL для профиля.
func (s *Service) Save(ctx context.Context, filename string, src io.Reader) (string, error) {
	// В ряде клиентов пробел в имени кодируется как "+".
	ext := strings.ToLower(filepath.Ext(strings.ReplaceAll(filename, "+", " ")))
	if _, ok := contentTypes[ext]; !ok {
		return "", ErrNotImage
	}

	head := make([]byte, 512)
	n, _ := io.ReadAtLeast(src, head, len(head))
	head = head[:n]
	if !matchMagic(ext, head) {
		return "", ErrMismatch
	}

	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("fileserver.Save: %w", err)
	}
	newName := uuid.NewString() + ext
	dstPath := filepath.Join(s.UploadDir, newName+".gz")
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("fileserver.Save: %w", err)
	}
	gz := gzip.NewWriter(dst)
	limited := io.LimitReader(src, s.MaxUploadSize-int64(len(head))+1)
	written, err := writeAll(ctx, gz, head, limited)
	if err == nil && written > s.MaxUploadSize {
		err = ErrTooLarge
	}
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dstPath)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("fileserver.Save: %w", err)
	}
	logger.Infof("avatar saved %s (%d bytes)", newName, written)
	return URLPrefix + newName, nil
}

func writeAll(ctx context.Context, dst io.Writer, head []byte, rest io.Reader) (int64, error) {
	if _, err := dst.Write(head); err != nil {
		return 0, err
	}
	n, err := copyWithContext(ctx, dst, rest)
	return int64(len(head)) + n, err
}

func matchMagic(ext string, head []byte) bool {
	switch ext {
	case ".jpg", ".jpeg":
		return len(head) >= 3 && head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF
	case ".png":
		return len(head) >= 8 && bytes.Equal(head[:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	case ".gif":
		return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
	case ".webp":
		return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
	}
	return false
}

// Open отдаёт распакованное содержимое аватара и его Content-Type.
// Имя принимается только в том виде, в каком его выдал Save.
func (s *Service) Open(name string) (io.ReadCloser, string, error) {
	name = filepath.Base(name)
	if !storedNameRe.MatchString(name) {
		return nil, "", ErrNotFound
	}
	contentType := contentTypes[filepath.Ext(name)]

	f, err := os.Open(filepath.Join(s.UploadDir, name+".gz"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("fileserver.Open: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("fileserver.Open: %w", err)
	}
	return &gzipFile{Reader: gz, f: f}, contentType, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	gerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gerr
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, fmt.Errorf("upload cancelled: %w", ctx.Err())
		default:
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return total, fmt.Errorf("write: %w", err)
			}
			total += int64(n)
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, fmt.Errorf("read: %w", readErr)
		}
	}
}
