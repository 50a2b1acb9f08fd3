package pdfprobe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// Analyzer reads structural metrics from PDF files with ledongthuc/pdf.
// The parser panics on some malformed input, so every entry point recovers.
type Analyzer struct {
	maxTextBytes int64
}

func New(maxTextBytes int64) *Analyzer {
	return &Analyzer{maxTextBytes: maxTextBytes}
}

func (a *Analyzer) ExtractText(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract text: parser panic: %v", r)
		}
	}()

	f, reader, err := open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if a.maxTextBytes > 0 {
		plain = io.LimitReader(plain, a.maxTextBytes)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	return string(raw), nil
}

func (a *Analyzer) PageImages(ctx context.Context, path string) (pages []domain.PageImages, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("introspect pages: parser panic: %v", r)
		}
	}()

	f, reader, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]domain.PageImages, 0, total)
	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		images, pageErr := countPageImages(reader, num)
		pages = append(pages, domain.PageImages{Images: images, Err: pageErr})
	}
	return pages, nil
}

func open(path string) (*os.File, *pdf.Reader, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	return f, reader, nil
}

func countPageImages(reader *pdf.Reader, num int) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			count, err = 0, fmt.Errorf("page %d: parser panic: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return 0, fmt.Errorf("page %d: missing page object", num)
	}
	xobjects := page.Resources().Key("XObject")
	if xobjects.IsNull() {
		return 0, nil
	}
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count, nil
}
