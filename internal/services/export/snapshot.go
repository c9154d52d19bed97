package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/marketlens/internal/common"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="zh-CN"><head><meta charset="utf-8"><title>%s</title>
<style>
body{font-family:"Noto Sans CJK SC","PingFang SC","Microsoft YaHei",sans-serif;color:#111827;margin:40px;line-height:1.6}
h1{font-size:28px;border-bottom:2px solid #2563eb;padding-bottom:8px}
h2{font-size:20px;color:#1d4ed8;margin-top:28px}
table{border-collapse:collapse;width:100%%}
th,td{border:1px solid #d1d5db;padding:6px 8px;text-align:left}
th{background:#f3f4f6}
hr{border:none;border-top:1px solid #e5e7eb;margin:24px 0}
</style></head><body>%s</body></html>`

// reportHTML renders the report body as a standalone page
func reportHTML(markdown, title string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify))
	var body bytes.Buffer
	if err := md.Convert([]byte(stripFrontMatter(markdown)), &body); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return fmt.Sprintf(pageTemplate, htmlEscaper.Replace(title), body.String()), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// captureFullPage loads the page in headless Chrome and returns a full-page PNG
func (s *Service) captureFullPage(ctx context.Context, html string) ([]byte, error) {
	width := s.config.SnapshotWidth
	if width <= 0 {
		width = 1200
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.WindowSize(width, 900),
	)
	if s.config.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(s.config.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if timeout := common.ParseOptionalDuration(s.config.SnapshotTimeout); timeout > 0 {
		browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
		defer cancel()
	}

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(html))),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture report: %w", err)
	}
	return png, nil
}

// paginateImage scales a tall PNG to the A4 printable width and slices it
// across as many pages as its height needs
func paginateImage(png []byte, title string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("snapshot has no area")
	}

	pdf, _, _, err := newDocument("", title)
	if err != nil {
		return nil, err
	}
	pdf.SetAutoPageBreak(false, 0)

	pageWidth, pageHeight := pdf.GetPageSize()
	printWidth := pageWidth - 2*margin
	printHeight := pageHeight - 2*margin
	imageHeight := printWidth * float64(cfg.Height) / float64(cfg.Width)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("snapshot", opts, bytes.NewReader(png))

	pages := int(math.Ceil(imageHeight / printHeight))
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.ClipRect(margin, margin, printWidth, printHeight, false)
		pdf.ImageOptions("snapshot", margin, margin-float64(i)*printHeight, printWidth, imageHeight, false, opts, 0, "")
		pdf.ClipEnd()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write snapshot PDF: %w", err)
	}
	return buf.Bytes(), nil
}
