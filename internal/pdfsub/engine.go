// Package pdfsub performs literal text substitution on the first page of a
// PDF document: destructive single-page extraction, then per-rule
// search/redact/insert against the rendered text layer.
package pdfsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/quailyquaily/pagefix/internal/config"
	"github.com/quailyquaily/pagefix/internal/scratch"
)

var (
	ErrPageSelection = errors.New("pdfsub: page selection failed")
	ErrRender        = errors.New("pdfsub: render failed")
)

const (
	insertFontName = "Helvetica"
	insertFontSize = 8

	coverColor = "#FFFFFF"
	textColor  = "#000000"

	suffixLen      = 8
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Engine applies replacement rules to documents. Safe for concurrent use;
// every Substitute call works inside its own scratch directory.
type Engine struct {
	conf *model.Configuration
	log  *slog.Logger
}

// NewEngine builds an engine with relaxed validation, so lightly damaged
// documents still process.
func NewEngine(logger *slog.Logger) *Engine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf, log: logger}
}

// Substitute transforms the document at inputPath: keeps only its first
// page, applies rules in order, and writes the result into a fresh scratch
// directory under a randomized name derived from the input filename.
// Cleanup removes that directory; on error it has already run.
func (e *Engine) Substitute(ctx context.Context, inputPath string, rules []config.Rule) (string, func(), error) {
	dir, cleanup, err := scratch.Dir("pagefix-sub-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: scratch: %v", ErrRender, err)
	}
	done := false
	defer func() {
		if !done {
			cleanup()
		}
	}()

	pageCount, err := api.PageCountFile(inputPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: page count: %v", ErrRender, err)
	}
	if pageCount < 1 {
		return "", nil, fmt.Errorf("%w: document has no pages", ErrPageSelection)
	}

	work := filepath.Join(dir, "first.pdf")
	if err := api.TrimFile(inputPath, work, []string{"1"}, e.conf); err != nil {
		return "", nil, fmt.Errorf("%w: trim to first page: %v", ErrRender, err)
	}

	layer, err := extractLayer(work)
	if err != nil {
		return "", nil, fmt.Errorf("%w: text layer: %v", ErrRender, err)
	}

	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if rule.Inert() {
			continue
		}

		occs := layer.Find(rule.Find)
		e.log.Info("substitution_occurrences",
			"rule", i,
			"find", rule.Find,
			"count", len(occs),
		)
		if len(occs) == 0 {
			continue
		}

		next := filepath.Join(dir, fmt.Sprintf("first-r%d.pdf", i))
		if err := applyContent(dir, work, next, ruleContent(rule.Find, occs), e.conf); err != nil {
			return "", nil, fmt.Errorf("%w: rule %d: %v", ErrRender, i, err)
		}
		work = next

		layer.Redact(occs)
		for _, occ := range occs {
			layer.Insert(rule.Find, occ.Rect.X0, occ.Rect.Y0, insertFontSize)
		}
		e.log.Info("substitution_applied",
			"rule", i,
			"find", rule.Find,
			"with", rule.With,
			"count", len(occs),
		)
	}

	out := filepath.Join(dir, outputName(filepath.Base(inputPath)))
	if err := scratch.CopyFile(out, work); err != nil {
		return "", nil, fmt.Errorf("%w: save: %v", ErrRender, err)
	}
	done = true
	return out, cleanup, nil
}

// extractLayer reads the positioned text of the document's first page. The
// underlying parser panics on some malformed content streams; that is
// surfaced as an error here.
func extractLayer(path string) (layer *Layer, err error) {
	defer func() {
		if r := recover(); r != nil {
			layer = nil
			err = fmt.Errorf("parse content: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	if r.NumPage() < 1 {
		return nil, errors.New("no pages")
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return nil, errors.New("first page missing")
	}

	content := page.Content()
	cells := make([]Cell, 0, len(content.Text))
	for _, t := range content.Text {
		cells = append(cells, Cell{
			S:        t.S,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
			Font:     t.Font,
		})
	}
	return NewLayer(cells), nil
}

// outputName derives the reply filename: the input stem plus a random
// 8-character lowercase-alphanumeric suffix, keeping the extension.
func outputName(base string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", stem, randomSuffix(suffixLen), ext)
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
