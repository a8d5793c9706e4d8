package pdfsub

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quailyquaily/pagefix/internal/config"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.pdf", want: `^report-[a-z0-9]{8}\.pdf$`},
		{name: "stem with dots", in: "q3.final.pdf", want: `^q3\.final-[a-z0-9]{8}\.pdf$`},
		{name: "stem with hyphen", in: "invoice-42.pdf", want: `^invoice-42-[a-z0-9]{8}\.pdf$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputName(tt.in)
			assert.Regexp(t, regexp.MustCompile(tt.want), got)
		})
	}
}

func TestRandomSuffix(t *testing.T) {
	s := randomSuffix(suffixLen)
	assert.Len(t, s, suffixLen)
	assert.Regexp(t, `^[a-z0-9]+$`, s)
}

func TestRuleContent(t *testing.T) {
	occs := []Occurrence{
		{Rect: Rect{X0: 100, Y0: 697.5, X1: 135, Y1: 707.5}},
		{Rect: Rect{X0: 40, Y0: 57.5, X1: 75, Y1: 67.5}},
	}

	content := ruleContent("Invoice", occs)
	require.Len(t, content.Boxes, 2)
	require.Len(t, content.Texts, 2)

	box := content.Boxes[0]
	assert.Equal(t, [2]float64{100, 697.5}, box.Pos)
	assert.Equal(t, 35.0, box.Width)
	assert.Equal(t, 10.0, box.Height)
	assert.Equal(t, coverColor, box.FillCol)

	text := content.Texts[0]
	assert.Equal(t, "Invoice", text.Value, "the needle is re-inserted, not the replacement")
	assert.Equal(t, [2]float64{100, 697.5}, text.Pos)
	assert.Equal(t, insertFontName, text.Font.Name)
	assert.Equal(t, insertFontSize, text.Font.Size)
	assert.Equal(t, textColor, text.Font.Col)

	// Order follows the occurrence order.
	assert.Equal(t, 40.0, content.Boxes[1].Pos[0])
	assert.Equal(t, 40.0, content.Texts[1].Pos[0])
}

func TestRuleContentEmpty(t *testing.T) {
	content := ruleContent("Invoice", nil)
	assert.Empty(t, content.Boxes)
	assert.Empty(t, content.Texts)
}

const stampFixtureJSON = `{
	"pages": {
		"1": {
			"content": {
				"text": [
					{"value": "Invoice #42", "pos": [100, 700], "font": {"name": "Helvetica", "size": 12, "col": "#000000"}}
				]
			}
		},
		"2": {
			"content": {
				"text": [
					{"value": "terms and conditions", "pos": [72, 500], "font": {"name": "Helvetica", "size": 12, "col": "#000000"}}
				]
			}
		}
	}
}`

// writeStampFixture renders a two-page document whose first page carries
// "Invoice #42" with its baseline near (100, 703).
func writeStampFixture(t *testing.T, dir string) string {
	t.Helper()
	jsonPath := filepath.Join(dir, "fixture.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(stampFixtureJSON), 0o600))
	pdfPath := filepath.Join(dir, "invoice scan.pdf")
	require.NoError(t, api.CreateFile("", jsonPath, pdfPath, nil))
	return pdfPath
}

func TestSubstituteStampsAtOccurrence(t *testing.T) {
	input := writeStampFixture(t, t.TempDir())

	before, err := extractLayer(input)
	require.NoError(t, err)
	occs := before.Find("Invoice")
	require.Len(t, occs, 1)
	rect := occs[0].Rect
	require.InDelta(t, 100.0, rect.X0, 0.5)
	require.InDelta(t, 700.0, rect.Y0, 1.5)

	engine := NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
	out, cleanup, err := engine.Substitute(context.Background(), input, []config.Rule{
		{Find: "Invoice", With: "Receipt"},
	})
	require.NoError(t, err)
	defer cleanup()

	assert.Regexp(t, `^invoice scan-[a-z0-9]{8}\.pdf$`, filepath.Base(out))

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	after, err := extractLayer(out)
	require.NoError(t, err)

	var inserted []Cell
	for _, c := range after.cells {
		if c.FontSize == float64(insertFontSize) {
			inserted = append(inserted, c)
		}
	}
	require.NotEmpty(t, inserted, "no text drawn at the insert size")

	var drawn strings.Builder
	for _, c := range inserted {
		drawn.WriteString(c.S)
	}
	assert.Equal(t, "Invoice", drawn.String(), "the drawn text is the needle, not the replacement")

	// The insert lands at the matched region's lower-left; the baseline sits
	// a couple of points above it.
	assert.InDelta(t, rect.X0, inserted[0].X, 0.5)
	assert.InDelta(t, rect.Y0, inserted[0].Y, 3.0)
}
