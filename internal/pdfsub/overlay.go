package pdfsub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Overlay structs mirror the page-content JSON consumed by pdfcpu's create
// API, which drops unknown keys silently. Positions are two-element "pos"
// arrays holding the element's lower-left corner in PDF user space.

type overlayFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Col  string `json:"col"`
}

type overlayBox struct {
	Pos     [2]float64 `json:"pos"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	FillCol string     `json:"fillCol"`
}

type overlayText struct {
	Value string      `json:"value"`
	Pos   [2]float64  `json:"pos"`
	Font  overlayFont `json:"font"`
}

type overlayContent struct {
	Boxes []overlayBox  `json:"box,omitempty"`
	Texts []overlayText `json:"text,omitempty"`
}

type overlayPage struct {
	Content overlayContent `json:"content"`
}

type overlayDoc struct {
	Pages map[string]overlayPage `json:"pages"`
}

// ruleContent renders one rule's occurrences as page content: a cover box
// over each matched region, then the matched text re-drawn at the region's
// lower-left corner. The inserted string is the needle, not the rule's
// replacement value.
func ruleContent(find string, occs []Occurrence) overlayContent {
	var content overlayContent
	for _, occ := range occs {
		r := occ.Rect
		content.Boxes = append(content.Boxes, overlayBox{
			Pos:     [2]float64{r.X0, r.Y0},
			Width:   r.X1 - r.X0,
			Height:  r.Y1 - r.Y0,
			FillCol: coverColor,
		})
		content.Texts = append(content.Texts, overlayText{
			Value: find,
			Pos:   [2]float64{r.X0, r.Y0},
			Font: overlayFont{
				Name: insertFontName,
				Size: insertFontSize,
				Col:  textColor,
			},
		})
	}
	return content
}

// applyContent stamps content onto the single page of inPath, writing the
// result to outPath. Boxes render under texts, so a later rule's covers
// paint over an earlier rule's insertions.
func applyContent(workDir, inPath, outPath string, content overlayContent, conf *model.Configuration) error {
	doc := overlayDoc{Pages: map[string]overlayPage{"1": {Content: content}}}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal page content: %w", err)
	}

	jsonPath := filepath.Join(workDir, filepath.Base(outPath)+".json")
	if err := os.WriteFile(jsonPath, raw, 0o600); err != nil {
		return fmt.Errorf("write page content: %w", err)
	}
	defer func() { _ = os.Remove(jsonPath) }()

	if err := api.CreateFile(inPath, jsonPath, outPath, conf); err != nil {
		return fmt.Errorf("stamp page content: %w", err)
	}
	return nil
}
