package normalize

import (
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-extract/internal/model"
)

// minParagraphChars filters out navigation crumbs and other short noise.
const minParagraphChars = 10

// parseHTML segments an HTML document into section-labeled units:
// headings, paragraphs and list items, and table rows.
func parseHTML(path string) ([]model.DocumentUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrParseFailure, "open %s: %v", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, eris.Wrapf(ErrParseFailure, "parse html %s: %v", path, err)
	}

	doc.Find("script, style, nav, footer").Remove()

	var units []model.DocumentUnit
	add := func(text string) {
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			return
		}
		units = append(units, model.DocumentUnit{
			Text:       text,
			PageNumber: 1,
			Origin:     model.OriginNative,
		})
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})

	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) >= minParagraphChars {
			add(text)
		}
	})

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if t := strings.TrimSpace(cell.Text()); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) > 0 {
			add(strings.Join(cells, " | "))
		}
	})

	if len(units) == 0 {
		return nil, eris.Wrapf(ErrParseFailure, "no text content in %s", path)
	}
	return units, nil
}
