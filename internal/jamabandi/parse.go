package jamabandi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/landrecords-in/jamabandi/pkg/errors"
)

func hiddenField(doc *goquery.Document, name string) string {
	value, _ := doc.Find(fmt.Sprintf("input[name=%q]", name)).Attr("value")
	return value
}

// selectOptions finds the dropdown whose label contains the given text and
// returns its options keyed by their display text. The currently selected
// placeholder option is skipped.
func selectOptions(doc *goquery.Document, label string) map[string]string {
	options := make(map[string]string)
	doc.Find("div > label").Each(func(_ int, lbl *goquery.Selection) {
		if !strings.Contains(lbl.Text(), label) {
			return
		}
		lbl.Parent().Find("select option:not([selected])").Each(func(_ int, opt *goquery.Selection) {
			value, ok := opt.Attr("value")
			if !ok {
				return
			}
			options[strings.TrimSpace(opt.Text())] = value
		})
	})
	return options
}

// optionValues is like selectOptions but preserves document order, which
// matters for the jamabandi year list where the first entry is the most
// recent period.
func optionValues(doc *goquery.Document, label string) []string {
	var values []string
	doc.Find("div > label").Each(func(_ int, lbl *goquery.Selection) {
		if !strings.Contains(lbl.Text(), label) {
			return
		}
		lbl.Parent().Find("select option:not([selected])").Each(func(_ int, opt *goquery.Selection) {
			if value, ok := opt.Attr("value"); ok {
				values = append(values, value)
			}
		})
	})
	return values
}

// nakalRow describes one row of the nakal grid: the postback argument that
// selects it plus the khewat/khatoni numbers shown alongside.
type nakalRow struct {
	selectArgument string
	khewatNo       string
	khatoniNo      string
}

// nakalGridRow extracts the first data row of the nakal GridView.
func nakalGridRow(doc *goquery.Document) (*nakalRow, error) {
	var row *nakalRow

	doc.Find(`table[id*="GridView"] tr`).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true // header row
		}

		href, ok := tr.Find("td a").First().Attr("href")
		if !ok {
			return true
		}

		// href looks like javascript:__doPostBack('...GridView1','Select$0').
		parts := strings.Split(href, "$")
		argument := "Select$" + strings.TrimSuffix(parts[len(parts)-1], "')")

		row = &nakalRow{
			selectArgument: argument,
			khewatNo:       strings.TrimSpace(cells.Eq(1).Text()),
			khatoniNo:      strings.TrimSpace(cells.Eq(2).Text()),
		}
		return false
	})

	if row == nil {
		return nil, apperrors.ErrPortalChanged.WithInternal(errors.New("nakal grid has no selectable rows"))
	}
	return row, nil
}

// nakalFields are the identification spans on the Nakal_khewat page.
type nakalFields struct {
	village  string
	hadbast  string
	tehsil   string
	district string
	year     string
}

func parseNakalFields(doc *goquery.Document) (*nakalFields, error) {
	fields := &nakalFields{
		village:  strings.TrimSpace(doc.Find("span#lblvill").Text()),
		hadbast:  strings.TrimSpace(doc.Find("span#lblhad").Text()),
		tehsil:   strings.TrimSpace(doc.Find("span#lblteh").Text()),
		district: strings.TrimSpace(doc.Find("span#lbldis").Text()),
		year:     strings.TrimSpace(doc.Find("span#lblyer").Text()),
	}

	var missing []string
	for name, value := range map[string]string{
		"lblvill": fields.village,
		"lblhad":  fields.hadbast,
		"lblteh":  fields.tehsil,
		"lbldis":  fields.district,
		"lblyer":  fields.year,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.ErrPortalChanged.WithInternal(
			fmt.Errorf("nakal page is missing fields: %s", strings.Join(missing, ", ")))
	}

	return fields, nil
}
