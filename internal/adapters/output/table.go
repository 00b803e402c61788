package output

import (
	"strconv"

	"github.com/pterm/pterm"

	"wayrake/internal/core/domain"
	"wayrake/internal/core/ports"
)

// RenderItems prints the resolved items as a terminal table, grouped fields
// first so related resources read together.
func RenderItems(items []domain.ResourceItem) error {
	if len(items) == 0 {
		pterm.Info.Println("No resources found.")
		return nil
	}

	data := pterm.TableData{
		{"GROUP", "YEAR", "TIMESTAMP", "TYPE", "ORIGINAL"},
	}
	for _, it := range items {
		data = append(data, []string{
			truncate(it.GroupTitle, 32),
			it.GroupYear,
			it.Timestamp,
			it.Mimetype,
			truncate(it.Original, 72),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Printf("\n%d resources\n", len(items))
	return nil
}

// RenderHits prints search results.
func RenderHits(source string, hits []ports.SearchHit) error {
	if len(hits) == 0 {
		pterm.Info.Printfln("No results from %s.", source)
		return nil
	}

	data := pterm.TableData{{"#", "TITLE", "URL"}}
	for i, h := range hits {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			truncate(h.Title, 40),
			truncate(h.URL, 80),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
