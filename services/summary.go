package services

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
)

const reportWidth = 54

// Summary prints a terminal report of one analysed listing.
type Summary struct {
	// Color enables ANSI escapes; disable it when writing to a file.
	Color bool
}

func NewSummary(color bool) *Summary {
	return &Summary{Color: color}
}

func (s *Summary) paint(code, text string) string {
	if !s.Color {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

func (s *Summary) Print(w io.Writer, a *models.Analysis) {
	sep := strings.Repeat("═", reportWidth)
	thin := strings.Repeat("─", reportWidth)

	fmt.Fprintf(w, "\n%s\n", s.paint("1;35", sep))
	fmt.Fprintf(w, "%s\n", s.paint("1;35", "  ASUNTOANALYYSI"))
	fmt.Fprintf(w, "%s\n\n", s.paint("1;35", sep))

	// Kohde
	fmt.Fprintf(w, "%s\n", s.paint("1;33", "  Kohde"))
	fmt.Fprintf(w, "  %s\n", thin)
	title := a.Title
	if title == "" {
		title = a.URL
	}
	fmt.Fprintf(w, "  %s\n", truncate(title, 50))
	fmt.Fprintf(w, "  URL          : %s\n", a.URL)
	fmt.Fprintf(w, "  Osoite       : %s\n", a.Property.Address)
	fmt.Fprintf(w, "  Tyyppi       : %s\n", a.Property.BuildingType.FinnishName())
	if a.Property.Price.Valid {
		fmt.Fprintf(w, "  Hinta        : %s\n", s.paint("1;32", a.Property.Price.Decimal.StringFixed(0)+" €"))
	} else {
		fmt.Fprintf(w, "  Hinta        : ei tiedossa\n")
	}
	if a.Property.ConstructionYear != nil {
		fmt.Fprintf(w, "  Rakennusvuosi: %d\n", *a.Property.ConstructionYear)
	} else {
		fmt.Fprintf(w, "  Rakennusvuosi: ei tiedossa\n")
	}
	fmt.Fprintln(w)

	if a.Risk != nil {
		fmt.Fprintf(w, "%s\n", s.paint("1;33", "  Riskiarvio"))
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Kokonaisriski : %s\n", s.paint(riskColor(a.Risk.Overall), fmt.Sprintf("%.1f / 10", a.Risk.Overall)))
		if a.Risk.Fallback {
			fmt.Fprintf(w, "  (oletusarvio)\n")
		}
		for _, it := range a.Risk.Items {
			bar := strings.Repeat("█", int(it.Level+0.5))
			fmt.Fprintf(w, "  %-24s %-10s %4.1f (%d %%)\n", truncate(it.Area, 22), bar, it.Level, it.Share)
		}
		fmt.Fprintln(w)
	}

	if a.Content != "" {
		fmt.Fprintf(w, "%s\n", s.paint("1;33", "  Analyysi"))
		fmt.Fprintf(w, "  %s\n", thin)
		for _, line := range strings.Split(a.Content, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if a.ArchivePath != "" {
		fmt.Fprintf(w, "\n  Tallennettu: %s\n", a.ArchivePath)
	}

	fmt.Fprintf(w, "\n%s\n\n", s.paint("1;35", sep))
}

func riskColor(level float64) string {
	switch {
	case level >= 7:
		return "1;31"
	case level >= 4:
		return "1;33"
	default:
		return "1;32"
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
