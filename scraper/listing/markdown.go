package listing

import (
	"strings"
)

// line is one "- **Label:** value" entry; empty values are dropped.
type line struct {
	label string
	value string
}

// FormatMarkdown renders extracted data. It is a pure function of d: the same
// input always yields byte-identical output.
//
// A section whose fields were all missing is left out entirely, while paired
// values inside a populated section (floor/wall materials, roof) show "N/A"
// for the missing half. Stored analyses depend on this layout.
func FormatMarkdown(d *Data) string {
	var b strings.Builder

	title := d.Title
	if title == "" {
		title = "Asuntoilmoitus"
	}
	b.WriteString("# " + title + "\n\n")

	writeSection(&b, "Perustiedot", []line{
		{"Osoite", d.Address},
		{"Alue", d.Basic.Get("district")},
		{"Rakennuksen tyyppi", d.Basic.Get("building_type")},
		{"Asumistyyppi", d.Basic.Get("property_type")},
		{"Asuinpinta-ala", d.Basic.Get("living_area")},
		{"Kokonaispinta-ala", d.Basic.Get("total_area")},
		{"Huoneiston kokoonpano", d.Basic.Get("room_configuration")},
		{"Huoneita", d.Basic.Get("rooms")},
		{"Kerros", d.Basic.Get("floor")},
		{"Kunto", d.Basic.Get("condition")},
		{"Rakennusvuosi", d.Building.Get("construction_year")},
		{"Vapautuu", d.Basic.Get("availability")},
		{"Kohdenumero", d.Basic.Get("property_id")},
	}, "")

	monthly := subList([]line{
		{"Hoitovastike", d.Price.Get("maintenance_fee")},
		{"Pääomavastike", d.Price.Get("capital_charge")},
		{"Korjausvastike", d.Price.Get("renovation_charge")},
		{"Yhtiövastike yhteensä", d.Price.Get("total_monthly_fee")},
		{"Vesimaksu", d.Price.Get("water_fee")},
	})
	writeSection(&b, "Hinta", []line{
		{"Myyntihinta", d.Price.Get("asking_price")},
		{"Velaton hinta", d.Price.Get("debt_free_price")},
		{"Velkaosuus", d.Price.Get("debt_portion")},
		{"Neliöhinta", d.Price.Get("price_per_sqm")},
		{"Kuukausikustannukset", monthly},
		{"Muut kustannukset", d.Price.Get("other_costs")},
	}, "")

	materials := subList([]line{
		{"Keittiö", pair("Lattia", d.Features.Get("kitchen_floor"), "Seinät", d.Features.Get("kitchen_wall"))},
		{"Olohuone", pair("Lattia", d.Features.Get("living_room_floor"), "Seinät", d.Features.Get("living_room_wall"))},
		{"Makuuhuone", pair("Lattia", d.Features.Get("bedroom_floor"), "Seinät", d.Features.Get("bedroom_wall"))},
		{"Kylpyhuone", pair("Lattia", d.Features.Get("bathroom_floor"), "Seinät", d.Features.Get("bathroom_wall"))},
	})
	writeSection(&b, "Asunnon ominaisuudet", []line{
		{"Keittiön varusteet", d.Features.Get("kitchen")},
		{"Kylpyhuoneen varusteet", d.Features.Get("bathroom")},
		{"Sauna", d.Features.Get("sauna")},
		{"Parveke", d.Features.Get("balcony")},
		{"Säilytystilat", d.Features.Get("storage")},
		{"Materiaalit", materials},
	}, "")

	roof := ""
	if d.Building.Get("roof_type") != "" || d.Building.Get("roof_material") != "" {
		roof = orNA(d.Building.Get("roof_type")) + ", " + orNA(d.Building.Get("roof_material"))
	}
	writeSection(&b, "Talon tiedot", []line{
		{"Taloyhtiö", d.Building.Get("name")},
		{"Rakennuksen tyyppi", d.Building.Get("type")},
		{"Rakennusvuosi", d.Building.Get("construction_year")},
		{"Käyttöönottovuosi", d.Building.Get("use_year")},
		{"Huoneistoja", d.Building.Get("apartments")},
		{"Kerroksia", d.Building.Get("floors")},
		{"Hissi", d.Building.Get("elevator")},
		{"Rakennusmateriaali", d.Building.Get("material")},
		{"Kattotyyppi ja -materiaali", roof},
		{"Energialuokka", d.Building.Get("energy_class")},
		{"Lämmitys", d.Building.Get("heating")},
		{"Ilmanvaihto", d.Building.Get("ventilation")},
		{"Antennijärjestelmä", d.Building.Get("antenna")},
	}, "")

	if len(d.UpcomingRenovations)+len(d.CompletedRenovations) > 0 {
		b.WriteString("## Remontit\n")
		writeRenovations(&b, "Tulevat remontit", d.UpcomingRenovations)
		writeRenovations(&b, "Tehdyt remontit", d.CompletedRenovations)
		b.WriteString("\n")
	}

	writeSection(&b, "Tontin tiedot", []line{
		{"Tontin pinta-ala", d.Land.Get("plot_size")},
		{"Tontin omistus", d.Land.Get("plot_ownership")},
		{"Kaavoitustiedot", d.Land.Get("zoning")},
		{"Kaavatilanne", d.Land.Get("zoning_status")},
	}, "")

	writeSection(&b, "Aluetiedot", []line{
		{"Liikenneyhteydet", d.Location.Get("transportation")},
		{"Palvelut", d.Location.Get("services")},
		{"Lisätietoa alueesta", d.Location.Get("additional_info")},
	}, "")

	var viewings []line
	for _, v := range d.ViewingTimes {
		viewings = append(viewings, line{"", v})
	}
	writeSection(&b, "Yhteystiedot", []line{
		{"Välittäjä", d.Contact.Get("agent")},
		{"Välitysliike", d.Contact.Get("agency")},
		{"Puhelin", d.Contact.Get("phone")},
		{"Sähköposti", d.Contact.Get("email")},
		{"Seuraavat esittelyt", subList(viewings)},
	}, "")

	writeSection(&b, "Asunnon kuvaus", nil, d.Description)

	b.WriteString("---\n")
	b.WriteString("*Data extracted from " + d.URL + " on " + d.ExtractedAt.Format("2006-01-02 15:04:05") + "*\n")
	return b.String()
}

// writeSection writes a "##" section when at least one line or the free-form
// body is non-empty.
func writeSection(b *strings.Builder, heading string, lines []line, body string) {
	var content strings.Builder
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		if strings.HasPrefix(l.value, "\n") {
			content.WriteString("- **" + l.label + ":**" + l.value)
			continue
		}
		content.WriteString("- **" + l.label + ":** " + l.value + "\n")
	}
	if body = strings.TrimSpace(body); body != "" {
		content.WriteString(body + "\n")
	}
	if content.Len() == 0 {
		return
	}
	b.WriteString("## " + heading + "\n")
	b.WriteString(content.String())
	b.WriteString("\n")
}

// subList renders nested "  - Label: value" lines, or "" when every value is empty.
func subList(lines []line) string {
	var b strings.Builder
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		if l.label == "" {
			b.WriteString("\n  - " + l.value)
		} else {
			b.WriteString("\n  - " + l.label + ": " + l.value)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + "\n"
}

// pair renders two related values, substituting N/A for a missing half. Both
// missing yields "".
func pair(labelA, a, labelB, b string) string {
	if a == "" && b == "" {
		return ""
	}
	return labelA + ": " + orNA(a) + ", " + labelB + ": " + orNA(b)
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func writeRenovations(b *strings.Builder, heading string, items []Renovation) {
	if len(items) == 0 {
		return
	}
	b.WriteString("### " + heading + "\n")
	for _, r := range items {
		if r.Year != "" {
			b.WriteString("- **" + r.Year + ":** " + r.Description + "\n")
		} else {
			b.WriteString("- " + r.Description + "\n")
		}
	}
}
