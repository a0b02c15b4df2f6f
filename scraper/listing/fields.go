package listing

import (
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// fieldSpec names a field and the labels it appears under, Finnish first.
type fieldSpec struct {
	key    string
	labels []string
}

var basicFields = []fieldSpec{
	{"district", []string{"Kaupunginosa", "District", "Neighborhood"}},
	{"property_id", []string{"Kohdenumero", "Property ID", "Reference number"}},
	{"floor", []string{"Kerros", "Floor"}},
	{"living_area", []string{"Asuinpinta-ala", "Living area", "Size"}},
	{"total_area", []string{"Kokonaispinta-ala", "Total area"}},
	{"room_configuration", []string{"Huoneiston kokoonpano", "Room configuration"}},
	{"rooms", []string{"Huoneita", "Number of rooms", "Rooms"}},
	{"condition", []string{"Kunto", "Condition"}},
	{"availability", []string{"Lisätietoa vapautumisesta", "Vapautuminen", "Availability", "Available"}},
	{"property_type", []string{"Asumistyyppi", "Property type", "Type"}},
	{"building_type", []string{"Rakennuksen tyyppi", "Building type"}},
}

var priceFields = []fieldSpec{
	{"asking_price", []string{"Myyntihinta", "Hinta", "Asking price", "Price"}},
	{"debt_free_price", []string{"Velaton hinta", "Debt-free price", "Total price"}},
	{"price_per_sqm", []string{"Neliöhinta", "Price per m²", "Price per square meter"}},
	{"debt_portion", []string{"Velkaosuus", "Debt portion"}},
	{"maintenance_fee", []string{"Hoitovastike", "Maintenance fee"}},
	{"capital_charge", []string{"Pääomavastike", "Capital charge"}},
	{"renovation_charge", []string{"Korjausvastike", "Renovation charge"}},
	{"total_monthly_fee", []string{"Yhtiövastike yhteensä", "Yhtiövastike", "Total monthly fee"}},
	{"water_fee", []string{"Vesimaksun lisätiedot", "Vesimaksu", "Water fee"}},
	{"other_costs", []string{"Muut kustannukset", "Other costs"}},
}

var featureFields = []fieldSpec{
	{"kitchen", []string{"Keittiön varusteet", "Kitchen equipment"}},
	{"balcony", []string{"Parveke", "Balcony"}},
	{"balcony_details", []string{"Parvekkeen lisätiedot", "Balcony details"}},
	{"bathroom", []string{"Kylpyhuoneen varusteet", "Bathroom equipment"}},
	{"storage", []string{"Säilytystilat", "Storage"}},
	{"sauna", []string{"Asunnossa sauna", "Sauna"}},
	{"sauna_details", []string{"Saunan lisätiedot", "Sauna details"}},
	{"kitchen_floor", []string{"Keittiön lattia"}},
	{"kitchen_wall", []string{"Keittiön seinä", "Keittiön seinät"}},
	{"living_room_floor", []string{"Olohuoneen lattia"}},
	{"living_room_wall", []string{"Olohuoneen seinät", "Olohuoneen seinä"}},
	{"bedroom_floor", []string{"Makuuhuoneen lattia"}},
	{"bedroom_wall", []string{"Makuuhuoneen seinät", "Makuuhuoneen seinä"}},
	{"bathroom_floor", []string{"Kylpyhuoneen lattia"}},
	{"bathroom_wall", []string{"Kylpyhuoneen seinät", "Kylpyhuoneen seinä"}},
}

var buildingFields = []fieldSpec{
	{"name", []string{"Taloyhtiön nimi", "Housing company"}},
	{"type", []string{"Rakennuksen tyyppi", "Building type"}},
	{"construction_year", []string{"Rakennusvuosi", "Year of construction", "Year built"}},
	{"use_year", []string{"Rakennuksen käyttöönottovuosi", "Käyttöönottovuosi"}},
	{"apartments", []string{"Huoneistojen lukumäärä", "Number of apartments"}},
	{"floors", []string{"Kerroksia", "Floors in building"}},
	{"elevator", []string{"Hissi", "Elevator"}},
	{"material", []string{"Rakennusmateriaali", "Building material"}},
	{"roof_material", []string{"Kattomateriaali", "Roof material"}},
	{"roof_type", []string{"Kattotyyppi", "Roof type"}},
	{"energy_class", []string{"Energialuokka", "Energy class"}},
	{"ventilation", []string{"Ilmastointijärjestelmä", "Ilmanvaihto", "Ventilation"}},
	{"heating", []string{"Lämmitys", "Lämmitysjärjestelmä", "Heating"}},
	{"antenna", []string{"Kiinteistön antennijärjestelmä", "Antennijärjestelmä"}},
}

var landFields = []fieldSpec{
	{"plot_size", []string{"Tontin pinta-ala", "Tontin koko", "Plot size"}},
	{"plot_ownership", []string{"Tontin omistus", "Plot ownership"}},
	{"zoning", []string{"Kaavoitustiedot", "Zoning"}},
	{"zoning_status", []string{"Kaavatilanne", "Zoning status"}},
}

var locationFields = []fieldSpec{
	{"transportation", []string{"Liikenneyhteydet", "Transportation"}},
	{"services", []string{"Palvelut", "Services"}},
	{"additional_info", []string{"Lisätietoa alueesta", "Alueen lisätiedot"}},
}

var (
	priceRegexp        = regexp.MustCompile(`(\d{1,3}(?:[\s\x{00a0}\x{202f}]\d{3})+|\d{4,})(?:,\d{1,2})?\s*€`)
	pricePerSqmRegexp  = regexp.MustCompile(`(\d{1,3}(?:[\s\x{00a0}\x{202f}]\d{3})*(?:,\d{1,2})?)\s*€\s*/\s*m²`)
	buildYearRegexp    = regexp.MustCompile(`(?i)Rakennusvuosi:?\s*(\d{4})`)
	areaRegexp         = regexp.MustCompile(`(\d+(?:[,.]\d+)?)\s*m²`)
	roomConfigRegexp   = regexp.MustCompile(`(?i)\b(\d+\s?h(?:\s*[,+]\s*(?:[a-zäöå]+\.?|\d+\s?mh))+)`)
	propertyIDRegexp   = regexp.MustCompile(`(?i)Kohdenumero:?\s*(\d+)`)
	urlIDRegexp        = regexp.MustCompile(`/(\d+)/?$`)
	renovationYearRe   = regexp.MustCompile(`\b((?:19|20)\d{2})\s*[:\-–]?\s+`)
	agentRegexp        = regexp.MustCompile(`(?:Tiedustelut|Esittelyt|Välittäjä)(?:\s+ja\s+esittelyt)?:?\s*([A-ZÄÖÅ][a-zäöå]+(?:[ -][A-ZÄÖÅ][a-zäöå]+)+)`)
	phoneRegexp        = regexp.MustCompile(`(?:\+358|\b0)\s?\d{1,3}[\s-]?\d{3,4}[\s-]?\d{2,4}\b`)
	emailRegexp        = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	viewingRegexp      = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.(?:\d{4})?\s*(?:klo\s*)?\d{1,2}[.:]\d{2}(?:\s*[-–]\s*\d{1,2}[.:]\d{2})?`)
	titleAddressRegexp = regexp.MustCompile(`[A-ZÄÖÅ][\wäöåÄÖÅ.-]*(?:\s[\wäöåÄÖÅ.-]+)*\s\d+[A-Za-z]?(?:\s[A-Za-z]\s?\d*)?,\s*(?:\d{5}\s)?[A-ZÄÖÅ][\wäöåÄÖÅ-]+`)
)

var knownAgencies = []string{
	"RE/MAX", "Kiinteistömaailma", "OP Koti", "Huoneistokeskus", "SKV", "Habita",
	"Aktia Kiinteistönvälitys", "Sp-Koti", "Neliöt", "Bo LKV",
}

var contactMarkers = []string{"puh", "tiedustelut", "välittäjä", "@", "esittelyt", "yhteydenotot"}

func fillFields(doc *goquery.Document, specs []fieldSpec) Fields {
	out := make(Fields, len(specs))
	for _, spec := range specs {
		if v := FindAny(doc, spec.labels); v != "" {
			out[spec.key] = v
		}
	}
	return out
}

func (s *Scraper) extractBasic(d *Data) {
	d.Basic = fillFields(s.doc, basicFields)
	text := s.pageText()

	if d.Basic.Get("living_area") == "" {
		if m := areaRegexp.FindStringSubmatch(text); m != nil {
			d.Basic["living_area"] = m[1] + " m²"
		}
	}
	if d.Basic.Get("room_configuration") == "" {
		if m := roomConfigRegexp.FindStringSubmatch(text); m != nil {
			d.Basic["room_configuration"] = utils.CleanText(m[1])
		}
	}
	if d.Basic.Get("rooms") == "" {
		if v := utils.CleanText(s.doc.Find(`[itemprop="numberOfRooms"]`).First().Text()); v != "" {
			d.Basic["rooms"] = v
		}
	}
	if d.Basic.Get("property_id") == "" {
		if m := propertyIDRegexp.FindStringSubmatch(text); m != nil {
			d.Basic["property_id"] = m[1]
		} else if m := urlIDRegexp.FindStringSubmatch(s.path()); m != nil {
			d.Basic["property_id"] = m[1]
		}
	}
	d.Address = s.findAddress()
}

// findAddress walks the address strategies: microdata, labels, then the page
// title and finally the URL path.
func (s *Scraper) findAddress() string {
	if v := utils.CleanText(s.doc.Find(`[itemprop="address"]`).First().Text()); v != "" {
		return v
	}
	if v := FindAny(s.doc, []string{"Sijainti", "Osoite", "Address", "Location"}); v != "" {
		return v
	}
	for _, title := range []string{s.doc.Find("h1").First().Text(), s.doc.Find("title").First().Text()} {
		if m := titleAddressRegexp.FindString(utils.CleanText(title)); m != "" {
			return m
		}
	}
	return addressFromURL(s.url)
}

// addressFromURL derives a locality from paths like /myytavat-asunnot/helsinki/123.
func addressFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	place := strings.ReplaceAll(parts[len(parts)-2], "-", " ")
	if place == "" || urlIDRegexp.MatchString("/"+place) {
		return ""
	}
	return cases.Title(language.Finnish).String(place)
}

func (s *Scraper) extractPrice(d *Data) {
	d.Price = fillFields(s.doc, priceFields)

	if d.Price.Get("asking_price") == "" {
		s.doc.Find(`h1, h2, h3, [class*="price"], [class*="hinta"]`).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := utils.CleanText(el.Text())
			if m := priceRegexp.FindString(text); m != "" && !pricePerSqmRegexp.MatchString(text) {
				d.Price["asking_price"] = utils.CleanText(m)
				return false
			}
			return true
		})
	}
	if d.Price.Get("price_per_sqm") == "" {
		if m := pricePerSqmRegexp.FindStringSubmatch(s.pageText()); m != nil {
			d.Price["price_per_sqm"] = utils.CleanText(m[1]) + " €/m²"
		}
	}
}

func (s *Scraper) extractFeatures(d *Data) {
	d.Features = fillFields(s.doc, featureFields)
	d.Features.combine("balcony", "balcony_details")
	d.Features.combine("sauna", "sauna_details")
}

func (s *Scraper) extractBuilding(d *Data) {
	d.Building = fillFields(s.doc, buildingFields)
	if d.Building.Get("construction_year") == "" {
		if m := buildYearRegexp.FindStringSubmatch(s.pageText()); m != nil {
			d.Building["construction_year"] = m[1]
		}
	}
}

func (s *Scraper) extractRenovations(d *Data) {
	d.UpcomingRenovations = parseRenovations(s.sectionText([]string{"Tulevat remontit", "Tulevat korjaukset", "Upcoming renovations"}))
	d.CompletedRenovations = parseRenovations(s.sectionText([]string{"Tehdyt remontit", "Tehdyt korjaukset", "Completed renovations"}))
}

// sectionText returns the text following the first heading-like element that
// carries one of the titles.
func (s *Scraper) sectionText(titles []string) string {
	if v := FindAny(s.doc, titles); v != "" {
		return v
	}
	var found string
	s.doc.Find("h2, h3, h4, strong, b").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.ToLower(utils.CleanText(el.Text()))
		for _, t := range titles {
			if strings.Contains(text, strings.ToLower(t)) {
				found = utils.CleanText(el.NextAll().First().Text())
				return found == ""
			}
		}
		return true
	})
	return found
}

// parseRenovations splits "2019: Putkiremontti 2021 Julkisivu" into dated
// entries. Text without any year becomes a single undated entry.
func parseRenovations(text string) []Renovation {
	text = utils.CleanText(text)
	if text == "" {
		return nil
	}
	idx := renovationYearRe.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return []Renovation{{Description: text}}
	}

	var out []Renovation
	if lead := strings.Trim(text[:idx[0][0]], " ,;."); lead != "" {
		out = append(out, Renovation{Description: lead})
	}
	for i, m := range idx {
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		desc := strings.Trim(text[m[1]:end], " ,;")
		if desc == "" {
			continue
		}
		out = append(out, Renovation{Year: text[m[2]:m[3]], Description: desc})
	}
	return out
}

func (s *Scraper) extractLand(d *Data) {
	d.Land = fillFields(s.doc, landFields)
}

func (s *Scraper) extractLocation(d *Data) {
	d.Location = fillFields(s.doc, locationFields)
}

func (s *Scraper) extractContact(d *Data) {
	d.Contact = make(Fields)
	text := s.pageText()

	if m := agentRegexp.FindStringSubmatch(text); m != nil {
		d.Contact["agent"] = utils.CleanText(m[1])
	}
	if href, ok := s.doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		d.Contact["phone"] = strings.TrimPrefix(href, "tel:")
	} else if m := phoneRegexp.FindString(text); m != "" {
		d.Contact["phone"] = utils.CleanText(m)
	}
	if href, ok := s.doc.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		d.Contact["email"] = strings.TrimPrefix(strings.SplitN(href, "?", 2)[0], "mailto:")
	} else if m := emailRegexp.FindString(text); m != "" {
		d.Contact["email"] = m
	}
	for _, agency := range knownAgencies {
		if strings.Contains(text, agency) {
			d.Contact["agency"] = agency
			break
		}
	}

	d.ViewingTimes = s.viewingTimes()
}

func (s *Scraper) viewingTimes() []string {
	var times []string
	s.doc.Find("h2, h3, h4, strong, div, span, p").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(ownText(el)), "seuraavat esittelyt") {
			return true
		}
		list := el.NextAllFiltered("ul, ol").First()
		if list.Length() == 0 {
			list = el.Parent().Find("ul, ol").First()
		}
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			if t := utils.CleanText(li.Text()); t != "" {
				times = append(times, t)
			}
		})
		return len(times) == 0
	})
	if len(times) == 0 {
		if idx := strings.Index(strings.ToLower(s.pageText()), "esittely"); idx >= 0 {
			times = viewingRegexp.FindAllString(s.pageText()[idx:], 5)
		}
	}
	return times
}

func (s *Scraper) extractDescription(d *Data) {
	var paras []string
	s.doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := utils.CleanText(p.Text())
		if len([]rune(text)) < 30 || looksLikeContact(text) {
			return
		}
		paras = append(paras, text)
	})
	if len(paras) > 0 {
		d.Description = strings.Join(paras, "\n\n")
		return
	}

	body := s.doc.Find(`main, article, [class*="description"], [class*="kuvaus"]`).First()
	if body.Length() == 0 {
		return
	}
	html, err := body.Html()
	if err != nil {
		return
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		s.logger.Debug("[scraper] Description markdown conversion failed: %v", err)
		d.Description = utils.CleanText(body.Text())
		return
	}
	d.Description = strings.TrimSpace(md)
}

func looksLikeContact(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range contactMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return viewingRegexp.MatchString(text)
}
