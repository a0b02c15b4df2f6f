package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	page, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/myytavat-asunnot/helsinki/22964577" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, utils.BrowserUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}))
}

func TestScraper_ExtractData(t *testing.T) {
	ts := newFixtureServer(t)
	defer ts.Close()

	s := New(ts.URL+"/myytavat-asunnot/helsinki/22964577", ts.Client(), nil, utils.NewNopLogger())
	require.NoError(t, s.Fetch(context.Background()))

	d := s.ExtractData()
	require.NotNil(t, d)

	assert.Equal(t, "Kauppakatu 3 B 12, 00100 Helsinki", d.Title)
	assert.Equal(t, "Kauppakatu 3 B 12, 00100 Helsinki", d.Address)
	assert.Equal(t, "Kamppi", d.Basic.Get("district"))
	assert.Equal(t, "54,5 m²", d.Basic.Get("living_area"))
	assert.Equal(t, "2h, k, kph, parv.", d.Basic.Get("room_configuration"))
	assert.Equal(t, "3/5", d.Basic.Get("floor"))
	assert.Equal(t, "22964577", d.Basic.Get("property_id"))

	assert.Equal(t, "189 000 €", d.Price.Get("asking_price"))
	assert.Equal(t, "215 000 €", d.Price.Get("debt_free_price"))
	assert.Equal(t, "245 € / kk", d.Price.Get("maintenance_fee"))

	assert.Equal(t, "Laatta", d.Features.Get("kitchen_floor"))
	assert.Equal(t, "1962", d.Building.Get("construction_year"))
	assert.Equal(t, "Harjakatto", d.Building.Get("roof_type"))
	assert.Equal(t, "D (2018)", d.Building.Get("energy_class"))
	assert.Equal(t, "Kaukolämpö", d.Building.Get("heating"))
	assert.Equal(t, "Oma", d.Land.Get("plot_ownership"))

	assert.Equal(t, []Renovation{
		{Year: "2015", Description: "Putkiremontti"},
		{Year: "2019", Description: "Julkisivun maalaus"},
	}, d.CompletedRenovations)
	assert.Empty(t, d.UpcomingRenovations)

	assert.Equal(t, "Maija Meikäläinen", d.Contact.Get("agent"))
	assert.Equal(t, "040 123 4567", d.Contact.Get("phone"))
	assert.Equal(t, "maija@example.fi", d.Contact.Get("email"))
	assert.Equal(t, "Kiinteistömaailma", d.Contact.Get("agency"))
	assert.Equal(t, []string{"12.5.2024 klo 14:00-14:30"}, d.ViewingTimes)

	assert.Equal(t, "Valoisa kaksio remontoidussa taloyhtiössä aivan keskustan palveluiden äärellä.", d.Description)
}

func TestScraper_Run(t *testing.T) {
	ts := newFixtureServer(t)
	defer ts.Close()

	s := New(ts.URL+"/myytavat-asunnot/helsinki/22964577", ts.Client(), utils.NewHostLimiter(0, 1), utils.NewNopLogger())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	md, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# Kauppakatu 3 B 12, 00100 Helsinki\n\n## Perustiedot\n"))
	assert.Contains(t, md, "- **Myyntihinta:** 189 000 €\n")
	assert.Contains(t, md, "- **Kuukausikustannukset:**\n  - Hoitovastike: 245 € / kk\n")
	assert.Contains(t, md, "  - Keittiö: Lattia: Laatta, Seinät: N/A\n")
	assert.Contains(t, md, "- **Kattotyyppi ja -materiaali:** Harjakatto, N/A\n")
	assert.Contains(t, md, "### Tehdyt remontit\n- **2015:** Putkiremontti\n")
	assert.NotContains(t, md, "## Aluetiedot")
	assert.NotContains(t, md, "Tulevat remontit")
	assert.True(t, strings.HasSuffix(md, "on 2024-05-01 12:00:00*\n"))
}

func TestScraper_FetchFailure(t *testing.T) {
	ts := newFixtureServer(t)
	defer ts.Close()

	s := New(ts.URL+"/missing", ts.Client(), nil, utils.NewNopLogger())
	err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.ExtractData())

	_, err = s.Run(context.Background())
	assert.Error(t, err)
}

func TestScraper_ExtractDataOnSparsePage(t *testing.T) {
	s := New("https://asunnot.oikotie.fi/myytavat-asunnot/tampere/1234", nil, nil, utils.NewNopLogger())
	require.NoError(t, s.Load(strings.NewReader(`<html><body><p>Tyhjä</p></body></html>`)))

	d := s.ExtractData()
	require.NotNil(t, d)
	assert.Equal(t, "Tampere", d.Address)
	assert.Equal(t, "1234", d.Basic.Get("property_id"))

	md := FormatMarkdown(d)
	assert.True(t, strings.HasPrefix(md, "# Asuntoilmoitus\n\n## Perustiedot\n- **Osoite:** Tampere\n"))
	assert.NotContains(t, md, "## Hinta")
	assert.NotContains(t, md, "N/A")
}
