package services

// AnalysisPrompt instructs the model to write the buyer-facing analysis.
const AnalysisPrompt = `Olet kokenut kiinteistöalan ja kiinteistönvälityksen ammattilainen.
Laadi ostajalle analyysi myynnissä olevasta kohteesta.

Perehdy tietoihin huolellisesti ja tee niistä päätelmiä, jotka eivät suoraan käy ilmi ilmoituksesta.
Aloita napakalla yhteenvedolla, kerro kohteen puutteet ja vahvuudet suoraan ja vältä ilmoitustekstin toistoa.
Älä kommentoi välitysliikettä tai välittäjää.

Rakenne:
**KOHDE:** osoite
Yhteenveto: hinta ja oma hinta-arviosi, sijainti, taloyhtiö ja rakennus.
1. Sijainti ja alueellinen konteksti
2. Rakennus ja taloyhtiö
3. Asunto ja varustelutaso
4. Markkina- ja ostotilanne
5. Mahdolliset huomiot tai riskitekijät
6. Kohteen hinta verrattuna vastaaviin
7. Kolme kysymystä välittäjälle

Ilmoitus voi sisältää siihen liittymätöntä mainosmateriaalia; jätä se huomiotta.
Anna vastaus markdown-muodossa.`

// PropertyPrompt asks for the four canonical property fields.
const PropertyPrompt = `Poimi kiinteistön myynti-ilmoituksesta seuraavat tiedot:
- osoite (katu, kadunnumero ja kaupunki)
- tyyppi (omakotitalo, kerrostalo, rivitalo, erillistalo, paritalo)
- hinta (velaton myyntihinta numerona)
- rakennusvuosi

Käytä avaimia "osoite", "tyyppi", "hinta" ja "rakennusvuosi". Jos tietoa ei löydy, käytä arvoa null.`

// RiskPrompt asks for the weighted risk breakdown.
const RiskPrompt = `Olet kiinteistöalan asiantuntija. Arvioi alla kuvatun kiinteistön riskit ostajalle.
Osa-alueet:
- Laitteisiin ja rakenteisiin liittyvä riski: ajanmukaisuus, kunto, korjausvelka
- Jälleenmyyntiriski: myyntipotentiaali, ostajakunnan laajuus, hintakehityksen epävarmuus
- Sijainti- ja alueriski: alueen kehittyneisyys, negatiiviset mielikuvat
- Taloyhtiöriski: koko, talous, vuokralaisten osuus, hallinto
Pisteytä jokainen osa-alue asteikolla 0-10 ja anna osuudet prosentteina niin, että ne ovat yhteensä 100.

Vastausmuoto:
{"kokonaisriskitaso": 4, "riskimittari": [{"osa_alue": "Taloyhtiöriski", "riski_taso": 3, "osuus_prosenttia": 20, "kuvaus": "..."}], "yhteenveto": "..."}`
