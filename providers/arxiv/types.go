// Package arxiv liest die Atom-Schnittstelle der arXiv Export-API.
package arxiv

// Feed ist das Atom-Dokument der arXiv-Query-API.
type Feed struct {
	TotalResults int     `xml:"totalResults"`
	Entries      []Entry `xml:"entry"`
}

// Entry ist ein einzelnes Preprint.
type Entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	DOI             string `xml:"doi"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"link"`
}
