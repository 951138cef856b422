package services

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	doiPrefixRE   = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi:\s*)`)
	arxivPrefixRE = regexp.MustCompile(`(?i)^(?:https?://arxiv\.org/(?:abs|pdf)/|arxiv:\s*)`)
)

func trimSpace(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}

// NormalizeDOI lowercases a DOI and strips resolver prefixes.
func NormalizeDOI(doi string) string {
	doi = trimSpace(doi)
	doi = doiPrefixRE.ReplaceAllString(doi, "")
	return strings.ToLower(trimSpace(doi))
}

// NormalizePubmedID keeps only the digits of a PMID.
func NormalizePubmedID(pmid string) string {
	var b strings.Builder
	for _, r := range pmid {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeArxivID strips the abs/pdf URL or "arXiv:" prefix and a trailing ".pdf".
func NormalizeArxivID(id string) string {
	id = trimSpace(id)
	id = arxivPrefixRE.ReplaceAllString(id, "")
	return strings.TrimSuffix(id, ".pdf")
}

// externalIDColumn maps an identifier kind to its column and normaliser.
func externalIDColumn(kind string) (string, func(string) string, bool) {
	switch strings.ToLower(kind) {
	case "arxiv":
		return "arxiv_id", NormalizeArxivID, true
	case "pubmed", "pmid":
		return "pubmed_id", NormalizePubmedID, true
	case "doi":
		return "doi", NormalizeDOI, true
	}
	return "", nil, false
}

func normalizeIDPtr(v *string, norm func(string) string) *string {
	if v == nil {
		return nil
	}
	return strPtr(norm(*v))
}
