package services

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"scholarlens/models"
)

// ChunkOptions steuern die Zerlegung des Volltexts in Chunks.
type ChunkOptions struct {
	// Maximale Anzahl Tokens (Wörter) pro Chunk
	ChunkSize int
	// Anzahl Tokens, die in den nächsten Chunk übernommen werden
	Overlap int
}

// Chunker normalisiert Volltext und zerlegt ihn in überlappende Chunks.
// Chunks überschreiten nie eine erkannte Abschnittsgrenze.
type Chunker struct {
	logger *zap.Logger
	opts   ChunkOptions
}

func NewChunker(logger *zap.Logger, opts ChunkOptions) *Chunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 512
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		opts.Overlap = opts.ChunkSize / 10
	}
	return &Chunker{logger: logger, opts: opts}
}

var (
	ligatureReplacer = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
	)
	hyphenationRE   = regexp.MustCompile(`([\p{L}\p{N}])-\n([\p{Ll}])`)
	spaceRunRE      = regexp.MustCompile("[\t\f\v \u00A0]+")
	blankLinesRE    = regexp.MustCompile(`\n{3,}`)
	headingNumberRE = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXLC]+\.)\s+`)
)

// sectionNames maps lowercased headings to section labels.
var sectionNames = map[string]string{
	"abstract":                "abstract",
	"introduction":            "introduction",
	"background":              "background",
	"related work":            "related_work",
	"method":                  "methods",
	"methods":                 "methods",
	"methodology":             "methods",
	"materials and methods":   "methods",
	"approach":                "methods",
	"model architecture":      "methods",
	"experiments":             "experiments",
	"experimental setup":      "experiments",
	"evaluation":              "experiments",
	"results":                 "results",
	"results and discussion":  "results",
	"discussion":              "discussion",
	"conclusion":              "conclusion",
	"conclusions":             "conclusion",
	"references":              "references",
	"bibliography":            "references",
	"acknowledgments":         "acknowledgments",
	"acknowledgements":        "acknowledgments",
	"appendix":                "appendix",
	"supplementary material":  "appendix",
	"limitations":             "discussion",
	"conclusion and outlook":  "conclusion",
	"conclusions and outlook": "conclusion",
}

// Normalize ersetzt Ligaturen, normalisiert nach NFC, fügt getrennte Wörter
// zusammen und reduziert Leerraum. Offsets der Chunks beziehen sich auf dieses Ergebnis.
func (c *Chunker) Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = ligatureReplacer.Replace(s)
	s, _, _ = transform.String(norm.NFC, s)
	s = hyphenationRE.ReplaceAllString(s, "$1$2")
	s = spaceRunRE.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// sectionHeading erkennt Zeilen wie "1 Introduction", "III. RESULTS" oder "Methods:".
func sectionHeading(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || len([]rune(line)) > 60 {
		return "", false
	}
	line = headingNumberRE.ReplaceAllString(line, "")
	line = strings.TrimSuffix(strings.TrimSpace(line), ":")
	label, ok := sectionNames[strings.ToLower(strings.TrimSpace(line))]
	return label, ok
}

type token struct {
	start, end int
	section    string
}

// tokenize zerlegt normalisierten Text in Wörter mit Rune-Offsets und Abschnitt.
func tokenize(text string) []token {
	var tokens []token
	section := ""
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		if label, ok := sectionHeading(line); ok {
			section = label
		}
		for k := 0; k < len(runes); {
			if unicode.IsSpace(runes[k]) {
				k++
				continue
			}
			start := k
			for k < len(runes) && !unicode.IsSpace(runes[k]) {
				k++
			}
			tokens = append(tokens, token{start: offset + start, end: offset + k, section: section})
		}
		offset += len(runes) + 1
	}
	return tokens
}

// Split normalisiert text und liefert Chunks mit fortlaufendem ChunkIndex.
func (c *Chunker) Split(text string) []models.TextChunk {
	normalized := c.Normalize(text)
	runes := []rune(normalized)
	tokens := tokenize(normalized)

	var chunks []models.TextChunk
	emit := func(ts []token) {
		start, end, n := ts[0].start, ts[len(ts)-1].end, len(ts)
		chunk := models.TextChunk{
			ChunkIndex: len(chunks),
			ChunkText:  string(runes[start:end]),
			StartChar:  &start,
			EndChar:    &end,
			NumTokens:  &n,
			Section:    strPtr(ts[0].section),
		}
		chunks = append(chunks, chunk)
	}

	for i := 0; i < len(tokens); {
		j := i
		for j < len(tokens) && tokens[j].section == tokens[i].section {
			j++
		}
		for start := i; start < j; {
			end := start + c.opts.ChunkSize
			if end > j {
				end = j
			}
			emit(tokens[start:end])
			if end == j {
				break
			}
			start = end - c.opts.Overlap
		}
		i = j
	}

	if c.logger != nil {
		c.logger.Debug("text chunked", zap.Int("tokens", len(tokens)), zap.Int("chunks", len(chunks)))
	}
	return chunks
}
