package services

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"scholarlens/models"
	"scholarlens/storage"
)

// GraphSnapshot is the relational state mirrored into the citation graph.
type GraphSnapshot struct {
	Papers       []models.Paper
	Authors      []models.Author
	Methods      []models.Method
	PaperAuthors []models.PaperAuthor
	PaperMethods []models.PaperMethod
	Citations    []models.Citation
}

// GraphPayload holds the UNWIND parameter lists, one entry per statement.
type GraphPayload struct {
	Papers    []map[string]any
	Authors   []map[string]any
	Methods   []map[string]any
	Authored  []map[string]any
	UsesMeth  []map[string]any
	Citations []map[string]any
}

// LoadGraphSnapshot reads everything needed for a full graph sync.
func (s *Store) LoadGraphSnapshot(ctx context.Context) (*GraphSnapshot, error) {
	db := s.DB.WithContext(ctx)
	var snap GraphSnapshot
	steps := []struct {
		what string
		dest any
	}{
		{"papers", &snap.Papers},
		{"authors", &snap.Authors},
		{"methods", &snap.Methods},
		{"paper authors", &snap.PaperAuthors},
		{"paper methods", &snap.PaperMethods},
		{"citations", &snap.Citations},
	}
	for _, st := range steps {
		if err := db.Find(st.dest).Error; err != nil {
			return nil, fmt.Errorf("load %s: %w", st.what, err)
		}
	}
	return &snap, nil
}

// BuildGraphPayload maps a snapshot onto Cypher parameters.
func BuildGraphPayload(snap *GraphSnapshot) GraphPayload {
	var p GraphPayload
	for _, paper := range snap.Papers {
		node := map[string]any{
			"id":    int64(paper.ID),
			"title": paper.Title,
		}
		if paper.DOI != nil {
			node["doi"] = *paper.DOI
		}
		if paper.ArxivID != nil {
			node["arxiv_id"] = *paper.ArxivID
		}
		if paper.PublishedDate != nil {
			node["year"] = int64(time.Time(*paper.PublishedDate).Year())
		}
		p.Papers = append(p.Papers, node)
	}
	for _, a := range snap.Authors {
		node := map[string]any{"id": int64(a.ID), "name": a.Name}
		if a.ORCID != nil {
			node["orcid"] = *a.ORCID
		}
		p.Authors = append(p.Authors, node)
	}
	for _, m := range snap.Methods {
		p.Methods = append(p.Methods, map[string]any{"id": int64(m.ID), "name": m.Name})
	}
	for _, pa := range snap.PaperAuthors {
		edge := map[string]any{"paper": int64(pa.PaperID), "author": int64(pa.AuthorID)}
		if pa.AuthorPosition != nil {
			edge["position"] = int64(*pa.AuthorPosition)
		}
		p.Authored = append(p.Authored, edge)
	}
	for _, pm := range snap.PaperMethods {
		p.UsesMeth = append(p.UsesMeth, map[string]any{
			"paper":   int64(pm.PaperID),
			"method":  int64(pm.MethodID),
			"primary": pm.IsPrimaryMethod,
		})
	}
	for _, c := range snap.Citations {
		edge := map[string]any{"from": int64(c.CitingPaperID), "to": int64(c.CitedPaperID)}
		if c.CitationIntent != nil {
			edge["intent"] = *c.CitationIntent
		}
		p.Citations = append(p.Citations, edge)
	}
	return p
}

// Rows are merged with SET += so optional keys absent from a row stay untouched.
var graphStatements = []struct {
	name   string
	cypher string
	rows   func(GraphPayload) []map[string]any
}{
	{"papers", `UNWIND $rows AS row MERGE (p:Paper {id: row.id}) SET p += row`,
		func(g GraphPayload) []map[string]any { return g.Papers }},
	{"authors", `UNWIND $rows AS row MERGE (a:Author {id: row.id}) SET a += row`,
		func(g GraphPayload) []map[string]any { return g.Authors }},
	{"methods", `UNWIND $rows AS row MERGE (m:Method {id: row.id}) SET m += row`,
		func(g GraphPayload) []map[string]any { return g.Methods }},
	{"authored", `UNWIND $rows AS row
MATCH (a:Author {id: row.author}), (p:Paper {id: row.paper})
MERGE (a)-[r:AUTHORED]->(p) SET r.position = row.position`,
		func(g GraphPayload) []map[string]any { return g.Authored }},
	{"uses_method", `UNWIND $rows AS row
MATCH (p:Paper {id: row.paper}), (m:Method {id: row.method})
MERGE (p)-[r:USES_METHOD]->(m) SET r.primary = row.primary`,
		func(g GraphPayload) []map[string]any { return g.UsesMeth }},
	{"cites", `UNWIND $rows AS row
MATCH (a:Paper {id: row.from}), (b:Paper {id: row.to})
MERGE (a)-[r:CITES]->(b) SET r.intent = row.intent`,
		func(g GraphPayload) []map[string]any { return g.Citations }},
}

// Nach dem MERGE entfernen diese Statements alles, was im Snapshot fehlt,
// z. B. Papers samt Kanten nach DeletePaper.
var graphPrunes = []struct {
	name   string
	cypher string
	keys   func(GraphPayload) []any
}{
	{"cites", `MATCH (a:Paper)-[r:CITES]->(b:Paper) WHERE NOT [a.id, b.id] IN $keys DELETE r`,
		func(g GraphPayload) []any { return keyList(g.Citations, "from", "to") }},
	{"uses_method", `MATCH (p:Paper)-[r:USES_METHOD]->(m:Method) WHERE NOT [p.id, m.id] IN $keys DELETE r`,
		func(g GraphPayload) []any { return keyList(g.UsesMeth, "paper", "method") }},
	{"authored", `MATCH (a:Author)-[r:AUTHORED]->(p:Paper) WHERE NOT [a.id, p.id] IN $keys DELETE r`,
		func(g GraphPayload) []any { return keyList(g.Authored, "author", "paper") }},
	{"papers", `MATCH (p:Paper) WHERE NOT p.id IN $keys DETACH DELETE p`,
		func(g GraphPayload) []any { return keyList(g.Papers, "id") }},
	{"authors", `MATCH (a:Author) WHERE NOT a.id IN $keys DETACH DELETE a`,
		func(g GraphPayload) []any { return keyList(g.Authors, "id") }},
	{"methods", `MATCH (m:Method) WHERE NOT m.id IN $keys DETACH DELETE m`,
		func(g GraphPayload) []any { return keyList(g.Methods, "id") }},
}

// keyList liefert pro Zeile den Wert von fields[0] oder, bei mehreren Feldern,
// das Tupel als Liste.
func keyList(rows []map[string]any, fields ...string) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		if len(fields) == 1 {
			out = append(out, r[fields[0]])
			continue
		}
		key := make([]any, len(fields))
		for i, f := range fields {
			key[i] = r[f]
		}
		out = append(out, key)
	}
	return out
}

// GraphSync spiegelt Papers, Autoren, Methoden und Zitationen nach Neo4j.
type GraphSync struct {
	Store  *Store
	Client *storage.Neo4jClient
	Logger *zap.Logger
}

func NewGraphSync(store *Store, client *storage.Neo4jClient, logger *zap.Logger) *GraphSync {
	return &GraphSync{Store: store, Client: client, Logger: logger.With(zap.String("component", "graph_sync"))}
}

// Sync writes a full snapshot and removes graph entries missing from it.
// Without a Neo4j client it does nothing.
func (g *GraphSync) Sync(ctx context.Context) error {
	if g.Client == nil {
		g.Logger.Debug("Neo4j nicht konfiguriert, Graph-Sync übersprungen")
		return nil
	}
	snap, err := g.Store.LoadGraphSnapshot(ctx)
	if err != nil {
		return err
	}
	payload := BuildGraphPayload(snap)

	session := g.Client.WriteSession(ctx)
	defer session.Close(ctx)

	write := func(cypher string, params map[string]any) error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		return err
	}

	for _, st := range graphStatements {
		rows := st.rows(payload)
		if len(rows) == 0 {
			continue
		}
		if err := write(st.cypher, map[string]any{"rows": toAnySlice(rows)}); err != nil {
			return fmt.Errorf("graph sync %s: %w", st.name, err)
		}
	}
	for _, pr := range graphPrunes {
		if err := write(pr.cypher, map[string]any{"keys": pr.keys(payload)}); err != nil {
			return fmt.Errorf("graph prune %s: %w", pr.name, err)
		}
	}
	g.Logger.Info("Graph-Sync abgeschlossen",
		zap.Int("papers", len(payload.Papers)),
		zap.Int("citations", len(payload.Citations)))
	return nil
}

func toAnySlice(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
