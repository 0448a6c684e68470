// Package retrieval provides the knowledge-base retriever used to enrich
// agent turns with contextual passages. The in-memory index here performs
// keyword overlap scoring; swap it for a vector index behind the same
// interface for semantic retrieval.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/angiesanchezm/genai-music/core"
)

// Document is one indexed knowledge-base entry.
type Document struct {
	Text   string
	Source string
}

// InMemoryIndex is a process-local keyword index. Scoring is the fraction of
// query terms present in the document, so results are deterministic for a
// fixed corpus. Safe for concurrent use.
type InMemoryIndex struct {
	mu   sync.RWMutex
	docs []Document
}

// NewInMemoryIndex creates an index over the given documents.
func NewInMemoryIndex(docs ...Document) *InMemoryIndex {
	return &InMemoryIndex{docs: docs}
}

// Add appends documents to the index.
func (ix *InMemoryIndex) Add(docs ...Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = append(ix.docs, docs...)
}

// Retrieve returns up to topK passages ranked by query-term overlap.
// An empty result is valid; zero-score documents are never returned.
func (ix *InMemoryIndex) Retrieve(ctx context.Context, query string, topK int) ([]core.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := tokenize(query)
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scored := make([]core.Passage, 0, len(ix.docs))
	for _, doc := range ix.docs {
		score := overlap(terms, tokenize(doc.Text))
		if score <= 0 {
			continue
		}
		scored = append(scored, core.Passage{Text: doc.Text, Source: doc.Source, Relevance: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Relevance > scored[j].Relevance })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// overlap is the fraction of query terms found in the document term set.
func overlap(query, doc []string) float64 {
	set := make(map[string]struct{}, len(doc))
	for _, t := range doc {
		set[t] = struct{}{}
	}
	hits := 0
	for _, t := range query {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 { // skip stopword-sized tokens
			out = append(out, f)
		}
	}
	return out
}

var _ core.Retriever = (*InMemoryIndex)(nil)

// MusicDistributionCorpus returns a starter knowledge base covering the
// distribution service's most common questions.
func MusicDistributionCorpus() []Document {
	return []Document{
		{Text: "La distribución a Spotify, Apple Music, YouTube Music y Amazon Music tarda entre 2 y 5 días hábiles desde la aprobación del lanzamiento.", Source: "kb/distribution"},
		{Text: "El plan básico cuesta $19.99 al mes e incluye distribución ilimitada a más de 150 plataformas. El plan profesional cuesta $49.99 e incluye analytics avanzados.", Source: "kb/pricing"},
		{Text: "Las regalías se liquidan mensualmente, con un retraso de 2 meses respecto al periodo de reproducción reportado por las plataformas.", Source: "kb/royalties"},
		{Text: "Los pagos de regalías se procesan los días 15 de cada mes por transferencia bancaria o PayPal, con un mínimo de $10.", Source: "kb/payments"},
		{Text: "Para corregir metadata de un lanzamiento ya publicado (título, créditos, portada) se requiere un ticket de soporte; el cambio tarda 3 a 7 días.", Source: "kb/support"},
		{Text: "El plan anual tiene un 10% de descuento sobre el precio mensual. Artistas con más de 10 lanzamientos reciben descuentos adicionales.", Source: "kb/pricing"},
	}
}
