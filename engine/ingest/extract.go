// Package ingest turns the raw Légifrance LEGI dump into the validated
// article dataset consumed by the indexing pipeline. It parses one XML file
// per article, keeps only articles currently in force, and serializes the
// collected records as a single JSON artifact.
package ingest

import (
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/legiroute/legiroute/engine/domain"
)

// statusInForce is the only META_ARTICLE/ETAT value accepted for indexing.
// Repealed (ABROGE) and superseded articles never enter the dataset.
const statusInForce = "VIGUEUR"

// contextSeparator joins ancestor section titles into the context path.
const contextSeparator = " > "

// ExtractFile parses a single LEGI XML file into a validated Article.
// The boolean is false when the article is rejected: not in VIGUEUR status,
// malformed XML, or failing content validation. Extraction never returns an
// error to the caller; every failure degrades to a logged rejection.
func ExtractFile(path string, log *slog.Logger) (domain.Article, bool) {
	f, err := os.Open(path)
	if err != nil {
		log.Error("ingest: open failed", "file", path, "error", err)
		return domain.Article{}, false
	}
	defer f.Close()
	return Extract(f, path, log)
}

// Extract parses one LEGI XML document from r. The name is used only for
// diagnostics.
func Extract(r io.Reader, name string, log *slog.Logger) (domain.Article, bool) {
	if log == nil {
		log = slog.Default()
	}

	doc, err := scan(r)
	if err != nil {
		log.Error("ingest: xml syntax error", "file", name, "error", err)
		return domain.Article{}, false
	}
	if doc.rejected {
		// Not in force. The scan bails out before body extraction.
		return domain.Article{}, false
	}

	content := cleanText(doc.body)
	if content == "" {
		log.Warn("ingest: no BLOC_TEXTUEL text, attempting CONTENU fallback", "file", name)
		content = cleanText(doc.fallback)
	}

	context := joinContext(doc.contextParts)

	article, err := domain.NewArticle(doc.id, doc.num, content, context)
	if err != nil {
		log.Warn("ingest: article rejected by validation", "file", name, "error", err)
		return domain.Article{}, false
	}
	return article, true
}

// legiDoc accumulates the fragments pulled from one document.
type legiDoc struct {
	rejected     bool
	inForce      bool
	id           string
	num          string
	body         []string
	fallback     []string
	contextParts []string
}

// scan walks the token stream once, tracking the open-element stack.
// It returns early with rejected=true as soon as ETAT closes with a value
// other than VIGUEUR, so rejected articles cost no body extraction. A
// document that never carries a META_ARTICLE/ETAT element is rejected too:
// in-force status must be stated, never assumed.
func scan(r io.Reader) (legiDoc, error) {
	dec := xml.NewDecoder(r)
	var doc legiDoc
	var stack []string
	var etat, id, num strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return doc, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				closing := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if closing == "ETAT" && contains(stack, "META_ARTICLE") {
					if strings.TrimSpace(etat.String()) != statusInForce {
						doc.rejected = true
						return doc, nil
					}
					doc.inForce = true
				}
			}
		case xml.CharData:
			s := string(t)
			switch {
			case top(stack) == "ETAT" && contains(stack[:len(stack)-1], "META_ARTICLE"):
				etat.WriteString(s)
			case top(stack) == "ID" && contains(stack[:len(stack)-1], "META_COMMUN"):
				id.WriteString(s)
			case top(stack) == "NUM" && contains(stack[:len(stack)-1], "META_ARTICLE"):
				num.WriteString(s)
			case contains(stack, "BLOC_TEXTUEL"):
				doc.body = append(doc.body, s)
			case contains(stack, "CONTENU"):
				doc.fallback = append(doc.fallback, s)
			case contains(stack, "CONTEXTE"):
				doc.contextParts = append(doc.contextParts, s)
			}
		}
	}

	doc.rejected = !doc.inForce
	doc.id = strings.TrimSpace(id.String())
	doc.num = strings.TrimSpace(num.String())
	return doc, nil
}

// cleanText concatenates text fragments and collapses every whitespace run
// (spaces, newlines, tabs) to a single space.
func cleanText(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(strings.Join(fragments, " ")), " ")
}

// joinContext trims context fragments, drops empties, and joins the rest.
// An article with no resolvable hierarchy gets the root label.
func joinContext(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if t := strings.TrimSpace(f); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return domain.DefaultContext
	}
	return strings.Join(parts, contextSeparator)
}

func top(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func contains(stack []string, name string) bool {
	for _, s := range stack {
		if s == name {
			return true
		}
	}
	return false
}
