package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	regexptokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Analyzer names registered on the index mapping. They are persisted with the
// index, so renaming one requires bumping the index version.
const (
	textAnalyzer    = "mtg_text"
	keywordAnalyzer = "mtg_keyword"
	textTokenizer   = "mtg_words"
)

// wordPattern splits card text into mana symbols such as {2/W}, words with
// inner apostrophes, and the single-character words that carry meaning in
// rules text (+1/+1 counters, bullet points, infinity).
const wordPattern = `\{[^}]+\}|[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*|[+\-−—•∞½²]`

// singletonWords are the single-character tokens produced by wordPattern's
// last alternative.
var singletonWords = []string{"+", "-", "−", "—", "•", "∞", "½", "²"}

// buildIndexMapping creates the mapping for card documents.
//
//  1. Text fields use a tokenizer that keeps mana symbols whole
//  2. Enumerations are lowercased keywords for exact term queries
//  3. Numeric fields support ranges and the ordinal tie-break sort
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomTokenizer(textTokenizer, map[string]interface{}{
		"type":   regexptokenizer.Name,
		"regexp": wordPattern,
	})
	if err != nil {
		return nil, err
	}
	err = indexMapping.AddCustomAnalyzer(textAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     textTokenizer,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	err = indexMapping.AddCustomAnalyzer(keywordAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	indexMapping.DefaultAnalyzer = textAnalyzer
	docMapping := bleve.NewDocumentMapping()

	for _, f := range indexFields() {
		var fm *mapping.FieldMapping
		switch f.kind {
		case kindText:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = textAnalyzer
			fm.IncludeTermVectors = true
		case kindKeyword:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = keywordAnalyzer
			fm.IncludeTermVectors = false
		case kindNumeric:
			fm = bleve.NewNumericFieldMapping()
		}
		fm.Store = false
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(f.index, fm)
	}

	ordinal := bleve.NewNumericFieldMapping()
	ordinal.Store = false
	ordinal.IncludeInAll = false
	ordinal.DocValues = true
	docMapping.AddFieldMappingsAt(fieldOrdinal, ordinal)

	docMapping.Dynamic = false
	indexMapping.AddDocumentMapping("_default", docMapping)
	indexMapping.StoreDynamic = false
	indexMapping.IndexDynamic = false
	return indexMapping, nil
}
