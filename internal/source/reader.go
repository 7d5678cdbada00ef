// Package source reads the raw card dataset: the bulk set document, custom set
// overrides, the correction patch and the raw price feed.
package source

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
)

// SetFilter reports whether the set with the given code should be loaded.
type SetFilter func(code string) bool

// AllSets keeps every set.
func AllSets(string) bool { return true }

// OnlySets keeps the listed codes (case-insensitive). No codes keeps every set.
func OnlySets(codes ...string) SetFilter {
	if len(codes) == 0 {
		return AllSets
	}
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[strings.ToLower(c)] = struct{}{}
	}
	return func(code string) bool {
		_, ok := m[strings.ToLower(code)]
		return ok
	}
}

// Except wraps f so the listed codes are always rejected.
func Except(f SetFilter, codes ...string) SetFilter {
	if len(codes) == 0 {
		return f
	}
	excluded := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		excluded[strings.ToLower(c)] = struct{}{}
	}
	return func(code string) bool {
		if _, ok := excluded[strings.ToLower(code)]; ok {
			return false
		}
		return f(code)
	}
}

// Meta is the dataset build information carried next to the set data.
type Meta struct {
	Version string `json:"version"`
	Date    string `json:"date"`
}

// DecodeSets streams {"data": {code: set, ...}} from r. Each kept set is fully
// decoded and handed to yield before the next one is read; rejected sets are
// skipped without being interpreted. A syntax error anywhere aborts the decode.
func DecodeSets(ctx context.Context, r io.Reader, keep SetFilter, yield func(*domain.Set) error) (Meta, error) {
	if keep == nil {
		keep = AllSets
	}

	var meta Meta
	dec := jsontext.NewDecoder(r)
	if err := expect(dec, '{'); err != nil {
		return meta, domainerrors.InvalidData(err, "bulk dataset is not an object")
	}

	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return meta, domainerrors.InvalidData(err, "read bulk dataset")
		}
		if tok.Kind() == '}' {
			return meta, nil
		}

		switch tok.String() {
		case "data":
			if err := decodeSetMap(ctx, dec, keep, yield); err != nil {
				return meta, err
			}
		case "meta":
			if err := json.UnmarshalDecode(dec, &meta); err != nil {
				return meta, domainerrors.InvalidData(err, "decode dataset meta")
			}
		default:
			if err := dec.SkipValue(); err != nil {
				return meta, domainerrors.InvalidData(err, "skip bulk dataset member")
			}
		}
	}
}

func decodeSetMap(ctx context.Context, dec *jsontext.Decoder, keep SetFilter, yield func(*domain.Set) error) error {
	if err := expect(dec, '{'); err != nil {
		return domainerrors.InvalidData(err, "dataset data is not an object")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := dec.ReadToken()
		if err != nil {
			return domainerrors.InvalidData(err, "read set code")
		}
		if tok.Kind() == '}' {
			return nil
		}

		code := tok.String()
		if !keep(code) {
			if err := dec.SkipValue(); err != nil {
				return domainerrors.InvalidDataf(err, "skip set %s", code)
			}
			continue
		}

		set := new(domain.Set)
		if err := json.UnmarshalDecode(dec, set); err != nil {
			return domainerrors.InvalidDataf(err, "decode set %s", code)
		}
		if set.Code == "" {
			set.Code = code
		}
		if err := yield(set); err != nil {
			return err
		}
	}
}

func expect(dec *jsontext.Decoder, kind jsontext.Kind) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != kind {
		return fmt.Errorf("expected %v, found %v", kind, tok.Kind())
	}
	return nil
}

// ReadCustomSets reads custom_sets/<CODE>.json for every code kept by keep.
// A file may hold the set object itself or wrap it as {"data": set}.
func ReadCustomSets(dir string, codes []string, keep SetFilter) ([]*domain.Set, error) {
	if keep == nil {
		keep = AllSets
	}

	sets := make([]*domain.Set, 0, len(codes))
	for _, code := range codes {
		if !keep(code) {
			continue
		}
		path := filepath.Join(dir, strings.ToUpper(code)+".json")
		data, err := os.ReadFile(path) //#nosec G304 -- path built from configured set codes
		if err != nil {
			return nil, fmt.Errorf("read custom set %s: %w", code, err)
		}
		set, err := DecodeSet(data)
		if err != nil {
			return nil, domainerrors.InvalidDataf(err, "decode custom set %s", code)
		}
		if set.Code == "" {
			set.Code = strings.ToUpper(code)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// DecodeSet decodes one whole set document.
func DecodeSet(data []byte) (*domain.Set, error) {
	var wrapped struct {
		Data *domain.Set `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}

	set := new(domain.Set)
	if err := json.Unmarshal(data, set); err != nil {
		return nil, err
	}
	return set, nil
}

// ReadPatch reads and normalizes the correction document. A missing file
// yields an empty patch.
func ReadPatch(path string) (*domain.Patch, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- configured data file
	if os.IsNotExist(err) {
		return (*domain.Patch)(nil).Normalize(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}

	var patch domain.Patch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, domainerrors.InvalidData(err, "decode patch")
	}
	return patch.Normalize(), nil
}

// DecodePriceFeed reads {"data": {upstreamId: detail}} from r.
func DecodePriceFeed(r io.Reader) (map[string]*domain.PriceDetail, error) {
	dec := jsontext.NewDecoder(r)
	if err := expect(dec, '{'); err != nil {
		return nil, domainerrors.InvalidData(err, "price feed is not an object")
	}

	prices := map[string]*domain.PriceDetail{}
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, domainerrors.InvalidData(err, "read price feed")
		}
		if tok.Kind() == '}' {
			return prices, nil
		}
		if tok.String() != "data" {
			if err := dec.SkipValue(); err != nil {
				return nil, domainerrors.InvalidData(err, "skip price feed member")
			}
			continue
		}
		if err := json.UnmarshalDecode(dec, &prices); err != nil {
			return nil, domainerrors.InvalidData(err, "decode price feed")
		}
	}
}

// ReadFile reads a whole dataset file into memory.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- configured data file
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}
