package momentum

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedDetail = errors.New("malformed detail record")

// ErrUndecodable body is not JSON at all; also matches ErrMalformedDetail
var ErrUndecodable = errors.New("undecodable detail body")

// Detail - one DexScreener pair record reduced to the fields the analyzer needs.
// Every numeric field is already degraded to 0 when missing or unparsable.
type Detail struct {
	ChainID        string
	Address        string
	Name           string
	Symbol         string
	URL            string
	PriceUSD       float64
	MarketCap      float64
	Volume24h      float64
	Liquidity      float64
	PriceChange24h float64
	CreatedAt      int64 // seconds or milliseconds since epoch, 0 if unknown
	Twitter        string
	Telegram       string
}

// ParseDetail decodes a pair record. A JSON array is unwrapped to its first element.
func ParseDetail(raw []byte) (Detail, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Detail{}, fmt.Errorf("%w: %w: empty body", ErrMalformedDetail, ErrUndecodable)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Detail{}, fmt.Errorf("%w: %w: %v", ErrMalformedDetail, ErrUndecodable, err)
	}

	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return Detail{}, fmt.Errorf("%w: empty list", ErrMalformedDetail)
		}
		v = list[0]
	}
	m, ok := v.(map[string]any)
	if !ok {
		return Detail{}, fmt.Errorf("%w: not an object", ErrMalformedDetail)
	}

	d := Detail{
		ChainID:        str(m, "chainId"),
		Address:        str(m, "baseToken", "address"),
		Name:           str(m, "baseToken", "name"),
		Symbol:         str(m, "baseToken", "symbol"),
		URL:            str(m, "url"),
		PriceUSD:       num(m, "priceUsd"),
		MarketCap:      num(m, "marketCap"),
		Volume24h:      num(m, "volume", "h24"),
		Liquidity:      num(m, "liquidity", "usd"),
		PriceChange24h: num(m, "priceChange", "h24"),
		CreatedAt:      int64(num(m, "pairCreatedAt")),
	}
	if d.Name == "" {
		d.Name = "unknown"
	}

	if info, ok := lookup(m, "info").(map[string]any); ok {
		if socials, ok := info["socials"].([]any); ok {
			d.Twitter = socialURL(socials, "twitter")
			d.Telegram = socialURL(socials, "telegram")
		}
	}
	return d, nil
}

func socialURL(socials []any, kind string) string {
	for _, s := range socials {
		entry, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := entry["type"].(string); strings.EqualFold(t, kind) {
			if u, _ := entry["url"].(string); u != "" {
				return u
			}
		}
	}
	return ""
}

func lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

func str(m map[string]any, path ...string) string {
	s, _ := lookup(m, path...).(string)
	return s
}

// num degrades anything that is not a finite number or numeric string to 0
func num(m map[string]any, path ...string) float64 {
	var f float64
	switch v := lookup(m, path...).(type) {
	case json.Number:
		f, _ = v.Float64()
	case float64:
		f = v
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	if f != f || f > 1e300 || f < -1e300 {
		return 0
	}
	return f
}
