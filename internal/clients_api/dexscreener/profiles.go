package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// TokenProfile entry of /token-profiles/latest/v1
type TokenProfile struct {
	URL          string        `json:"url"`
	ChainID      string        `json:"chainId"`
	TokenAddress string        `json:"tokenAddress"`
	Icon         string        `json:"icon"`
	Header       string        `json:"header"`
	Description  string        `json:"description"`
	Links        []ProfileLink `json:"links"`
}

type ProfileLink struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// LatestProfiles most recently published token profiles, all chains
func (c *Client) LatestProfiles(ctx context.Context) ([]TokenProfile, error) {
	body, err := c.get(ctx, "/token-profiles/latest/v1")
	if err != nil {
		return nil, fmt.Errorf("failed to get latest profiles: %w", err)
	}

	var profiles []TokenProfile
	if err := json.Unmarshal(body, &profiles); err != nil {
		// the endpoint has been seen returning a single object instead of a list
		var one TokenProfile
		if err2 := json.Unmarshal(body, &one); err2 != nil || one.TokenAddress == "" {
			return nil, fmt.Errorf("failed to unmarshal profiles: %w", err)
		}
		profiles = []TokenProfile{one}
	}
	return profiles, nil
}

// TokenPairs raw pair records of one token on chain
func (c *Client) TokenPairs(ctx context.Context, chainID, tokenAddress string) ([]byte, error) {
	endpoint := fmt.Sprintf("/tokens/v1/%s/%s", url.PathEscape(chainID), url.PathEscape(tokenAddress))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get token pairs: %w", err)
	}
	return body, nil
}
