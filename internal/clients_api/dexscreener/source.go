package dexscreener

import (
	"context"
	"strings"

	"dex-sniper/internal/features/scan"
	"dex-sniper/internal/infra/log"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// Source adapts Client to scan.Source for one chain
type Source struct {
	client  *Client
	chainID string
}

func NewSource(client *Client, chainID string) *Source {
	return &Source{client: client, chainID: chainID}
}

// ListCandidates never fails: upstream errors yield an empty list
func (s *Source) ListCandidates(ctx context.Context) []scan.AssetRef {
	profiles, err := s.client.LatestProfiles(ctx)
	if err != nil {
		log.LogWarn("Failed to list candidates", zap.Error(err))
		return nil
	}
	return NormalizeProfiles(profiles, s.chainID)
}

func (s *Source) FetchDetail(ctx context.Context, ref scan.AssetRef) ([]byte, error) {
	chain := ref.ChainID
	if chain == "" {
		chain = s.chainID
	}
	return s.client.TokenPairs(ctx, chain, ref.Address)
}

// NormalizeProfiles converts profiles to AssetRefs. On solana, addresses that
// are not 32-byte base58 public keys are dropped.
func NormalizeProfiles(profiles []TokenProfile, chainID string) []scan.AssetRef {
	refs := make([]scan.AssetRef, 0, len(profiles))
	for _, p := range profiles {
		addr := strings.TrimSpace(p.TokenAddress)
		chain := strings.ToLower(strings.TrimSpace(p.ChainID))
		if addr == "" || chain == "" {
			continue
		}
		if chain == "solana" && !IsSolanaAddress(addr) {
			log.LogDebug("Dropping malformed solana address", zap.String("address", addr))
			continue
		}
		refs = append(refs, scan.AssetRef{ChainID: chain, Address: addr})
	}
	return refs
}

func IsSolanaAddress(addr string) bool {
	b, err := base58.Decode(addr)
	return err == nil && len(b) == 32
}
