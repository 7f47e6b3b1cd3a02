// Package momentum scores one DexScreener pair snapshot.
//
// The analyzer is pure: the same Detail and clock always produce the same Snapshot.
// Records failing a gate never become a Snapshot; Analyze returns the Reason instead.
package momentum

import (
	"math"
	"net/url"
	"path"
	"strings"
	"time"
)

// UnknownAge is assigned when the creation timestamp cannot be resolved.
// It is far above any sensible MaxAgeMinutes, so such records fail the age gate.
const UnknownAge = math.MaxInt32

// Timestamps above this are treated as milliseconds
const millisThreshold = 10_000_000_000

type Reason string

const (
	Accepted        Reason = ""
	RejectMalformed Reason = "malformed"
	RejectMarketCap Reason = "market_cap"
	RejectVolume    Reason = "volume"
	RejectLiquidity Reason = "liquidity"
	RejectAge       Reason = "age"
	RejectNoTwitter Reason = "no_twitter"
)

// AgeBracket gives Factor to assets younger than Below minutes
type AgeBracket struct {
	Below  int     `mapstructure:"below"`
	Factor float64 `mapstructure:"factor"`
}

// Weights - tunable constants of the momentum formula
type Weights struct {
	PriceChange    float64      `mapstructure:"price_change"`
	Activity       float64      `mapstructure:"activity"`
	ActivityScale  float64      `mapstructure:"activity_scale"`
	Liquidity      float64      `mapstructure:"liquidity"`
	LiquidityScale float64      `mapstructure:"liquidity_scale"`
	LiquidityMcap  float64      `mapstructure:"liquidity_mcap"` // share of market cap liquidity is compared with
	Age            float64      `mapstructure:"age"`
	AgeScale       float64      `mapstructure:"age_scale"`
	AgeBrackets    []AgeBracket `mapstructure:"age_brackets"`
	AgeFloor       float64      `mapstructure:"age_floor"`
	TwitterBonus   float64      `mapstructure:"twitter_bonus"`
	TelegramBonus  float64      `mapstructure:"telegram_bonus"`
}

func DefaultWeights() Weights {
	return Weights{
		PriceChange:    0.4,
		Activity:       0.3,
		ActivityScale:  100,
		Liquidity:      0.2,
		LiquidityScale: 25,
		LiquidityMcap:  0.5,
		Age:            0.1,
		AgeScale:       10,
		AgeBrackets: []AgeBracket{
			{Below: 120, Factor: 1.0},
			{Below: 360, Factor: 0.8},
			{Below: 720, Factor: 0.5},
		},
		AgeFloor:      0.2,
		TwitterBonus:  0.1,
		TelegramBonus: 0.1,
	}
}

// Config - gating bounds, all inclusive
type Config struct {
	MinMarketCap  float64
	MaxMarketCap  float64
	MinVolume     float64
	MinLiquidity  float64
	MinAgeMinutes int
	MaxAgeMinutes int
	Weights       Weights
}

func DefaultConfig() Config {
	return Config{
		MinMarketCap:  10_000,
		MaxMarketCap:  2_000_000,
		MinVolume:     1_000,
		MinLiquidity:  5_000,
		MinAgeMinutes: 30,
		MaxAgeMinutes: 7_200,
		Weights:       DefaultWeights(),
	}
}

// Snapshot - fully evaluated state of one asset in one cycle
type Snapshot struct {
	ID             string
	Address        string
	Name           string
	Symbol         string
	PriceUSD       float64
	MarketCap      float64
	Volume24h      float64
	Liquidity      float64
	PriceChange24h float64
	AgeMinutes     int
	URL            string
	Twitter        string
	Telegram       string
	Momentum       float64
}

type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// AnalyzeRaw decodes and analyzes a raw detail payload. Decode failures and
// panics are reported as RejectMalformed.
func (a *Analyzer) AnalyzeRaw(raw []byte, now time.Time) (snap *Snapshot, reason Reason) {
	defer func() {
		if r := recover(); r != nil {
			snap, reason = nil, RejectMalformed
		}
	}()

	d, err := ParseDetail(raw)
	if err != nil {
		return nil, RejectMalformed
	}
	return a.Analyze(d, now)
}

// Analyze applies the gates in order and scores the survivors
func (a *Analyzer) Analyze(d Detail, now time.Time) (*Snapshot, Reason) {
	c := a.cfg
	if d.MarketCap < c.MinMarketCap || d.MarketCap > c.MaxMarketCap {
		return nil, RejectMarketCap
	}
	if d.Volume24h < c.MinVolume {
		return nil, RejectVolume
	}
	if d.Liquidity < c.MinLiquidity {
		return nil, RejectLiquidity
	}
	age := AgeMinutes(d.CreatedAt, now)
	if age < c.MinAgeMinutes || age > c.MaxAgeMinutes {
		return nil, RejectAge
	}
	if d.Twitter == "" {
		return nil, RejectNoTwitter
	}

	return &Snapshot{
		ID:             Identity(d),
		Address:        d.Address,
		Name:           d.Name,
		Symbol:         d.Symbol,
		PriceUSD:       d.PriceUSD,
		MarketCap:      d.MarketCap,
		Volume24h:      d.Volume24h,
		Liquidity:      d.Liquidity,
		PriceChange24h: d.PriceChange24h,
		AgeMinutes:     age,
		URL:            d.URL,
		Twitter:        d.Twitter,
		Telegram:       d.Telegram,
		Momentum:       Score(d, age, c.Weights),
	}, Accepted
}

// Score momentum of a record that already passed the gates
func Score(d Detail, age int, w Weights) float64 {
	liquidityScore := math.Min(d.Liquidity/(d.MarketCap*w.LiquidityMcap+1), 1.0)

	var activityRatio float64
	if d.MarketCap != 0 {
		activityRatio = d.Volume24h / d.MarketCap
	}

	hype := 1.0
	if d.Twitter != "" {
		hype += w.TwitterBonus
	}
	if d.Telegram != "" {
		hype += w.TelegramBonus
	}

	return (d.PriceChange24h*w.PriceChange +
		activityRatio*w.ActivityScale*w.Activity +
		liquidityScore*w.LiquidityScale*w.Liquidity +
		ageFactor(age, w)*w.AgeScale*w.Age) * hype
}

func ageFactor(age int, w Weights) float64 {
	for _, b := range w.AgeBrackets {
		if age < b.Below {
			return b.Factor
		}
	}
	return w.AgeFloor
}

// AgeMinutes minutes since createdAt, which may be in seconds or milliseconds
func AgeMinutes(createdAt int64, now time.Time) int {
	if createdAt <= 0 {
		return UnknownAge
	}
	ts := createdAt
	if ts > millisThreshold {
		ts /= 1000
	}
	age := (now.Unix() - ts) / 60
	if age < 0 {
		return 0
	}
	if age > UnknownAge {
		return UnknownAge
	}
	return int(age)
}

// Identity stable key: token address, else the pair id from the listing URL, else symbol
func Identity(d Detail) string {
	if d.Address != "" {
		return d.Address
	}
	if d.URL != "" {
		if u, err := url.Parse(d.URL); err == nil {
			if last := path.Base(strings.TrimRight(u.Path, "/")); last != "" && last != "." && last != "/" {
				return last
			}
		}
	}
	return d.Symbol
}
