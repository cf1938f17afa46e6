// Package score aggregates per-dimension package signals into a single
// weighted 0-100 health score.
//
// The scorer performs no I/O and cannot fail: missing optional inputs
// (vulnerability data, popularity) degrade to documented neutral
// defaults instead of erroring.
package score

import (
	"math"
	"time"

	"github.com/matzehuels/depvet/pkg/license"
)

// Rating buckets an overall score.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// Dimensions holds the seven normalized [0,1] dimension scores behind
// an overall score.
type Dimensions struct {
	Age             float64 `json:"age"`
	Deprecation     float64 `json:"deprecation"`
	License         float64 `json:"license"`
	Vulnerability   float64 `json:"vulnerability"`
	Popularity      float64 `json:"popularity"`
	Repository      float64 `json:"repository"`
	UpdateFrequency float64 `json:"update_frequency"`
}

// HealthScore is the scoring outcome for one package.
type HealthScore struct {
	Overall    int        `json:"overall"` // 0-100
	Rating     Rating     `json:"rating"`
	Dimensions Dimensions `json:"dimensions"`
}

// Boosters are the positive weights applied per dimension when
// aggregating. A zero-sum booster set falls back to equal weights.
type Boosters struct {
	Age             float64 `json:"age"`
	Deprecation     float64 `json:"deprecation"`
	License         float64 `json:"license"`
	Vulnerability   float64 `json:"vulnerability"`
	Popularity      float64 `json:"popularity"`
	Repository      float64 `json:"repository"`
	UpdateFrequency float64 `json:"update_frequency"`
}

// DefaultBoosters weighs every dimension equally.
func DefaultBoosters() Boosters {
	return Boosters{
		Age: 1, Deprecation: 1, License: 1, Vulnerability: 1,
		Popularity: 1, Repository: 1, UpdateFrequency: 1,
	}
}

func (b Boosters) sum() float64 {
	return b.Age + b.Deprecation + b.License + b.Vulnerability +
		b.Popularity + b.Repository + b.UpdateFrequency
}

// Config is the scoring section of the scan configuration.
type Config struct {
	Enabled      bool     `json:"enabled"`
	MinimumScore int      `json:"minimum_score"` // scan-level gate, enforced by the caller
	Boosters     Boosters `json:"boosters"`
}

// VulnerabilityCounts tallies known vulnerabilities per severity tier.
type VulnerabilityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
}

// Input carries the per-package signals consumed by [Calculate].
// Vulnerabilities and Popularity are optional; nil means no data, which
// scores as 1.0 and 0.5 respectively. A zero PublishedAt scores the age
// dimensions neutrally at 0.5.
type Input struct {
	PublishedAt     time.Time
	Deprecated      bool
	License         license.Analysis
	Vulnerabilities *VulnerabilityCounts
	Popularity      *float64
	HasRepository   bool
	Now             time.Time // defaults to time.Now()
}

// Calculate produces the weighted health score for one package.
//
// When scoring is disabled this returns a fixed perfect score (overall
// 100, every dimension 1.0) as an explicit bypass, not a derived
// result.
func Calculate(in Input, cfg Config) HealthScore {
	if !cfg.Enabled {
		return HealthScore{
			Overall: 100,
			Rating:  RatingExcellent,
			Dimensions: Dimensions{
				Age: 1, Deprecation: 1, License: 1, Vulnerability: 1,
				Popularity: 1, Repository: 1, UpdateFrequency: 1,
			},
		}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	age := ageScore(in.PublishedAt, now)
	d := Dimensions{
		Age:           age,
		Deprecation:   deprecationScore(in.Deprecated),
		License:       licenseScore(in.License),
		Vulnerability: vulnerabilityScore(in.Vulnerabilities),
		Popularity:    popularityScore(in.Popularity),
		Repository:    repositoryScore(in.HasRepository),
		// Update frequency mirrors the age signal until real release
		// cadence data is wired in.
		UpdateFrequency: age,
	}

	boosters := cfg.Boosters
	if boosters.sum() <= 0 {
		boosters = DefaultBoosters()
	}

	weighted := d.Age*boosters.Age +
		d.Deprecation*boosters.Deprecation +
		d.License*boosters.License +
		d.Vulnerability*boosters.Vulnerability +
		d.Popularity*boosters.Popularity +
		d.Repository*boosters.Repository +
		d.UpdateFrequency*boosters.UpdateFrequency

	overall := int(math.Round(100 * weighted / boosters.sum()))
	overall = min(100, max(0, overall))

	return HealthScore{Overall: overall, Rating: ratingOf(overall), Dimensions: d}
}

func ratingOf(overall int) Rating {
	switch {
	case overall >= 80:
		return RatingExcellent
	case overall >= 60:
		return RatingGood
	case overall >= 40:
		return RatingFair
	}
	return RatingPoor
}

// ageScore maps elapsed time since last publish to fixed breakpoints.
func ageScore(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0.5
	}
	days := now.Sub(publishedAt).Hours() / 24
	switch {
	case days < 183:
		return 1.0
	case days < 365:
		return 0.9
	case days < 730:
		return 0.8
	case days < 1095:
		return 0.6
	case days < 1825:
		return 0.4
	}
	return 0.2
}

// deprecationScore is binary: no partial credit for "soft" deprecation.
func deprecationScore(deprecated bool) float64 {
	if deprecated {
		return 0
	}
	return 1
}

// licenseScore keys on policy category and Blue Oak rating: a lead
// rating is penalized, gold and patent-clause licenses are boosted,
// and unlicensed packages floor at 0.
func licenseScore(a license.Analysis) float64 {
	var base float64
	switch a.Category {
	case license.CategoryFriendly:
		base = 0.9
	case license.CategoryWarning:
		base = 0.5
	case license.CategoryIncompatible:
		base = 0.1
	case license.CategoryUnknown:
		base = 0.5
	case license.CategoryUnlicensed:
		return 0
	}

	switch a.Rating {
	case license.RatingGold:
		base += 0.1
	case license.RatingSilver:
		base += 0.05
	case license.RatingLead:
		base -= 0.2
	}
	if a.HasPatentClause {
		base += 0.05
	}
	return min(1, max(0, base))
}

// vulnerabilityScore weighs known vulnerabilities by severity tier. A
// nil count set means no data and scores clean.
func vulnerabilityScore(v *VulnerabilityCounts) float64 {
	if v == nil {
		return 1
	}
	penalty := 0.5*float64(v.Critical) +
		0.3*float64(v.High) +
		0.15*float64(v.Moderate) +
		0.05*float64(v.Low)
	return max(0, 1-penalty)
}

func popularityScore(p *float64) float64 {
	if p == nil {
		return 0.5
	}
	return min(1, max(0, *p))
}

// repositoryScore is a coarse placeholder signal: richer repository
// health lives with the metadata integrations, not here.
func repositoryScore(hasRepository bool) float64 {
	if hasRepository {
		return 0.8
	}
	return 0.3
}
