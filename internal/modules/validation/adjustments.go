package validation

import "github.com/aristath/adbudget/internal/domain"

// IndustryType is a closed set of industry tags. Unknown tags simply apply
// no adjustment; the lookup returns nil instead of panicking or guessing.
type IndustryType string

const (
	IndustryB2B       IndustryType = "b2b"
	IndustryB2C       IndustryType = "b2c"
	IndustryEcommerce IndustryType = "ecommerce"
	IndustrySaaS      IndustryType = "saas"
)

// CompanySize is a closed set of company-size tags.
type CompanySize string

const (
	SizeStartup    CompanySize = "startup"
	SizeSMB        CompanySize = "smb"
	SizeMidMarket  CompanySize = "midmarket"
	SizeEnterprise CompanySize = "enterprise"
)

// Context carries the optional benchmark adjustment inputs.
type Context struct {
	IndustryType IndustryType `json:"industryType,omitempty"`
	CompanySize  CompanySize  `json:"companySize,omitempty"`
	Goal         domain.Goal  `json:"goal,omitempty"`
}

// industryAdjustment returns the additive per-channel delta for an industry
// tag, or nil when the tag is unknown or empty.
func industryAdjustment(industry IndustryType) map[domain.Channel]float64 {
	switch industry {
	case IndustryB2B:
		// B2B shifts weight toward LinkedIn and away from TikTok/Meta.
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.00,
			domain.ChannelMeta:     -0.05,
			domain.ChannelTikTok:   -0.10,
			domain.ChannelLinkedIn: 0.15,
		}
	case IndustryB2C:
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.00,
			domain.ChannelMeta:     0.08,
			domain.ChannelTikTok:   0.07,
			domain.ChannelLinkedIn: -0.15,
		}
	case IndustryEcommerce:
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.05,
			domain.ChannelMeta:     0.08,
			domain.ChannelTikTok:   0.02,
			domain.ChannelLinkedIn: -0.15,
		}
	case IndustrySaaS:
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.05,
			domain.ChannelMeta:     -0.03,
			domain.ChannelTikTok:   -0.07,
			domain.ChannelLinkedIn: 0.05,
		}
	default:
		return nil
	}
}

// sizeAdjustment returns the additive per-channel delta for a company-size
// tag, or nil when the tag is unknown or empty.
func sizeAdjustment(size CompanySize) map[domain.Channel]float64 {
	switch size {
	case SizeStartup:
		// Early companies skew toward cheaper experimental channels.
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   -0.03,
			domain.ChannelMeta:     0.02,
			domain.ChannelTikTok:   0.05,
			domain.ChannelLinkedIn: -0.04,
		}
	case SizeSMB:
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.02,
			domain.ChannelMeta:     0.02,
			domain.ChannelTikTok:   0.00,
			domain.ChannelLinkedIn: -0.04,
		}
	case SizeMidMarket:
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.02,
			domain.ChannelMeta:     0.00,
			domain.ChannelTikTok:   -0.02,
			domain.ChannelLinkedIn: 0.00,
		}
	case SizeEnterprise:
		return map[domain.Channel]float64{
			domain.ChannelGoogle:   0.02,
			domain.ChannelMeta:     -0.04,
			domain.ChannelTikTok:   -0.06,
			domain.ChannelLinkedIn: 0.08,
		}
	default:
		return nil
	}
}

// typicalRanges are channel-specific spans commonly observed in industry
// benchmarks. Allocations outside a span raise unrealistic_allocation, with
// severity escalating when the excursion exceeds 1.5x the span's half-width.
var typicalRanges = map[domain.Channel]domain.Range{
	domain.ChannelGoogle:   {Lo: 0.15, Hi: 0.55},
	domain.ChannelMeta:     {Lo: 0.10, Hi: 0.50},
	domain.ChannelTikTok:   {Lo: 0.00, Hi: 0.35},
	domain.ChannelLinkedIn: {Lo: 0.00, Hi: 0.40},
}
