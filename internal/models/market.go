package models

// ReportItemResult is the narrative schema shared by most report items
type ReportItemResult struct {
	Evaluation string `json:"evaluation" validate:"required"`
}

// MarketSource documents where a market size figure came from
type MarketSource struct {
	SourceName          *string `json:"source_name"`
	IssuingOrganization *string `json:"issuing_organization"`
	PublishYear         *int    `json:"publish_year"`
	KeyBasis            *string `json:"key_basis"`
	LinkOrID            *string `json:"link_or_id"`
}

// MarketForecast holds up to five yearly market size figures.
// Years and Values are parallel slices.
type MarketForecast struct {
	Currency *string        `json:"currency"`
	Unit     *string        `json:"unit"`
	Years    []*int         `json:"years" validate:"max=5"`
	Values   []*int64       `json:"values_int" validate:"max=5,eqfield=Years"`
	Method   *string        `json:"method"`
	Sources  []MarketSource `json:"sources"`
}

// HasValidSize reports whether the forecast carries at least one usable figure
func (f *MarketForecast) HasValidSize() bool {
	if f == nil || len(f.Years) == 0 || len(f.Values) == 0 {
		return false
	}
	for _, v := range f.Values {
		if v != nil {
			return true
		}
	}
	return false
}

// CompetitorSource documents where competitor information came from
type CompetitorSource struct {
	SourceName  *string `json:"source_name"`
	PublishYear *int    `json:"publish_year"`
	LinkOrID    *string `json:"link_or_id"`
}

// CompetitorInfo describes a company offering a similar product or service
type CompetitorInfo struct {
	Name                  *string            `json:"name"`
	Country               *string            `json:"country"`
	SimilarityReason      *string            `json:"similarity_reason"`
	ProductServiceSummary *string            `json:"product_service_summary"`
	BusinessModel         []*string          `json:"business_model"`
	Sources               []CompetitorSource `json:"sources"`
}

// MarketForecastAndCompetitors is the market item schema
type MarketForecastAndCompetitors struct {
	OverseasMarket *MarketForecast  `json:"overseas_market" validate:"omitempty"`
	KoreaMarket    *MarketForecast  `json:"korea_market" validate:"omitempty"`
	Competitors    []CompetitorInfo `json:"competitors"`
}

// HasValidForecast reports whether either market carries a usable forecast
func (m *MarketForecastAndCompetitors) HasValidForecast() bool {
	return m != nil && (m.OverseasMarket.HasValidSize() || m.KoreaMarket.HasValidSize())
}
