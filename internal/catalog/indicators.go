package catalog

import (
	"sort"

	"MacroLens/internal/model"
)

var dataCommonsIndicators = map[string][]Indicator{
	"EconomicActivity": {
		{"Amount_EconomicActivity_GrossDomesticProduction_Nominal", "GDP (Nominal)"},
		{"GrowthRate_Amount_EconomicActivity_GrossDomesticProduction", "GDP Growth Rate"},
		{"Amount_EconomicActivity_GrossDomesticProduction_Nominal_PerCapita", "Nominal GDP Per Capita"},
		{"Amount_EconomicActivity_GrossNationalIncome_PurchasingPowerParity", "Gross National Income Based on Purchasing Power Parity"},
	},
	"Population": {
		{"Count_Person", "Total Population"},
		{"Count_Person_Rural", "Rural Population"},
		{"Count_Person_Urban", "Urban Population"},
		{"GrowthRate_Count_Person", "Population Growth Rate"},
		{"LifeExpectancy_Person", "Life Expectancy"},
		{"worldBank/SL_UEM_TOTL_NE_ZS", "Unemployment, total (% of total labor force) (national estimate)"},
	},
	"Health": {
		{"LifeExpectancy_Person", "Life Expectancy"},
		{"MortalityRate_Infant", "Infant Mortality Rate"},
		{"Count_Hospital", "Hospitals"},
	},
	"Demographics": {
		{"Count_Person_Female", "Female Population"},
		{"Count_Person_Male", "Male Population"},
		{"Count_Person_BelowPovertyLevelInThePast12Months", "People Below Poverty Line"},
		{"Median_Age_Person", "Median Age"},
		{"Percent_Person_65OrMoreYears", "Population 65 Years and Over"},
		{"Count_HousingUnit", "Housing Units"},
		{"Median_Income_Household", "Median Household Income"},
	},
	"Debt": {
		{"Amount_Debt_Government", "Government Debt"},
		{"Amount_Debt_Government_PerCapita", "Government Debt Per Capita"},
		{"Percent_Debt_Government_GDP", "Government Debt to GDP"},
		{"Amount_Debt_Household", "Household Debt"},
		{"Amount_Debt_External", "External Debt"},
	},
	"Employment": {
		{"UnemploymentRate_Person", "Unemployment Rate"},
		{"Count_UnemploymentInsuranceClaim_PercentOfCoveredEmployment", "Unemployment Insurance Claims"},
		{"Count_Person_Employed", "Employed Persons"},
		{"Count_Person_InLaborForce", "Labor Force"},
		{"Count_Job", "Jobs"},
		{"GrowthRate_Count_Job", "Job Growth Rate"},
	},
	"Income": {
		{"Median_Income_Person", "Median Income"},
		{"Median_Income_Household", "Median Household Income"},
		{"Percent_Person_BelowPovertyLevel", "Poverty Rate"},
		{"GiniIndex_EconomicActivity", "Gini Index"},
		{"Median_Earnings_Person_WithEarnings", "Median Earnings"},
	},
	"Government": {
		{"Amount_Government_Revenue", "Government Revenue"},
		{"Amount_Government_Expenditure", "Government Expenditure"},
		{"Amount_Government_Deficit", "Government Deficit"},
	},
	"Finance": {
		{"InterestRate_Discount", "Discount Rate"},
		{"InterestRate_Market", "Market Interest Rate"},
		{"Amount_Currency_Volume", "Currency Volume"},
		{"Amount_Stock_Traded", "Stock Traded Value"},
		{"MarketCapitalization_Stock", "Stock Market Capitalization"},
	},
	"Trade": {
		{"Amount_EconomicActivity_ExportValue", "Exports"},
		{"Amount_EconomicActivity_ImportValue", "Imports"},
		{"Amount_EconomicActivity_GrossExternalDebt", "Gross External Debt"},
		{"Amount_EconomicActivity_TradeBalance", "Trade Balance"},
		{"Percent_ExportValue_GDP", "Exports to GDP"},
		{"Percent_ImportValue_GDP", "Imports to GDP"},
	},
}

var imfIndicators = map[string][]Indicator{
	"WEO": {
		{"NGDPD", "GDP, current prices (Billions of U.S. dollars)"},
		{"NGDP_RPCH", "Real GDP growth (Annual percent change)"},
		{"PCPIPCH", "Inflation rate, average consumer prices (Annual percent change)"},
		{"LUR", "Unemployment rate (Percent)"},
		{"GGXWDG_NGDP", "General government gross debt (Percent of GDP)"},
		{"BCA_NGDPD", "Current account balance (Percent of GDP)"},
	},
}

var sdmxIndicators = map[string][]Indicator{
	"IFS": {
		{"IFS/NGDP_R_XDC", "Real GDP, domestic currency"},
		{"IFS/PCPI_IX", "Consumer prices, all items (index)"},
		{"IFS/ENDA_XDC_USD_RATE", "Exchange rate, domestic currency per USD (period average)"},
		{"IFS/FPOLM_PA", "Monetary policy rate (percent per annum)"},
		{"IFS/LUR_PT", "Unemployment rate (percent)"},
	},
}

func table(source model.Source) map[string][]Indicator {
	switch source {
	case model.SourceDataCommons:
		return dataCommonsIndicators
	case model.SourceIMFDataMapper:
		return imfIndicators
	case model.SourceIMFSDMX, model.SourceIMFREST:
		return sdmxIndicators
	}
	return nil
}

// Categories returns the sorted category names for a source.
func Categories(source model.Source) []string {
	t := table(source)
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Indicators returns a category's indicators, or every indicator of the
// source (deduplicated by code) when category is empty. Unknown categories
// yield an empty list.
func Indicators(source model.Source, category string) []Indicator {
	t := table(source)
	if category != "" {
		list := t[category]
		out := make([]Indicator, len(list))
		copy(out, list)
		return out
	}
	seen := map[string]bool{}
	var out []Indicator
	for _, cat := range Categories(source) {
		for _, ind := range t[cat] {
			if seen[ind.Code] {
				continue
			}
			seen[ind.Code] = true
			out = append(out, ind)
		}
	}
	return out
}

// Label returns the indicator label, or the code when unknown.
func Label(source model.Source, code string) string {
	for _, list := range table(source) {
		for _, ind := range list {
			if ind.Code == code {
				return ind.Label
			}
		}
	}
	return code
}
