package models

// IPCAnalysisItem links one business function to an IPC code
type IPCAnalysisItem struct {
	IPCCode                string `json:"ipc_code" validate:"required"`
	IPCName                string `json:"ipc_name" validate:"required"`
	LinkedBusinessFunction string `json:"linked_business_function" validate:"required"`
	Justification          string `json:"justification" validate:"required"`
}

// IPCAnalysisResult is the IPC analysis schema
type IPCAnalysisResult struct {
	IPCAnalysis []IPCAnalysisItem `json:"ipc_analysis" validate:"required,min=1,dive"`
}

// YearSeries is a sorted year -> count series
type YearSeries struct {
	Years  []int `json:"years"`
	Values []int `json:"values_int"`
}

// YearAggregates holds the patent statistics per document stage
type YearAggregates struct {
	Application  YearSeries `json:"application"`
	Publication  YearSeries `json:"publication"`
	Registration YearSeries `json:"registration"`
}

// IPCStatisticsContent is the content produced by the IPC + patent statistics strategy
type IPCStatisticsContent struct {
	IPCAnalysis []IPCAnalysisItem `json:"ipc_analysis"`
	Statistics  *YearAggregates   `json:"statistics"`
}
