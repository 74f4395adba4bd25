package models

import "time"

// Peak is a sample identified as a local maximum or plateau apex.
type Peak struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Index int       `json:"index"`
}

// PeakPeriod is the contiguous index range treated as one peak's duration.
type PeakPeriod struct {
	StartIndex   int  `json:"startIndex"`
	EndIndex     int  `json:"endIndex"`
	DurationDays int  `json:"durationDays"`
	Sparse       bool `json:"sparse"`
}

// Len reports the number of samples covered by the period.
func (p PeakPeriod) Len() int {
	if p.EndIndex < p.StartIndex {
		return 0
	}
	return p.EndIndex - p.StartIndex + 1
}

// BaselinePeriod is the comparison window chosen ahead of a peak period. EndIndex is
// inclusive.
type BaselinePeriod struct {
	StartIndex int     `json:"startIndex"`
	EndIndex   int     `json:"endIndex"`
	Mean       float64 `json:"mean"`
}

// IntelPeakResult describes the best recent peak of a series and the evidence behind
// its score. Pointer fields are nil when no peak qualified.
type IntelPeakResult struct {
	IntelPeak         *float64   `json:"intelPeak"`
	PeakDate          *time.Time `json:"peakDate"`
	PeakValue         *float64   `json:"peakValue"`
	PeakDuration      *int       `json:"peakDuration"`
	PeakArea          *float64   `json:"peakArea"`
	BaselineArea      *float64   `json:"baselineArea"`
	Ratio             *float64   `json:"ratio"`
	PeakStartDate     *time.Time `json:"peakStartDate"`
	PeakEndDate       *time.Time `json:"peakEndDate"`
	BaselineStartDate *time.Time `json:"baselineStartDate"`
	BaselineEndDate   *time.Time `json:"baselineEndDate"`
	HigherPeaksCount  int        `json:"higherPeaksCount"`
}

// Empty reports whether the result carries no scored peak.
func (r IntelPeakResult) Empty() bool {
	return r.IntelPeak == nil
}
