package models

import "time"

type SkinType string

const (
	SkinTypeOily        SkinType = "Oily"
	SkinTypeDry         SkinType = "Dry"
	SkinTypeCombination SkinType = "Combination"
	SkinTypeNormal      SkinType = "Normal"
)

var SkinTypes = []SkinType{SkinTypeOily, SkinTypeDry, SkinTypeCombination, SkinTypeNormal}

type SkinIssue string

const (
	SkinIssueAcne              SkinIssue = "Acne"
	SkinIssueHyperpigmentation SkinIssue = "Hyperpigmentation"
	SkinIssueWrinkles          SkinIssue = "Wrinkles"
	SkinIssueRedness           SkinIssue = "Redness"
)

var SkinIssues = []SkinIssue{SkinIssueAcne, SkinIssueHyperpigmentation, SkinIssueWrinkles, SkinIssueRedness}

// Analysis is one engine result for an image. Rows are never updated in
// place; a re-analysis inserts a new row and Seq decides which one is latest.
type Analysis struct {
	ID            string
	Seq           int64
	ImageID       string
	SkinType      SkinType
	Issues        []SkinIssue
	Confidence    float64
	EngineVersion string
	AnalyzedAt    time.Time
	IsDeleted     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
