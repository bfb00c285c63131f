package domain

// CurrentVersion is the rubric version written alongside every stored assessment.
const CurrentVersion = 1

// DimensionScore grades one condition dimension, 1 (worst) to 10 (best).
type DimensionScore struct {
	Score              int    `json:"score" validate:"gte=1,lte=10"`
	Description        string `json:"description" validate:"notblank"`
	RecommendedService string `json:"recommendedService" validate:"notblank"`
}

type Scores struct {
	PaintCondition  DimensionScore `json:"paintCondition"`
	ScratchSeverity DimensionScore `json:"scratchSeverity"`
	Contamination   DimensionScore `json:"contamination"`
	Interior        DimensionScore `json:"interior"`
	WheelsTrim      DimensionScore `json:"wheelsTrim"`
}

type RecommendedService struct {
	Name          string  `json:"name" validate:"notblank"`
	Note          string  `json:"note,omitempty"`
	BasePrice     float64 `json:"basePrice" validate:"gte=0"`
	AdjustedPrice float64 `json:"adjustedPrice" validate:"gte=0"`
}

// Assessment is the stored condition report. Field names are a wire contract.
type Assessment struct {
	Scores              Scores               `json:"scores"`
	RecommendedServices []RecommendedService `json:"recommendedServices" validate:"dive"`
	Confidence          int                  `json:"confidence" validate:"gte=0,lte=100"`
	Flags               []string             `json:"flags"`
}

// Dimensions lists the scores in rubric order with their display labels.
func (a Assessment) Dimensions() []NamedScore {
	return []NamedScore{
		{Key: "paintCondition", Label: "Paint condition", DimensionScore: a.Scores.PaintCondition},
		{Key: "scratchSeverity", Label: "Scratch severity", DimensionScore: a.Scores.ScratchSeverity},
		{Key: "contamination", Label: "Contamination", DimensionScore: a.Scores.Contamination},
		{Key: "interior", Label: "Interior", DimensionScore: a.Scores.Interior},
		{Key: "wheelsTrim", Label: "Wheels & trim", DimensionScore: a.Scores.WheelsTrim},
	}
}

type NamedScore struct {
	Key   string
	Label string
	DimensionScore
}
