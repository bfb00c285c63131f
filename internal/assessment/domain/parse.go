package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/smallbiznis/detailflow/pkg/validation"
)

// Parse turns raw model text into a validated Assessment. The text may be wrapped
// in ``` or ```json fences. Every failure wraps ErrInvalidModelOutput.
func Parse(text string) (*Assessment, error) {
	body := StripFences(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidModelOutput)
	}

	assessment, err := decode([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}
	return assessment, nil
}

// StripFences removes markdown code fences around a JSON body.
func StripFences(text string) string {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```")
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			// drop the info string ("json", "JSON", ...)
			if info := strings.TrimSpace(body[:nl]); info == "" || !strings.ContainsAny(info, "{[") {
				body = body[nl+1:]
			}
		} else {
			body = strings.TrimPrefix(body, "json")
		}
		body = strings.TrimSpace(body)
		body = strings.TrimSuffix(body, "```")
	}
	return strings.TrimSpace(body)
}

// Decode reads a stored assessment written under the given rubric version.
func Decode(version int, raw []byte) (*Assessment, error) {
	switch version {
	case 1:
		assessment, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode assessment v1: %w", err)
		}
		return assessment, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// Encode marshals an assessment for storage. The same bytes are returned to callers.
func Encode(a *Assessment) ([]byte, error) {
	if a.Flags == nil {
		a.Flags = []string{}
	}
	if a.RecommendedServices == nil {
		a.RecommendedServices = []RecommendedService{}
	}
	return json.Marshal(a)
}

// wire types mirror Assessment with presence-checkable fields, so a reply that omits
// part of the schema fails instead of decoding to zero values.
type wireScore struct {
	Score              *json.Number `json:"score"`
	Description        string       `json:"description"`
	RecommendedService string       `json:"recommendedService"`
}

type wireScores struct {
	PaintCondition  *wireScore `json:"paintCondition"`
	ScratchSeverity *wireScore `json:"scratchSeverity"`
	Contamination   *wireScore `json:"contamination"`
	Interior        *wireScore `json:"interior"`
	WheelsTrim      *wireScore `json:"wheelsTrim"`
}

type wireAssessment struct {
	Scores              *wireScores          `json:"scores"`
	RecommendedServices []RecommendedService `json:"recommendedServices"`
	Confidence          *json.Number         `json:"confidence"`
	Flags               []string             `json:"flags"`
}

func decode(raw []byte) (*Assessment, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var wire wireAssessment
	if err := dec.Decode(&wire); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after assessment object")
	}

	var errs validation.Errors
	assessment := Assessment{
		RecommendedServices: wire.RecommendedServices,
		Flags:               wire.Flags,
	}
	if wire.Scores == nil {
		errs.Add("scores", validation.CodeRequired, "is required")
	} else {
		assessment.Scores = Scores{
			PaintCondition:  dimension(&errs, "scores.paintCondition", wire.Scores.PaintCondition),
			ScratchSeverity: dimension(&errs, "scores.scratchSeverity", wire.Scores.ScratchSeverity),
			Contamination:   dimension(&errs, "scores.contamination", wire.Scores.Contamination),
			Interior:        dimension(&errs, "scores.interior", wire.Scores.Interior),
			WheelsTrim:      dimension(&errs, "scores.wheelsTrim", wire.Scores.WheelsTrim),
		}
	}
	if wire.RecommendedServices == nil {
		errs.Add("recommendedServices", validation.CodeRequired, "is required")
	}
	if wire.Flags == nil {
		errs.Add("flags", validation.CodeRequired, "is required")
	}
	if wire.Confidence == nil {
		errs.Add("confidence", validation.CodeRequired, "is required")
	} else if n, ok := integral(*wire.Confidence); ok {
		assessment.Confidence = n
	} else {
		errs.Add("confidence", validation.CodeInvalidValue, "must be an integer")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := validation.Struct(assessment); err != nil {
		return nil, err
	}
	return &assessment, nil
}

func dimension(errs *validation.Errors, field string, w *wireScore) DimensionScore {
	if w == nil {
		errs.Add(field, validation.CodeRequired, "is required")
		return DimensionScore{}
	}
	out := DimensionScore{Description: w.Description, RecommendedService: w.RecommendedService}
	if w.Score == nil {
		errs.Add(field+".score", validation.CodeRequired, "is required")
		return out
	}
	n, ok := integral(*w.Score)
	if !ok {
		errs.Add(field+".score", validation.CodeInvalidValue, "must be an integer")
		return out
	}
	out.Score = n
	return out
}

// integral accepts 7 and 7.0 but not 7.5.
func integral(n json.Number) (int, bool) {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
