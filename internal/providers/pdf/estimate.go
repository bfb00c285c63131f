package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
)

var ErrNoAssessment = errors.New("assessment_not_found")

type EstimateData struct {
	OrgName      string
	JobID        string
	IssueDate    string
	CustomerName string
	CustomerInfo string
	Vehicle      string

	Scores   []ScoreLine
	Services []ServiceLine

	BaseTotal     string
	AdjustedTotal string
	Confidence    int
	Flags         []string
}

type ScoreLine struct {
	Label       string
	Score       int
	Description string
	Recommended string
}

type ServiceLine struct {
	Name          string
	Note          string
	BasePrice     string
	AdjustedPrice string
}

// NewEstimateData flattens a job with a stored assessment into printable rows.
func NewEstimateData(detail *jobdomain.Detail, orgName string, issuedAt time.Time) (EstimateData, error) {
	if detail == nil || detail.Assessment == nil {
		return EstimateData{}, ErrNoAssessment
	}
	a := detail.Assessment

	data := EstimateData{
		OrgName:    orgName,
		JobID:      detail.ID,
		IssueDate:  issuedAt.Format("January 2, 2006"),
		Confidence: a.Confidence,
		Flags:      a.Flags,
	}
	if c := detail.Customer; c != nil {
		data.CustomerName = c.Name
		data.CustomerInfo = strings.TrimSpace(c.Email + "  " + c.Phone)
	}
	if v := detail.Vehicle; v != nil {
		data.Vehicle = strings.TrimSpace(fmt.Sprintf("%d %s %s (%s)", v.Year, v.Make, v.Model, v.Color))
	}

	for _, dim := range a.Dimensions() {
		data.Scores = append(data.Scores, ScoreLine{
			Label:       dim.Label,
			Score:       dim.Score,
			Description: dim.Description,
			Recommended: dim.RecommendedService,
		})
	}

	base, adjusted := decimal.Zero, decimal.Zero
	for _, svc := range a.RecommendedServices {
		b := decimal.NewFromFloat(svc.BasePrice).Round(2)
		p := decimal.NewFromFloat(svc.AdjustedPrice).Round(2)
		base = base.Add(b)
		adjusted = adjusted.Add(p)
		data.Services = append(data.Services, ServiceLine{
			Name:          svc.Name,
			Note:          svc.Note,
			BasePrice:     money(b),
			AdjustedPrice: money(p),
		})
	}
	data.BaseTotal = money(base)
	data.AdjustedTotal = money(adjusted)
	return data, nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateEstimate(ctx context.Context, estimate EstimateData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, estimate.OrgName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Estimate", props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Customer", props.Text{Style: fontstyle.Bold}),
			text.New(estimate.CustomerName, props.Text{Top: 5}),
			text.New(estimate.CustomerInfo, props.Text{Top: 10, Size: 9}),
		),
		col.New(6).Add(
			text.New("Job: "+estimate.JobID, props.Text{Size: 8, Align: align.Right}),
			text.New("Date: "+estimate.IssueDate, props.Text{Top: 5, Size: 9, Align: align.Right}),
			text.New(estimate.Vehicle, props.Text{Top: 10, Size: 9, Align: align.Right}),
		),
	)

	// Condition scores
	m.AddRow(10,
		text.NewCol(12, "Condition", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}),
	)
	m.AddRow(8,
		text.NewCol(3, "Area", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Score", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Center}),
		text.NewCol(5, "Notes", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Recommended", props.Text{Style: fontstyle.Bold, Size: 9}),
	)
	for _, score := range estimate.Scores {
		m.AddRow(14,
			text.NewCol(3, score.Label, props.Text{Size: 9}),
			text.NewCol(1, fmt.Sprintf("%d/10", score.Score), props.Text{Size: 9, Align: align.Center}),
			text.NewCol(5, score.Description, props.Text{Size: 8}),
			text.NewCol(3, score.Recommended, props.Text{Size: 8}),
		)
	}

	// Services
	m.AddRow(10,
		text.NewCol(12, "Recommended services", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}),
	)
	m.AddRow(8,
		text.NewCol(8, "Service", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Base", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, svc := range estimate.Services {
		label := svc.Name
		if svc.Note != "" {
			label += " (" + svc.Note + ")"
		}
		m.AddRow(10,
			text.NewCol(8, label, props.Text{Size: 9}),
			text.NewCol(2, svc.BasePrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, svc.AdjustedPrice, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, estimate.BaseTotal, props.Text{Size: 10, Align: align.Right}),
		text.NewCol(2, estimate.AdjustedTotal, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	m.AddRow(8,
		text.NewCol(12, fmt.Sprintf("Assessment confidence: %d%%", estimate.Confidence), props.Text{Size: 8, Top: 2}),
	)
	for _, flag := range estimate.Flags {
		m.AddRow(6,
			text.NewCol(12, "* "+flag, props.Text{Size: 8}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
