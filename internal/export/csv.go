// Package export writes report tables to CSV and XLSX files for sharing
// outside the CLI.
package export

import (
	"fmt"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/model"
)

// naValue marks a cost-per-metric cell with a zero denominator.
const naValue = "N/A"

func decimalCell(d *decimal.Decimal) string {
	if d == nil {
		return naValue
	}
	return d.StringFixed(2)
}

// WriteCohortCSV writes a cohort's user rows to path.
func WriteCohortCSV(path string, cohort model.Cohort) error {
	data, err := csvutil.Marshal(cohort.Users)
	if err != nil {
		return eris.Wrap(err, "export: marshal cohort")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write cohort csv")
	}
	return nil
}

// ReadCohortCSV loads user rows previously written by WriteCohortCSV. The
// identity space must be supplied by the caller; the file does not carry it.
func ReadCohortCSV(path string, space model.IdentitySpace) (model.Cohort, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Cohort{}, eris.Wrap(err, "export: read cohort csv")
	}
	var users []model.UserRecord
	if err := csvutil.Unmarshal(data, &users); err != nil {
		return model.Cohort{}, eris.Wrap(err, "export: parse cohort csv")
	}
	return model.Cohort{Space: space, Users: users}, nil
}

// costCSVRow flattens a CostRow for csvutil. Decimal columns are formatted
// to cents and nil cost-per cells surface as "N/A".
type costCSVRow struct {
	Country   string `csv:"country"`
	Language  string `csv:"app_language"`
	Cost      string `csv:"cost"`
	LR        int    `csv:"LR"`
	PC        int    `csv:"PC"`
	LA        int    `csv:"LA"`
	RA        int    `csv:"RA"`
	CostPerLR string `csv:"LRC"`
	CostPerPC string `csv:"PCC"`
	CostPerLA string `csv:"LAC"`
	CostPerRA string `csv:"RAC"`
	PCOverLR  string `csv:"PC/LR %"`
	LAOverLR  string `csv:"LA/LR %"`
	RAOverLR  string `csv:"RA/LR %"`
}

// WriteCostTableCSV writes the per-(country, language) campaign performance
// table to path.
func WriteCostTableCSV(path string, rows []engine.CostRow) error {
	out := make([]costCSVRow, len(rows))
	for i, r := range rows {
		out[i] = costCSVRow{
			Country:   r.Country,
			Language:  r.AppLanguage,
			Cost:      r.Cost.StringFixed(2),
			LR:        r.LR,
			PC:        r.PC,
			LA:        r.LA,
			RA:        r.RA,
			CostPerLR: decimalCell(r.LRC),
			CostPerPC: decimalCell(r.PCC),
			CostPerLA: decimalCell(r.LAC),
			CostPerRA: decimalCell(r.RAC),
			PCOverLR:  fmt.Sprintf("%.2f", r.PCOverLR),
			LAOverLR:  fmt.Sprintf("%.2f", r.LAOverLR),
			RAOverLR:  fmt.Sprintf("%.2f", r.RAOverLR),
		}
	}
	data, err := csvutil.Marshal(out)
	if err != nil {
		return eris.Wrap(err, "export: marshal cost table")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write cost table csv")
	}
	return nil
}
