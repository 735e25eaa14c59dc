// Package period models quarterly freezes of the risk register and the trend,
// migration and comparison views derived from them.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// Period is a calendar quarter.
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

var periodPattern = regexp.MustCompile(`^(\d{4})-[Qq]?([1-4])$`)

// Parse accepts "YYYY-Qn" and "YYYY-n".
func Parse(s string) (Period, error) {
	m := periodPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Period{}, errors.New(errors.ErrCodePeriodInvalid, "malformed period, expected YYYY-Qn").
			WithDetail("period=" + s)
	}
	year, _ := strconv.Atoi(m[1])
	quarter, _ := strconv.Atoi(m[2])
	return New(year, quarter)
}

// New validates a year/quarter pair.
func New(year, quarter int) (Period, error) {
	if year < 1900 || year > 9999 {
		return Period{}, errors.New(errors.ErrCodePeriodInvalid, "year out of range").
			WithDetail(fmt.Sprintf("year=%d", year))
	}
	if quarter < 1 || quarter > 4 {
		return Period{}, errors.New(errors.ErrCodePeriodInvalid, "quarter must be 1-4").
			WithDetail(fmt.Sprintf("quarter=%d", quarter))
	}
	return Period{Year: year, Quarter: quarter}, nil
}

// MustParse panics on malformed input. Tests only.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-Q%d", p.Year, p.Quarter)
}

// Index orders periods chronologically.
func (p Period) Index() int { return p.Year*4 + p.Quarter - 1 }

// Before reports whether p precedes o.
func (p Period) Before(o Period) bool { return p.Index() < o.Index() }

// Next returns the following quarter.
func (p Period) Next() Period {
	if p.Quarter == 4 {
		return Period{Year: p.Year + 1, Quarter: 1}
	}
	return Period{Year: p.Year, Quarter: p.Quarter + 1}
}

//Personal.AI order the ending
