package payout

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/keiba-analytics/internal/models"
)

// The payout block on a settled race page is a pair of pay_table_01 tables.
// Each ticket kind is one row: a class-tagged th, the selection cell, and
// the payout cell. Unsettled races serve the page without the block.
var (
	payTableRe = regexp.MustCompile(`(?s)<table[^>]*class="[^"]*pay_table_01[^"]*"[^>]*>.*?</table>`)
	payRowRe   = regexp.MustCompile(`(?s)<th[^>]*class="([a-z_]+)"[^>]*>.*?</th>\s*<td[^>]*>(.*?)</td>\s*<td[^>]*>(.*?)</td>`)
	brRe       = regexp.MustCompile(`<br\s*/?>`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
)

// parsePayoutPage extracts every ticket payout from a decoded race page.
func parsePayoutPage(html string) (*Bundle, error) {
	tables := payTableRe.FindAllString(html, -1)
	if len(tables) == 0 {
		return nil, models.ErrNotYetSettled
	}

	bundle := &Bundle{}
	parsed := false
	for _, table := range tables {
		for _, row := range payRowRe.FindAllStringSubmatch(table, -1) {
			kind := row[1]
			selections := splitCell(row[2])
			payouts := splitCell(row[3])
			if parseRow(bundle, kind, selections, payouts) {
				parsed = true
			}
		}
	}

	if !parsed {
		return nil, models.ErrParseFailed
	}
	return bundle, nil
}

func parseRow(bundle *Bundle, kind string, selections, payouts []string) bool {
	switch kind {
	case "tan":
		if len(selections) < 1 || len(payouts) < 1 {
			return false
		}
		horse, ok1 := parseNumber(selections[0])
		pay, ok2 := parseNumber(payouts[0])
		if !ok1 || !ok2 {
			return false
		}
		bundle.Win = &WinPayout{HorseNumber: horse, PayoutPer100: pay}
		return true

	case "fuku":
		if len(selections) == 0 || len(selections) != len(payouts) {
			return false
		}
		place := make([]PlacePayout, 0, len(selections))
		for i := range selections {
			horse, ok1 := parseNumber(selections[i])
			pay, ok2 := parseNumber(payouts[i])
			if !ok1 || !ok2 {
				return false
			}
			place = append(place, PlacePayout{HorseNumber: horse, PayoutPer100: pay})
		}
		bundle.Place = place
		return true

	case "uren":
		if len(selections) < 1 || len(payouts) < 1 {
			return false
		}
		nums, ok1 := parseCombination(selections[0], 2)
		pay, ok2 := parseNumber(payouts[0])
		if !ok1 || !ok2 {
			return false
		}
		bundle.Quinella = &QuinellaPayout{Pair: [2]int{nums[0], nums[1]}, PayoutPer100: pay}
		return true

	case "sanfuku":
		if len(selections) < 1 || len(payouts) < 1 {
			return false
		}
		nums, ok1 := parseCombination(selections[0], 3)
		pay, ok2 := parseNumber(payouts[0])
		if !ok1 || !ok2 {
			return false
		}
		bundle.Trio = &TrioPayout{Triple: [3]int{nums[0], nums[1], nums[2]}, PayoutPer100: pay}
		return true
	}

	return false
}

// splitCell breaks a table cell on <br> boundaries and strips markup.
func splitCell(cell string) []string {
	parts := brRe.Split(cell, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(tagRe.ReplaceAllString(p, ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseNumber reads an integer that may carry thousands separators.
func parseNumber(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseCombination reads "5 - 7" or "3 - 5 - 7" into sorted numbers.
func parseCombination(s string, want int) ([]int, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != want {
		return nil, false
	}
	nums := make([]int, 0, want)
	for _, p := range parts {
		n, ok := parseNumber(p)
		if !ok {
			return nil, false
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, true
}
