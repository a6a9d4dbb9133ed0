package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"orderintake/internal"
	"orderintake/internal/util"
)

const monthAlternation = `January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:` + monthAlternation + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
}

var ordinalSuffixPattern = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)`)

var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2006-01-02",
	"2.1.2006",
	"1/2/2006",
}

var urgentKeywordPattern = regexp.MustCompile(`(?i)\b(urgent|asap|as soon as possible|emergency|rush|immediately|time[- ]sensitive|high priority)\b`)

var notesPattern = regexp.MustCompile(`(?im)^(?:notes?|comments?|special instructions|additional information)\s*:\s*(.+)$`)

var signaturePattern = regexp.MustCompile(`(?m)^(?:[Tt]hanks|[Tt]hank you|[Mm]any thanks|[Rr]egards|[Bb]est [Rr]egards|[Kk]ind [Rr]egards|[Ss]incerely|[Cc]heers|[Bb]est)[,.!]?[ \t]*\n+[ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){0,2})[ \t]*$`)

var fromLinePattern = regexp.MustCompile(`(?m)^[Ff]rom\s*:\s*"?([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`)

var addressIndicatorPattern = regexp.MustCompile(`(?i)\b(street|st\.|avenue|ave\.?|road|rd\.?|lane|ln\.?|boulevard|blvd\.?|drive|dr\.?|way|suite|ste\.?|floor|fl\.?|apt\.?|unit|building|industrial|park)\b`)

var postalCodePattern = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)

var houseNumberPattern = regexp.MustCompile(`^\d{1,5}\s+[A-Za-z]`)

// ExtractOrderDetails pulls delivery date, shipping address, customer name,
// notes and urgency out of an email body. Everything here is best-effort:
// a miss leaves the field nil and the order still goes through.
func ExtractOrderDetails(text string, now time.Time) internal.OrderDetails {
	details := internal.OrderDetails{Urgency: internal.UrgencyNormal}
	if strings.TrimSpace(text) == "" {
		return details
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	if raw, parsed, ok := findDeliveryDate(normalized); ok {
		details.DeliveryDateRaw = util.StringPtr(raw)
		details.DeliveryDate = &parsed
	} else if raw != "" {
		// Date-looking text that no layout accepts is kept raw only.
		details.DeliveryDateRaw = util.StringPtr(raw)
	}

	details.ShippingAddress = extractAddress(lines)
	details.CustomerName = extractCustomerName(normalized)

	if m := notesPattern.FindStringSubmatch(normalized); m != nil {
		details.Notes = util.StringPtr(strings.TrimSpace(m[1]))
	}

	details.Urgency = classifyUrgency(normalized, details.DeliveryDate, now)
	return details
}

// findDeliveryDate returns the earliest date-like expression in document
// order. The raw expression is reported even when unparsable.
func findDeliveryDate(text string) (raw string, parsed time.Time, ok bool) {
	type hit struct {
		start int
		expr  string
	}
	hits := []hit{}
	for _, re := range datePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{start: loc[0], expr: text[loc[0]:loc[1]]})
		}
	}
	if len(hits) == 0 {
		return "", time.Time{}, false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	for _, h := range hits {
		if t, err := parseDateExpr(h.expr); err == nil {
			return h.expr, t, true
		}
		if raw == "" {
			raw = h.expr
		}
	}
	return raw, time.Time{}, false
}

func parseDateExpr(expr string) (time.Time, error) {
	s := strings.TrimSpace(expr)
	s = ordinalSuffixPattern.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "Sept ", "Sep ")

	var lastErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	// Month names arrive in any casing; retry title-cased.
	if t, err := time.Parse("January 2, 2006", titleCaseMonth(s)); err == nil {
		return t, nil
	}
	if t, err := time.Parse("January 2 2006", titleCaseMonth(s)); err == nil {
		return t, nil
	}
	return time.Time{}, lastErr
}

func titleCaseMonth(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	first := strings.ToLower(fields[0])
	fields[0] = strings.ToUpper(first[:1]) + first[1:]
	return strings.Join(fields, " ")
}

// extractAddress prefers an explicit "Ship to:" style block; without one it
// falls back to the densest run of address-indicator lines.
func extractAddress(lines []string) *string {
	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		m := addressLabelPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		block := []string{}
		if rest := strings.TrimSpace(m[1]); rest != "" {
			block = append(block, rest)
		}
		for j := i + 1; j < len(lines) && len(block) < 4; j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || isLikelyNoise(next) || addressLabelPattern.MatchString(next) {
				break
			}
			block = append(block, next)
		}
		if len(block) > 0 {
			return util.StringPtr(strings.Join(block, "\n"))
		}
	}

	bestScore := 0
	bestBlock := []string{}
	for i := range lines {
		window := []string{}
		score := 0
		for j := i; j < len(lines) && j < i+3; j++ {
			line := strings.TrimSpace(lines[j])
			if line == "" {
				break
			}
			window = append(window, line)
			score += addressLineScore(line)
		}
		if score > bestScore {
			bestScore = score
			bestBlock = window
		}
	}
	if bestScore >= 2 {
		return util.StringPtr(strings.Join(bestBlock, "\n"))
	}
	return nil
}

func addressLineScore(line string) int {
	score := 0
	if addressIndicatorPattern.MatchString(line) {
		score++
	}
	if postalCodePattern.MatchString(line) {
		score++
	}
	if houseNumberPattern.MatchString(line) {
		score++
	}
	return score
}

func extractCustomerName(text string) *string {
	if m := signaturePattern.FindStringSubmatch(text); m != nil {
		return util.StringPtr(strings.TrimSpace(m[1]))
	}
	if m := fromLinePattern.FindStringSubmatch(text); m != nil {
		return util.StringPtr(strings.TrimSpace(m[1]))
	}
	return nil
}

func classifyUrgency(text string, deliveryDate *time.Time, now time.Time) internal.Urgency {
	if urgentKeywordPattern.MatchString(text) {
		return internal.UrgencyHigh
	}
	if deliveryDate != nil {
		days := deliveryDate.Sub(now).Hours() / 24
		if days >= 0 && days <= 7 {
			return internal.UrgencyMedium
		}
	}
	return internal.UrgencyNormal
}
