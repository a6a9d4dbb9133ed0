package pipeline

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"orderintake/internal"
	"orderintake/internal/util"
)

var (
	// ErrEmptyEmail and ErrBinaryInput are the only fatal extraction
	// errors; everything else degrades to partial results.
	ErrEmptyEmail  = errors.New("email body is empty")
	ErrBinaryInput = errors.New("input is not interpretable as text")
)

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--+$`),
	regexp.MustCompile(`^==+$`),
	regexp.MustCompile(`(?i)^(dear|hello|hi|greetings)\b`),
	regexp.MustCompile(`(?i)^(thanks|thank you|many thanks|regards|best regards|kind regards|sincerely|cheers|best)[,.!]?\s*$`),
	regexp.MustCompile(`(?i)^(tel|phone|fax|mobile)[:.\s]`),
	regexp.MustCompile(`(?i)^e-?mail[:.\s]`),
	regexp.MustCompile(`(?i)^https?://`),
	regexp.MustCompile(`(?i)^(subject|to|cc|date)\s*:`),
}

var addressLabelPattern = regexp.MustCompile(`(?i)^(?:ship\s*to|shipping\s+address|delivery\s+address|send\s+to)\s*[:\-]?\s*(.*)$`)

// Ordered item-line rules; the first that fires wins, mirroring how the
// lines actually appear in order emails.
var itemLineRules = []struct {
	re        *regexp.Regexp
	qtyGroup  int
	descGroup int
}{
	// "9 x Coffee STRADAL 620", also inline as "please send 9 x ...".
	// Unanchored: the address-block and noise guards in parseEmailText
	// keep house numbers and dates from reading as quantities.
	{regexp.MustCompile(`(?i)\b(\d+)\s*x\s+(.+)$`), 1, 2},
	// "Bed TRANBERG 858 - Qty: 2"
	{regexp.MustCompile(`(?i)^[-*•]?\s*(.+?)\s*[-–—]\s*(?:qty|quantity)\s*[:.]?\s*(\d+)\b.*$`), 2, 1},
	// "3 units of Bar FJARMARK 344"
	{regexp.MustCompile(`(?i)^[-*•]?\s*(\d+)\s+(?:pieces|pcs|units?)\s+of\s+(.+)$`), 1, 2},
	// "Desk lamp - 5 pcs"
	{regexp.MustCompile(`(?i)^[-*•]?\s*(.+?)[,\s]+[-–—]?\s*(\d+)\s*(?:pieces|pcs|pc|units?|boxes|box|packs?|sets?)\.?\s*$`), 2, 1},
}

// Bullet lines without an explicit quantity still count as one item each.
var bulletItemPattern = regexp.MustCompile(`^[-*•]\s+([^\d].*)$`)

var (
	hasLettersPattern   = regexp.MustCompile(`[A-Za-z].*[A-Za-z]`)
	leadingDigitPattern = regexp.MustCompile(`^\d`)
	spaceRunPattern     = regexp.MustCompile(`\s+`)
)

// ExtractEmailResult carries everything pulled out of one raw email.
type ExtractEmailResult struct {
	Items           []internal.CandidateItem
	Details         internal.OrderDetails
	Subject         string
	BodyText        string
	BodyHTML        string
	AttachmentNames []string
}

// ExtractEmail parses a raw email (RFC822 or bare text) into candidate
// items and header metadata. Malformed lines are skipped, never fatal;
// only empty or binary input aborts.
func ExtractEmail(raw []byte, now time.Time) (ExtractEmailResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ExtractEmailResult{}, ErrEmptyEmail
	}
	if bytes.ContainsRune(raw, 0) || !utf8.Valid(raw) {
		return ExtractEmailResult{}, ErrBinaryInput
	}

	out := ExtractEmailResult{}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err == nil && (env.Text != "" || env.HTML != "" || len(env.Attachments) > 0) {
		out.Subject = env.GetHeader("Subject")
		out.BodyText = env.Text
		out.BodyHTML = env.HTML

		if env.HTML != "" {
			out.Items = append(out.Items, parseEmailHTMLTable(env.HTML)...)
			if strings.TrimSpace(out.BodyText) == "" {
				out.BodyText = htmlToText(env.HTML)
			}
		}
		if strings.TrimSpace(env.Text) != "" {
			out.Items = append(parseEmailText(env.Text), out.Items...)
		}

		for _, att := range env.Attachments {
			filename := strings.TrimSpace(att.FileName)
			if filename == "" {
				filename = "attachment"
			}
			out.AttachmentNames = append(out.AttachmentNames, filename)
			lower := strings.ToLower(filename)

			if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
				if extra, err := parseXLSX(att.Content); err == nil {
					out.Items = append(out.Items, extra...)
				}
			}
			if strings.HasSuffix(lower, ".pdf") {
				if extra, err := parsePDF(att.Content); err == nil {
					out.Items = append(out.Items, extra...)
				}
			}
		}
	} else {
		// Not a MIME message: treat the whole input as a plain text body.
		out.BodyText = string(raw)
		out.Items = parseEmailText(out.BodyText)
	}

	for i := range out.Items {
		out.Items[i].LineNo = i + 1
	}

	out.Details = ExtractOrderDetails(out.BodyText, now)
	return out, nil
}

// parseEmailText scans a plain text body line by line. The address block
// is skipped so house numbers and zip codes never read as quantities;
// the same goes for lines matching known noise shapes.
func parseEmailText(text string) []internal.CandidateItem {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]internal.CandidateItem, 0, len(lines))

	inAddressBlock := false
	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			inAddressBlock = false
			continue
		}
		if addressLabelPattern.MatchString(line) {
			inAddressBlock = true
			continue
		}
		if inAddressBlock || isLikelyNoise(line) {
			continue
		}

		if item := parseItemLine(internal.SourceEmailText, line); item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func parseItemLine(source internal.ItemSource, rawLine string) *internal.CandidateItem {
	compact := normalizeSpaces(rawLine)
	if compact == "" {
		return nil
	}

	for _, rule := range itemLineRules {
		m := rule.re.FindStringSubmatch(compact)
		if m == nil {
			continue
		}
		desc := cleanDescription(m[rule.descGroup])
		if !hasLettersPattern.MatchString(desc) {
			continue
		}
		qty := parseQtyToken(m[rule.qtyGroup])
		item := internal.CandidateItem{
			Source:      source,
			RawLine:     compact,
			Description: desc,
			Qty:         qty,
		}
		if parsed := util.ParseQty(compact); parsed.Unit != nil {
			item.UnitHint = parsed.Unit
		}
		return &item
	}

	if m := bulletItemPattern.FindStringSubmatch(compact); m != nil {
		desc := cleanDescription(m[1])
		if hasLettersPattern.MatchString(desc) {
			return &internal.CandidateItem{
				Source:      source,
				RawLine:     compact,
				Description: desc,
				Qty:         1,
			}
		}
	}

	return nil
}

// parseQtyToken turns a matched digit run into a quantity; anything
// unusable becomes the 0 sentinel, which always fails MOQ validation.
func parseQtyToken(token string) int {
	qty, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || qty < 0 {
		return 0
	}
	return qty
}

func cleanDescription(input string) string {
	s := normalizeSpaces(input)
	s = strings.Trim(s, " -–—,.;:*•")
	return s
}

func parseEmailHTMLTable(html string) []internal.CandidateItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.CandidateItem{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		nameIdx := findHeaderIndex(headers, []string{"product", "name", "item", "description"})
		qtyIdx := findHeaderIndex(headers, []string{"qty", "quantity", "amount", "count"})
		unitIdx := findHeaderIndex(headers, []string{"unit", "uom"})

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}

			nameCell := pickCell(cells, nameIdx, 0)
			qtyCell := pickCell(cells, qtyIdx, -1)
			if qtyCell == "" {
				for _, c := range cells {
					if c != nameCell && leadingDigitPattern.MatchString(c) {
						qtyCell = c
						break
					}
				}
			}
			if strings.TrimSpace(nameCell) == "" || qtyCell == "" {
				return
			}

			parsed := util.ParseQty(qtyCell)
			qty := 0
			if parsed.Qty != nil {
				qty = *parsed.Qty
			}

			item := internal.CandidateItem{
				Source:      internal.SourceEmailHTMLTable,
				RawLine:     strings.Join(cells, " | "),
				Description: nameCell,
				Qty:         qty,
			}
			if unit := pickCell(cells, unitIdx, -1); unit != "" {
				item.UnitHint = util.StringPtr(unit)
			} else if parsed.Unit != nil {
				item.UnitHint = parsed.Unit
			}
			out = append(out, item)
		})
	})

	return out
}

func parseXLSX(content []byte) ([]internal.CandidateItem, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.CandidateItem{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		nameIdx, qtyIdx, unitIdx := -1, -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && nameIdx < 0 {
				nameIdx, qtyIdx, unitIdx = inferSheetColumns(cells)
				if nameIdx >= 0 || qtyIdx >= 0 {
					continue
				}
			}

			if nameIdx < 0 {
				nameIdx, qtyIdx, unitIdx = 0, 1, 2
			}
			name := pickCell(cells, nameIdx, 0)
			qtyCell := pickCell(cells, qtyIdx, -1)
			if qtyCell == "" {
				qtyCell = strings.Join(cells, " ")
			}
			parsed := util.ParseQty(qtyCell)
			if strings.TrimSpace(name) == "" || parsed.Qty == nil {
				continue
			}

			item := internal.CandidateItem{
				Source:      internal.SourceXLSX,
				RawLine:     strings.Join(cells, " | "),
				Description: name,
				Qty:         *parsed.Qty,
			}
			if unit := pickCell(cells, unitIdx, -1); unit != "" {
				item.UnitHint = util.StringPtr(unit)
			} else if parsed.Unit != nil {
				item.UnitHint = parsed.Unit
			}
			out = append(out, item)
		}
	}

	return out, nil
}

func parsePDF(content []byte) ([]internal.CandidateItem, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.CandidateItem{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, item := range parseEmailText(text) {
			item.Source = internal.SourcePDF
			out = append(out, item)
		}
	}
	return out, nil
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return doc.Text()
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(spaceRunPattern.ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range noisePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func inferSheetColumns(headers []string) (nameIdx, qtyIdx, unitIdx int) {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(h))
	}
	nameIdx = findHeaderIndex(norm, []string{"product", "name", "item", "description"})
	qtyIdx = findHeaderIndex(norm, []string{"qty", "quantity", "amount"})
	unitIdx = findHeaderIndex(norm, []string{"unit", "uom"})
	return
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}
