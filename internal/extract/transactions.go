package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Transaction is one parsed statement line. Date, Description and Amount
// are jointly required for a line to be accepted.
type Transaction struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	RawText       string  `json:"raw_text"`
	LineNumber    int     `json:"line_number"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Confidence    float64 `json:"confidence"`
}

var (
	// Optional leading date, free-text description, trailing amount
	// anchored at end of line.
	transactionLineRe = regexp.MustCompile(
		`^(?:(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{1,2}-\d{1,2})\s+)?(.+?)\s+([-+]?\$?\d[\d,]{0,12}(?:\.\d{1,2})?)\s*$`)

	transactionIDRe = regexp.MustCompile(`ID:(\d+)`)
)

var transactionIndicators = []string{
	"des:", "id:", "indn:", "co id:", "web", "pos", "atm", "check", "deposit",
	"withdrawal", "transfer", "payment", "charge", "fee", "rebill", "autopay",
}

var dateLayouts = []string{"1/2/06", "1/2/2006", "1-2-06", "1-2-2006", "2006-1-2"}

const maxTransactionAmount = 1_000_000

// TransactionParser extracts statement rows line by line. Lines that do
// not look like transactions are skipped; parsing never aborts.
type TransactionParser struct{}

func NewTransactionParser() *TransactionParser {
	return &TransactionParser{}
}

func (p *TransactionParser) Parse(text string) []Transaction {
	var transactions []Transaction

	for lineNum, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if tx, ok := p.parseLine(line, lineNum); ok {
			transactions = append(transactions, tx)
		}
	}

	return transactions
}

func (p *TransactionParser) parseLine(line string, lineNum int) (Transaction, bool) {
	m := transactionLineRe.FindStringSubmatch(line)
	if m == nil {
		return Transaction{}, false
	}

	date, ok := normalizeDate(m[1])
	if !ok {
		return Transaction{}, false
	}

	desc := strings.TrimSpace(m[2])
	amount, ok := parseAmount(m[3])
	if !ok || desc == "" {
		return Transaction{}, false
	}

	var transID string
	if idm := transactionIDRe.FindStringSubmatch(line); idm != nil {
		transID = idm[1]
	}

	return Transaction{
		Date:          date,
		Description:   desc,
		Amount:        amount,
		RawText:       line,
		LineNumber:    lineNum,
		TransactionID: transID,
		Confidence:    transactionConfidence(line, date, desc, true),
	}, true
}

// normalizeDate canonicalizes MM/DD/YY, MM/DD/YYYY, MM-DD-YY and
// YYYY-MM-DD to YYYY-MM-DD. Unparseable dates reject the candidate.
func normalizeDate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func parseAmount(token string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(token, "$", ""), ",", "")
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if amount < -maxTransactionAmount || amount > maxTransactionAmount {
		return 0, false
	}
	return amount, true
}

func transactionConfidence(line, date, desc string, hasAmount bool) float64 {
	confidence := 0.0
	if date != "" {
		confidence += 0.3
	}
	if hasAmount {
		confidence += 0.3
	}
	if desc != "" {
		confidence += 0.2
	}
	if date != "" && hasAmount && desc != "" {
		confidence += 0.2
	}

	lower := strings.ToLower(line)
	for _, indicator := range transactionIndicators {
		if strings.Contains(lower, indicator) {
			confidence += 0.1
			break
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// StructuredText renders the transaction as a single embeddable string.
func (t Transaction) StructuredText() string {
	parts := []string{
		"Date: " + t.Date,
		"Description: " + t.Description,
		"Amount: " + strconv.FormatFloat(t.Amount, 'f', -1, 64),
		"Raw: " + t.RawText,
	}
	return strings.Join(parts, " | ")
}
