// Package ofx converts OFX/QFX bank exports into payment imports awaiting
// reconciliation.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/dstern/pledgematch/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file and returns the credit transactions as
// payment imports in the New status. Debits are not donations and are
// dropped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.PaymentImport, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var imports []model.PaymentImport
	var statements, skippedDebits int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements++
		for _, ofxTx := range stmt.BankTranList.Transactions {
			amount, _ := ofxTx.TrnAmt.Float64()
			if amount <= 0 {
				skippedDebits++
				continue
			}
			imports = append(imports, p.convertTransaction(ofxTx, amount))
		}
	}

	slog.Info("Parsed OFX file",
		"imports", len(imports),
		"statements", statements,
		"skipped_debits", skippedDebits)

	return imports, nil
}

// convertTransaction maps an OFX credit onto a payment import. The payer name
// supplies the donor hints; OFX carries no email so matching for these
// imports leans on last name.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, amount float64) model.PaymentImport {
	first, last := splitPayerName(p.extractPayerName(ofxTx))

	return model.PaymentImport{
		ID:          string(ofxTx.FiTID),
		FirstName:   first,
		LastName:    last,
		Amount:      amount,
		PaymentDate: ofxTx.DtPosted.Time,
		Status:      model.StatusNew,
	}
}

// extractPayerName tries to get a clean payer name from OFX data.
func (p *Parser) extractPayerName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}
	name := string(tx.Name)
	if name == "" {
		name = string(tx.Memo)
	}
	return strings.TrimSpace(name)
}

// splitPayerName splits a "First Last" payer string into donor hints. A
// single token is treated as a last name, multi-part surnames keep everything
// after the first token together.
func splitPayerName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
