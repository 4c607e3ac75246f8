package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstern/pledgematch/internal/model"
)

// Sample OFX data for testing.
const sampleDonationsOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240301120000[0:GMT]
<DTEND>20240331120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240315120000[0:GMT]
<TRNAMT>250.00
<FITID>2024031501
<NAME>DANA STERN
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240316120000[0:GMT]
<TRNAMT>100.00
<FITID>2024031601
<NAME>ALVAREZ
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240317120000[0:GMT]
<TRNAMT>-42.00
<FITID>2024031701
<NAME>BANK FEE
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240331120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseFileKeepsOnlyCredits(t *testing.T) {
	parser := NewParser()

	imports, err := parser.ParseFile(context.Background(), strings.NewReader(sampleDonationsOFX))
	require.NoError(t, err)
	require.Len(t, imports, 2, "debits are dropped")

	first := imports[0]
	assert.Equal(t, "2024031501", first.ID)
	assert.Equal(t, "DANA", first.FirstName)
	assert.Equal(t, "STERN", first.LastName)
	assert.InDelta(t, 250.00, first.Amount, 0.001)
	assert.Equal(t, model.StatusNew, first.Status)
	assert.Equal(t, 2024, first.PaymentDate.Year())

	// A single-token payer is treated as a last name only.
	second := imports[1]
	assert.Empty(t, second.FirstName)
	assert.Equal(t, "ALVAREZ", second.LastName)
}

func TestParseFileInvalidData(t *testing.T) {
	parser := NewParser()

	_, err := parser.ParseFile(context.Background(), strings.NewReader("this is not OFX"))
	assert.Error(t, err)
}

func TestSplitPayerName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		first string
		last  string
	}{
		{"empty", "", "", ""},
		{"single token", "Stern", "", "Stern"},
		{"first and last", "Dana Stern", "Dana", "Stern"},
		{"multi-part surname", "Maria de la Cruz", "Maria", "de la Cruz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitPayerName(tt.in)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
