// Package codec converts transactions to and from their one-line on-disk
// text form.
//
// Fields are comma-delimited; literal commas and double quotes inside a
// field are replaced by fixed marker tokens rather than CSV-quoted. The
// substitution is not collision-proof: a field that already contains a
// marker token will unescape incorrectly on round trip. The markers are
// unlikely in normal input and the limitation is accepted.
package codec

import (
	"fmt"
	"strings"

	"financeflow/internal/core"
)

const (
	fieldCount = 5
	commaMark  = "&#44;"
	quoteMark  = "&quot;"
	delimiter  = ","
	// LedgerHeader is the first line of every ledger file.
	LedgerHeader = "date,type,category,amount,note"
	// ExportHeader differs from LedgerHeader in casing only; consumers must
	// not rely on header case.
	ExportHeader = "Date,Type,Category,Amount,Note"
)

// DecodeError reports one malformed ledger line. Loads recover from it by
// skipping the line.
type DecodeError struct {
	Line   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode ledger line: %s", e.Reason)
}

// Escape substitutes the delimiter and quote characters with their marker
// tokens.
func Escape(s string) string {
	s = strings.ReplaceAll(s, ",", commaMark)
	return strings.ReplaceAll(s, `"`, quoteMark)
}

// Unescape blindly restores the two marker tokens. It has no effect on
// strings that contain neither.
func Unescape(s string) string {
	s = strings.ReplaceAll(s, commaMark, ",")
	return strings.ReplaceAll(s, quoteMark, `"`)
}

// Encode renders a transaction as one ledger line:
// date,kind,category,amount,note.
func Encode(t core.Transaction) string {
	return strings.Join([]string{
		t.Date.ISO(),
		Escape(string(t.Kind)),
		Escape(t.Category),
		core.FormatCents(t.Amount.Cents),
		Escape(t.Note),
	}, delimiter)
}

// Decode parses one ledger line back into a transaction. Empty trailing
// fields are preserved. The ID is left zero; callers assign handles.
func Decode(line string) (core.Transaction, error) {
	parts := strings.SplitN(line, delimiter, fieldCount)
	if len(parts) < fieldCount {
		return core.Transaction{}, &DecodeError{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(parts))}
	}

	date, err := core.ParseDate(parts[0])
	if err != nil {
		return core.Transaction{}, &DecodeError{Line: line, Reason: "unparsable date " + parts[0]}
	}
	kind, err := core.ParseKind(Unescape(parts[1]))
	if err != nil {
		return core.Transaction{}, &DecodeError{Line: line, Reason: "unknown kind " + parts[1]}
	}
	cents, err := core.ParseStrictAmountToCents(parts[3])
	if err != nil {
		return core.Transaction{}, &DecodeError{Line: line, Reason: "unparsable amount " + parts[3]}
	}

	return core.Transaction{
		Date:     date,
		Kind:     kind,
		Category: Unescape(parts[2]),
		Amount:   core.Money{Cents: cents},
		Note:     Unescape(parts[4]),
	}, nil
}
