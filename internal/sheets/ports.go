package sheets

import "context"

// Row is one mirrored ledger mutation in spreadsheet form.
type Row struct {
	Username    string
	Action      string
	Date        string
	Kind        string
	Category    string
	AmountCents int64
	Note        string
}

// Ports for outbound adapters.
type RowAppender interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
