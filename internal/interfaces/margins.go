package interfaces

import "context"

// MarginSource maps order numbers to the profit margin recorded for them
type MarginSource interface {
	Margins(ctx context.Context, sheetURL string) (map[string]string, error)
}
