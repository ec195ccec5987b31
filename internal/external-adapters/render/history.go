package render

import (
	"io"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const historyTimeLayout = "2006-01-02 15:04"

// WriteHistory prints finding lifecycle records as an aligned table
func WriteHistory(out io.Writer, records []entities.HistoryRecord) error {
	w := &errWriter{w: out}
	if len(records) == 0 {
		w.printf("No history recorded\n")
		return w.err
	}

	idWidth := len("ID")
	for _, r := range records {
		if n := len([]rune(r.ID)); n > idWidth {
			idWidth = n
		}
	}

	w.printf("%s %s %s %s %s %s\n",
		pad("STATE", 8), pad("RISK", riskColumn), pad("ID", idWidth),
		pad("FIRST SEEN", 16), pad("LAST SEEN", 16), "RESOLVED")
	for _, r := range records {
		resolved := "-"
		if r.ResolvedAt != nil {
			resolved = r.ResolvedAt.UTC().Format(historyTimeLayout)
		}
		w.printf("%s %s %s %s %s %s\n",
			pad(string(r.State), 8),
			pad(r.Severity.String(), riskColumn),
			pad(r.ID, idWidth),
			pad(r.FirstSeen.UTC().Format(historyTimeLayout), 16),
			pad(r.LastSeen.UTC().Format(historyTimeLayout), 16),
			resolved)
	}
	return w.err
}
