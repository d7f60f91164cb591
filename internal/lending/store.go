// Package lending loads the library circulation history used for trust scoring.
package lending

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

// Column headers expected in the circulation export.
const (
	ColumnCardNumber  = "Card number"
	ColumnTransaction = "Transaction"
	ColumnAmount      = "Amount"
	ColumnDate        = "Date"
)

var requiredColumns = []string{ColumnCardNumber, ColumnTransaction, ColumnAmount, ColumnDate}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Store is an immutable, in-memory lending history indexed by card number.
// It is safe for concurrent readers.
type Store struct {
	byCard map[string][]model.LendingTransaction
	total  int
}

// NewStore indexes the given rows. Card numbers are matched case-insensitively.
func NewStore(rows []model.LendingTransaction) *Store {
	s := &Store{
		byCard: make(map[string][]model.LendingTransaction),
		total:  len(rows),
	}
	for _, row := range rows {
		key := normalizeCard(row.CardNumber)
		s.byCard[key] = append(s.byCard[key], row)
	}
	return s
}

// LoadCSV reads the whole history file. Any malformed row fails the load.
func LoadCSV(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", common.ErrHistoryUnavailable, path, err)
	}
	defer f.Close()

	rows, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrHistoryUnavailable, path, err)
	}

	store := NewStore(rows)
	slog.Info("Loaded lending history",
		"path", path,
		"rows", store.Len(),
		"cards", len(store.byCard))
	return store, nil
}

// ParseCSV parses circulation rows from r. The header must name the four
// required columns; extra columns are ignored.
func ParseCSV(r io.Reader) ([]model.LendingTransaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("history file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []model.LendingTransaction
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ForCard returns the rows for one card number. The returned slice must not
// be modified.
func (s *Store) ForCard(cardNumber string) []model.LendingTransaction {
	return s.byCard[normalizeCard(cardNumber)]
}

// Cards returns every card number in the history, sorted.
func (s *Store) Cards() []string {
	cards := make([]string, 0, len(s.byCard))
	for card := range s.byCard {
		cards = append(cards, card)
	}
	sort.Strings(cards)
	return cards
}

// Len returns the number of rows loaded.
func (s *Store) Len() int {
	return s.total
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int) (model.LendingTransaction, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	card := field(ColumnCardNumber)
	if card == "" {
		return model.LendingTransaction{}, fmt.Errorf("empty card number")
	}

	txnType, err := model.ParseTransactionType(field(ColumnTransaction))
	if err != nil {
		return model.LendingTransaction{}, err
	}

	date, err := parseDate(field(ColumnDate))
	if err != nil {
		return model.LendingTransaction{}, err
	}

	row := model.LendingTransaction{
		CardNumber: card,
		Type:       txnType,
		Date:       date,
	}

	if raw := field(ColumnAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return model.LendingTransaction{}, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		row.Amount = amount
		row.HasAmount = true
	}

	return row, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func normalizeCard(card string) string {
	return strings.ToUpper(strings.TrimSpace(card))
}
