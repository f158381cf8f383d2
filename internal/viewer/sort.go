package viewer

import (
	"fmt"
	"slices"
	"strings"
)

// SortKey names a sortable column.
type SortKey string

const (
	SortDate              SortKey = "date"
	SortAcquirer          SortKey = "acquirer"
	SortTarget            SortKey = "target"
	SortTitle             SortKey = "title"
	SortLink              SortKey = "link"
	SortTransactionNumber SortKey = "transaction_number"
	SortStatus            SortKey = "status"
)

// SortKeys lists the accepted keys in display order.
var SortKeys = []SortKey{
	SortDate, SortAcquirer, SortTarget, SortTitle, SortLink, SortTransactionNumber, SortStatus,
}

// ParseSortKey validates s. An empty string selects SortDate.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortDate, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort column %q", s)
}

// ParseOrder accepts "desc" or "asc" (empty means desc) and reports whether
// the order is descending.
func ParseOrder(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return true, nil
	case "asc", "ascending":
		return false, nil
	default:
		return false, fmt.Errorf("unknown sort order %q", s)
	}
}

func (k SortKey) value(r Row) string {
	switch k {
	case SortAcquirer:
		return r.Acquirer
	case SortTarget:
		return r.Target
	case SortTitle:
		return r.Title
	case SortLink:
		return r.Link
	case SortTransactionNumber:
		return r.TransactionNumber
	case SortStatus:
		return r.Status()
	default:
		return r.Date
	}
}

// Sort orders rows by key in place. The sort is stable and rows with an
// empty value for key come last in either direction.
func Sort(rows []Row, key SortKey, desc bool) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		av, bv := key.value(a), key.value(b)
		switch {
		case av == "" && bv == "":
			return 0
		case av == "":
			return 1
		case bv == "":
			return -1
		}
		c := strings.Compare(av, bv)
		if desc {
			return -c
		}
		return c
	})
}
