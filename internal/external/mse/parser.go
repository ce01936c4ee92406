package mse

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/msesync/internal/contracts"
)

// ParseHistory extracts history rows from a symbol history page.
// ⭐ SSOT: 모든 transport(http/async/browser)가 공유하는 파서
//
// Only rows of table#resultsTable with exactly 9 cells are kept. A page without
// the table means the window has no trading days and yields no rows.
func ParseHistory(code string, r io.Reader) ([]contracts.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse history html: %w", err)
	}

	var rows []contracts.RawRow
	doc.Find("table#resultsTable tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() != contracts.RawFieldCount {
			return
		}

		row := contracts.RawRow{IssuerCode: code}
		cells.Each(func(i int, td *goquery.Selection) {
			row.Fields[i] = strings.TrimSpace(td.Text())
		})
		rows = append(rows, row)
	})

	return rows, nil
}

// ParseIssuers extracts the issuer catalogue from the #Code select box.
// Codes or names containing digits (bonds, compensation notes) are skipped.
func ParseIssuers(r io.Reader) ([]contracts.Issuer, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse issuer html: %w", err)
	}

	seen := make(map[string]struct{})
	var issuers []contracts.Issuer
	doc.Find("#Code option").Each(func(_ int, opt *goquery.Selection) {
		code := strings.TrimSpace(opt.AttrOr("value", ""))
		name := strings.TrimSpace(opt.Text())
		if code == "" || hasDigit(code) || hasDigit(name) {
			return
		}
		if _, dup := seen[code]; dup {
			return
		}
		if name == "" {
			name = code
		}
		seen[code] = struct{}{}
		issuers = append(issuers, contracts.Issuer{Code: code, Name: name})
	})

	return issuers, nil
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
