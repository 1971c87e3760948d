package broker

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// apiString accepts both JSON strings and numbers. The API sends most
// numeric fields as signed strings such as "+12340" or "-3.50".
type apiString string

func (s *apiString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = apiString(v)
		return nil
	}
	*s = apiString(data)
	return nil
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimPrefix(s, "+")
}

// parseSignedInt parses a signed integer field. Empty means zero.
func parseSignedInt(s apiString) (int64, error) {
	v := normalizeNumber(string(s))
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// parsePrice parses a price field and strips the direction sign.
func parsePrice(s apiString) int64 {
	v, err := parseSignedInt(s)
	if err != nil {
		return 0
	}
	if v < 0 {
		return -v
	}
	return v
}

// parseRate parses a change rate. Unparseable values count as zero.
func parseRate(s apiString) decimal.Decimal {
	v := normalizeNumber(string(s))
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// envelope is the return code wrapper present on every response.
type envelope struct {
	ReturnCode *apiString `json:"return_code"`
	ReturnMsg  string     `json:"return_msg"`
}

// code returns the numeric return code, or -1 when absent or malformed.
func (e envelope) code() int {
	if e.ReturnCode == nil {
		return -1
	}
	v, err := parseSignedInt(*e.ReturnCode)
	if err != nil {
		return -1
	}
	return int(v)
}
