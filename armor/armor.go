// Package armor implements the ASCII armor used around contracts and inside
// their armored text fields.
//
// An armored block is bookended:
//
//	-----BEGIN ARMORED PURSE-----
//	Version: xdao-purse 1
//
//	<base64(snappy(data)), wrapped at 64 columns>
//	-----END ARMORED PURSE-----
//
// Armored fields are the same payload without bookends or headers.
package armor

import (
	"encoding/base64"
	"strings"

	"github.com/golang/snappy"

	"xdao.co/purse/fault"
)

const (
	beginPrefix = "-----BEGIN ARMORED "
	endPrefix   = "-----END ARMORED "
	dashes      = "-----"

	// Version is written into the header of every armored block.
	Version = "xdao-purse 1"

	lineWidth = 64

	// FirstLineMax bounds the first line returned by DearmorAndTrim.
	FirstLineMax = 70
)

// EncodeField returns the unframed armored form of data.
func EncodeField(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	packed := snappy.Encode(nil, data)
	return wrap(base64.StdEncoding.EncodeToString(packed))
}

// DecodeField reverses EncodeField. Whitespace inside the field is ignored.
func DecodeField(text string) ([]byte, error) {
	compact := strings.Join(strings.Fields(text), "")
	if compact == "" {
		return nil, fault.New(fault.KindDecode, "PURSE-ARMOR-001", "empty armored field")
	}
	packed, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fault.Wrap(fault.KindDecode, "PURSE-ARMOR-002", "invalid armored base64", err)
	}
	data, err := snappy.Decode(nil, packed)
	if err != nil {
		return nil, fault.Wrap(fault.KindDecode, "PURSE-ARMOR-003", "invalid armored payload", err)
	}
	return data, nil
}

// Encode wraps data in a bookended armor block of the given kind (e.g. "PURSE").
func Encode(kind string, data []byte) string {
	var sb strings.Builder
	sb.WriteString(beginPrefix)
	sb.WriteString(kind)
	sb.WriteString(dashes)
	sb.WriteString("\nVersion: ")
	sb.WriteString(Version)
	sb.WriteString("\n\n")
	sb.WriteString(EncodeField(data))
	sb.WriteString("\n")
	sb.WriteString(endPrefix)
	sb.WriteString(kind)
	sb.WriteString(dashes)
	sb.WriteString("\n")
	return sb.String()
}

// IsArmored reports whether text contains an armor BEGIN bookend.
func IsArmored(text string) bool {
	return strings.Contains(text, beginPrefix)
}

// Decode extracts and decodes the payload of the first armor block in text.
// It returns the block kind along with the data.
func Decode(text string) (kind string, data []byte, err error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := -1
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, beginPrefix) && strings.HasSuffix(l, dashes) && len(l) > len(beginPrefix)+len(dashes) {
			kind = l[len(beginPrefix) : len(l)-len(dashes)]
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", nil, fault.New(fault.KindDecode, "PURSE-ARMOR-010", "missing armor BEGIN line")
	}

	// Header lines run until the first blank line.
	i := start
	for ; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			i++
			break
		}
		if !strings.Contains(l, ":") {
			break
		}
	}

	end := endPrefix + kind + dashes
	var payload strings.Builder
	for ; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if l == end {
			data, err := DecodeField(payload.String())
			if err != nil {
				return "", nil, err
			}
			return kind, data, nil
		}
		if strings.HasPrefix(l, dashes) {
			return "", nil, fault.New(fault.KindDecode, "PURSE-ARMOR-011", "mismatched armor END line")
		}
		payload.WriteString(l)
	}
	return "", nil, fault.New(fault.KindDecode, "PURSE-ARMOR-012", "missing armor END line")
}

// DearmorAndTrim decodes input if it is armored, trims surrounding whitespace,
// and returns the result along with its first non-empty line (at most
// FirstLineMax bytes) for type sniffing.
//
// It fails if decoding was attempted and failed, if nothing is left, or if
// the first line still carries a dash escape ("- -").
func DearmorAndTrim(input string) (body, firstLine string, err error) {
	body = input
	if IsArmored(input) {
		_, data, derr := Decode(input)
		if derr != nil {
			return "", "", derr
		}
		body = string(data)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", "", fault.New(fault.KindDecode, "PURSE-ARMOR-020", "empty input after dearmoring")
	}

	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		firstLine = l
		break
	}
	if len(firstLine) > FirstLineMax {
		firstLine = firstLine[:FirstLineMax]
	}
	if strings.Contains(firstLine, "- -") {
		return "", "", fault.New(fault.KindDecode, "PURSE-ARMOR-021", "first line carries a dash escape")
	}
	return body, firstLine, nil
}

func wrap(s string) string {
	if len(s) <= lineWidth {
		return s
	}
	var sb strings.Builder
	for len(s) > lineWidth {
		sb.WriteString(s[:lineWidth])
		sb.WriteString("\n")
		s = s[lineWidth:]
	}
	sb.WriteString(s)
	return sb.String()
}
