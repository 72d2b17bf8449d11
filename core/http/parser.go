package http

import (
	"bytes"
	"errors"

	"golang.org/x/net/http/httpguts"
)

// ErrMalformed is returned for any header block that fails to parse under
// the rules in spec.md §4.C.
var ErrMalformed = errors.New("malformed request")

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

var allowedVersions = map[string]bool{
	"HTTP/1.0": true,
	"HTTP/1.1": true,
}

// ParseHeaders parses data, which must contain exactly the header block up
// to and including the terminating CRLF CRLF, into req. It never looks at
// bytes past the header block; the Connection accumulates the body
// separately.
func ParseHeaders(data []byte, req *Request) error {
	lineEnd := bytes.Index(data, crlf)
	if lineEnd == -1 {
		return ErrMalformed
	}

	if err := parseStartLine(data[:lineEnd], req); err != nil {
		return err
	}

	rest := data[lineEnd+2:]
	return parseHeaderLines(rest, req)
}

var crlf = []byte("\r\n")

func parseStartLine(line []byte, req *Request) error {
	fields := splitSpaces(line)
	if len(fields) != 3 {
		return ErrMalformed
	}

	method, path, version := string(fields[0]), string(fields[1]), string(fields[2])
	if method == "" || path == "" || version == "" {
		return ErrMalformed
	}
	if !allowedMethods[method] {
		return ErrMalformed
	}
	if !allowedVersions[version] {
		return ErrMalformed
	}

	req.Method = method
	req.Path = path
	req.Version = version
	return nil
}

// splitSpaces splits the whole line on ASCII spaces, dropping empty
// fields; the caller rejects any result other than exactly 3 fields.
func splitSpaces(line []byte) [][]byte {
	var fields [][]byte
	start := -1
	for i := 0; i <= len(line); i++ {
		atEnd := i == len(line)
		isSpace := !atEnd && line[i] == ' '
		if !isSpace && !atEnd {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			fields = append(fields, line[start:i])
			start = -1
		}
	}
	return fields
}

func parseHeaderLines(data []byte, req *Request) error {
	for len(data) > 0 {
		lineEnd := bytes.Index(data, crlf)
		var line []byte
		if lineEnd == -1 {
			line = data
			data = nil
		} else {
			line = data[:lineEnd]
			data = data[lineEnd+2:]
		}

		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return ErrMalformed
		}

		key := trim(line[:colon])
		value := trim(line[colon+1:])
		if len(key) == 0 {
			return ErrMalformed
		}

		keyStr := string(key)
		valStr := string(value)
		if !httpguts.ValidHeaderFieldName(keyStr) || !httpguts.ValidHeaderFieldValue(valStr) {
			return ErrMalformed
		}

		req.SetHeader(keyStr, valStr)
	}
	return nil
}

// trim strips leading/trailing space, tab, CR, and LF, matching spec.md §4.C.
func trim(b []byte) []byte {
	start := 0
	for start < len(b) && isSpaceByte(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpaceByte(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
