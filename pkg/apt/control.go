package apt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/debstrap/debstrap/internal/bserror"
)

// DecodeControl parses a Debian control stream (one or more stanzas
// separated by blank lines) into PackageRecord values. It preserves
// every field verbatim in Extra/FieldOrder, matching field names
// case-insensitively but canonicalizing them the way dpkg does
// (Title-Case, hyphen-separated), because the solver depends on
// relational fields surviving untouched. Ill-formed stanzas fail with
// bserror.MalformedIndex citing the byte offset.
func DecodeControl(r io.Reader) ([]PackageRecord, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var records []PackageRecord
	fields := map[string]string{}
	var order []string
	var lastKey string
	var offset int64

	flush := func() {
		if len(fields) == 0 {
			return
		}
		records = append(records, buildRecord(fields, order))
		fields = map[string]string{}
		order = nil
		lastKey = ""
	}

	for {
		lineStart := offset
		line, err := br.ReadString('\n')
		offset += int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")

		if trimmed == "" {
			flush()
			if err == io.EOF {
				return records, nil
			}
			if err != nil {
				return nil, bserror.Wrapf(bserror.MalformedIndex, "", "reading control stream: %v", err)
			}
			continue
		}

		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if lastKey == "" {
				return nil, bserror.Wrapf(bserror.MalformedIndex, "", "continuation line with no preceding field at offset %d", lineStart)
			}
			cont := strings.TrimLeft(trimmed, " \t")
			if cont == "." {
				// a lone "." denotes a blank line embedded in the field
				cont = ""
			}
			fields[lastKey] += "\n" + cont
			order = appendOnce(order, lastKey)
		} else {
			name, value, ok := strings.Cut(trimmed, ":")
			if !ok {
				return nil, bserror.Wrapf(bserror.MalformedIndex, "", "malformed field at offset %d: %q", lineStart, trimmed)
			}
			key := canonicalFieldName(strings.TrimSpace(name))
			fields[key] = strings.TrimSpace(value)
			order = appendOnce(order, key)
			lastKey = key
		}

		if err == io.EOF {
			flush()
			return records, nil
		}
		if err != nil {
			return nil, bserror.Wrapf(bserror.MalformedIndex, "", "reading control stream: %v", err)
		}
	}
}

func appendOnce(order []string, key string) []string {
	for _, k := range order {
		if k == key {
			return order
		}
	}
	return append(order, key)
}

// canonicalFieldName renders a field name in the Title-Case,
// hyphen-separated form dpkg itself emits, regardless of the source's
// casing (field names are matched case-insensitively but emitted
// canonically, per spec §4.2).
func canonicalFieldName(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}

func buildRecord(fields map[string]string, order []string) PackageRecord {
	get := func(name string) string { return fields[canonicalFieldName(name)] }

	rec := PackageRecord{
		Package:      get("Package"),
		Version:      get("Version"),
		Architecture: get("Architecture"),
		Filename:     get("Filename"),
		SHA256:       get("SHA256"),
		SHA512:       get("SHA512"),
		MD5sum:       get("MD5sum"),
		Depends:      splitRelation(get("Depends")),
		PreDepends:   splitRelation(get("Pre-Depends")),
		Recommends:   splitRelation(get("Recommends")),
		Conflicts:    splitRelation(get("Conflicts")),
		Breaks:       splitRelation(get("Breaks")),
		Provides:     splitRelation(get("Provides")),
		Replaces:     splitRelation(get("Replaces")),
		Extra:        map[string]string{},
		FieldOrder:   append([]string{}, order...),
	}
	if s := get("Size"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			rec.Size = n
		}
	}
	for k, v := range fields {
		rec.Extra[k] = v
	}
	return rec
}

func splitRelation(s string) []string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EncodeControl re-serializes a record's fields in FieldOrder, used by
// the round-trip test in spec §8. A record with an empty FieldOrder is
// written in Extra's map iteration order, which is not defined.
func EncodeControl(w io.Writer, rec PackageRecord) error {
	order := rec.FieldOrder
	if len(order) == 0 {
		for k := range rec.Extra {
			order = append(order, k)
		}
	}
	for _, k := range order {
		v := rec.Extra[k]
		lines := strings.Split(v, "\n")
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, lines[0]); err != nil {
			return err
		}
		for _, cont := range lines[1:] {
			if cont == "" {
				cont = "."
			}
			if _, err := fmt.Fprintf(w, " %s\n", cont); err != nil {
				return err
			}
		}
	}
	return nil
}
