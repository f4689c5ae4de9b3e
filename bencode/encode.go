package bencode

import (
	"bytes"
	"sort"
	"strconv"
)

// Encode serializes v per the bencode grammar. Dictionary keys are always
// emitted in ascending byte-wise lexicographic order regardless of the
// order entries were inserted in — this is what makes info_hash stable.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindString:
		buf.WriteString(strconv.Itoa(len(v.Str)))
		buf.WriteByte(':')
		buf.Write(v.Str)
	case KindInt:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteByte('e')
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.List {
			encodeInto(buf, item)
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		entries := append([]DictEntry(nil), v.Dict...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		for _, e := range entries {
			encodeInto(buf, String([]byte(e.Key)))
			encodeInto(buf, e.Val)
		}
		buf.WriteByte('e')
	}
}
